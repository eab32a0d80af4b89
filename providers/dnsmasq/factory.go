package dnsmasq

import (
	"gitlab.com/wovendns/woven/pkg/provider"
)

// Factory returns a provider.Factory for creating dnsmasq provider instances.
// This is the recommended way to register the dnsmasq provider with the registry.
//
// Note: dnsmasq is a file-based provider and does not use HTTP clients.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		// dnsmasq is file-based, so we just pass through to NewFromMap
		return NewFromMap(name, config)
	}
}
