package pihole

import (
	"gitlab.com/wovendns/woven/pkg/provider"
)

// Factory returns a provider.Factory for creating Pi-hole provider instances.
// This is the recommended way to register the Pi-hole provider with the registry.
// The provider is built from the configuration map alone, with the default
// logger and HTTP client.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config)
	}
}
