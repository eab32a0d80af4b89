// Package tunnel implements the ingress-rule list adapter for a Cloudflare
// Tunnel, consumed by the tunnel reconciler. It shares the Cloudflare API
// client used by providers/cloudflare rather than opening its own connection.
package tunnel

// IngressRule is one hostname-to-origin mapping in a tunnel's configuration.
type IngressRule struct {
	Hostname      string
	Path          string
	Service       string
	OriginRequest *OriginRequestConfig
}

// OriginRequestConfig carries the subset of cloudflared's per-rule origin
// request tunables the reconciler is allowed to set.
type OriginRequestConfig struct {
	ConnectTimeout         string
	TLSTimeout             string
	TCPKeepAlive           string
	KeepAliveConnections   int
	KeepAliveTimeout       string
	NoTLSVerify            bool
	OriginServerName       string
	CAPool                 string
	HTTPHostHeader         string
	NoHappyEyeballs        bool
	DisableChunkedEncoding bool
	ProxyType              string
}

// Configuration is the full ingress list for a tunnel as read back from the
// API, including any trailing catch-all rule (hostname == ""). The adapter
// manages that rule itself: ConfigurationEqual ignores it and
// UpdateConfiguration appends it when the list does not end with one.
type Configuration struct {
	TunnelID string
	Ingress  []IngressRule
}

func originRequestEqual(a, b *OriginRequestConfig) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ConnectTimeout == b.ConnectTimeout &&
		a.TLSTimeout == b.TLSTimeout &&
		a.TCPKeepAlive == b.TCPKeepAlive &&
		a.KeepAliveConnections == b.KeepAliveConnections &&
		a.KeepAliveTimeout == b.KeepAliveTimeout &&
		a.NoTLSVerify == b.NoTLSVerify &&
		a.OriginServerName == b.OriginServerName &&
		a.CAPool == b.CAPool &&
		a.HTTPHostHeader == b.HTTPHostHeader &&
		a.NoHappyEyeballs == b.NoHappyEyeballs &&
		a.DisableChunkedEncoding == b.DisableChunkedEncoding &&
		a.ProxyType == b.ProxyType
}

// ConfigurationEqual reports whether two ingress lists are equivalent,
// ignoring rule order and any trailing catch-all rule (hostname == "").
func ConfigurationEqual(current, desired []IngressRule) bool {
	var currentRules []IngressRule
	for _, rule := range current {
		if rule.Hostname == "" {
			continue
		}
		currentRules = append(currentRules, rule)
	}

	if len(currentRules) != len(desired) {
		return false
	}

	currentByKey := make(map[string]IngressRule, len(currentRules))
	for _, rule := range currentRules {
		currentByKey[rule.Hostname+":"+rule.Path] = rule
	}

	for _, d := range desired {
		c, ok := currentByKey[d.Hostname+":"+d.Path]
		if !ok {
			return false
		}
		if c.Service != d.Service {
			return false
		}
		if !originRequestEqual(c.OriginRequest, d.OriginRequest) {
			return false
		}
	}

	return true
}
