package config

// TunnelConfig holds configuration for the optional Cloudflare Tunnel
// ingress reconciler, parsed from WOVEN_TUNNEL_* environment variables.
// Unlike DNS providers, a tunnel is a single adapter, not an instance list -
// there is exactly one tunnel reconciler per process.
type TunnelConfig struct {
	// Enabled controls whether the tunnel reconciler starts at all.
	// Presence of WOVEN_TUNNEL_TUNNEL_ID implies enablement unless
	// WOVEN_TUNNEL_ENABLED explicitly disables it.
	Enabled bool

	// Name identifies this tunnel adapter; services opt in to a specific
	// tunnel via the woven.tunnel.<svc>.tunnel label, matching this name
	// (or leaving it unset/"default" to match whichever tunnel is configured).
	Name string

	// Token is the Cloudflare API token.
	Token string

	// AccountID is the Cloudflare account ID.
	AccountID string

	// TunnelID is the Cloudflare Tunnel ID to manage ingress rules for.
	TunnelID string
}

// loadTunnelConfig loads tunnel reconciler configuration from
// WOVEN_TUNNEL_* environment variables (with _FILE fallback for secrets).
func loadTunnelConfig() *TunnelConfig {
	cfg := &TunnelConfig{
		Name:      getEnv("WOVEN_TUNNEL_NAME"),
		Token:     getEnvWithFileFallback("WOVEN_TUNNEL_", "TOKEN"),
		AccountID: getEnvWithFileFallback("WOVEN_TUNNEL_", "ACCOUNT_ID"),
		TunnelID:  getEnvWithFileFallback("WOVEN_TUNNEL_", "TUNNEL_ID"),
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	cfg.Enabled = cfg.TunnelID != ""
	if v := getEnv("WOVEN_TUNNEL_ENABLED"); v != "" {
		cfg.Enabled = parseBool(v, cfg.Enabled)
	}

	return cfg
}

// Tunnel returns the tunnel reconciler configuration.
func (c *Config) Tunnel() *TunnelConfig {
	return c.tunnel
}
