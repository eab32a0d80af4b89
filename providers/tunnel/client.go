package tunnel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	cf "github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/option"
	"github.com/cloudflare/cloudflare-go/v6/zero_trust"
)

// Client manages ingress configuration for a single Cloudflare Tunnel.
// It is deliberately thin: the tunnel reconciler owns diffing and ordering,
// this type only talks to the API.
type Client struct {
	api       *cf.Client
	accountID string
}

// NewClient wraps an existing cloudflare-go client, shared with
// providers/cloudflare when both DNS and tunnel adapters target the same
// account and token.
func NewClient(api *cf.Client, accountID string) *Client {
	return &Client{api: api, accountID: accountID}
}

// NewStandaloneClient builds its own cloudflare-go client from an API token,
// for deployments running the tunnel adapter without a paired DNS provider.
func NewStandaloneClient(token, accountID string) *Client {
	return &Client{api: cf.NewClient(option.WithAPIToken(token)), accountID: accountID}
}

// GetConfiguration retrieves the current ingress configuration for a tunnel.
func (c *Client) GetConfiguration(ctx context.Context, tunnelID string) (*Configuration, error) {
	result, err := c.api.ZeroTrust.Tunnels.Cloudflared.Configurations.Get(ctx, tunnelID, zero_trust.TunnelCloudflaredConfigurationGetParams{
		AccountID: cf.F(c.accountID),
	})
	if err != nil {
		return nil, fmt.Errorf("getting tunnel configuration: %w", err)
	}

	config := &Configuration{TunnelID: tunnelID}
	for _, ing := range result.Config.Ingress {
		rule := IngressRule{
			Hostname: ing.Hostname,
			Service:  ing.Service,
			Path:     ing.Path,
		}
		rule.OriginRequest = convertGetResponseOriginRequest(&ing.OriginRequest)
		config.Ingress = append(config.Ingress, rule)
	}

	return config, nil
}

// UpdateConfiguration replaces the entire ingress list for a tunnel,
// appending the mandatory catch-all rule if the caller didn't include one.
func (c *Client) UpdateConfiguration(ctx context.Context, tunnelID string, ingress []IngressRule) error {
	params := make([]zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress, 0, len(ingress)+1)
	for _, rule := range ingress {
		p := zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress{
			Service: cf.F(rule.Service),
		}
		if rule.Hostname != "" {
			p.Hostname = cf.F(rule.Hostname)
		}
		if rule.Path != "" {
			p.Path = cf.F(rule.Path)
		}
		if rule.OriginRequest != nil {
			p.OriginRequest = cf.F(convertOriginRequestToParams(rule.OriginRequest))
		}
		params = append(params, p)
	}

	if len(params) == 0 || ingress[len(ingress)-1].Hostname != "" {
		params = append(params, zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngress{
			Service: cf.F("http_status:404"),
		})
	}

	_, err := c.api.ZeroTrust.Tunnels.Cloudflared.Configurations.Update(ctx, tunnelID, zero_trust.TunnelCloudflaredConfigurationUpdateParams{
		AccountID: cf.F(c.accountID),
		Config: cf.F(zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfig{
			Ingress: cf.F(params),
		}),
	})
	if err != nil {
		return fmt.Errorf("updating tunnel configuration: %w", err)
	}

	return nil
}

// Ping verifies the tunnel exists and credentials are valid.
func (c *Client) Ping(ctx context.Context, tunnelID string) error {
	_, err := c.api.ZeroTrust.Tunnels.Cloudflared.Get(ctx, tunnelID, zero_trust.TunnelCloudflaredGetParams{
		AccountID: cf.F(c.accountID),
	})
	if err != nil {
		return fmt.Errorf("tunnel ping failed: %w", err)
	}
	return nil
}

func convertOriginRequestToParams(or *OriginRequestConfig) zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngressOriginRequest {
	params := zero_trust.TunnelCloudflaredConfigurationUpdateParamsConfigIngressOriginRequest{}

	if secs := parseDurationToSeconds(or.ConnectTimeout); secs > 0 {
		params.ConnectTimeout = cf.F(secs)
	}
	if secs := parseDurationToSeconds(or.TLSTimeout); secs > 0 {
		params.TLSTimeout = cf.F(secs)
	}
	if secs := parseDurationToSeconds(or.TCPKeepAlive); secs > 0 {
		params.TCPKeepAlive = cf.F(secs)
	}
	if or.KeepAliveConnections > 0 {
		params.KeepAliveConnections = cf.F(int64(or.KeepAliveConnections))
	}
	if secs := parseDurationToSeconds(or.KeepAliveTimeout); secs > 0 {
		params.KeepAliveTimeout = cf.F(secs)
	}
	if or.NoTLSVerify {
		params.NoTLSVerify = cf.F(true)
	}
	if or.OriginServerName != "" {
		params.OriginServerName = cf.F(or.OriginServerName)
	}
	if or.CAPool != "" {
		params.CAPool = cf.F(or.CAPool)
	}
	if or.HTTPHostHeader != "" {
		params.HTTPHostHeader = cf.F(or.HTTPHostHeader)
	}
	if or.NoHappyEyeballs {
		params.NoHappyEyeballs = cf.F(true)
	}
	if or.DisableChunkedEncoding {
		params.DisableChunkedEncoding = cf.F(true)
	}
	if or.ProxyType != "" {
		params.ProxyType = cf.F(or.ProxyType)
	}

	return params
}

func convertGetResponseOriginRequest(or *zero_trust.TunnelCloudflaredConfigurationGetResponseConfigIngressOriginRequest) *OriginRequestConfig {
	if or == nil {
		return nil
	}

	cfg := &OriginRequestConfig{
		NoTLSVerify:            or.NoTLSVerify,
		OriginServerName:       or.OriginServerName,
		CAPool:                 or.CAPool,
		HTTPHostHeader:         or.HTTPHostHeader,
		NoHappyEyeballs:        or.NoHappyEyeballs,
		DisableChunkedEncoding: or.DisableChunkedEncoding,
		ProxyType:              or.ProxyType,
	}

	if or.ConnectTimeout > 0 {
		cfg.ConnectTimeout = fmt.Sprintf("%ds", or.ConnectTimeout)
	}
	if or.TLSTimeout > 0 {
		cfg.TLSTimeout = fmt.Sprintf("%ds", or.TLSTimeout)
	}
	if or.TCPKeepAlive > 0 {
		cfg.TCPKeepAlive = fmt.Sprintf("%ds", or.TCPKeepAlive)
	}
	if or.KeepAliveConnections > 0 {
		cfg.KeepAliveConnections = int(or.KeepAliveConnections)
	}
	if or.KeepAliveTimeout > 0 {
		cfg.KeepAliveTimeout = fmt.Sprintf("%ds", or.KeepAliveTimeout)
	}

	if cfg.ConnectTimeout == "" && cfg.TLSTimeout == "" && cfg.TCPKeepAlive == "" &&
		cfg.KeepAliveConnections == 0 && cfg.KeepAliveTimeout == "" &&
		!cfg.NoTLSVerify && cfg.OriginServerName == "" && cfg.CAPool == "" &&
		cfg.HTTPHostHeader == "" && !cfg.NoHappyEyeballs && !cfg.DisableChunkedEncoding &&
		cfg.ProxyType == "" {
		return nil
	}

	return cfg
}

func parseDurationToSeconds(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil {
		return int64(d.Seconds())
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return 0
}
