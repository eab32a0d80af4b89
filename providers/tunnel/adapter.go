package tunnel

import (
	"context"
	"fmt"
	"log/slog"

	cf "github.com/cloudflare/cloudflare-go/v6"
)

// Adapter is the narrow interface the tunnel reconciler (internal/tunnel)
// depends on. It intentionally does not implement pkg/provider.Provider: a
// tunnel has one ordered ingress list, not a set of independently
// creatable/deletable records.
type Adapter interface {
	Name() string
	TunnelID() string
	Get(ctx context.Context) (*Configuration, error)
	Replace(ctx context.Context, ingress []IngressRule) error
	Ping(ctx context.Context) error
}

// Provider is the default Adapter implementation, backed by a Cloudflare
// Tunnel's ingress configuration endpoint.
type Provider struct {
	name     string
	tunnelID string
	client   *Client
	logger   *slog.Logger
}

// ProviderOption is a functional option for configuring the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a Provider from an already-authenticated cloudflare-go client,
// for sharing the client with a providers/cloudflare.Provider instance
// targeting the same account/token.
func New(name string, api *cf.Client, accountID, tunnelID string, opts ...ProviderOption) *Provider {
	p := &Provider{
		name:     name,
		tunnelID: tunnelID,
		client:   NewClient(api, accountID),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig creates a Provider with its own standalone Cloudflare client.
func NewFromConfig(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:     name,
		tunnelID: config.TunnelID,
		client:   NewStandaloneClient(config.Token, config.AccountID),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromMap creates a Provider from a configuration map, used by the
// provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (*Provider, error) {
	cfg := &Config{
		Token:     config["TOKEN"],
		AccountID: config["ACCOUNT_ID"],
		TunnelID:  config["TUNNEL_ID"],
	}
	return NewFromConfig(name, cfg)
}

// Name returns the adapter instance name.
func (p *Provider) Name() string {
	return p.name
}

// TunnelID returns the configured tunnel ID.
func (p *Provider) TunnelID() string {
	return p.tunnelID
}

// Get retrieves the current ingress configuration.
func (p *Provider) Get(ctx context.Context) (*Configuration, error) {
	return p.client.GetConfiguration(ctx, p.tunnelID)
}

// Replace atomically replaces the full ingress list, appending the trailing
// catch-all rule. It is a no-op (skips the API call) when the desired list is
// already equivalent to the current one, mirroring the teacher's
// configChanged short-circuit.
func (p *Provider) Replace(ctx context.Context, ingress []IngressRule) error {
	current, err := p.client.GetConfiguration(ctx, p.tunnelID)
	if err == nil && ConfigurationEqual(current.Ingress, ingress) {
		p.logger.Debug("tunnel configuration unchanged, skipping update",
			slog.String("tunnel_id", p.tunnelID),
			slog.Int("ingress_count", len(ingress)),
		)
		return nil
	}

	if err := p.client.UpdateConfiguration(ctx, p.tunnelID, ingress); err != nil {
		return err
	}

	p.logger.Info("updated tunnel configuration",
		slog.String("provider", p.name),
		slog.String("tunnel_id", p.tunnelID),
		slog.Int("ingress_count", len(ingress)),
	)

	return nil
}

// Ping verifies tunnel connectivity and credentials.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx, p.tunnelID)
}

var _ Adapter = (*Provider)(nil)
