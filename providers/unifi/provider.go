package unifi

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// Provider implements provider.Provider for UniFi Network Controller static
// DNS entries. The controller has no native update or batch endpoint, so
// writes are delete+create, followed by a settle delay to let the controller
// propagate the change to dnsmasq before the next reconcile loop reads it back.
type Provider struct {
	name        string
	site        string
	ttl         int
	settleDelay time.Duration
	client      *Client
	logger      *slog.Logger
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

// New creates a new UniFi provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:        name,
		site:        config.Site,
		ttl:         config.TTL,
		settleDelay: config.SettleDelay,
		client:      NewClient(config),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// NewFromEnv creates a new UniFi provider from environment variables.
func NewFromEnv(instanceName string, opts ...ProviderOption) (*Provider, error) {
	config, err := LoadConfig(instanceName)
	if err != nil {
		return nil, err
	}
	return New(instanceName, config, opts...)
}

// NewFromMap creates a new UniFi provider from a configuration map, used by
// the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (*Provider, error) {
	cfg := &Config{
		BaseURL:     strings.TrimSuffix(config["BASE_URL"], "/"),
		Username:    config["USERNAME"],
		Password:    config["PASSWORD"],
		Site:        config["SITE"],
		TTL:         DefaultTTL,
		SettleDelay: DefaultSettleDelay,
		InsecureTLS: parseBool(config["INSECURE_TLS"]),
	}
	if cfg.Site == "" {
		cfg.Site = "default"
	}
	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			cfg.TTL = ttl
		}
	}
	if delayStr, ok := config["SETTLE_DELAY"]; ok && delayStr != "" {
		if d, err := time.ParseDuration(delayStr); err == nil {
			cfg.SettleDelay = d
		}
	}
	return New(name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "unifi".
func (p *Provider) Type() string {
	return "unifi"
}

// Capabilities returns the provider's feature support. UniFi has no native
// update or batch endpoint and no proxying concept; TXT ownership records are
// supported the same as any other record type.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsOwnershipTXT: true,
		SupportsNativeUpdate: false,
		SupportsProxied:      false,
		SupportedRecordTypes: []provider.RecordType{
			provider.RecordTypeA,
			provider.RecordTypeAAAA,
			provider.RecordTypeCNAME,
			provider.RecordTypeTXT,
			provider.RecordTypeSRV,
		},
	}
}

// Ping verifies controller connectivity and credentials.
func (p *Provider) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx); err != nil {
		return fmt.Errorf("unifi ping failed: %w", err)
	}
	return nil
}

var supportedUnifiTypes = map[string]provider.RecordType{
	"A":     provider.RecordTypeA,
	"AAAA":  provider.RecordTypeAAAA,
	"CNAME": provider.RecordTypeCNAME,
	"TXT":   provider.RecordTypeTXT,
	"SRV":   provider.RecordTypeSRV,
}

var recordTypeToKey = func() map[provider.RecordType]string {
	m := make(map[provider.RecordType]string, len(supportedUnifiTypes))
	for k, v := range supportedUnifiTypes {
		m[v] = k
	}
	return m
}()

func convertStaticDNS(r staticDNSRecord) (provider.Record, bool) {
	recordType, ok := supportedUnifiTypes[strings.ToUpper(r.Key)]
	if !ok {
		return provider.Record{}, false
	}

	rec := provider.Record{
		Hostname:   r.Name,
		Type:       recordType,
		Target:     r.Value,
		TTL:        r.TTL,
		ProviderID: r.ID,
	}

	if recordType == provider.RecordTypeSRV {
		rec.SRV = &provider.SRVData{
			Priority: uint16(r.Priority),
			Weight:   uint16(r.Weight),
			Port:     uint16(r.Port),
		}
	}

	return rec, true
}

func buildStaticDNS(record provider.Record, ttl int) (staticDNSRecord, error) {
	key, ok := recordTypeToKey[record.Type]
	if !ok {
		return staticDNSRecord{}, fmt.Errorf("record type %s is not supported by the unifi controller", record.Type)
	}

	rec := staticDNSRecord{
		Key:        key,
		RecordType: key,
		Name:       record.Hostname,
		Value:      record.Target,
		TTL:        ttl,
		Enabled:    true,
	}

	if record.Type == provider.RecordTypeSRV {
		if record.SRV == nil {
			return staticDNSRecord{}, fmt.Errorf("creating SRV record: SRV data is required")
		}
		rec.Priority = int(record.SRV.Priority)
		rec.Weight = int(record.SRV.Weight)
		rec.Port = int(record.SRV.Port)
	}

	return rec, nil
}

// List returns all static DNS entries configured on the controller,
// deduplicating repeated hostname/type/target triples that can accumulate
// from interrupted delete+create cycles.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	raw, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing static DNS records: %w", err)
	}

	seen := make(map[string]bool, len(raw))
	var records []provider.Record
	for _, r := range raw {
		rec, ok := convertStaticDNS(r)
		if !ok {
			continue
		}
		key := rec.Hostname + "|" + string(rec.Type) + "|" + rec.Target
		if seen[key] {
			continue
		}
		seen[key] = true
		records = append(records, rec)
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("site", p.site),
		slog.Int("count", len(records)),
	)

	return records, nil
}

// Create adds a new static DNS entry, then sleeps for the configured settle
// delay so the controller has time to push the change down to dnsmasq.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	ttl := record.TTL
	if ttl <= 0 {
		ttl = p.ttl
	}

	rec, err := buildStaticDNS(record, ttl)
	if err != nil {
		return err
	}

	if err := p.client.Create(ctx, rec); err != nil {
		return fmt.Errorf("creating %s record: %w", record.Type, err)
	}

	p.logger.Info("created record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
	)

	return p.settle(ctx)
}

func (p *Provider) findRecordIDs(ctx context.Context, record provider.Record) ([]string, error) {
	raw, err := p.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing static DNS records: %w", err)
	}

	var ids []string
	for _, r := range raw {
		rec, ok := convertStaticDNS(r)
		if !ok {
			continue
		}
		if rec.Hostname == record.Hostname && rec.Type == record.Type && rec.Target == record.Target {
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

// Delete removes a static DNS entry. Because the controller has been seen to
// accumulate duplicate entries across retried writes, every matching entry is
// swept, not just the first.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	ids, err := p.findRecordIDs(ctx, record)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		p.logger.Warn("record not found for deletion",
			slog.String("hostname", record.Hostname),
			slog.String("type", string(record.Type)),
		)
		return nil
	}

	for _, id := range ids {
		if err := p.client.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting %s record: %w", record.Type, err)
		}
	}

	p.logger.Info("deleted record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.Int("entries_removed", len(ids)),
	)

	return p.settle(ctx)
}

func (p *Provider) settle(ctx context.Context) error {
	if p.settleDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(p.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config)
	}
}

var _ provider.Provider = (*Provider)(nil)
