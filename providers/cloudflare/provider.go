// Package cloudflare implements the woven provider interface for Cloudflare DNS.
package cloudflare

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	cf "github.com/cloudflare/cloudflare-go/v6"
	"github.com/cloudflare/cloudflare-go/v6/dns"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// ownershipComment is written to a record's native comment field in addition
// to the TXT ownership marker. It is a diagnostic hint only — the ownership
// ledger is the durable source of truth.
const ownershipComment = "managed by woven"

// Provider implements provider.Provider for Cloudflare DNS.
type Provider struct {
	name    string
	zone    string // Zone name (for display/logging)
	zoneID  string // Resolved zone ID
	ttl     int
	proxied bool
	client  *Client
	logger  *slog.Logger

	zoneIDOnce sync.Once
	zoneIDErr  error
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

// New creates a new Cloudflare provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:    name,
		zone:    config.Zone,
		zoneID:  config.ZoneID,
		ttl:     config.TTL,
		proxied: config.Proxied,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	p.client = NewClient(config.Token)

	return p, nil
}

// NewFromEnv creates a new Cloudflare provider from environment variables.
func NewFromEnv(instanceName string, opts ...ProviderOption) (*Provider, error) {
	config, err := LoadConfig(instanceName)
	if err != nil {
		return nil, err
	}

	return New(instanceName, config, opts...)
}

// NewFromMap creates a new Cloudflare provider from a configuration map.
// This is used by the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (*Provider, error) {
	cfg := &Config{
		Token:   config["TOKEN"],
		ZoneID:  config["ZONE_ID"],
		Zone:    config["ZONE"],
		TTL:     DefaultTTL,
		Proxied: false,
	}

	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		var ttl int
		if _, err := fmt.Sscanf(ttlStr, "%d", &ttl); err == nil {
			cfg.TTL = ttl
		}
	}

	if proxiedStr, ok := config["PROXIED"]; ok && proxiedStr != "" {
		cfg.Proxied = parseBool(proxiedStr)
	}

	return New(name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "cloudflare".
func (p *Provider) Type() string {
	return "cloudflare"
}

// Capabilities returns the provider's feature support.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsOwnershipTXT:    true,
		SupportsOwnershipMarker: true,
		SupportsNativeUpdate:    true,
		SupportsProxied:         true,
		SupportedRecordTypes: []provider.RecordType{
			provider.RecordTypeA,
			provider.RecordTypeAAAA,
			provider.RecordTypeCNAME,
			provider.RecordTypeSRV,
			provider.RecordTypeTXT,
			provider.RecordTypeCAA,
		},
	}
}

// Zone returns the configured DNS zone name.
func (p *Provider) Zone() string {
	return p.zone
}

// ZoneID returns the resolved zone ID, looking it up if necessary.
func (p *Provider) ZoneID(ctx context.Context) (string, error) {
	if p.zoneID != "" {
		return p.zoneID, nil
	}

	p.zoneIDOnce.Do(func() {
		p.zoneID, p.zoneIDErr = p.client.GetZoneID(ctx, p.zone)
	})

	if p.zoneIDErr != nil {
		return "", p.zoneIDErr
	}

	return p.zoneID, nil
}

// Ping checks connectivity to the Cloudflare API.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Validate(ctx)
}

var listedTypes = []dns.RecordListParamsType{
	dns.RecordListParamsTypeA,
	dns.RecordListParamsTypeAAAA,
	dns.RecordListParamsTypeCNAME,
	dns.RecordListParamsTypeTXT,
	dns.RecordListParamsTypeSRV,
	dns.RecordListParamsTypeCAA,
}

// List returns all managed records in the zone.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting zone ID: %w", err)
	}

	var records []provider.Record

	for _, rt := range listedTypes {
		page, err := p.client.API().DNS.Records.List(ctx, dns.RecordListParams{
			ZoneID: cf.F(zoneID),
			Type:   cf.F(rt),
		})
		if err != nil {
			return nil, fmt.Errorf("listing %s records: %w", rt, err)
		}

		for i := range page.Result {
			records = append(records, convertResponse(&page.Result[i]))
		}
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("zone_id", zoneID),
		slog.Int("count", len(records)),
	)

	return records, nil
}

func convertResponse(r *dns.RecordResponse) provider.Record {
	rec := provider.Record{
		Hostname:   r.Name,
		Type:       provider.RecordType(r.Type),
		Target:     r.Content,
		TTL:        int(r.TTL),
		Proxied:    r.Proxied,
		ProviderID: r.ID,
	}

	switch rec.Type {
	case provider.RecordTypeSRV:
		if r.Data.Target != "" || r.Data.Port != 0 {
			rec.Target = r.Data.Target
			rec.SRV = &provider.SRVData{
				Priority: uint16(r.Data.Priority),
				Weight:   uint16(r.Data.Weight),
				Port:     uint16(r.Data.Port),
			}
		}
	case provider.RecordTypeCAA:
		rec.Target = r.Data.Value
		rec.CAA = &provider.CAAData{
			Flags: uint8(r.Data.Flags),
			Tag:   r.Data.Tag,
		}
	}

	return rec
}

func effectiveTTL(ttl, fallback int, proxied bool) dns.TTL {
	if ttl <= 0 {
		ttl = fallback
	}
	if proxied {
		return dns.TTL(1) // "automatic", required for proxied records
	}
	return dns.TTL(ttl)
}

// buildCreateBody constructs the per-type request body for a new record.
func buildCreateBody(record provider.Record, ttl dns.TTL, proxied bool) (dns.RecordNewParamsBodyUnion, error) {
	switch record.Type {
	case provider.RecordTypeA:
		return dns.ARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.ARecordTypeA),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeAAAA:
		return dns.AAAARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.AAAARecordTypeAAAA),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeCNAME:
		return dns.CNAMERecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.CNAMERecordTypeCNAME),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeTXT:
		return dns.TXTRecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.TXTRecordTypeTXT),
			Content: cf.F(record.Target),
		}, nil
	case provider.RecordTypeCAA:
		if record.CAA == nil {
			return nil, fmt.Errorf("creating CAA record: CAA data is required")
		}
		return dns.CAARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.CAARecordTypeCAA),
			Comment: cf.F(ownershipComment),
			Data: cf.F(dns.CAARecordDataParam{
				Flags: cf.F(float64(record.CAA.Flags)),
				Tag:   cf.F(record.CAA.Tag),
				Value: cf.F(record.Target),
			}),
		}, nil
	case provider.RecordTypeSRV:
		if record.SRV == nil {
			return nil, fmt.Errorf("creating SRV record: SRV data is required")
		}
		return dns.SRVRecordParam{
			Name: cf.F(record.Hostname),
			TTL:  cf.F(ttl),
			Type: cf.F(dns.SRVRecordTypeSRV),
			Data: cf.F(dns.SRVRecordDataParam{
				Priority: cf.F(float64(record.SRV.Priority)),
				Weight:   cf.F(float64(record.SRV.Weight)),
				Port:     cf.F(float64(record.SRV.Port)),
				Target:   cf.F(record.Target),
			}),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported record type: %s", record.Type)
	}
}

// Create adds a new DNS record.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return fmt.Errorf("getting zone ID: %w", err)
	}

	proxied := p.proxied && record.Type != provider.RecordTypeTXT && record.Type != provider.RecordTypeSRV && record.Type != provider.RecordTypeCAA
	if record.Proxied {
		proxied = record.Proxied
	}
	ttl := effectiveTTL(record.TTL, p.ttl, proxied)

	body, err := buildCreateBody(record, ttl, proxied)
	if err != nil {
		return err
	}

	_, err = p.client.API().DNS.Records.New(ctx, dns.RecordNewParams{
		ZoneID: cf.F(zoneID),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("creating %s record: %w", record.Type, err)
	}

	p.logger.Info("created record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
		slog.Bool("proxied", proxied),
	)

	return nil
}

// findRecordID looks up the Cloudflare record ID for a hostname+type.
func (p *Provider) findRecordID(ctx context.Context, zoneID string, rt provider.RecordType, hostname string) (string, error) {
	page, err := p.client.API().DNS.Records.List(ctx, dns.RecordListParams{
		ZoneID: cf.F(zoneID),
		Name:   cf.F(dns.RecordListParamsName{Exact: cf.F(hostname)}),
		Type:   cf.F(dns.RecordListParamsType(rt)),
	})
	if err != nil {
		return "", fmt.Errorf("finding record: %w", err)
	}
	if len(page.Result) == 0 {
		return "", nil
	}
	return page.Result[0].ID, nil
}

// Delete removes a DNS record.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return fmt.Errorf("getting zone ID: %w", err)
	}

	recordID := record.ProviderID
	if recordID == "" {
		recordID, err = p.findRecordID(ctx, zoneID, record.Type, record.Hostname)
		if err != nil {
			return err
		}
	}
	if recordID == "" {
		p.logger.Warn("record not found for deletion",
			slog.String("hostname", record.Hostname),
			slog.String("type", string(record.Type)),
		)
		return nil
	}

	_, err = p.client.API().DNS.Records.Delete(ctx, recordID, dns.RecordDeleteParams{
		ZoneID: cf.F(zoneID),
	})
	if err != nil {
		return fmt.Errorf("deleting %s record: %w", record.Type, err)
	}

	p.logger.Info("deleted record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
	)

	return nil
}

// Update modifies an existing DNS record in place.
// Implements provider.Updater.
func (p *Provider) Update(ctx context.Context, existing, desired provider.Record) error {
	zoneID, err := p.ZoneID(ctx)
	if err != nil {
		return fmt.Errorf("getting zone ID: %w", err)
	}

	recordID := existing.ProviderID
	if recordID == "" {
		recordID, err = p.findRecordID(ctx, zoneID, existing.Type, existing.Hostname)
		if err != nil {
			return err
		}
	}
	if recordID == "" {
		return provider.ErrNotFound
	}

	proxied := p.proxied && desired.Type != provider.RecordTypeTXT && desired.Type != provider.RecordTypeSRV && desired.Type != provider.RecordTypeCAA
	if desired.Proxied {
		proxied = desired.Proxied
	}
	ttl := effectiveTTL(desired.TTL, p.ttl, proxied)

	body, err := buildUpdateBody(desired, ttl, proxied)
	if err != nil {
		return err
	}

	_, err = p.client.API().DNS.Records.Update(ctx, recordID, dns.RecordUpdateParams{
		ZoneID: cf.F(zoneID),
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("updating %s record: %w", desired.Type, err)
	}

	p.logger.Info("updated record",
		slog.String("provider", p.name),
		slog.String("hostname", desired.Hostname),
		slog.String("type", string(desired.Type)),
		slog.String("old_target", existing.Target),
		slog.String("new_target", desired.Target),
	)

	return nil
}

func buildUpdateBody(record provider.Record, ttl dns.TTL, proxied bool) (dns.RecordUpdateParamsBodyUnion, error) {
	switch record.Type {
	case provider.RecordTypeA:
		return dns.ARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.ARecordTypeA),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeAAAA:
		return dns.AAAARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.AAAARecordTypeAAAA),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeCNAME:
		return dns.CNAMERecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.CNAMERecordTypeCNAME),
			Content: cf.F(record.Target),
			Proxied: cf.F(proxied),
			Comment: cf.F(ownershipComment),
		}, nil
	case provider.RecordTypeTXT:
		return dns.TXTRecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.TXTRecordTypeTXT),
			Content: cf.F(record.Target),
		}, nil
	case provider.RecordTypeCAA:
		if record.CAA == nil {
			return nil, fmt.Errorf("updating CAA record: CAA data is required")
		}
		return dns.CAARecordParam{
			Name:    cf.F(record.Hostname),
			TTL:     cf.F(ttl),
			Type:    cf.F(dns.CAARecordTypeCAA),
			Comment: cf.F(ownershipComment),
			Data: cf.F(dns.CAARecordDataParam{
				Flags: cf.F(float64(record.CAA.Flags)),
				Tag:   cf.F(record.CAA.Tag),
				Value: cf.F(record.Target),
			}),
		}, nil
	case provider.RecordTypeSRV:
		if record.SRV == nil {
			return nil, fmt.Errorf("updating SRV record: SRV data is required")
		}
		return dns.SRVRecordParam{
			Name: cf.F(record.Hostname),
			TTL:  cf.F(ttl),
			Type: cf.F(dns.SRVRecordTypeSRV),
			Data: cf.F(dns.SRVRecordDataParam{
				Priority: cf.F(float64(record.SRV.Priority)),
				Weight:   cf.F(float64(record.SRV.Weight)),
				Port:     cf.F(float64(record.SRV.Port)),
				Target:   cf.F(record.Target),
			}),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported record type: %s", record.Type)
	}
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config)
	}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Updater = (*Provider)(nil)
