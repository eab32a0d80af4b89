// Package digitalocean implements the woven provider interface for
// DigitalOcean's managed DNS (Domains/Records API), via the official
// godo SDK.
package digitalocean

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/digitalocean/godo"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// Provider implements provider.Provider for DigitalOcean DNS.
type Provider struct {
	name   string
	domain string
	ttl    int
	client *godo.Client
	logger *slog.Logger
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

// New creates a new DigitalOcean provider instance.
func New(name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		name:   name,
		domain: config.Domain,
		ttl:    config.TTL,
		client: godo.NewFromToken(config.Token),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// NewFromEnv creates a new DigitalOcean provider from environment variables.
func NewFromEnv(instanceName string, opts ...ProviderOption) (*Provider, error) {
	config, err := LoadConfig(instanceName)
	if err != nil {
		return nil, err
	}
	return New(instanceName, config, opts...)
}

// NewFromMap creates a new DigitalOcean provider from a configuration map,
// used by the provider registry Factory pattern.
func NewFromMap(name string, config map[string]string) (*Provider, error) {
	cfg := &Config{
		Token:  config["TOKEN"],
		Domain: config["DOMAIN"],
		TTL:    DefaultTTL,
	}
	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			cfg.TTL = ttl
		}
	}
	return New(name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "digitalocean".
func (p *Provider) Type() string {
	return "digitalocean"
}

// Capabilities returns the provider's feature support.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsOwnershipTXT: true,
		SupportsNativeUpdate: true,
		TTLMin:               30,
		SupportedRecordTypes: []provider.RecordType{
			provider.RecordTypeA,
			provider.RecordTypeAAAA,
			provider.RecordTypeCNAME,
			provider.RecordTypeTXT,
			provider.RecordTypeSRV,
			provider.RecordTypeCAA,
		},
	}
}

// Domain returns the configured DO domain resource name.
func (p *Provider) Domain() string {
	return p.domain
}

// Ping checks connectivity by fetching the configured domain.
func (p *Provider) Ping(ctx context.Context) error {
	_, _, err := p.client.Domains.Get(ctx, p.domain)
	if err != nil {
		return fmt.Errorf("digitalocean ping failed: %w", err)
	}
	return nil
}

// relativeName converts a fully-qualified hostname into the record name
// DigitalOcean expects: relative to the zone apex, or "@" for the apex itself.
func relativeName(hostname, domain string) string {
	hostname = strings.TrimSuffix(hostname, ".")
	domain = strings.TrimSuffix(domain, ".")
	if hostname == domain {
		return "@"
	}
	return strings.TrimSuffix(hostname, "."+domain)
}

// fqdn reverses relativeName, expanding a DO record name back to a full hostname.
func fqdn(name, domain string) string {
	if name == "@" || name == "" {
		return domain
	}
	return name + "." + domain
}

// List returns all managed records in the configured domain.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	opt := &godo.ListOptions{PerPage: 200}

	var records []provider.Record
	for {
		page, resp, err := p.client.Domains.Records(ctx, p.domain, opt)
		if err != nil {
			return nil, fmt.Errorf("listing records: %w", err)
		}
		for _, r := range page {
			if rec, ok := convertRecord(r, p.domain); ok {
				records = append(records, rec)
			}
		}

		if resp == nil || resp.Links == nil || resp.Links.IsLastPage() {
			break
		}
		next, err := resp.Links.CurrentPage()
		if err != nil {
			break
		}
		opt.Page = next + 1
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("domain", p.domain),
		slog.Int("count", len(records)),
	)

	return records, nil
}

var supportedDOTypes = map[string]provider.RecordType{
	"A":     provider.RecordTypeA,
	"AAAA":  provider.RecordTypeAAAA,
	"CNAME": provider.RecordTypeCNAME,
	"TXT":   provider.RecordTypeTXT,
	"SRV":   provider.RecordTypeSRV,
	"CAA":   provider.RecordTypeCAA,
}

func convertRecord(r godo.DomainRecord, domain string) (provider.Record, bool) {
	recordType, ok := supportedDOTypes[r.Type]
	if !ok {
		return provider.Record{}, false
	}

	rec := provider.Record{
		Hostname:   fqdn(r.Name, domain),
		Type:       recordType,
		Target:     r.Data,
		TTL:        r.TTL,
		ProviderID: strconv.Itoa(r.ID),
	}

	switch recordType {
	case provider.RecordTypeSRV:
		rec.SRV = &provider.SRVData{
			Priority: uint16(r.Priority),
			Weight:   uint16(r.Weight),
			Port:     uint16(r.Port),
		}
	case provider.RecordTypeCAA:
		rec.CAA = &provider.CAAData{
			Flags: uint8(r.Flags),
			Tag:   r.Tag,
		}
	}

	return rec, true
}

func buildEditRequest(record provider.Record, domain string, ttl int) (*godo.DomainRecordEditRequest, error) {
	req := &godo.DomainRecordEditRequest{
		Type: string(record.Type),
		Name: relativeName(record.Hostname, domain),
		Data: record.Target,
		TTL:  ttl,
	}

	switch record.Type {
	case provider.RecordTypeSRV:
		if record.SRV == nil {
			return nil, fmt.Errorf("creating SRV record: SRV data is required")
		}
		req.Priority = int(record.SRV.Priority)
		req.Weight = int(record.SRV.Weight)
		req.Port = int(record.SRV.Port)
	case provider.RecordTypeCAA:
		if record.CAA == nil {
			return nil, fmt.Errorf("creating CAA record: CAA data is required")
		}
		req.Flags = int(record.CAA.Flags)
		req.Tag = record.CAA.Tag
	}

	return req, nil
}

// Create adds a new DNS record.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	ttl := record.TTL
	if ttl <= 0 {
		ttl = p.ttl
	}

	req, err := buildEditRequest(record, p.domain, ttl)
	if err != nil {
		return err
	}

	_, _, err = p.client.Domains.CreateRecord(ctx, p.domain, req)
	if err != nil {
		return fmt.Errorf("creating %s record: %w", record.Type, err)
	}

	p.logger.Info("created record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
		slog.String("target", record.Target),
	)

	return nil
}

func (p *Provider) findRecordID(ctx context.Context, record provider.Record) (int, error) {
	if record.ProviderID != "" {
		id, err := strconv.Atoi(record.ProviderID)
		if err == nil {
			return id, nil
		}
	}

	records, err := p.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, r := range records {
		if r.Hostname == record.Hostname && r.Type == record.Type {
			id, err := strconv.Atoi(r.ProviderID)
			if err != nil {
				return 0, fmt.Errorf("parsing record id %q: %w", r.ProviderID, err)
			}
			return id, nil
		}
	}
	return 0, nil
}

// Delete removes a DNS record.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	id, err := p.findRecordID(ctx, record)
	if err != nil {
		return err
	}
	if id == 0 {
		p.logger.Warn("record not found for deletion",
			slog.String("hostname", record.Hostname),
			slog.String("type", string(record.Type)),
		)
		return nil
	}

	_, err = p.client.Domains.DeleteRecord(ctx, p.domain, id)
	if err != nil {
		return fmt.Errorf("deleting %s record: %w", record.Type, err)
	}

	p.logger.Info("deleted record",
		slog.String("provider", p.name),
		slog.String("hostname", record.Hostname),
		slog.String("type", string(record.Type)),
	)

	return nil
}

// Update modifies an existing DNS record in place. Implements provider.Updater.
func (p *Provider) Update(ctx context.Context, existing, desired provider.Record) error {
	id, err := p.findRecordID(ctx, existing)
	if err != nil {
		return err
	}
	if id == 0 {
		return provider.ErrNotFound
	}

	ttl := desired.TTL
	if ttl <= 0 {
		ttl = p.ttl
	}

	req, err := buildEditRequest(desired, p.domain, ttl)
	if err != nil {
		return err
	}

	_, _, err = p.client.Domains.EditRecord(ctx, p.domain, id, req)
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

// Factory returns a provider.Factory function for use with the provider registry.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(name, config)
	}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.Updater = (*Provider)(nil)
