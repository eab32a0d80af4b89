// Package route53 implements the woven provider interface for AWS Route53.
package route53

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	r53types "github.com/aws/aws-sdk-go-v2/service/route53/types"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// Provider implements provider.Provider and provider.BatchApplier for
// AWS Route53. Route53 has no native per-record update operation; changes
// are always expressed as delete+create (or upsert) within a batch.
type Provider struct {
	name         string
	zone         string
	hostedZoneID string
	ttl          int
	batchSize    int
	client       *Client
	logger       *slog.Logger

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

// New creates a new Route53 provider instance.
func New(ctx context.Context, name string, config *Config, opts ...ProviderOption) (*Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating route53 client: %w", err)
	}

	batchSize := config.BatchSize
	if batchSize <= 0 || batchSize > DefaultBatchSize {
		batchSize = DefaultBatchSize
	}

	p := &Provider{
		name:         name,
		zone:         config.Zone,
		hostedZoneID: config.HostedZoneID,
		ttl:          config.TTL,
		batchSize:    batchSize,
		client:       client,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// NewFromEnv creates a new Route53 provider from environment variables.
func NewFromEnv(ctx context.Context, instanceName string, opts ...ProviderOption) (*Provider, error) {
	config, err := LoadConfig(instanceName)
	if err != nil {
		return nil, err
	}

	return New(ctx, instanceName, config, opts...)
}

// NewFromMap creates a new Route53 provider from a configuration map, used
// by the provider registry Factory pattern.
func NewFromMap(ctx context.Context, name string, config map[string]string) (*Provider, error) {
	cfg := &Config{
		Region:          config["REGION"],
		HostedZoneID:    config["HOSTED_ZONE_ID"],
		Zone:            config["ZONE"],
		AccessKeyID:     config["ACCESS_KEY_ID"],
		SecretAccessKey: config["SECRET_ACCESS_KEY"],
		SessionToken:    config["SESSION_TOKEN"],
		TTL:             DefaultTTL,
		BatchSize:       DefaultBatchSize,
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	if ttlStr, ok := config["TTL"]; ok && ttlStr != "" {
		if ttl, err := strconv.Atoi(ttlStr); err == nil {
			cfg.TTL = ttl
		}
	}
	if batchStr, ok := config["BATCH_SIZE"]; ok && batchStr != "" {
		if batch, err := strconv.Atoi(batchStr); err == nil {
			cfg.BatchSize = batch
		}
	}

	return New(ctx, name, cfg)
}

// Name returns the provider instance name.
func (p *Provider) Name() string {
	return p.name
}

// Type returns "route53".
func (p *Provider) Type() string {
	return "route53"
}

// Capabilities returns the provider's feature support.
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		SupportsOwnershipTXT: true,
		SupportsNativeUpdate: false, // Route53 changes are always delete+create (or upsert) in a batch
		NativeBatch:          p.batchSize,
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

// Zone returns the configured DNS zone name.
func (p *Provider) Zone() string {
	return p.zone
}

// HostedZoneID returns the resolved hosted zone ID, looking it up if necessary.
func (p *Provider) HostedZoneID(ctx context.Context) (string, error) {
	if p.hostedZoneID != "" {
		return p.hostedZoneID, nil
	}

	p.zoneIDOnce.Do(func() {
		p.hostedZoneID, p.zoneIDErr = p.client.HostedZoneID(ctx, p.zone)
	})

	if p.zoneIDErr != nil {
		return "", p.zoneIDErr
	}
	return p.hostedZoneID, nil
}

// Ping checks connectivity to Route53.
func (p *Provider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// externalID synthesizes a stable, provider-agnostic identifier for a
// record set, since Route53 record sets have no opaque ID of their own.
func externalID(hostname string, rt provider.RecordType) string {
	return fmt.Sprintf("%s:%s", hostname, rt)
}

// recordValue renders the record set's resource record value for its type.
// TXT values must be quoted; SRV and CAA pack their structured fields into
// Route53's single space-delimited value string.
func recordValue(record provider.Record) (string, error) {
	switch record.Type {
	case provider.RecordTypeTXT:
		return strconv.Quote(record.Target), nil
	case provider.RecordTypeSRV:
		if record.SRV == nil {
			return "", fmt.Errorf("creating SRV record: SRV data is required")
		}
		return fmt.Sprintf("%d %d %d %s", record.SRV.Priority, record.SRV.Weight, record.SRV.Port, record.Target), nil
	case provider.RecordTypeCAA:
		if record.CAA == nil {
			return "", fmt.Errorf("creating CAA record: CAA data is required")
		}
		return fmt.Sprintf("%d %s %q", record.CAA.Flags, record.CAA.Tag, record.Target), nil
	default:
		return record.Target, nil
	}
}

func buildResourceRecordSet(record provider.Record, ttl int) (*r53types.ResourceRecordSet, error) {
	value, err := recordValue(record)
	if err != nil {
		return nil, err
	}

	return &r53types.ResourceRecordSet{
		Name: awssdk.String(record.Hostname),
		Type: r53types.RRType(record.Type),
		TTL:  awssdk.Int64(int64(ttl)),
		ResourceRecords: []r53types.ResourceRecord{
			{Value: awssdk.String(value)},
		},
	}, nil
}

// List returns all managed record sets in the hosted zone.
func (p *Provider) List(ctx context.Context) ([]provider.Record, error) {
	zoneID, err := p.HostedZoneID(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting hosted zone ID: %w", err)
	}

	sets, err := p.client.ListResourceRecordSets(ctx, zoneID)
	if err != nil {
		return nil, err
	}

	var records []provider.Record
	for _, rrs := range sets {
		rec, ok := convertRecordSet(rrs)
		if !ok {
			continue
		}
		records = append(records, rec)
	}

	p.logger.Debug("listed records",
		slog.String("provider", p.name),
		slog.String("hosted_zone_id", zoneID),
		slog.Int("count", len(records)),
	)

	return records, nil
}

var supportedRRTypes = map[r53types.RRType]provider.RecordType{
	r53types.RRType("A"):     provider.RecordTypeA,
	r53types.RRType("AAAA"):  provider.RecordTypeAAAA,
	r53types.RRType("CNAME"): provider.RecordTypeCNAME,
	r53types.RRType("TXT"):   provider.RecordTypeTXT,
	r53types.RRType("SRV"):   provider.RecordTypeSRV,
	r53types.RRType("CAA"):   provider.RecordTypeCAA,
}

func convertRecordSet(rrs r53types.ResourceRecordSet) (provider.Record, bool) {
	recordType, ok := supportedRRTypes[rrs.Type]
	if !ok || len(rrs.ResourceRecords) == 0 {
		return provider.Record{}, false
	}

	name := strings.TrimSuffix(awssdk.ToString(rrs.Name), ".")
	value := awssdk.ToString(rrs.ResourceRecords[0].Value)
	ttl := 0
	if rrs.TTL != nil {
		ttl = int(*rrs.TTL)
	}

	rec := provider.Record{
		Hostname:   name,
		Type:       recordType,
		Target:     value,
		TTL:        ttl,
		ProviderID: externalID(name, recordType),
	}

	switch recordType {
	case provider.RecordTypeTXT:
		if unquoted, err := strconv.Unquote(value); err == nil {
			rec.Target = unquoted
		}
	case provider.RecordTypeSRV:
		fields := strings.Fields(value)
		if len(fields) == 4 {
			priority, _ := strconv.Atoi(fields[0])
			weight, _ := strconv.Atoi(fields[1])
			port, _ := strconv.Atoi(fields[2])
			rec.Target = fields[3]
			rec.SRV = &provider.SRVData{
				Priority: uint16(priority),
				Weight:   uint16(weight),
				Port:     uint16(port),
			}
		}
	case provider.RecordTypeCAA:
		fields := strings.SplitN(value, " ", 3)
		if len(fields) == 3 {
			flags, _ := strconv.Atoi(fields[0])
			target := fields[2]
			if unquoted, err := strconv.Unquote(target); err == nil {
				target = unquoted
			}
			rec.Target = target
			rec.CAA = &provider.CAAData{
				Flags: uint8(flags),
				Tag:   fields[1],
			}
		}
	}

	return rec, true
}

// Create adds a new DNS record set via a single-change batch.
func (p *Provider) Create(ctx context.Context, record provider.Record) error {
	return p.ApplyBatch(ctx, []provider.Record{record}, nil, nil)
}

// Delete removes a DNS record set via a single-change batch.
func (p *Provider) Delete(ctx context.Context, record provider.Record) error {
	return p.ApplyBatch(ctx, nil, nil, []provider.Record{record})
}

// ApplyBatch submits creates, updates (expressed as Route53 UPSERT), and
// deletes, chunked to the provider's NativeBatch limit. Each chunk is one
// atomic ChangeResourceRecordSets call; an error stops at the failing chunk
// and chunks already sent stay applied.
// Implements provider.BatchApplier.
func (p *Provider) ApplyBatch(ctx context.Context, creates, updates, deletes []provider.Record) error {
	zoneID, err := p.HostedZoneID(ctx)
	if err != nil {
		return fmt.Errorf("getting hosted zone ID: %w", err)
	}

	var changes []r53types.Change

	for _, r := range deletes {
		ttl := r.TTL
		if ttl <= 0 {
			ttl = p.ttl
		}
		rrs, err := buildResourceRecordSet(r, ttl)
		if err != nil {
			return err
		}
		changes = append(changes, r53types.Change{Action: r53types.ChangeActionDelete, ResourceRecordSet: rrs})
	}

	for _, r := range append(append([]provider.Record{}, creates...), updates...) {
		ttl := r.TTL
		if ttl <= 0 {
			ttl = p.ttl
		}
		rrs, err := buildResourceRecordSet(r, ttl)
		if err != nil {
			return err
		}
		changes = append(changes, r53types.Change{Action: r53types.ChangeActionUpsert, ResourceRecordSet: rrs})
	}

	for start := 0; start < len(changes); start += p.batchSize {
		end := start + p.batchSize
		if end > len(changes) {
			end = len(changes)
		}
		if err := p.client.ChangeResourceRecordSets(ctx, zoneID, changes[start:end]); err != nil {
			return err
		}
	}

	p.logger.Info("applied batch",
		slog.String("provider", p.name),
		slog.Int("creates", len(creates)),
		slog.Int("updates", len(updates)),
		slog.Int("deletes", len(deletes)),
	)

	return nil
}

// Factory returns a provider.Factory function for use with the provider registry.
func Factory() provider.Factory {
	return func(name string, config map[string]string) (provider.Provider, error) {
		return NewFromMap(context.Background(), name, config)
	}
}

var _ provider.Provider = (*Provider)(nil)
var _ provider.BatchApplier = (*Provider)(nil)
