// Package recordcache holds a per-cycle snapshot of DNS records read from
// every provider, so the reconciler's comparison and orphan-cleanup passes
// never re-issue a List() call per hostname. The cache is rebuilt once at
// the start of each reconciliation cycle.
package recordcache

import (
	"context"
	"log/slog"

	"gitlab.com/wovendns/woven/pkg/provider"
)

// Cache holds cached records for every provider, indexed by hostname.
type Cache struct {
	records map[string]map[string][]provider.Record
	logger  *slog.Logger
}

// New builds a cache by querying every provider in the registry. A provider
// that fails to list is logged and left absent from the cache rather than
// aborting the whole cycle; callers observe this via the ok return from
// Existing/All, or via Loaded.
func New(ctx context.Context, providers *provider.Registry, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		records: make(map[string]map[string][]provider.Record),
		logger:  logger,
	}

	for _, inst := range providers.All() {
		records, err := inst.Provider.List(ctx)
		if err != nil {
			logger.Warn("failed to cache records for provider",
				slog.String("provider", inst.Name()),
				slog.String("error", err.Error()),
			)
			c.records[inst.Name()] = nil
			continue
		}

		byHostname := make(map[string][]provider.Record)
		for _, r := range records {
			byHostname[r.Hostname] = append(byHostname[r.Hostname], r)
		}

		c.records[inst.Name()] = byHostname
		logger.Debug("cached records for provider",
			slog.String("provider", inst.Name()),
			slog.Int("total_records", len(records)),
			slog.Int("unique_hostnames", len(byHostname)),
		)
	}

	return c
}

// isDataRecord reports whether t is compared against desired state. TXT
// ownership markers are excluded; CAA is included since providers that
// support it expose it as an ordinary managed record.
func isDataRecord(t provider.RecordType) bool {
	switch t {
	case provider.RecordTypeA, provider.RecordTypeAAAA, provider.RecordTypeCNAME, provider.RecordTypeSRV, provider.RecordTypeCAA:
		return true
	default:
		return false
	}
}

// Existing returns the cached data records (A/AAAA/CNAME/SRV/CAA) for a
// hostname on a provider. ok is false if the provider's cache failed to
// load; callers should treat that as "unknown" rather than "no records".
func (c *Cache) Existing(providerName, hostname string) (records []provider.Record, ok bool) {
	byHostname, exists := c.records[providerName]
	if !exists || byHostname == nil {
		return nil, false
	}

	for _, r := range byHostname[hostname] {
		if isDataRecord(r.Type) {
			records = append(records, r)
		}
	}
	return records, true
}

// All returns every cached data record for a hostname on a provider,
// identical to Existing. Kept as a distinct name because orphan cleanup
// reads it for a different purpose (to know what's actually present,
// not to diff against desired state) even though the underlying data is
// the same.
func (c *Cache) All(providerName, hostname string) ([]provider.Record, bool) {
	return c.Existing(providerName, hostname)
}

// HasOwnershipMarker reports whether a TXT ownership record exists for
// hostname on the named provider.
func (c *Cache) HasOwnershipMarker(providerName, hostname string) bool {
	byHostname, exists := c.records[providerName]
	if !exists || byHostname == nil {
		return false
	}

	ownershipName := provider.OwnershipRecordName(hostname)
	for _, r := range byHostname[ownershipName] {
		if r.Type == provider.RecordTypeTXT && r.Target == provider.OwnershipValue {
			return true
		}
	}
	return false
}

// Hostnames returns every hostname with at least one cached record on the
// named provider. Used to seed adoption of out-of-band records at startup.
func (c *Cache) Hostnames(providerName string) []string {
	byHostname, exists := c.records[providerName]
	if !exists || byHostname == nil {
		return nil
	}
	out := make([]string, 0, len(byHostname))
	for h := range byHostname {
		out = append(out, h)
	}
	return out
}

// Loaded reports whether the given provider's records were successfully
// cached this cycle.
func (c *Cache) Loaded(providerName string) bool {
	byHostname, exists := c.records[providerName]
	return exists && byHostname != nil
}
