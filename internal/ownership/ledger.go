// Package ownership implements the durable ownership ledger: the
// authoritative record of which hostname/record-type pairs woven created on
// each provider. Unlike provider-native markers (a Cloudflare record
// comment, a TXT record), the ledger survives providers that cannot store
// any marker at all, and it is never confused with a record a human created
// out-of-band.
//
// One ledger file is kept per provider instance under the configured state
// directory, written with an atomic rename so a crash mid-write never
// leaves a half-written ledger behind.
package ownership

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/moby/sys/atomicwriter"

	"gitlab.com/wovendns/woven/internal/metrics"
	"gitlab.com/wovendns/woven/pkg/provider"
)

// Entry records one hostname/type pair woven owns on a provider.
type Entry struct {
	Hostname    string    `json:"hostname"`
	Type        string    `json:"type"`
	Target      string    `json:"target"`
	ProviderID  string    `json:"providerId,omitempty"`
	Registered  time.Time `json:"registered"`
	LastApplied time.Time `json:"lastApplied"`
}

// key uniquely identifies an entry within a provider's ledger.
func (e Entry) key() string {
	return e.Hostname + "|" + e.Type
}

// ledgerFile is the on-disk representation of one provider's ledger.
type ledgerFile struct {
	Provider string  `json:"provider"`
	Entries  []Entry `json:"entries"`
}

// Ledger tracks ownership for a single provider instance, backed by one
// JSON file. All methods are safe for concurrent use.
type Ledger struct {
	mu       sync.Mutex
	path     string
	provider string
	entries  map[string]Entry // key() -> Entry
	logger   *slog.Logger
}

// Store manages one Ledger per provider instance, all rooted under the same
// state directory.
type Store struct {
	mu      sync.Mutex
	dir     string
	ledgers map[string]*Ledger
	logger  *slog.Logger
}

// NewStore creates a ledger store rooted at dir. The directory is created
// if it does not already exist.
func NewStore(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating ownership ledger directory: %w", err)
	}
	return &Store{
		dir:     dir,
		ledgers: make(map[string]*Ledger),
		logger:  logger,
	}, nil
}

// Ledger returns the ledger for a provider instance, loading it from disk
// (or creating an empty one) on first access.
func (s *Store) Ledger(providerName string) (*Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.ledgers[providerName]; ok {
		return l, nil
	}

	l := &Ledger{
		path:     filepath.Join(s.dir, providerName+".json"),
		provider: providerName,
		entries:  make(map[string]Entry),
		logger:   s.logger,
	}
	if err := l.load(); err != nil {
		return nil, err
	}

	s.ledgers[providerName] = l
	metrics.LedgerEntriesGauge.WithLabelValues(providerName).Set(float64(len(l.entries)))
	return l, nil
}

func (l *Ledger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading ledger %s: %w", l.path, err)
	}

	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		return fmt.Errorf("parsing ledger %s: %w", l.path, err)
	}

	for _, e := range lf.Entries {
		l.entries[e.key()] = e
	}
	return nil
}

// persist atomically rewrites the ledger file. Caller must hold l.mu.
func (l *Ledger) persist() error {
	lf := ledgerFile{Provider: l.provider, Entries: make([]Entry, 0, len(l.entries))}
	for _, e := range l.entries {
		lf.Entries = append(lf.Entries, e)
	}

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		metrics.LedgerPersistTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("encoding ledger: %w", err)
	}

	if err := atomicwriter.WriteFile(l.path, data, 0o640); err != nil {
		metrics.LedgerPersistTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}

	metrics.LedgerPersistTotal.WithLabelValues("success").Inc()
	metrics.LedgerEntriesGauge.WithLabelValues(l.provider).Set(float64(len(l.entries)))
	return nil
}

// Record marks a hostname/type pair as owned, persisting the change
// immediately.
func (l *Ledger) Record(hostname string, recordType provider.RecordType, target, providerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	key := Entry{Hostname: hostname, Type: string(recordType)}.key()

	existing, had := l.entries[key]
	entry := Entry{
		Hostname:    hostname,
		Type:        string(recordType),
		Target:      target,
		ProviderID:  providerID,
		LastApplied: now,
	}
	if had {
		entry.Registered = existing.Registered
	} else {
		entry.Registered = now
	}

	l.entries[key] = entry
	return l.persist()
}

// Forget removes a hostname/type pair from the ledger, persisting the
// change immediately. It is not an error to forget an entry that was never
// recorded.
func (l *Ledger) Forget(hostname string, recordType provider.RecordType) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Entry{Hostname: hostname, Type: string(recordType)}.key()
	if _, ok := l.entries[key]; !ok {
		return nil
	}
	delete(l.entries, key)
	return l.persist()
}

// Owns returns true if the ledger records ownership of hostname+type.
func (l *Ledger) Owns(hostname string, recordType provider.RecordType) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[Entry{Hostname: hostname, Type: string(recordType)}.key()]
	return ok
}

// OwnedHostnames returns every hostname tracked in the ledger, deduplicated
// across record types. Used to seed orphan detection after a restart.
func (l *Ledger) OwnedHostnames() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{})
	var hostnames []string
	for _, e := range l.entries {
		if _, ok := seen[e.Hostname]; ok {
			continue
		}
		seen[e.Hostname] = struct{}{}
		hostnames = append(hostnames, e.Hostname)
	}
	return hostnames
}

// Entries returns a snapshot of every entry currently in the ledger.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	return out
}

// Adopt imports ownership entries discovered via a provider-native marker
// hint (TXT record, Cloudflare comment) into the ledger. An entry that
// already exists for the hostname/type pair is left untouched.
func (l *Ledger) Adopt(hostname string, recordType provider.RecordType, target string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := Entry{Hostname: hostname, Type: string(recordType)}.key()
	if _, exists := l.entries[key]; exists {
		return nil
	}

	now := time.Now()
	l.entries[key] = Entry{
		Hostname:    hostname,
		Type:        string(recordType),
		Target:      target,
		Registered:  now,
		LastApplied: now,
	}
	return l.persist()
}
