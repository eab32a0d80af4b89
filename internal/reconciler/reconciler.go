// Package reconciler implements the core logic for comparing desired DNS state
// (from sources) with actual DNS state (from providers) and applying changes.
package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/wovendns/woven/internal/docker"
	"gitlab.com/wovendns/woven/internal/eventbus"
	"gitlab.com/wovendns/woven/internal/metrics"
	"gitlab.com/wovendns/woven/internal/ownership"
	"gitlab.com/wovendns/woven/internal/policy"
	"gitlab.com/wovendns/woven/internal/recordcache"
	"gitlab.com/wovendns/woven/pkg/provider"
	"gitlab.com/wovendns/woven/pkg/source"
)

// RecordsUpdatedTopic is the eventbus topic published after every
// reconciliation cycle that made at least one change.
const RecordsUpdatedTopic = "dns:records:updated"

// Config holds reconciler configuration options.
type Config struct {
	// DryRun if true, logs changes without applying them.
	DryRun bool

	// CleanupOrphans if true, removes DNS records for missing workloads.
	CleanupOrphans bool

	// OwnershipTracking if true, records ownership in the ledger (and, for
	// providers that support it, a TXT marker) so orphan cleanup only
	// touches records this reconciler created.
	OwnershipTracking bool

	// AdoptExisting if true, records ownership for existing DNS records
	// that already match the desired target instead of leaving them
	// untracked.
	AdoptExisting bool

	// ReconcileInterval is the interval between full reconciliation runs.
	// Zero means no automatic reconciliation (only on-demand).
	ReconcileInterval time.Duration

	// Enabled controls whether reconciliation is active.
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DryRun:            false,
		CleanupOrphans:    true,
		OwnershipTracking: true,
		AdoptExisting:     false,
		ReconcileInterval: 60 * time.Second,
		Enabled:           true,
	}
}

// WorkloadLister is the subset of *docker.Client the reconciler depends on,
// narrowed to an interface so tests can substitute a fake workload source.
type WorkloadLister interface {
	ListWorkloads(ctx context.Context) ([]docker.Workload, error)
}

// Reconciler coordinates DNS record synchronization between sources and providers.
//
// Each cycle:
//  1. Scans Docker workloads and file-based sources for desired hostnames
//  2. Warms a per-cycle record cache with one List() call per provider
//  3. For each hostname, finds matching provider instance(s) and diffs
//     existing vs. desired records
//  4. Applies creates/updates/deletes, batching through BatchApplier where
//     a provider supports it
//  5. Records ownership in the ledger and, optionally, a TXT marker
//  6. Cleans up orphaned records no longer backed by any source, skipping
//     hostnames the policy store marks as preserved
//  7. Publishes a summary event on the event bus
type Reconciler struct {
	docker    WorkloadLister
	sources   *source.Registry
	providers *provider.Registry
	ownership *ownership.Store
	policy    *policy.Store
	events    *eventbus.Bus
	config    Config
	logger    *slog.Logger

	mu             sync.RWMutex
	knownHostnames map[string]struct{}

	// batchHandled names the provider instances whose creates/updates were
	// already dispatched via BatchApplier this cycle; set and cleared once
	// per ReconcileOnce call, read-only elsewhere during that call.
	batchHandled map[string]bool
}

// Option is a functional option for configuring the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger for the reconciler.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithConfig sets the reconciler configuration.
func WithConfig(cfg Config) Option {
	return func(r *Reconciler) {
		r.config = cfg
	}
}

// WithOwnershipStore sets the ownership ledger store. Without one, ownership
// tracking falls back to the in-memory knownHostnames set only (lost on
// restart).
func WithOwnershipStore(store *ownership.Store) Option {
	return func(r *Reconciler) {
		r.ownership = store
	}
}

// WithPolicyStore sets the preserved-hostname policy store.
func WithPolicyStore(store *policy.Store) Option {
	return func(r *Reconciler) {
		r.policy = store
	}
}

// WithEventBus sets the event bus used to publish post-cycle summaries.
func WithEventBus(bus *eventbus.Bus) Option {
	return func(r *Reconciler) {
		r.events = bus
	}
}

// New creates a new Reconciler with the given dependencies.
func New(
	dockerClient WorkloadLister,
	sources *source.Registry,
	providers *provider.Registry,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		docker:         dockerClient,
		sources:        sources,
		providers:      providers,
		config:         DefaultConfig(),
		logger:         slog.Default(),
		knownHostnames: make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.policy == nil {
		r.policy, _ = policy.New(nil)
	}

	return r
}

// ReconcileOnce performs a full reconciliation of DNS records and returns a
// Result describing every action taken (or planned, in dry-run).
func (r *Reconciler) ReconcileOnce(ctx context.Context) (*Result, error) {
	if !r.config.Enabled {
		r.logger.Debug("reconciliation disabled, skipping")
		result := NewResult(r.config.DryRun)
		result.Complete()
		return result, nil
	}

	r.logger.Info("starting reconciliation",
		slog.Bool("dry_run", r.config.DryRun),
		slog.Bool("cleanup_orphans", r.config.CleanupOrphans),
	)

	result := NewResult(r.config.DryRun)

	// Step 1: desired-set construction - list workloads, extract hostnames.
	workloads, err := r.docker.ListWorkloads(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workloads: %w", err)
	}
	result.WorkloadsScanned = len(workloads)

	discoveredHostnames := make(map[string]source.Hostname)
	hostnameOrigins := make(map[string]string)

	for _, workload := range workloads {
		hostnames := r.sources.ExtractAll(ctx, workload.Labels)
		validation := hostnames.ValidateAll()
		for _, inv := range validation.Invalid {
			r.logger.Warn("skipping invalid hostname from workload",
				slog.String("workload", workload.Name),
				slog.String("hostname", inv.Hostname.Name),
				slog.String("error", inv.Error.Error()),
			)
			result.HostnamesInvalid++
		}

		// workloadHostnames groups every valid hostname extracted from this
		// workload's labels, so hostnames sharing a Name within this one
		// workload can be checked for conflicting RecordHints content
		// before anything is registered into discoveredHostnames.
		workloadHostnames := make(map[string][]source.Hostname)
		for _, hostname := range validation.Valid {
			workloadHostnames[hostname.Name] = append(workloadHostnames[hostname.Name], hostname)
		}

		for name, group := range workloadHostnames {
			hostname := group[0]

			// A name already claimed by an earlier, different workload is a
			// cross-workload duplicate regardless of what this workload's own
			// labels say - resolve it via first-wins before ever considering
			// this group's internal consistency, so a later workload's
			// internal conflict can never erase an earlier workload's valid
			// registration.
			if existingWorkload, exists := hostnameOrigins[name]; exists {
				r.logger.Warn("duplicate hostname found in multiple workloads",
					slog.String("hostname", name),
					slog.String("first_workload", existingWorkload),
					slog.String("duplicate_workload", workload.Name),
				)
				result.HostnamesDuplicate++
				continue
			}

			if len(group) > 1 && hasConflictingHints(group) {
				r.logger.Warn("conflicting record hints for hostname within workload, dropping all",
					slog.String("hostname", name),
					slog.String("workload", workload.Name),
					slog.Int("count", len(group)),
				)
				result.HostnamesConflicting += len(group)
				continue
			}

			hostnameOrigins[name] = workload.Name
			discoveredHostnames[name] = hostname
		}
	}

	fileHostnames := r.sources.DiscoverAll(ctx)
	if len(fileHostnames) > 0 {
		validation := fileHostnames.ValidateAll()
		for _, inv := range validation.Invalid {
			r.logger.Warn("skipping invalid hostname from file",
				slog.String("hostname", inv.Hostname.Name),
				slog.String("source", inv.Hostname.Source),
				slog.String("error", inv.Error.Error()),
			)
			result.HostnamesInvalid++
		}
		for _, hostname := range validation.Valid {
			discoveredHostnames[hostname.Name] = hostname
		}
	}

	result.HostnamesDiscovered = len(discoveredHostnames)

	r.logger.Info("hostname extraction complete",
		slog.Int("workloads", len(workloads)),
		slog.Int("hostnames", len(discoveredHostnames)),
	)

	// Step 2: cache warm-up - one List() per provider for the whole cycle.
	var cache *recordcache.Cache
	if !r.config.DryRun {
		cache = recordcache.New(ctx, r.providers, r.logger)
	}

	// Step 3 & 4: three-way classification and dispatch (batched where a
	// provider supports it, per-record otherwise).
	r.batchHandled = make(map[string]bool)
	batchActions := r.applyBatchProviders(ctx, discoveredHostnames, cache)
	for _, action := range batchActions {
		result.AddAction(action)
	}

	for _, hostname := range discoveredHostnames {
		actions := r.ensureRecord(ctx, hostname, cache)
		for _, action := range actions {
			result.AddAction(action)
		}
	}

	// Step 6: orphan cleanup.
	hostnameSet := make(map[string]struct{}, len(discoveredHostnames))
	for name := range discoveredHostnames {
		hostnameSet[name] = struct{}{}
	}

	if r.config.CleanupOrphans {
		orphanActions := r.cleanupOrphans(ctx, hostnameSet, cache)
		for _, action := range orphanActions {
			result.AddAction(action)
		}
	}

	r.mu.Lock()
	r.knownHostnames = hostnameSet
	r.mu.Unlock()

	result.Complete()
	r.recordMetrics(result)

	r.logger.Info("reconciliation complete",
		slog.Int("created", result.CreatedCount()),
		slog.Int("updated", result.UpdatedCount()),
		slog.Int("deleted", result.DeletedCount()),
		slog.Int("failed", result.FailedCount()),
		slog.Int("skipped", len(result.Skipped())),
		slog.Duration("duration", result.Duration()),
	)

	// Step 7: report emission.
	changed := result.CreatedCount() + result.UpdatedCount() + result.DeletedCount()
	if r.events != nil && changed > 0 {
		r.events.Publish(RecordsUpdatedTopic, result)
	}

	return result, nil
}

// hasConflictingHints reports whether a group of hostnames sharing the same
// Name, all extracted from one workload's labels, disagree on the DNS
// content they describe (type or target). A workload legitimately emitting
// the same hostname for two providers (via RecordHints.Provider) is not a
// conflict; two label blocks asserting different targets for the same name
// on the same provider is.
func hasConflictingHints(group []source.Hostname) bool {
	type key struct {
		provider string
		typ      string
		target   string
	}
	seen := make(map[string]key)

	for _, h := range group {
		var k key
		if h.RecordHints != nil {
			k = key{provider: h.RecordHints.Provider, typ: h.RecordHints.Type, target: h.RecordHints.Target}
		}

		prior, ok := seen[k.provider]
		if !ok {
			seen[k.provider] = k
			continue
		}
		if prior.typ != k.typ || prior.target != k.target {
			return true
		}
	}
	return false
}

// Reconcile is a backward-compatible alias for ReconcileOnce.
func (r *Reconciler) Reconcile(ctx context.Context) (*Result, error) {
	return r.ReconcileOnce(ctx)
}

// ReconcileHostname performs reconciliation for a single hostname, used for
// event-driven updates when a specific workload changes. It does not use the
// per-cycle record cache since it is a single-hostname operation.
func (r *Reconciler) ReconcileHostname(ctx context.Context, hostname string) (*Result, error) {
	if !r.config.Enabled {
		result := NewResult(r.config.DryRun)
		result.Complete()
		return result, nil
	}

	result := NewResult(r.config.DryRun)
	result.HostnamesDiscovered = 1

	actions := r.ensureRecord(ctx, source.Hostname{Name: hostname}, nil)
	for _, action := range actions {
		result.AddAction(action)
	}

	r.mu.Lock()
	r.knownHostnames[hostname] = struct{}{}
	r.mu.Unlock()

	result.Complete()
	return result, nil
}

// RemoveHostname removes DNS records for a hostname that is no longer needed,
// used for event-driven cleanup when a workload is removed.
func (r *Reconciler) RemoveHostname(ctx context.Context, hostname string) (*Result, error) {
	if !r.config.Enabled {
		result := NewResult(r.config.DryRun)
		result.Complete()
		return result, nil
	}

	result := NewResult(r.config.DryRun)
	actions := r.deleteRecord(ctx, hostname)
	for _, action := range actions {
		result.AddAction(action)
	}

	r.mu.Lock()
	delete(r.knownHostnames, hostname)
	r.mu.Unlock()

	result.Complete()
	return result, nil
}

// Config returns the current reconciler configuration.
func (r *Reconciler) Config() Config {
	return r.config
}

// SetEnabled enables or disables reconciliation.
func (r *Reconciler) SetEnabled(enabled bool) {
	r.config.Enabled = enabled
}

// SetDryRun enables or disables dry-run mode.
func (r *Reconciler) SetDryRun(dryRun bool) {
	r.config.DryRun = dryRun
}

// KnownHostnames returns a copy of the currently known hostnames.
func (r *Reconciler) KnownHostnames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hostnames := make([]string, 0, len(r.knownHostnames))
	for h := range r.knownHostnames {
		hostnames = append(hostnames, h)
	}
	return hostnames
}

// RecoverOwnership seeds knownHostnames from the ownership ledger (if
// configured) or, failing that, from TXT ownership markers on providers that
// support them. This should run once at startup before the first
// reconciliation so orphan cleanup works for records created before a
// restart.
func (r *Reconciler) RecoverOwnership(ctx context.Context) error {
	if !r.config.CleanupOrphans || !r.config.OwnershipTracking {
		return nil
	}

	total := 0
	for _, inst := range r.providers.All() {
		var hostnames []string

		if r.ownership != nil {
			ledger, err := r.ownership.Ledger(inst.Name())
			if err != nil {
				r.logger.Warn("failed to open ownership ledger",
					slog.String("provider", inst.Name()),
					slog.String("error", err.Error()),
				)
			} else {
				hostnames = ledger.OwnedHostnames()
			}
		}

		if len(hostnames) == 0 && inst.Provider.Capabilities().SupportsOwnershipTXT {
			recovered, err := inst.RecoverOwnedHostnames(ctx)
			if err != nil {
				r.logger.Warn("failed to recover ownership from provider",
					slog.String("provider", inst.Name()),
					slog.String("error", err.Error()),
				)
				continue
			}
			hostnames = recovered
		}

		if len(hostnames) == 0 {
			continue
		}

		r.mu.Lock()
		for _, h := range hostnames {
			r.knownHostnames[h] = struct{}{}
		}
		r.mu.Unlock()
		total += len(hostnames)

		r.logger.Info("recovered ownership records",
			slog.String("provider", inst.Name()),
			slog.Int("count", len(hostnames)),
		)
	}

	r.logger.Info("ownership recovery complete", slog.Int("total_hostnames", total))
	return nil
}

// recordMetrics records Prometheus metrics from a reconciliation result.
func (r *Reconciler) recordMetrics(result *Result) {
	status := "success"
	if result.HasErrors() {
		status = "error"
	}
	metrics.ReconciliationsTotal.WithLabelValues(status).Inc()
	metrics.ReconciliationDuration.Observe(result.Duration().Seconds())
	metrics.WorkloadsScanned.Set(float64(result.WorkloadsScanned))
	metrics.HostnamesDiscovered.Set(float64(result.HostnamesDiscovered))

	for _, action := range result.Actions {
		switch action.Type {
		case ActionCreate:
			if action.Status == StatusSuccess {
				metrics.RecordsCreatedTotal.WithLabelValues(action.Provider).Inc()
			} else if action.Status == StatusFailed {
				metrics.RecordsFailedTotal.WithLabelValues(action.Provider, "create").Inc()
			}
		case ActionUpdate:
			if action.Status == StatusFailed {
				metrics.RecordsFailedTotal.WithLabelValues(action.Provider, "update").Inc()
			}
		case ActionDelete:
			if action.Status == StatusSuccess {
				metrics.RecordsDeletedTotal.WithLabelValues(action.Provider).Inc()
			} else if action.Status == StatusFailed {
				metrics.RecordsFailedTotal.WithLabelValues(action.Provider, "delete").Inc()
			}
		case ActionSkip:
			reason := "unknown"
			if action.Error != "" {
				reason = action.Error
			}
			if reason == "no matching provider" {
				reason = "no_provider"
			}
			metrics.RecordsSkippedTotal.WithLabelValues(reason).Inc()
		}
	}
}
