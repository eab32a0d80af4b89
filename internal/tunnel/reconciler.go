package tunnel

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gitlab.com/wovendns/woven/internal/docker"
	"gitlab.com/wovendns/woven/internal/ownership"
	"gitlab.com/wovendns/woven/internal/policy"
	"gitlab.com/wovendns/woven/pkg/provider"
	providertunnel "gitlab.com/wovendns/woven/providers/tunnel"
)

// recordType is the pseudo provider.RecordType used to key tunnel ingress
// ownership in the shared ledger. A tunnel ingress rule isn't a DNS record,
// but the ledger's (hostname, type) key shape fits it well enough to reuse
// rather than inventing a parallel ownership store.
const recordType = provider.RecordType("TUNNEL")

// WorkloadLister is the subset of *docker.Client the tunnel reconciler
// depends on, narrowed to an interface so tests can substitute a fake.
type WorkloadLister interface {
	ListWorkloads(ctx context.Context) ([]docker.Workload, error)
}

// Config holds tunnel reconciler configuration options.
type Config struct {
	// DryRun if true, computes the desired ingress list without calling
	// Adapter.Replace.
	DryRun bool

	// Enabled controls whether the reconciler is active.
	Enabled bool

	// ReconcileInterval is the interval between full reconciliation runs.
	ReconcileInterval time.Duration

	// LabelPrefix is the workload label prefix services are parsed under
	// (default "woven").
	LabelPrefix string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DryRun:            false,
		Enabled:           true,
		ReconcileInterval: 60 * time.Second,
		LabelPrefix:       "woven",
	}
}

// Reconciler applies the DNS reconciler's diff/ownership discipline to a
// tunnel's ingress-rule list instead of DNS records: it computes the desired
// ordered ingress list from workload labels, diffs it against the tunnel's
// current configuration by hostname (service+path equality), and performs an
// atomic full-list replace through the adapter when anything changed.
//
// The companion CNAME pointing a tunneled hostname at the tunnel endpoint is
// left to the DNS reconciler's own cycle; the two reconcilers run
// independently and only share the ownership ledger and policy store.
type Reconciler struct {
	docker    WorkloadLister
	adapter   providertunnel.Adapter
	parser    *Parser
	ownership *ownership.Store
	policy    *policy.Store
	config    Config
	logger    *slog.Logger
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

// WithOwnershipStore sets the shared ownership ledger store.
func WithOwnershipStore(store *ownership.Store) Option {
	return func(r *Reconciler) {
		r.ownership = store
	}
}

// WithPolicyStore sets the shared preserved-hostname policy store.
func WithPolicyStore(store *policy.Store) Option {
	return func(r *Reconciler) {
		r.policy = store
	}
}

// New creates a new tunnel Reconciler for the given adapter.
func New(dockerClient WorkloadLister, adapter providertunnel.Adapter, opts ...Option) *Reconciler {
	r := &Reconciler{
		docker:  dockerClient,
		adapter: adapter,
		config:  DefaultConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.parser = NewParser(r.config.LabelPrefix, WithParserLogger(r.logger))
	if r.policy == nil {
		r.policy, _ = policy.New(nil)
	}
	return r
}

// ReconcileOnce computes the desired ingress list and, if it differs from
// the tunnel's current configuration, replaces it atomically.
func (r *Reconciler) ReconcileOnce(ctx context.Context) (*Result, error) {
	result := NewResult(r.config.DryRun)

	if !r.config.Enabled {
		result.Complete()
		return result, nil
	}

	workloads, err := r.docker.ListWorkloads(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workloads: %w", err)
	}

	desired := r.desiredServices(workloads)
	result.RulesDesired = len(desired)

	current, err := r.adapter.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching tunnel configuration: %w", err)
	}

	desiredByKey := make(map[string]Service, len(desired))
	for _, svc := range desired {
		desiredByKey[ingressKey(svc.Hostname, svc.Path)] = svc
	}

	final := make([]providertunnel.IngressRule, 0, len(desired))
	for _, svc := range desired {
		final = append(final, providertunnel.IngressRule{
			Hostname: svc.Hostname,
			Path:     svc.Path,
			Service:  svc.Backend,
		})
		result.AddAction(Action{Hostname: svc.Hostname, Service: svc.Backend, Path: svc.Path, Type: "kept", Status: StatusSuccess})
	}

	for _, rule := range current.Ingress {
		if rule.Hostname == "" {
			continue
		}
		key := ingressKey(rule.Hostname, rule.Path)
		if _, wanted := desiredByKey[key]; wanted {
			continue
		}
		if r.policy != nil && r.policy.IsPreserved(rule.Hostname) {
			final = append(final, rule)
			result.AddAction(Action{Hostname: rule.Hostname, Service: rule.Service, Path: rule.Path, Type: "preserved", Status: StatusSkipped})
			continue
		}
		result.AddAction(Action{Hostname: rule.Hostname, Service: rule.Service, Path: rule.Path, Type: "dropped", Status: StatusSuccess})
	}

	result.ConfigChanged = !providertunnel.ConfigurationEqual(current.Ingress, final)
	result.RulesApplied = len(final)

	if result.ConfigChanged && !r.config.DryRun {
		if err := r.adapter.Replace(ctx, final); err != nil {
			return nil, fmt.Errorf("replacing tunnel ingress configuration: %w", err)
		}
	}

	r.updateOwnership(desiredByKey)

	result.Complete()
	r.logger.Info("tunnel reconciliation complete",
		slog.Int("desired", result.RulesDesired),
		slog.Int("applied", result.RulesApplied),
		slog.Bool("changed", result.ConfigChanged),
		slog.Bool("dry_run", result.DryRun),
	)

	return result, nil
}

// desiredServices extracts tunnel services from every workload's labels,
// filters to this reconciler's tunnel (by name, or the unset/"default"
// selector), and deduplicates by hostname+path - first registration wins.
func (r *Reconciler) desiredServices(workloads []docker.Workload) []Service {
	seen := make(map[string]struct{})
	var desired []Service

	for _, w := range workloads {
		for _, svc := range r.parser.ExtractServices(w.Labels) {
			if !r.matchesTunnel(svc.Tunnel) {
				continue
			}
			key := ingressKey(svc.Hostname, svc.Path)
			if _, dup := seen[key]; dup {
				r.logger.Warn("duplicate tunnel ingress hostname, first registration wins",
					slog.String("hostname", svc.Hostname),
					slog.String("path", svc.Path),
					slog.String("workload", w.Name),
				)
				continue
			}
			seen[key] = struct{}{}
			desired = append(desired, svc)
		}
	}

	return desired
}

func (r *Reconciler) matchesTunnel(name string) bool {
	return name == "" || name == "default" || name == r.adapter.Name()
}

// updateOwnership records ledger ownership for every desired hostname and
// forgets entries for hostnames no longer desired.
func (r *Reconciler) updateOwnership(desiredByKey map[string]Service) {
	if r.ownership == nil {
		return
	}

	ledger, err := r.ownership.Ledger(r.adapter.Name())
	if err != nil {
		r.logger.Warn("failed to open tunnel ownership ledger",
			slog.String("adapter", r.adapter.Name()),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, svc := range desiredByKey {
		if err := ledger.Record(svc.Hostname, recordType, svc.Backend, ""); err != nil {
			r.logger.Warn("failed to record tunnel ownership",
				slog.String("hostname", svc.Hostname),
				slog.String("error", err.Error()),
			)
		}
	}

	for _, hostname := range ledger.OwnedHostnames() {
		if _, wanted := desiredByKeyHasHostname(desiredByKey, hostname); wanted {
			continue
		}
		if r.policy != nil && r.policy.IsPreserved(hostname) {
			continue
		}
		_ = ledger.Forget(hostname, recordType)
	}
}

func desiredByKeyHasHostname(desiredByKey map[string]Service, hostname string) (Service, bool) {
	for _, svc := range desiredByKey {
		if svc.Hostname == hostname {
			return svc, true
		}
	}
	return Service{}, false
}

func ingressKey(hostname, path string) string {
	return hostname + "|" + path
}
