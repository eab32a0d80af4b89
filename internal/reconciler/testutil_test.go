package reconciler

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"gitlab.com/wovendns/woven/internal/docker"
	"gitlab.com/wovendns/woven/pkg/provider"
	"gitlab.com/wovendns/woven/pkg/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeLister is a minimal WorkloadLister for tests.
type fakeLister struct {
	workloads []docker.Workload
	err       error
}

func (f *fakeLister) ListWorkloads(_ context.Context) ([]docker.Workload, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.workloads, nil
}

func (f *fakeLister) add(name string, labels map[string]string) {
	f.workloads = append(f.workloads, docker.Workload{ID: "id-" + name, Name: name, Labels: labels, Type: docker.WorkloadTypeContainer})
}

// fakeSource extracts a hostname from a single label key.
type fakeSource struct {
	name     string
	labelKey string
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Extract(_ context.Context, labels map[string]string) ([]source.Hostname, error) {
	v, ok := labels[s.labelKey]
	if !ok || v == "" {
		return nil, nil
	}
	return []source.Hostname{{Name: v, Source: s.name}}, nil
}

func (s *fakeSource) Discover(_ context.Context) ([]source.Hostname, error) {
	return nil, nil
}

// fakeProvider implements provider.Provider (and optionally BatchApplier)
// with an in-memory record store.
type fakeProvider struct {
	mu       sync.Mutex
	name     string
	typeName string
	caps     provider.Capabilities
	records  []provider.Record

	batch       bool
	createCalls int
	deleteCalls int
}

func (p *fakeProvider) Name() string                    { return p.name }
func (p *fakeProvider) Type() string                    { return p.typeName }
func (p *fakeProvider) Ping(ctx context.Context) error  { return nil }
func (p *fakeProvider) Capabilities() provider.Capabilities { return p.caps }

func (p *fakeProvider) List(ctx context.Context) ([]provider.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]provider.Record, len(p.records))
	copy(out, p.records)
	return out, nil
}

func (p *fakeProvider) Create(ctx context.Context, r provider.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	for _, existing := range p.records {
		if existing.Hostname == r.Hostname && existing.Type == r.Type && existing.Target == r.Target {
			return provider.ErrConflict
		}
	}
	p.records = append(p.records, r)
	return nil
}

func (p *fakeProvider) Delete(ctx context.Context, r provider.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleteCalls++
	for i, existing := range p.records {
		if existing.Hostname == r.Hostname && existing.Type == r.Type && existing.Target == r.Target {
			p.records = append(p.records[:i], p.records[i+1:]...)
			return nil
		}
	}
	return provider.ErrNotFound
}

func (p *fakeProvider) ApplyBatch(ctx context.Context, creates, updates, deletes []provider.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range creates {
		p.records = append(p.records, r)
	}
	for _, r := range updates {
		for i, existing := range p.records {
			if existing.Hostname == r.Hostname && existing.Type == r.Type {
				p.records[i] = r
			}
		}
	}
	for _, r := range deletes {
		for i, existing := range p.records {
			if existing.Hostname == r.Hostname && existing.Type == r.Type && existing.Target == r.Target {
				p.records = append(p.records[:i], p.records[i+1:]...)
				break
			}
		}
	}
	return nil
}

func newInstance(reg *provider.Registry, name string, p *fakeProvider, mode provider.OperationalMode, domains ...string) {
	reg.RegisterFactory(p.typeName, func(string, map[string]string) (provider.Provider, error) { return p, nil })
	if err := reg.CreateInstance(provider.ProviderInstanceConfig{
		Name:       name,
		TypeName:   p.typeName,
		RecordType: provider.RecordTypeA,
		Target:     "10.0.0.1",
		TTL:        300,
		Mode:       mode,
		Domains:    domains,
	}); err != nil {
		panic(err)
	}
}
