package reconciler

import (
	"context"
	"testing"

	"gitlab.com/wovendns/woven/internal/ownership"
	"gitlab.com/wovendns/woven/pkg/provider"
)

func TestCleanupOrphans_ManagedModeSkipsUnowned(t *testing.T) {
	providers := provider.NewRegistry(testLogger())
	p := &fakeProvider{name: "primary", typeName: "fake", caps: provider.Capabilities{
		SupportedRecordTypes: []provider.RecordType{provider.RecordTypeA},
	}}
	newInstance(providers, "primary", p, provider.ModeManaged, "*.example.com")

	r := New(&fakeLister{}, newTestSources(), providers, WithLogger(testLogger()))
	r.mu.Lock()
	r.knownHostnames["manual.example.com"] = struct{}{}
	r.mu.Unlock()

	actions := r.cleanupOrphans(context.Background(), map[string]struct{}{}, nil)
	if len(actions) != 1 || actions[0].Status != StatusSkipped {
		t.Fatalf("expected skip for unowned record in managed mode, got %+v", actions)
	}
}

func TestCleanupOrphans_AuthoritativeModeDeletesRegardlessOfOwnership(t *testing.T) {
	providers := provider.NewRegistry(testLogger())
	p := &fakeProvider{name: "primary", typeName: "fake", caps: provider.Capabilities{
		SupportedRecordTypes: []provider.RecordType{provider.RecordTypeA},
	}}
	p.records = append(p.records, provider.Record{Hostname: "manual.example.com", Type: provider.RecordTypeA, Target: "10.0.0.1"})
	newInstance(providers, "primary", p, provider.ModeAuthoritative, "*.example.com")

	r := New(&fakeLister{}, newTestSources(), providers, WithLogger(testLogger()))
	r.mu.Lock()
	r.knownHostnames["manual.example.com"] = struct{}{}
	r.mu.Unlock()

	actions := r.cleanupOrphans(context.Background(), map[string]struct{}{}, nil)
	if len(actions) != 1 || actions[0].Status != StatusSuccess || actions[0].Type != ActionDelete {
		t.Fatalf("expected authoritative delete regardless of ownership, got %+v", actions)
	}
	if p.deleteCalls != 1 {
		t.Errorf("expected provider Delete to be called once, got %d", p.deleteCalls)
	}
}

func TestCleanupOrphans_PreservesCurrentHostnames(t *testing.T) {
	providers := provider.NewRegistry(testLogger())
	p := &fakeProvider{name: "primary", typeName: "fake", caps: provider.Capabilities{
		SupportedRecordTypes: []provider.RecordType{provider.RecordTypeA},
	}}
	newInstance(providers, "primary", p, provider.ModeManaged, "*.example.com")

	r := New(&fakeLister{}, newTestSources(), providers, WithLogger(testLogger()))
	r.mu.Lock()
	r.knownHostnames["still.example.com"] = struct{}{}
	r.mu.Unlock()

	actions := r.cleanupOrphans(context.Background(), map[string]struct{}{"still.example.com": {}}, nil)
	if len(actions) != 0 {
		t.Fatalf("expected no orphan actions for a hostname still in the desired set, got %+v", actions)
	}
}

func TestCheckOwnership_PrefersLedgerOverTXT(t *testing.T) {
	dir := t.TempDir()
	store, err := ownership.NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	ledger, err := store.Ledger("primary")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if err := ledger.Record("app.example.com", provider.RecordTypeA, "10.0.0.1", ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	providers := provider.NewRegistry(testLogger())
	p := &fakeProvider{name: "primary", typeName: "fake", caps: provider.Capabilities{
		SupportedRecordTypes: []provider.RecordType{provider.RecordTypeA},
	}}
	newInstance(providers, "primary", p, provider.ModeManaged, "*.example.com")

	r := New(&fakeLister{}, newTestSources(), providers, WithOwnershipStore(store), WithLogger(testLogger()))
	inst, _ := providers.Get("primary")

	owned, err := r.checkOwnership(context.Background(), inst, "app.example.com")
	if err != nil || !owned {
		t.Fatalf("expected app.example.com to be reported owned via ledger, got owned=%v err=%v", owned, err)
	}

	owned, err = r.checkOwnership(context.Background(), inst, "other.example.com")
	if err != nil || owned {
		t.Fatalf("expected other.example.com to be reported unowned, got owned=%v err=%v", owned, err)
	}
}
