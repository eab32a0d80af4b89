package tunnel

import (
	"context"
	"testing"

	"gitlab.com/wovendns/woven/internal/ownership"
	"gitlab.com/wovendns/woven/internal/policy"
)

func TestReconcileOnce_ReplacesConfigurationWhenChanged(t *testing.T) {
	lister := &fakeLister{}
	lister.add("web", map[string]string{
		"woven.tunnel.myapp.hostname": "app.example.com",
		"woven.tunnel.myapp.service":  "http://localhost:8080",
	})

	adapter := &fakeAdapter{name: "cf-tunnel", tunnelID: "tun-1"}
	r := New(lister, adapter, WithLogger(testLogger()))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ConfigChanged {
		t.Fatal("expected a configuration change")
	}
	if adapter.replaceCall != 1 {
		t.Fatalf("expected Replace to be called once, got %d", adapter.replaceCall)
	}
	if len(adapter.ingress) != 1 || adapter.ingress[0].Hostname != "app.example.com" {
		t.Fatalf("unexpected ingress after replace: %+v", adapter.ingress)
	}
}

func TestReconcileOnce_NoOpWhenUnchanged(t *testing.T) {
	lister := &fakeLister{}
	lister.add("web", map[string]string{
		"woven.tunnel.myapp.hostname": "app.example.com",
		"woven.tunnel.myapp.service":  "http://localhost:8080",
	})

	adapter := &fakeAdapter{
		name:     "cf-tunnel",
		tunnelID: "tun-1",
		ingress:  ingressRules("app.example.com", "", "http://localhost:8080"),
	}
	r := New(lister, adapter, WithLogger(testLogger()))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ConfigChanged {
		t.Fatal("expected no configuration change")
	}
	if adapter.replaceCall != 0 {
		t.Fatalf("expected Replace not to be called, got %d calls", adapter.replaceCall)
	}
}

func TestReconcileOnce_DropsOrphanedIngress(t *testing.T) {
	lister := &fakeLister{}

	adapter := &fakeAdapter{
		name:     "cf-tunnel",
		tunnelID: "tun-1",
		ingress:  ingressRules("gone.example.com", "", "http://localhost:9090"),
	}
	r := New(lister, adapter, WithLogger(testLogger()))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ConfigChanged {
		t.Fatal("expected the orphaned rule to trigger a change")
	}
	if len(adapter.ingress) != 0 {
		t.Fatalf("expected orphaned rule to be dropped, got %+v", adapter.ingress)
	}
}

func TestReconcileOnce_PreservesPolicyProtectedHostname(t *testing.T) {
	lister := &fakeLister{}

	adapter := &fakeAdapter{
		name:     "cf-tunnel",
		tunnelID: "tun-1",
		ingress:  ingressRules("manual.example.com", "", "http://localhost:9090"),
	}
	policyStore, err := policy.New([]string{"manual.example.com"})
	if err != nil {
		t.Fatalf("policy.New: %v", err)
	}

	r := New(lister, adapter, WithLogger(testLogger()), WithPolicyStore(policyStore))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ConfigChanged {
		t.Fatal("expected no change when the only existing rule is preserved")
	}
	if len(adapter.ingress) != 1 || adapter.ingress[0].Hostname != "manual.example.com" {
		t.Fatalf("expected preserved rule to remain, got %+v", adapter.ingress)
	}
}

func TestReconcileOnce_DryRunMakesNoChanges(t *testing.T) {
	lister := &fakeLister{}
	lister.add("web", map[string]string{
		"woven.tunnel.myapp.hostname": "app.example.com",
		"woven.tunnel.myapp.service":  "http://localhost:8080",
	})

	adapter := &fakeAdapter{name: "cf-tunnel", tunnelID: "tun-1"}
	cfg := DefaultConfig()
	cfg.DryRun = true
	r := New(lister, adapter, WithLogger(testLogger()), WithConfig(cfg))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.ConfigChanged {
		t.Fatal("expected dry-run to still report a planned change")
	}
	if adapter.replaceCall != 0 {
		t.Fatal("dry-run must not call Adapter.Replace")
	}
}

func TestReconcileOnce_DuplicateHostnameFirstWins(t *testing.T) {
	lister := &fakeLister{}
	lister.add("first", map[string]string{
		"woven.tunnel.svc.hostname": "app.example.com",
		"woven.tunnel.svc.service":  "http://localhost:1111",
	})
	lister.add("second", map[string]string{
		"woven.tunnel.svc.hostname": "app.example.com",
		"woven.tunnel.svc.service":  "http://localhost:2222",
	})

	adapter := &fakeAdapter{name: "cf-tunnel", tunnelID: "tun-1"}
	r := New(lister, adapter, WithLogger(testLogger()))

	result, err := r.ReconcileOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RulesDesired != 1 {
		t.Fatalf("expected deduplication to a single rule, got %d", result.RulesDesired)
	}
}

func TestReconcileOnce_RecordsAndForgetsOwnership(t *testing.T) {
	dir := t.TempDir()
	store, err := ownership.NewStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	lister := &fakeLister{}
	lister.add("web", map[string]string{
		"woven.tunnel.myapp.hostname": "app.example.com",
		"woven.tunnel.myapp.service":  "http://localhost:8080",
	})
	adapter := &fakeAdapter{name: "cf-tunnel", tunnelID: "tun-1"}
	r := New(lister, adapter, WithLogger(testLogger()), WithOwnershipStore(store))

	if _, err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ledger, err := store.Ledger("cf-tunnel")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if !ledger.Owns("app.example.com", recordType) {
		t.Fatal("expected app.example.com to be recorded as owned")
	}

	lister.workloads = nil
	if _, err := r.ReconcileOnce(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ledger.Owns("app.example.com", recordType) {
		t.Fatal("expected app.example.com ownership to be forgotten once no longer desired")
	}
}
