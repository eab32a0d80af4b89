package ownership

import (
	"testing"

	"gitlab.com/wovendns/woven/pkg/provider"
)

func TestStore_LedgerPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	l, err := store.Ledger("cloudflare-home")
	if err != nil {
		t.Fatalf("Ledger: %v", err)
	}
	if err := l.Record("app.example.com", provider.RecordTypeA, "10.0.0.5", "rec123"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	reopened, err := NewStore(dir, nil)
	if err != nil {
		t.Fatalf("NewStore reopen: %v", err)
	}
	l2, err := reopened.Ledger("cloudflare-home")
	if err != nil {
		t.Fatalf("Ledger reopen: %v", err)
	}

	if !l2.Owns("app.example.com", provider.RecordTypeA) {
		t.Error("expected ledger to remember ownership across reload")
	}
}

func TestLedger_ForgetRemovesEntry(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir, nil)
	l, _ := store.Ledger("route53-prod")

	_ = l.Record("svc.example.com", provider.RecordTypeCNAME, "lb.example.com", "")
	if !l.Owns("svc.example.com", provider.RecordTypeCNAME) {
		t.Fatal("expected ownership after Record")
	}

	if err := l.Forget("svc.example.com", provider.RecordTypeCNAME); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if l.Owns("svc.example.com", provider.RecordTypeCNAME) {
		t.Error("expected ownership to be gone after Forget")
	}
}

func TestLedger_ForgetUnknownIsNoop(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir, nil)
	l, _ := store.Ledger("unifi-home")

	if err := l.Forget("never-seen.example.com", provider.RecordTypeA); err != nil {
		t.Fatalf("expected no error forgetting unknown entry, got %v", err)
	}
}

func TestLedger_OwnedHostnamesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir, nil)
	l, _ := store.Ledger("pihole-lan")

	_ = l.Record("multi.example.com", provider.RecordTypeA, "10.0.0.1", "")
	_ = l.Record("multi.example.com", provider.RecordTypeAAAA, "::1", "")

	hostnames := l.OwnedHostnames()
	if len(hostnames) != 1 {
		t.Errorf("expected 1 deduplicated hostname, got %d: %v", len(hostnames), hostnames)
	}
}

func TestLedger_AdoptDoesNotOverwriteExisting(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewStore(dir, nil)
	l, _ := store.Ledger("cloudflare-home")

	_ = l.Record("app.example.com", provider.RecordTypeA, "10.0.0.1", "orig-id")
	_ = l.Adopt("app.example.com", provider.RecordTypeA, "10.0.0.99")

	entries := l.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Target != "10.0.0.1" {
		t.Errorf("expected Adopt to leave existing entry untouched, got target %q", entries[0].Target)
	}
}
