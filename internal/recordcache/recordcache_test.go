package recordcache

import (
	"context"
	"errors"
	"testing"

	"gitlab.com/wovendns/woven/pkg/provider"
)

type fakeProvider struct {
	name    string
	records []provider.Record
	listErr error
}

func (f *fakeProvider) Name() string                       { return f.name }
func (f *fakeProvider) Type() string                       { return "fake" }
func (f *fakeProvider) Capabilities() provider.Capabilities { return provider.Capabilities{} }
func (f *fakeProvider) Ping(ctx context.Context) error      { return nil }
func (f *fakeProvider) List(ctx context.Context) ([]provider.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}
func (f *fakeProvider) Create(ctx context.Context, r provider.Record) error { return nil }
func (f *fakeProvider) Delete(ctx context.Context, r provider.Record) error { return nil }

func registryWith(t *testing.T, name string, p provider.Provider) *provider.Registry {
	t.Helper()
	reg := provider.NewRegistry(nil)
	reg.RegisterFactory("fake", func(instName string, cfg map[string]string) (provider.Provider, error) {
		return p, nil
	})
	if err := reg.CreateInstance(provider.ProviderInstanceConfig{
		Name:     name,
		TypeName: "fake",
		Domains:  []string{"*"},
	}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	return reg
}

func TestCache_Existing_FiltersTXT(t *testing.T) {
	p := &fakeProvider{name: "p1", records: []provider.Record{
		{Hostname: "app.example.com", Type: provider.RecordTypeA, Target: "10.0.0.1"},
		{Hostname: "app.example.com", Type: provider.RecordTypeTXT, Target: provider.OwnershipValue},
	}}
	c := New(context.Background(), registryWith(t, "p1", p), nil)

	records, ok := c.Existing("p1", "app.example.com")
	if !ok {
		t.Fatal("expected ok=true")
	}
	if len(records) != 1 || records[0].Type != provider.RecordTypeA {
		t.Errorf("expected only the A record, got %v", records)
	}
}

func TestCache_HasOwnershipMarker(t *testing.T) {
	p := &fakeProvider{name: "p1", records: []provider.Record{
		{Hostname: provider.OwnershipRecordName("app.example.com"), Type: provider.RecordTypeTXT, Target: provider.OwnershipValue},
	}}
	c := New(context.Background(), registryWith(t, "p1", p), nil)

	if !c.HasOwnershipMarker("p1", "app.example.com") {
		t.Error("expected ownership marker to be found")
	}
	if c.HasOwnershipMarker("p1", "other.example.com") {
		t.Error("expected no ownership marker for unrelated hostname")
	}
}

func TestCache_FailedProviderReportsNotOK(t *testing.T) {
	p := &fakeProvider{name: "p1", listErr: errors.New("boom")}
	c := New(context.Background(), registryWith(t, "p1", p), nil)

	if _, ok := c.Existing("p1", "app.example.com"); ok {
		t.Error("expected ok=false when provider List failed")
	}
	if c.Loaded("p1") {
		t.Error("expected Loaded=false when provider List failed")
	}
}
