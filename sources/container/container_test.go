package container

import (
	"context"
	"testing"
)

func TestContainer_Extract_NoLabels(t *testing.T) {
	c := New("woven")
	hostnames, err := c.Extract(context.Background(), nil)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(hostnames) != 0 {
		t.Errorf("expected 0 hostnames, got %d", len(hostnames))
	}
}

func TestContainer_Extract_SimpleHostname(t *testing.T) {
	c := New("woven")
	hostnames, err := c.Extract(context.Background(), map[string]string{
		"woven.hostname": "app.example.com",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(hostnames) != 1 || hostnames[0].Name != "app.example.com" {
		t.Fatalf("unexpected hostnames: %+v", hostnames)
	}
	if hostnames[0].Source != "container" {
		t.Errorf("Source = %q, want container", hostnames[0].Source)
	}
}

func TestContainer_Extract_ProxiedHintPropagates(t *testing.T) {
	c := New("woven")
	hostnames, err := c.Extract(context.Background(), map[string]string{
		"woven.records.myapp.hostname": "app.example.com",
		"woven.records.myapp.proxied":  "true",
	})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(hostnames) != 1 || hostnames[0].RecordHints == nil || hostnames[0].RecordHints.Proxied == nil {
		t.Fatalf("expected proxied hint to propagate, got %+v", hostnames)
	}
	if !*hostnames[0].RecordHints.Proxied {
		t.Error("expected Proxied=true")
	}
}

func TestContainer_SupportsDiscovery(t *testing.T) {
	c := New("woven")
	if c.SupportsDiscovery() {
		t.Error("container source should not support file discovery")
	}
}
