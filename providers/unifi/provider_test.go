package unifi

import (
	"context"
	"testing"
	"time"

	"gitlab.com/wovendns/woven/pkg/provider"
)

func TestProvider_New_NilConfig(t *testing.T) {
	if _, err := New("test", nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestProvider_New_InvalidConfig(t *testing.T) {
	if _, err := New("test", &Config{}); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestProvider_Capabilities(t *testing.T) {
	p := &Provider{}
	caps := p.Capabilities()
	if caps.SupportsNativeUpdate {
		t.Error("expected no native update support")
	}
	if !caps.SupportsOwnershipTXT {
		t.Error("expected ownership TXT support")
	}
	if !caps.SupportsRecordType(provider.RecordTypeSRV) {
		t.Error("expected SRV record type support")
	}
	if caps.SupportsRecordType(provider.RecordTypeCAA) {
		t.Error("expected no CAA record type support")
	}
}

func TestConvertStaticDNS_A(t *testing.T) {
	r := staticDNSRecord{ID: "abc", Key: "A", Name: "app.example.com", Value: "10.0.0.1", TTL: 300}
	rec, ok := convertStaticDNS(r)
	if !ok {
		t.Fatal("expected A record to convert")
	}
	if rec.Hostname != "app.example.com" || rec.ProviderID != "abc" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestConvertStaticDNS_SRV(t *testing.T) {
	r := staticDNSRecord{ID: "srv1", Key: "srv", Name: "_minecraft._tcp.example.com", Value: "mc.example.com", Priority: 10, Weight: 5, Port: 25565}
	rec, ok := convertStaticDNS(r)
	if !ok {
		t.Fatal("expected SRV record to convert")
	}
	if rec.SRV == nil || rec.SRV.Port != 25565 {
		t.Errorf("unexpected SRV data: %+v", rec.SRV)
	}
}

func TestConvertStaticDNS_Unsupported(t *testing.T) {
	r := staticDNSRecord{ID: "x", Key: "MX", Name: "example.com", Value: "mail.example.com"}
	if _, ok := convertStaticDNS(r); ok {
		t.Error("expected MX record to be skipped")
	}
}

func TestBuildStaticDNS_RequiresSRVData(t *testing.T) {
	_, err := buildStaticDNS(provider.Record{Type: provider.RecordTypeSRV, Hostname: "x.example.com"}, 300)
	if err == nil {
		t.Error("expected error for SRV record missing SRV data")
	}
}

func TestBuildStaticDNS_UnsupportedType(t *testing.T) {
	_, err := buildStaticDNS(provider.Record{Type: provider.RecordTypeCAA, Hostname: "example.com"}, 300)
	if err == nil {
		t.Error("expected error for unsupported CAA record type")
	}
}

func TestBuildStaticDNS_A(t *testing.T) {
	rec, err := buildStaticDNS(provider.Record{Type: provider.RecordTypeA, Hostname: "app.example.com", Target: "10.0.0.1"}, 300)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Key != "A" || rec.Value != "10.0.0.1" || !rec.Enabled {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestProvider_Settle_ZeroDelay(t *testing.T) {
	p := &Provider{settleDelay: 0}
	start := time.Now()
	if err := p.settle(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("expected settle to return immediately when delay is zero")
	}
}

func TestProvider_Factory(t *testing.T) {
	f := Factory()
	_, err := f("test", map[string]string{"BASE_URL": "https://unifi.local", "USERNAME": "admin", "PASSWORD": "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProvider_NewFromMap_MissingCredentials(t *testing.T) {
	_, err := NewFromMap("test", map[string]string{"BASE_URL": "https://unifi.local"})
	if err == nil {
		t.Error("expected error for missing credentials")
	}
}

func TestProvider_ImplementsInterface(t *testing.T) {
	var _ provider.Provider = (*Provider)(nil)
}
