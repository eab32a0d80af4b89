package tunnel

import "testing"

func TestProvider_NewFromConfig_NilConfig(t *testing.T) {
	if _, err := NewFromConfig("test", nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestProvider_NewFromConfig_InvalidConfig(t *testing.T) {
	if _, err := NewFromConfig("test", &Config{}); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestProvider_NameAndTunnelID(t *testing.T) {
	p, err := NewFromConfig("test", &Config{Token: "tok", AccountID: "acct", TunnelID: "tun"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "test" {
		t.Errorf("unexpected name: %s", p.Name())
	}
	if p.TunnelID() != "tun" {
		t.Errorf("unexpected tunnel id: %s", p.TunnelID())
	}
}

func TestProvider_NewFromMap_MissingFields(t *testing.T) {
	_, err := NewFromMap("test", map[string]string{"TOKEN": "tok"})
	if err == nil {
		t.Error("expected error for missing account/tunnel id")
	}
}

func TestProvider_ImplementsAdapter(t *testing.T) {
	var _ Adapter = (*Provider)(nil)
}
