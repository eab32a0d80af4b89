package unifi

import "testing"

func TestNewClient_DefaultLogger(t *testing.T) {
	c := NewClient(&Config{BaseURL: "https://unifi.local", Site: "default"})
	if c.baseURL != "https://unifi.local" {
		t.Errorf("unexpected baseURL: %s", c.baseURL)
	}
	if c.logger == nil {
		t.Error("expected default logger to be set")
	}
}

func TestStaticDNSPath(t *testing.T) {
	c := NewClient(&Config{BaseURL: "https://unifi.local", Site: "default"})
	if got := c.staticDNSPath(""); got != "/proxy/network/v2/api/site/default/static-dns" {
		t.Errorf("unexpected path: %s", got)
	}
	if got := c.staticDNSPath("/abc123"); got != "/proxy/network/v2/api/site/default/static-dns/abc123" {
		t.Errorf("unexpected path: %s", got)
	}
}

func TestClientOption_WithHTTPClient_Nil(t *testing.T) {
	c := NewClient(&Config{BaseURL: "https://unifi.local"}, WithHTTPClient(nil))
	if c.httpClient == nil {
		t.Error("expected httpClient to remain set when nil option passed")
	}
}
