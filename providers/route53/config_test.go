package route53

import "testing"

func TestConfig_Validate_MissingZone(t *testing.T) {
	c := &Config{}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing zone/hosted zone ID")
	}
}

func TestConfig_Validate_PartialCredentials(t *testing.T) {
	c := &Config{Zone: "example.com", AccessKeyID: "AKIA..."}
	if err := c.Validate(); err == nil {
		t.Error("expected error for partial static credentials")
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	c := &Config{Zone: "example.com", TTL: 300}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnvPrefix(t *testing.T) {
	if p := envPrefix("public-dns"); p != "WOVEN_PUBLIC_DNS_" {
		t.Errorf("unexpected prefix: %s", p)
	}
}
