package unifi

import "testing"

func TestConfig_Validate_MissingBaseURL(t *testing.T) {
	c := &Config{Username: "admin", Password: "secret"}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing base URL")
	}
}

func TestConfig_Validate_MissingCredentials(t *testing.T) {
	c := &Config{BaseURL: "https://unifi.local"}
	if err := c.Validate(); err == nil {
		t.Error("expected error for missing username/password")
	}
}

func TestConfig_Validate_OK(t *testing.T) {
	c := &Config{BaseURL: "https://unifi.local", Username: "admin", Password: "secret"}
	if err := c.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnvPrefix(t *testing.T) {
	if got := envPrefix("home-lab"); got != "WOVEN_HOME_LAB_" {
		t.Errorf("unexpected prefix: %s", got)
	}
}

func TestParseBool(t *testing.T) {
	cases := map[string]bool{
		"true": true, "1": true, "yes": true, "on": true,
		"false": false, "": false, "nope": false,
	}
	for in, want := range cases {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v, want %v", in, got, want)
		}
	}
}
