package unifi

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultTTL is a placeholder TTL; UniFi's controller-side static DNS
// records have no configurable TTL, this is only surfaced for provider.Record
// bookkeeping.
const DefaultTTL = 300

// DefaultSettleDelay is how long to wait after a write before the controller
// is expected to have converged; the provider waits this long after each
// Create and Delete.
const DefaultSettleDelay = 100 * time.Millisecond

// Config holds UniFi-specific configuration.
type Config struct {
	BaseURL     string // e.g. "https://unifi.local:8443" or "https://unifi.ui.com"
	Username    string
	Password    string
	Site        string // UniFi "site" identifier, defaults to "default"
	TTL         int
	SettleDelay time.Duration
	InsecureTLS bool // Accept self-signed certs, common for on-prem controllers
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.BaseURL == "" {
		errs = append(errs, "BASE_URL is required")
	}
	if c.Username == "" {
		errs = append(errs, "USERNAME is required")
	}
	if c.Password == "" {
		errs = append(errs, "PASSWORD is required")
	}
	if c.TTL < 0 {
		errs = append(errs, "TTL must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("unifi config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfig loads UniFi configuration from environment variables.
// Environment variable pattern: WOVEN_{INSTANCE_NAME}_{SETTING}
func LoadConfig(instanceName string) (*Config, error) {
	prefix := envPrefix(instanceName)

	config := &Config{
		BaseURL:     strings.TrimSuffix(getEnv(prefix+"BASE_URL"), "/"),
		Username:    getEnv(prefix + "USERNAME"),
		Password:    getEnvOrFile(prefix+"PASSWORD", prefix+"PASSWORD_FILE"),
		Site:        getEnv(prefix + "SITE"),
		TTL:         DefaultTTL,
		SettleDelay: DefaultSettleDelay,
		InsecureTLS: parseBool(getEnv(prefix + "INSECURE_TLS")),
	}

	if config.Site == "" {
		config.Site = "default"
	}

	if ttlStr := getEnv(prefix + "TTL"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL value %q: %w", ttlStr, err)
		}
		config.TTL = ttl
	}

	if delayStr := getEnv(prefix + "SETTLE_DELAY"); delayStr != "" {
		d, err := time.ParseDuration(delayStr)
		if err != nil {
			return nil, fmt.Errorf("invalid SETTLE_DELAY value %q: %w", delayStr, err)
		}
		config.SettleDelay = d
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration for %s: %w", instanceName, err)
	}

	return config, nil
}

func envPrefix(instanceName string) string {
	normalized := strings.ToUpper(instanceName)
	normalized = strings.ReplaceAll(normalized, "-", "_")
	return "WOVEN_" + normalized + "_"
}

func getEnv(key string) string {
	return os.Getenv(key)
}

func getEnvOrFile(directKey, fileKey string) string {
	if filePath := os.Getenv(fileKey); filePath != "" {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return os.Getenv(directKey)
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
