package digitalocean

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultTTL is the default TTL applied to DigitalOcean records when none is requested.
// DigitalOcean's minimum accepted TTL is 30 seconds.
const DefaultTTL = 300

// Config holds DigitalOcean-specific configuration.
type Config struct {
	Token  string // Personal access token
	Domain string // The DO "domain" resource name, e.g. "example.com"
	TTL    int
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "TOKEN is required")
	}
	if c.Domain == "" {
		errs = append(errs, "DOMAIN is required")
	}
	if c.TTL < 0 {
		errs = append(errs, "TTL must be non-negative")
	}
	if c.TTL > 0 && c.TTL < 30 {
		errs = append(errs, "TTL must be at least 30 seconds")
	}

	if len(errs) > 0 {
		return fmt.Errorf("digitalocean config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfig loads DigitalOcean configuration from environment variables.
// Environment variable pattern: WOVEN_{INSTANCE_NAME}_{SETTING}
func LoadConfig(instanceName string) (*Config, error) {
	prefix := envPrefix(instanceName)

	config := &Config{
		Token:  getEnvOrFile(prefix+"TOKEN", prefix+"TOKEN_FILE"),
		Domain: getEnv(prefix + "DOMAIN"),
		TTL:    DefaultTTL,
	}

	if ttlStr := getEnv(prefix + "TTL"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL value %q: %w", ttlStr, err)
		}
		config.TTL = ttl
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
