package tunnel

import (
	"fmt"
	"os"
	"strings"
)

// Config holds Cloudflare Tunnel adapter configuration. The API token is
// shared with providers/cloudflare when both are configured against the same
// account; a standalone Token is accepted so the tunnel adapter can also run
// without a paired DNS provider instance.
type Config struct {
	Token     string
	AccountID string
	TunnelID  string
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.Token == "" {
		errs = append(errs, "TOKEN is required")
	}
	if c.AccountID == "" {
		errs = append(errs, "ACCOUNT_ID is required")
	}
	if c.TunnelID == "" {
		errs = append(errs, "TUNNEL_ID is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("tunnel config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfig loads tunnel configuration from environment variables.
// Environment variable pattern: WOVEN_{INSTANCE_NAME}_{SETTING}
func LoadConfig(instanceName string) (*Config, error) {
	prefix := envPrefix(instanceName)

	config := &Config{
		Token:     getEnvOrFile(prefix+"TOKEN", prefix+"TOKEN_FILE"),
		AccountID: getEnv(prefix + "ACCOUNT_ID"),
		TunnelID:  getEnv(prefix + "TUNNEL_ID"),
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
