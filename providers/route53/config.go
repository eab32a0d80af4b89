package route53

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// DefaultTTL is the default TTL applied to Route53 records when none is requested.
const DefaultTTL = 300

// DefaultBatchSize is the maximum number of changes submitted per
// ChangeResourceRecordSets call. Route53 itself accepts up to 1000 changes
// or 32000 bytes of request body, whichever is smaller; 100 keeps individual
// batches comfortably under either limit.
const DefaultBatchSize = 100

// Config holds Route53-specific configuration.
type Config struct {
	Region          string
	HostedZoneID    string // Optional; looked up from Zone if empty
	Zone            string // Zone name, used for lookup if HostedZoneID is empty
	AccessKeyID     string // Optional; falls back to the default AWS credential chain
	SecretAccessKey string
	SessionToken    string
	TTL             int
	BatchSize       int
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	var errs []string

	if c.HostedZoneID == "" && c.Zone == "" {
		errs = append(errs, "HOSTED_ZONE_ID or ZONE is required")
	}
	if c.TTL < 0 {
		errs = append(errs, "TTL must be non-negative")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		errs = append(errs, "ACCESS_KEY_ID and SECRET_ACCESS_KEY must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("route53 config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// LoadConfig loads Route53 configuration from environment variables.
// Environment variable pattern: WOVEN_{INSTANCE_NAME}_{SETTING}
func LoadConfig(instanceName string) (*Config, error) {
	prefix := envPrefix(instanceName)

	config := &Config{
		Region:          getEnv(prefix + "REGION"),
		HostedZoneID:    getEnv(prefix + "HOSTED_ZONE_ID"),
		Zone:            getEnv(prefix + "ZONE"),
		AccessKeyID:     getEnv(prefix + "ACCESS_KEY_ID"),
		SecretAccessKey: getEnvOrFile(prefix+"SECRET_ACCESS_KEY", prefix+"SECRET_ACCESS_KEY_FILE"),
		SessionToken:    getEnv(prefix + "SESSION_TOKEN"),
		TTL:             DefaultTTL,
		BatchSize:       DefaultBatchSize,
	}

	if ttlStr := getEnv(prefix + "TTL"); ttlStr != "" {
		ttl, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TTL value %q: %w", ttlStr, err)
		}
		config.TTL = ttl
	}

	if batchStr := getEnv(prefix + "BATCH_SIZE"); batchStr != "" {
		batch, err := strconv.Atoi(batchStr)
		if err != nil {
			return nil, fmt.Errorf("invalid BATCH_SIZE value %q: %w", batchStr, err)
		}
		config.BatchSize = batch
	}

	if config.Region == "" {
		config.Region = "us-east-1" // Route53 is a global service; SDK still requires a signing region.
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
