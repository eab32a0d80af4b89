// Package traefik provides a Source implementation for extracting hostnames
// from Traefik reverse proxy labels, static configuration files, and the
// live Traefik HTTP API.
//
// Example labels:
//
//	traefik.http.routers.myapp.rule=Host(`app.example.com`)
//	traefik.http.routers.myapp.rule=Host(`a.com`) || Host(`b.com`)
//
// Example static file (YAML):
//
//	http:
//	  routers:
//	    myapp:
//	      rule: "Host(`app.example.com`)"
package traefik

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"gitlab.com/wovendns/woven/pkg/source"
)

const sourceName = "traefik"

// DefaultFilePattern is the default glob pattern for Traefik config files.
const DefaultFilePattern = "*.yml,*.yaml"

// APIConfig configures polling the Traefik HTTP API for router rules, as an
// alternative to static file discovery for deployments that don't mount
// Traefik's dynamic config onto disk.
type APIConfig struct {
	// URL is the Traefik API base URL (e.g. "http://traefik:8080").
	URL string

	// PollInterval defaults to 30s but is not read by this package: the API
	// is polled once per Discover call, so the caller of Discover sets the
	// polling frequency.
	PollInterval time.Duration

	// MaxElapsedTime bounds the exponential backoff applied to a failing
	// poll before it gives up for that cycle. Defaults to 1 minute.
	MaxElapsedTime time.Duration
}

// IsEnabled reports whether API polling is configured.
func (c APIConfig) IsEnabled() bool {
	return c.URL != ""
}

// Traefik implements the source.Source interface for extracting hostnames
// from Traefik container labels, static configuration files, and (if
// configured) the live Traefik API.
type Traefik struct {
	parser     *Parser
	logger     *slog.Logger
	fileConfig source.FileDiscoveryConfig
	apiConfig  APIConfig
	httpClient *http.Client
}

// Option is a functional option for configuring Traefik.
type Option func(*Traefik)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Traefik) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithFileDiscovery configures file-based discovery.
func WithFileDiscovery(config source.FileDiscoveryConfig) Option {
	return func(t *Traefik) {
		t.fileConfig = config
		if t.fileConfig.FilePattern == "" {
			t.fileConfig.FilePattern = DefaultFilePattern
		}
	}
}

// WithAPIDiscovery configures polling the live Traefik API for router rules.
func WithAPIDiscovery(config APIConfig) Option {
	return func(t *Traefik) {
		if config.PollInterval <= 0 {
			config.PollInterval = 30 * time.Second
		}
		if config.MaxElapsedTime <= 0 {
			config.MaxElapsedTime = time.Minute
		}
		t.apiConfig = config
	}
}

// WithHTTPClient overrides the HTTP client used for API polling.
func WithHTTPClient(client *http.Client) Option {
	return func(t *Traefik) {
		if client != nil {
			t.httpClient = client
		}
	}
}

// New creates a new Traefik source.
func New(opts ...Option) *Traefik {
	t := &Traefik{
		logger:     slog.Default(),
		fileConfig: source.DefaultFileDiscoveryConfig(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	t.parser = NewParser(WithParserLogger(t.logger))

	return t
}

// Name returns the source identifier.
func (t *Traefik) Name() string {
	return sourceName
}

// Extract parses Traefik labels and returns discovered hostnames.
//
// Looks for traefik.http.routers.*.rule labels and extracts all Host()
// patterns from the rule values. Never returns an error - malformed rules
// are logged and skipped.
func (t *Traefik) Extract(_ context.Context, labels map[string]string) ([]source.Hostname, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	extractions := t.parser.ExtractHostnames(labels)

	hostnames := make([]source.Hostname, 0, len(extractions))
	for _, e := range extractions {
		hostnames = append(hostnames, source.Hostname{
			Name:   e.Hostname,
			Source: sourceName,
			Router: e.Router,
		})
	}

	if len(hostnames) > 0 {
		t.logger.Debug("extracted hostnames from traefik labels",
			slog.Int("count", len(hostnames)),
		)
	}

	return hostnames, nil
}

// Discover finds hostnames from configured Traefik static configuration
// files and, if configured, the live Traefik API. Results from both are
// combined and deduplicated by hostname.
//
// Returns nil, nil if neither file nor API discovery is configured.
func (t *Traefik) Discover(ctx context.Context) ([]source.Hostname, error) {
	if !t.SupportsDiscovery() {
		return nil, nil
	}

	seen := make(map[string]struct{})
	var result []source.Hostname

	if t.fileConfig.IsEnabled() {
		fileExtractions, err := t.parser.DiscoverFromFiles(ctx, t.fileConfig.FilePaths, t.fileConfig.FilePattern)
		if err != nil {
			return nil, err
		}
		for _, e := range fileExtractions {
			if _, dup := seen[e.Hostname]; dup {
				continue
			}
			seen[e.Hostname] = struct{}{}
			result = append(result, source.Hostname{Name: e.Hostname, Source: sourceName, Router: e.Router})
		}
	}

	if t.apiConfig.IsEnabled() {
		apiExtractions, err := t.pollAPI(ctx)
		if err != nil {
			t.logger.Warn("traefik api discovery failed, continuing with file results if any",
				slog.String("error", err.Error()),
			)
		}
		for _, e := range apiExtractions {
			if _, dup := seen[e.Hostname]; dup {
				continue
			}
			seen[e.Hostname] = struct{}{}
			result = append(result, source.Hostname{Name: e.Hostname, Source: sourceName, Router: e.Router})
		}
	}

	if len(result) > 0 {
		t.logger.Debug("discovered hostnames from traefik",
			slog.Int("count", len(result)),
		)
	}

	return result, nil
}

// SupportsDiscovery returns true if file or API discovery is configured.
func (t *Traefik) SupportsDiscovery() bool {
	return t.fileConfig.IsEnabled() || t.apiConfig.IsEnabled()
}

// FileConfig returns the file discovery configuration.
func (t *Traefik) FileConfig() source.FileDiscoveryConfig {
	return t.fileConfig
}

// routerAPIEntry is a single entry from Traefik's GET /api/http/routers.
type routerAPIEntry struct {
	Name string `json:"name"`
	Rule string `json:"rule"`
}

// pollAPI fetches the current router list from Traefik's HTTP API, retrying
// transient failures with bounded exponential backoff before giving up for
// this discovery cycle.
func (t *Traefik) pollAPI(ctx context.Context) ([]HostnameExtraction, error) {
	var routers []routerAPIEntry

	fetch := func() error {
		r, err := t.fetchRouters(ctx)
		if err != nil {
			return err
		}
		routers = r
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = t.apiConfig.MaxElapsedTime

	if err := backoff.Retry(fetch, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("polling traefik api: %w", err)
	}

	labels := make(map[string]string, len(routers))
	for _, r := range routers {
		labels[routerLabelPrefix+r.Name+routerRuleSuffix] = r.Rule
	}

	return t.parser.ExtractHostnames(labels), nil
}

func (t *Traefik) fetchRouters(ctx context.Context) ([]routerAPIEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.apiConfig.URL+"/api/http/routers", nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("traefik api returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("traefik api returned %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var routers []routerAPIEntry
	if err := json.Unmarshal(body, &routers); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding traefik api response: %w", err))
	}

	return routers, nil
}

// Ensure Traefik implements source.Source
var _ source.Source = (*Traefik)(nil)
