package container

import (
	"context"
	"log/slog"

	"gitlab.com/wovendns/woven/pkg/source"
)

const sourceName = "container"

// Container implements the source.Source interface for extracting hostnames
// from generic, configurably-prefixed container/service labels.
type Container struct {
	parser *Parser
	logger *slog.Logger
}

// Option is a functional option for configuring Container.
type Option func(*Container)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		c.logger = logger
	}
}

// New creates a new Container source using labelPrefix (e.g. "woven").
func New(labelPrefix string, opts ...Option) *Container {
	c := &Container{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.parser = NewParser(labelPrefix, WithParserLogger(c.logger))

	return c
}

// Name returns the source identifier.
func (c *Container) Name() string {
	return sourceName
}

// Extract parses container labels and returns discovered hostnames.
// Returns an empty slice if no matching labels are found. Malformed labels
// are logged and skipped rather than failing the whole extraction.
func (c *Container) Extract(ctx context.Context, labels map[string]string) ([]source.Hostname, error) {
	if len(labels) == 0 {
		return nil, nil
	}

	extractions := c.parser.ExtractHostnames(labels)

	hostnames := make([]source.Hostname, 0, len(extractions))
	for _, e := range extractions {
		h := source.Hostname{
			Name:   e.Hostname,
			Source: sourceName,
			Router: e.RecordName,
		}

		if e.HasHints() {
			h.RecordHints = &source.RecordHints{
				Type:     e.Type,
				Target:   e.Target,
				TTL:      e.TTL,
				Provider: e.Provider,
				Proxied:  e.Proxied,
			}
			if e.SRV != nil {
				h.RecordHints.SRV = &source.SRVHints{
					Port:     e.SRV.Port,
					Priority: e.SRV.Priority,
					Weight:   e.SRV.Weight,
				}
			}
			if e.CAA != nil {
				h.RecordHints.CAA = &source.CAAHints{
					Flags: e.CAA.Flags,
					Tag:   e.CAA.Tag,
				}
			}
		}

		hostnames = append(hostnames, h)
	}

	if len(hostnames) > 0 {
		c.logger.Debug("extracted hostnames from container labels", slog.Int("count", len(hostnames)))
	}

	return hostnames, nil
}

// Discover is not supported: container labels only come from the Docker API,
// not static files.
func (c *Container) Discover(ctx context.Context) ([]source.Hostname, error) {
	return nil, nil
}

// SupportsDiscovery returns false since container labels don't support file discovery.
func (c *Container) SupportsDiscovery() bool {
	return false
}

// Ensure Container implements source.Source
var _ source.Source = (*Container)(nil)
