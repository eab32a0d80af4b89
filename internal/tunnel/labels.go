// Package tunnel reconciles a Cloudflare Tunnel's ingress-rule list against
// workloads that opt into tunneling via labels, independently of the DNS
// record reconciler in internal/reconciler but sharing its ownership ledger
// and preserved-hostname policy store.
//
// Labels are parsed under a configurable prefix (default "woven"), mirroring
// sources/container's named-record convention:
//
//	woven.tunnel.myapp.hostname=app.example.com
//	woven.tunnel.myapp.service=http://localhost:8080
//	woven.tunnel.myapp.path=/api
//	woven.tunnel.myapp.tunnel=default
package tunnel

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Service field names under the woven.tunnel.<name>. prefix.
const (
	FieldHostname = "hostname"
	FieldService  = "service"
	FieldPath     = "path"
	FieldTunnel   = "tunnel"
	FieldEnabled  = "enabled"
)

// Service is a single tunnel ingress rule parsed from workload labels.
type Service struct {
	// Name is the label-group identifier (e.g. "myapp" in woven.tunnel.myapp.*).
	Name string

	// Hostname is the public hostname the ingress rule routes.
	Hostname string

	// Backend is the origin service URL (e.g. "http://localhost:8080").
	Backend string

	// Path is an optional path-match pattern; empty matches all paths.
	Path string

	// Tunnel names which configured tunnel adapter this service belongs to.
	// Empty selects the default (and, currently, only) configured tunnel.
	Tunnel string
}

// Parser extracts tunnel ingress services from workload labels under a
// configurable prefix.
type Parser struct {
	prefix    string
	recordExp *regexp.Regexp
	logger    *slog.Logger
}

// ParserOption is a functional option for configuring Parser.
type ParserOption func(*Parser)

// WithParserLogger sets a custom logger for the parser.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewParser creates a tunnel label parser for the given prefix (e.g.
// "woven"). An empty prefix falls back to "woven".
func NewParser(prefix string, opts ...ParserOption) *Parser {
	if prefix == "" {
		prefix = "woven"
	}
	p := &Parser{
		prefix: prefix,
		logger: slog.Default(),
	}
	p.recordExp = regexp.MustCompile(
		fmt.Sprintf(`^%s\.tunnel\.([a-zA-Z0-9_-]+)\.([a-zA-Z0-9_]+)$`, regexp.QuoteMeta(prefix)),
	)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ExtractServices parses workload labels and returns every enabled tunnel
// service defined on it.
func (p *Parser) ExtractServices(labels map[string]string) []Service {
	grouped := make(map[string]map[string]string)
	for key, value := range labels {
		matches := p.recordExp.FindStringSubmatch(key)
		if matches == nil {
			continue
		}
		name := matches[1]
		field := strings.ToLower(matches[2])
		if grouped[name] == nil {
			grouped[name] = make(map[string]string)
		}
		grouped[name][field] = strings.TrimSpace(value)
	}

	var services []Service
	for name, fields := range grouped {
		if enabled, ok := fields[FieldEnabled]; ok && strings.EqualFold(enabled, "false") {
			p.logger.Debug("tunnel service disabled", slog.String("service", name))
			continue
		}

		hostname := fields[FieldHostname]
		backend := fields[FieldService]
		if hostname == "" || backend == "" {
			p.logger.Warn("tunnel service missing hostname or service target",
				slog.String("service", name),
			)
			continue
		}

		services = append(services, Service{
			Name:     name,
			Hostname: hostname,
			Backend:  backend,
			Path:     fields[FieldPath],
			Tunnel:   fields[FieldTunnel],
		})
	}

	return services
}
