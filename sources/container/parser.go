// Package container provides a Source implementation for extracting hostnames
// from generic container/service labels, independent of any particular
// reverse proxy. The label prefix is configurable (GlobalConfig.LabelPrefix,
// "woven" by default) so operators migrating from a differently-prefixed
// setup aren't forced to relabel every workload at once.
//
// Two label shapes are supported, under whatever prefix is configured
// (examples below use the default "woven"):
//
// 1. Simple hostname (uses provider defaults for type/target):
//
//	woven.hostname=app.example.com
//
// 2. Named records (explicit control per record):
//
//	woven.records.myapp.hostname=app.example.com
//	woven.records.myapp.type=A
//	woven.records.myapp.target=192.0.2.100
//	woven.records.myapp.provider=internal-dns
//	woven.records.myapp.ttl=300
//	woven.records.myapp.proxied=true
//
// For SRV records:
//
//	woven.records.mc.hostname=_minecraft._tcp.mc.example.com
//	woven.records.mc.type=SRV
//	woven.records.mc.target=mc-server.example.com
//	woven.records.mc.port=25565
//	woven.records.mc.priority=0
//	woven.records.mc.weight=5
//
// For CAA records:
//
//	woven.records.caa.hostname=example.com
//	woven.records.caa.type=CAA
//	woven.records.caa.target=letsencrypt.org
//	woven.records.caa.tag=issue
//	woven.records.caa.flags=0
package container

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Record fields for named records.
const (
	FieldHostname = "hostname"
	FieldType     = "type"
	FieldTarget   = "target"
	FieldProvider = "provider"
	FieldTTL      = "ttl"
	FieldPort     = "port"
	FieldPriority = "priority"
	FieldWeight   = "weight"
	FieldEnabled  = "enabled"
	FieldProxied  = "proxied"
	FieldTag      = "tag"
	FieldFlags    = "flags"
)

// SRVData contains SRV record-specific fields.
type SRVData struct {
	Port     uint16
	Priority uint16
	Weight   uint16
}

// CAAData contains CAA record-specific fields.
type CAAData struct {
	Flags uint8
	Tag   string
}

// Extraction represents a hostname extracted from container labels.
type Extraction struct {
	// Hostname is the FQDN extracted from labels.
	Hostname string

	// RecordName is the identifier for named records (empty for simple hostname).
	RecordName string

	// Type is the record type override (A, AAAA, CNAME, SRV, TXT, CAA).
	// Empty means use provider default.
	Type string

	// Target is the record target override.
	// Empty means use provider default.
	Target string

	// Provider is the target provider instance name.
	// Empty means use domain matching.
	Provider string

	// TTL is the record TTL override.
	// Zero means use provider default.
	TTL int

	// Proxied overrides Cloudflare-style proxying, when set.
	Proxied *bool

	// SRV contains SRV-specific fields when Type is "SRV".
	SRV *SRVData

	// CAA contains CAA-specific fields when Type is "CAA".
	CAA *CAAData
}

// HasHints returns true if any hint fields are set.
func (e Extraction) HasHints() bool {
	return e.Type != "" || e.Target != "" || e.Provider != "" || e.TTL > 0 ||
		e.Proxied != nil || e.SRV != nil || e.CAA != nil
}

// Parser extracts hostnames from container labels under a configurable prefix.
type Parser struct {
	prefix          string
	namedRecordExpr *regexp.Regexp
	simpleLabel     string
	enabledLabel    string
	ttlLabel        string
	logger          *slog.Logger
}

// ParserOption is a functional option for configuring Parser.
type ParserOption func(*Parser)

// WithParserLogger sets a custom logger for the parser.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *Parser) {
		p.logger = logger
	}
}

// NewParser creates a new container label parser for the given label prefix
// (e.g. "woven"). An empty prefix falls back to "woven".
func NewParser(prefix string, opts ...ParserOption) *Parser {
	if prefix == "" {
		prefix = "woven"
	}

	p := &Parser{
		prefix:       prefix,
		simpleLabel:  prefix + ".hostname",
		enabledLabel: prefix + ".enabled",
		ttlLabel:     prefix + ".ttl",
		logger:       slog.Default(),
	}
	p.namedRecordExpr = regexp.MustCompile(
		fmt.Sprintf(`^%s\.records\.([a-zA-Z0-9_-]+)\.([a-zA-Z0-9_]+)$`, regexp.QuoteMeta(prefix)),
	)

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ExtractHostnames parses container labels and returns all discovered hostnames.
func (p *Parser) ExtractHostnames(labels map[string]string) []Extraction {
	var extractions []Extraction

	if enabled, ok := labels[p.enabledLabel]; ok {
		if strings.EqualFold(strings.TrimSpace(enabled), "false") {
			p.logger.Debug("container source disabled for workload", slog.String("prefix", p.prefix))
			return extractions
		}
	}

	if hostname, ok := labels[p.simpleLabel]; ok {
		hostname = strings.TrimSpace(hostname)
		if hostname != "" {
			extraction := Extraction{Hostname: hostname}

			if ttlStr, ok := labels[p.ttlLabel]; ok && ttlStr != "" {
				if ttl, err := strconv.Atoi(strings.TrimSpace(ttlStr)); err == nil && ttl > 0 {
					extraction.TTL = ttl
				} else {
					p.logger.Warn("invalid TTL value for simple hostname",
						slog.String("hostname", hostname),
						slog.String("ttl", ttlStr),
					)
				}
			}

			extractions = append(extractions, extraction)
			p.logger.Debug("found simple container hostname",
				slog.String("hostname", hostname),
				slog.Int("ttl", extraction.TTL),
			)
		}
	}

	namedRecords := make(map[string]map[string]string)
	for key, value := range labels {
		matches := p.namedRecordExpr.FindStringSubmatch(key)
		if matches == nil {
			continue
		}
		recordName := matches[1]
		field := strings.ToLower(matches[2])
		value = strings.TrimSpace(value)

		if namedRecords[recordName] == nil {
			namedRecords[recordName] = make(map[string]string)
		}
		namedRecords[recordName][field] = value
	}

	for name, fields := range namedRecords {
		if enabled, ok := fields[FieldEnabled]; ok {
			if strings.EqualFold(strings.TrimSpace(enabled), "false") {
				p.logger.Debug("named record disabled", slog.String("record", name))
				continue
			}
		}

		hostname, ok := fields[FieldHostname]
		if !ok || hostname == "" {
			p.logger.Warn("named record missing hostname", slog.String("record", name))
			continue
		}

		extraction := Extraction{
			Hostname:   hostname,
			RecordName: name,
			Type:       strings.ToUpper(fields[FieldType]),
			Target:     fields[FieldTarget],
			Provider:   fields[FieldProvider],
		}

		if ttlStr, ok := fields[FieldTTL]; ok && ttlStr != "" {
			if ttl, err := strconv.Atoi(ttlStr); err == nil && ttl > 0 {
				extraction.TTL = ttl
			} else {
				p.logger.Warn("invalid TTL value", slog.String("record", name), slog.String("ttl", ttlStr))
			}
		}

		if proxiedStr, ok := fields[FieldProxied]; ok && proxiedStr != "" {
			if proxied, err := strconv.ParseBool(proxiedStr); err == nil {
				extraction.Proxied = &proxied
			} else {
				p.logger.Warn("invalid proxied value", slog.String("record", name), slog.String("proxied", proxiedStr))
			}
		}

		if extraction.Type == "SRV" || fields[FieldPort] != "" {
			srv := &SRVData{}
			hasSRVData := false

			if portStr, ok := fields[FieldPort]; ok && portStr != "" {
				if port, err := strconv.ParseUint(portStr, 10, 16); err == nil {
					srv.Port = uint16(port)
					hasSRVData = true
				} else {
					p.logger.Warn("invalid port value", slog.String("record", name), slog.String("port", portStr))
				}
			}
			if priorityStr, ok := fields[FieldPriority]; ok && priorityStr != "" {
				if priority, err := strconv.ParseUint(priorityStr, 10, 16); err == nil {
					srv.Priority = uint16(priority)
					hasSRVData = true
				} else {
					p.logger.Warn("invalid priority value", slog.String("record", name), slog.String("priority", priorityStr))
				}
			}
			if weightStr, ok := fields[FieldWeight]; ok && weightStr != "" {
				if weight, err := strconv.ParseUint(weightStr, 10, 16); err == nil {
					srv.Weight = uint16(weight)
					hasSRVData = true
				} else {
					p.logger.Warn("invalid weight value", slog.String("record", name), slog.String("weight", weightStr))
				}
			}

			if hasSRVData {
				extraction.SRV = srv
			}
		}

		if extraction.Type == "CAA" {
			caa := &CAAData{Tag: fields[FieldTag]}
			if flagsStr, ok := fields[FieldFlags]; ok && flagsStr != "" {
				if flags, err := strconv.ParseUint(flagsStr, 10, 8); err == nil {
					caa.Flags = uint8(flags)
				} else {
					p.logger.Warn("invalid CAA flags value", slog.String("record", name), slog.String("flags", flagsStr))
				}
			}
			extraction.CAA = caa
		}

		extractions = append(extractions, extraction)
		p.logger.Debug("found named container record",
			slog.String("record", name),
			slog.String("hostname", hostname),
			slog.String("type", extraction.Type),
			slog.String("target", extraction.Target),
			slog.String("provider", extraction.Provider),
		)
	}

	return extractions
}
