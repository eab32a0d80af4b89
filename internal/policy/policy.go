// Package policy holds the set of standing rules that apply across every
// provider: which hostnames are preserved from orphan cleanup regardless of
// ownership, and which hostnames are explicitly managed even when a source
// would otherwise not surface them. Unlike provider Capabilities, which
// describe what a provider CAN do, policy describes what the operator has
// decided reconciliation SHOULD do.
package policy

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"gitlab.com/wovendns/woven/internal/matcher"
)

// Store holds the preserved-hostname policy and any statically declared
// managed hostnames. It is safe for concurrent use; Reload swaps the
// compiled matcher atomically so reconciliation never observes a partially
// updated policy.
type Store struct {
	mu       sync.RWMutex
	patterns []string
	preserve *matcher.DomainMatcher
	managed  []string
}

// fileFormat is the on-disk shape of an optional static policy file,
// supplementing WOVEN_PRESERVED_HOSTNAMES.
type fileFormat struct {
	PreservedHostnames []string `yaml:"preserved_hostnames,omitempty"`
	ManagedHostnames   []string `yaml:"managed_hostnames,omitempty"`
}

// New builds a Store from a list of preserved-hostname glob patterns
// (typically GlobalConfig.PreservedHostnames). An empty list is valid: no
// hostname is preserved.
func New(preservedHostnames []string) (*Store, error) {
	s := &Store{}
	if len(preservedHostnames) > 0 {
		if err := s.compile(preservedHostnames); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// compile rebuilds the preserved-hostname matcher from patterns, replacing
// s.patterns and s.preserve. Caller must hold s.mu if called after
// construction.
func (s *Store) compile(patterns []string) error {
	m, err := matcher.NewDomainMatcher(matcher.DomainMatcherConfig{Includes: patterns})
	if err != nil {
		return fmt.Errorf("compiling preserved hostname patterns: %w", err)
	}
	s.patterns = patterns
	s.preserve = m
	return nil
}

// LoadFile reads preserved/managed hostname lists from a YAML file and
// merges them into the store, patterns from the file taking effect in
// addition to whatever was passed to New. A missing file is not an error.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading policy file %s: %w", path, err)
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return fmt.Errorf("parsing policy file %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ff.PreservedHostnames) > 0 {
		all := append(append([]string{}, s.patterns...), ff.PreservedHostnames...)
		if err := s.compile(all); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	s.managed = append(s.managed, ff.ManagedHostnames...)
	return nil
}

// IsPreserved reports whether a hostname matches a preserved pattern. A
// preserved hostname is never deleted by orphan cleanup, even if woven no
// longer owns it or it is absent from every source.
func (s *Store) IsPreserved(hostname string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.preserve == nil {
		return false
	}
	return s.preserve.Matches(hostname)
}

// ManagedHostnames returns statically declared managed hostnames loaded
// from a policy file, supplementing whatever sources discover.
func (s *Store) ManagedHostnames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.managed))
	copy(out, s.managed)
	return out
}
