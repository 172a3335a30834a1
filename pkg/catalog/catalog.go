// Package catalog maps human-readable series names and aliases to the
// numeric SGS codes the upstream API understands.
//
// The catalog is loaded once at process start from an embedded YAML file
// into a read-only registry with a reverse alias index. Lookups are
// case-insensitive over both canonical names and aliases.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/bacendata/sgs-client/pkg/apierr"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Registry is a read-only series catalog with a reverse alias index.
type Registry struct {
	byCode  map[int]*Series
	byAlias map[string]int
}

// Load parses a YAML catalog document and builds the registry. It fails
// if two series share a code or if an alias maps to more than one code.
func Load(data []byte) (*Registry, error) {
	var doc struct {
		Series []*Series `yaml:"series"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	reg := &Registry{
		byCode:  make(map[int]*Series, len(doc.Series)),
		byAlias: make(map[string]int),
	}
	for _, s := range doc.Series {
		if _, dup := reg.byCode[s.Code]; dup {
			return nil, fmt.Errorf("catalog: duplicate series code %d", s.Code)
		}
		reg.byCode[s.Code] = s

		keys := append([]string{s.Name}, s.Aliases...)
		for _, key := range keys {
			k := strings.ToLower(key)
			if existing, dup := reg.byAlias[k]; dup && existing != s.Code {
				return nil, fmt.Errorf("catalog: alias %q maps to both %d and %d", key, existing, s.Code)
			}
			reg.byAlias[k] = s.Code
		}
	}
	return reg, nil
}

var defaultRegistry = mustLoad()

func mustLoad() *Registry {
	reg, err := Load(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is corrupt: %v", err))
	}
	return reg
}

// Default returns the registry built from the embedded catalog.
func Default() *Registry { return defaultRegistry }

// Resolve maps a series reference to its numeric SGS code. Numeric
// references pass through unchanged with no existence check (the
// upstream is authoritative for codes outside the catalog). Name
// references are resolved case-insensitively against canonical names
// and aliases; a miss fails with a NotFoundError.
func (r *Registry) Resolve(ref Ref) (int, error) {
	if ref.byCode {
		return ref.code, nil
	}
	code, ok := r.byAlias[strings.ToLower(ref.name)]
	if !ok {
		return 0, &apierr.NotFoundError{Name: ref.name}
	}
	return code, nil
}

// Lookup returns the catalog entry for a reference. Unlike Resolve, a
// numeric reference to a series outside the catalog is a NotFoundError
// here: Lookup answers "what do we know about this series", not "may I
// fetch it".
func (r *Registry) Lookup(ref Ref) (*Series, error) {
	code, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	s, ok := r.byCode[code]
	if !ok {
		return nil, &apierr.NotFoundError{Code: code}
	}
	return s, nil
}

// PeriodicityOf returns the periodicity of a series, or the empty
// periodicity for codes outside the catalog. Used by the cache TTL
// policy, where unknown periodicity falls back to the shortest TTL.
func (r *Registry) PeriodicityOf(code int) Periodicity {
	if s, ok := r.byCode[code]; ok {
		return s.Periodicity
	}
	return ""
}

// List returns all catalog entries ordered by code.
func (r *Registry) List() []*Series {
	out := make([]*Series, 0, len(r.byCode))
	for _, s := range r.byCode {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Resolve resolves a reference against the default registry.
func Resolve(ref Ref) (int, error) { return defaultRegistry.Resolve(ref) }

// Lookup looks a reference up in the default registry.
func Lookup(ref Ref) (*Series, error) { return defaultRegistry.Lookup(ref) }

// List lists the default registry's entries ordered by code.
func List() []*Series { return defaultRegistry.List() }
