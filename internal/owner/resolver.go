// Package owner maps the owner block of a survey record onto an OVO
// organisation identifier.
package owner

import (
	"strings"

	"github.com/vkb-graph/backend/internal/models"
)

// Tables holds the lookup tables, both keyed to OVO identifiers.
type Tables struct {
	Codes map[string]string // road-register code -> OVO id
	Names map[string]string // owner name or alias -> OVO id
}

// Resolver resolves feature owners. It is safe for concurrent use as long as
// each feature is resolved by a single goroutine.
type Resolver struct {
	tables Tables
	rules  Rules
}

// NewResolver creates a Resolver. Nil tables are treated as empty.
func NewResolver(tables Tables, rules Rules) *Resolver {
	if tables.Codes == nil {
		tables.Codes = map[string]string{}
	}
	if tables.Names == nil {
		tables.Names = map[string]string{}
	}
	return &Resolver{tables: tables, rules: rules}
}

// Resolve returns the OVO id for the owner of f.
//
// The road-register code is tried first, then the raw name. When both miss,
// f.OwnerName is overwritten with its cleaned form; the cleaned name itself is
// not looked up, only its municipality substitution.
func (r *Resolver) Resolve(f *models.Feature) (string, bool) {
	if ovo, ok := r.tables.Codes[f.OwnerCode]; ok {
		return ovo, true
	}
	if ovo, ok := r.tables.Names[f.OwnerName]; ok {
		return ovo, true
	}

	f.OwnerName = r.Clean(f.OwnerName)

	m := r.rules.Municipality
	if m.From != "" && strings.Contains(f.OwnerName, m.From) {
		if ovo, ok := r.tables.Names[strings.ReplaceAll(f.OwnerName, m.From, m.To)]; ok {
			return ovo, true
		}
	}
	return "", false
}

// Clean applies the suffix, prefix and correction rules to name.
func (r *Resolver) Clean(name string) string {
	for _, s := range r.rules.Suffixes {
		name = strings.ReplaceAll(name, s, "")
	}
	for _, p := range r.rules.Prefixes {
		name = strings.ReplaceAll(name, p, "")
	}
	for _, c := range r.rules.Corrections {
		if c.From != "" {
			name = strings.ReplaceAll(name, c.From, c.To)
		}
	}
	return name
}
