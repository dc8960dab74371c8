// Package graph holds statement collections: an indexed set of subject,
// predicate, object facts with pattern matching and Turtle/N-Triples codecs.
package graph

import (
	"iter"
	"sort"
)

// Graph is a set of Statements indexed by subject, predicate and object.
//
// A Graph is not safe for concurrent writes. Once built it may be read from
// any number of goroutines.
type Graph struct {
	set         map[Statement]struct{}
	bySubject   map[Term][]Statement
	byPredicate map[Term][]Statement
	byObject    map[Term][]Statement
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		set:         make(map[Statement]struct{}),
		bySubject:   make(map[Term][]Statement),
		byPredicate: make(map[Term][]Statement),
		byObject:    make(map[Term][]Statement),
	}
}

// Add inserts a statement. Duplicates collapse; Add reports whether st was new.
func (g *Graph) Add(st Statement) bool {
	if _, ok := g.set[st]; ok {
		return false
	}
	g.set[st] = struct{}{}
	g.bySubject[st.Subject] = append(g.bySubject[st.Subject], st)
	g.byPredicate[st.Predicate] = append(g.byPredicate[st.Predicate], st)
	g.byObject[st.Object] = append(g.byObject[st.Object], st)
	return true
}

// AddAll inserts every statement of sts.
func (g *Graph) AddAll(sts ...Statement) {
	for _, st := range sts {
		g.Add(st)
	}
}

// Merge copies all statements of other into g.
func (g *Graph) Merge(other *Graph) {
	if other == nil {
		return
	}
	for _, st := range other.ordered() {
		g.Add(st)
	}
}

// Len returns the number of distinct statements.
func (g *Graph) Len() int {
	return len(g.set)
}

// Has reports whether st is in the graph.
func (g *Graph) Has(st Statement) bool {
	_, ok := g.set[st]
	return ok
}

// Match yields all statements matching the pattern. A nil term matches anything.
// Statements come out in insertion order of the narrowest index used.
func (g *Graph) Match(s, p, o *Term) iter.Seq[Statement] {
	return func(yield func(Statement) bool) {
		candidates, indexed := g.candidates(s, p, o)
		if !indexed {
			candidates = g.ordered()
		}
		for _, st := range candidates {
			if s != nil && st.Subject != *s {
				continue
			}
			if p != nil && st.Predicate != *p {
				continue
			}
			if o != nil && st.Object != *o {
				continue
			}
			if !yield(st) {
				return
			}
		}
	}
}

func (g *Graph) candidates(s, p, o *Term) ([]Statement, bool) {
	var best []Statement
	found := false
	consider := func(index map[Term][]Statement, t *Term) {
		if t == nil {
			return
		}
		list := index[*t]
		if !found || len(list) < len(best) {
			best = list
			found = true
		}
	}
	consider(g.bySubject, s)
	consider(g.byPredicate, p)
	consider(g.byObject, o)
	return best, found
}

// Subjects returns the distinct subjects of statements matching (?, p, o).
func (g *Graph) Subjects(p, o *Term) []Term {
	seen := make(map[Term]struct{})
	var out []Term
	for st := range g.Match(nil, p, o) {
		if _, ok := seen[st.Subject]; ok {
			continue
		}
		seen[st.Subject] = struct{}{}
		out = append(out, st.Subject)
	}
	return out
}

// Statements returns all statements in a deterministic order.
func (g *Graph) Statements() []Statement {
	out := make([]Statement, 0, len(g.set))
	for st := range g.set {
		out = append(out, st)
	}
	SortStatements(out)
	return out
}

func (g *Graph) ordered() []Statement {
	out := make([]Statement, 0, len(g.set))
	for _, subject := range g.subjectOrder() {
		out = append(out, g.bySubject[subject]...)
	}
	return out
}

func (g *Graph) subjectOrder() []Term {
	subjects := make([]Term, 0, len(g.bySubject))
	for s := range g.bySubject {
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return lessTerm(subjects[i], subjects[j]) })
	return subjects
}

// Equal reports whether both graphs hold the same statement set.
func (g *Graph) Equal(other *Graph) bool {
	if g.Len() != other.Len() {
		return false
	}
	for st := range g.set {
		if !other.Has(st) {
			return false
		}
	}
	return true
}

// SortStatements orders statements by subject, predicate, object.
func SortStatements(sts []Statement) {
	sort.Slice(sts, func(i, j int) bool {
		a, b := sts[i], sts[j]
		if a.Subject != b.Subject {
			return lessTerm(a.Subject, b.Subject)
		}
		if a.Predicate != b.Predicate {
			return lessTerm(a.Predicate, b.Predicate)
		}
		return lessTerm(a.Object, b.Object)
	})
}

func lessTerm(a, b Term) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	if a.Datatype != b.Datatype {
		return a.Datatype < b.Datatype
	}
	return a.Lang < b.Lang
}
