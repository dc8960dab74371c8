// Package query answers read queries against the loaded installation graph.
package query

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/sparql"
	"github.com/vkb-graph/backend/internal/vocab"
	"go.uber.org/zap"
)

var (
	// ErrQueryRejected is returned when an ad-hoc query contains a mutating keyword.
	ErrQueryRejected = errors.New("query rejected")
	// ErrQueryMalformed is returned when an ad-hoc query cannot be parsed.
	ErrQueryMalformed = errors.New("query malformed")
)

// MutatingKeywords trip the ad-hoc query gate wherever they occur in the
// lower-cased query text, including inside identifiers.
var MutatingKeywords = []string{"update", "delete", "insert", "load", "create", "drop", "clear"}

// GraphSource provides the graph to query.
type GraphSource interface {
	Current() (*graph.Graph, error)
}

// Table is the tabular answer to an ad-hoc query.
type Table struct {
	Headers []string   `json:"headers" msgpack:"headers"`
	Rows    [][]string `json:"data" msgpack:"data"`
}

// Engine runs closure, lookup and ad-hoc queries.
type Engine struct {
	source GraphSource
	guard  bool
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithCycleGuard makes closures expand each node at most once.
func WithCycleGuard() Option {
	return func(e *Engine) { e.guard = true }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates an Engine reading from source.
func NewEngine(source GraphSource, opts ...Option) *Engine {
	e := &Engine{source: source, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Closure yields the statements reachable from subject, following the given
// predicates. See the package-level Closure.
func (e *Engine) Closure(subject graph.Term, follow []string) (iter.Seq[graph.Statement], error) {
	g, err := e.source.Current()
	if err != nil {
		return nil, err
	}
	return Closure(g, subject, follow, e.guard), nil
}

// InstallationClosure yields the subgraph describing installation id. An
// unknown id yields nothing.
func (e *Engine) InstallationClosure(id string) (iter.Seq[graph.Statement], error) {
	return e.Closure(graph.IRI(vocab.InstallationIRIFromString(id)), vocab.InstallationClosurePredicates)
}

// ByRoadSegment yields the closures of all installations on segmentID.
func (e *Engine) ByRoadSegment(segmentID string) (iter.Seq[graph.Statement], error) {
	g, err := e.source.Current()
	if err != nil {
		return nil, err
	}

	belongsTo := graph.IRI(vocab.BelongsTo)
	segment := graph.IRI(vocab.SegmentIRI(segmentID))
	return e.closures(g, g.Subjects(&belongsTo, &segment)), nil
}

// ByBounds yields the closures of installations whose point lies strictly
// inside the box. Reversed bounds match nothing.
func (e *Engine) ByBounds(latLow, lonLow, latHigh, lonHigh float64) (iter.Seq[graph.Statement], error) {
	g, err := e.source.Current()
	if err != nil {
		return nil, err
	}

	inLat := nodesBetween(g, vocab.Lat, latLow, latHigh)
	inLon := nodesBetween(g, vocab.Long, lonLow, lonHigh)

	lonSet := make(map[graph.Term]bool, len(inLon))
	for _, n := range inLon {
		lonSet[n] = true
	}

	geometry := graph.IRI(vocab.Geometry)
	var installations []graph.Term
	seen := map[graph.Term]bool{}
	for _, point := range inLat {
		if !lonSet[point] {
			continue
		}
		for _, inst := range g.Subjects(&geometry, &point) {
			if !seen[inst] {
				seen[inst] = true
				installations = append(installations, inst)
			}
		}
	}
	return e.closures(g, installations), nil
}

func nodesBetween(g *graph.Graph, predicate string, low, high float64) []graph.Term {
	p := graph.IRI(predicate)
	var nodes []graph.Term
	for st := range g.Match(nil, &p, nil) {
		v, ok := st.Object.Float()
		if ok && low < v && v < high {
			nodes = append(nodes, st.Subject)
		}
	}
	return nodes
}

func (e *Engine) closures(g *graph.Graph, subjects []graph.Term) iter.Seq[graph.Statement] {
	return func(yield func(graph.Statement) bool) {
		for _, s := range subjects {
			for st := range Closure(g, s, vocab.InstallationClosurePredicates, e.guard) {
				if !yield(st) {
					return
				}
			}
		}
	}
}

// RawQuery runs an ad-hoc SELECT query. Whitespace runs are collapsed first;
// the query is rejected when its lower-cased text contains any of
// MutatingKeywords. Empty text yields an empty table.
func (e *Engine) RawQuery(ctx context.Context, text string) (*Table, error) {
	collapsed := strings.Join(strings.Fields(text), " ")
	if collapsed == "" {
		return &Table{Headers: []string{}, Rows: [][]string{}}, nil
	}

	lowered := strings.ToLower(collapsed)
	for _, kw := range MutatingKeywords {
		if strings.Contains(lowered, kw) {
			e.logger.Warn("rejected query", zap.String("keyword", kw), zap.String("query", collapsed))
			return nil, fmt.Errorf("%w: contains %q", ErrQueryRejected, kw)
		}
	}

	g, err := e.source.Current()
	if err != nil {
		return nil, err
	}

	res, err := sparql.Exec(ctx, g, collapsed)
	if err != nil {
		var syntaxErr *sparql.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, fmt.Errorf("%w: %w", ErrQueryMalformed, err)
		}
		return nil, err
	}

	headers := res.Vars
	if headers == nil {
		headers = []string{}
	}
	return &Table{Headers: headers, Rows: res.Strings()}, nil
}

// Collect drains seq into a slice.
func Collect(seq iter.Seq[graph.Statement]) []graph.Statement {
	out := []graph.Statement{}
	for st := range seq {
		out = append(out, st)
	}
	return out
}
