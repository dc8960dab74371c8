package sparql

import (
	"context"
	"sort"
	"strings"

	"github.com/vkb-graph/backend/internal/graph"
)

// Solution maps variable names to bound terms.
type Solution map[string]graph.Term

// Result is the answer to a SELECT query.
type Result struct {
	Vars      []string
	Solutions []Solution
}

// Strings renders every solution as one row of cells in projection order.
// Unbound variables render as "".
func (r *Result) Strings() [][]string {
	rows := make([][]string, 0, len(r.Solutions))
	for _, sol := range r.Solutions {
		row := make([]string, len(r.Vars))
		for i, v := range r.Vars {
			if t, ok := sol[v]; ok {
				row[i] = Cell(t)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Cell renders a term as a result cell: the IRI, blank node label or lexical
// literal value, without any syntax.
func Cell(t graph.Term) string {
	return t.Value
}

// Exec parses and evaluates text against g.
func Exec(ctx context.Context, g *graph.Graph, text string) (*Result, error) {
	q, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return Eval(ctx, g, q)
}

// Eval evaluates q against g. Patterns are joined in the order written.
func Eval(ctx context.Context, g *graph.Graph, q *Query) (*Result, error) {
	solutions := []Solution{{}}
	for _, pattern := range q.Patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []Solution
		for _, sol := range solutions {
			s, p, o := bind(pattern.Subject, sol), bind(pattern.Predicate, sol), bind(pattern.Object, sol)
			for st := range g.Match(s, p, o) {
				if extended, ok := extend(sol, pattern, st); ok {
					next = append(next, extended)
				}
			}
		}
		solutions = next
		if len(solutions) == 0 {
			break
		}
	}

	vars := q.Projection()
	if len(q.OrderBy) > 0 {
		sort.SliceStable(solutions, func(i, j int) bool {
			for _, key := range q.OrderBy {
				c := compareBound(solutions[i], solutions[j], key.Var)
				if c == 0 {
					continue
				}
				if key.Descending {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	projected := make([]Solution, 0, len(solutions))
	seen := map[string]bool{}
	for _, sol := range solutions {
		row := make(Solution, len(vars))
		for _, v := range vars {
			if t, ok := sol[v]; ok {
				row[v] = t
			}
		}
		if q.Distinct {
			key := rowKey(row, vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		projected = append(projected, row)
	}

	projected = slice(projected, q.Offset, q.Limit)
	return &Result{Vars: vars, Solutions: projected}, nil
}

func bind(n Node, sol Solution) *graph.Term {
	if !n.IsVar() {
		t := n.Term
		return &t
	}
	if t, ok := sol[n.Var]; ok {
		return &t
	}
	return nil
}

func extend(sol Solution, p Pattern, st graph.Statement) (Solution, bool) {
	out := make(Solution, len(sol)+3)
	for k, v := range sol {
		out[k] = v
	}
	for _, pair := range []struct {
		node Node
		term graph.Term
	}{{p.Subject, st.Subject}, {p.Predicate, st.Predicate}, {p.Object, st.Object}} {
		if !pair.node.IsVar() {
			continue
		}
		if bound, ok := out[pair.node.Var]; ok {
			if bound != pair.term {
				return nil, false
			}
			continue
		}
		out[pair.node.Var] = pair.term
	}
	return out, true
}

func rowKey(row Solution, vars []string) string {
	var sb strings.Builder
	for _, v := range vars {
		if t, ok := row[v]; ok {
			sb.WriteString(t.String())
		}
		sb.WriteByte(0)
	}
	return sb.String()
}

func slice(rows []Solution, offset, limit int) []Solution {
	if offset >= len(rows) {
		return rows[:0]
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// compareBound orders unbound values first, then blank nodes, IRIs and
// literals. Numeric literals compare by value.
func compareBound(a, b Solution, v string) int {
	ta, okA := a[v]
	tb, okB := b[v]
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return -1
	case !okB:
		return 1
	}

	if ra, rb := kindRank(ta), kindRank(tb); ra != rb {
		return ra - rb
	}
	if ta.IsLiteral() {
		fa, numA := ta.Float()
		fb, numB := tb.Float()
		if numA && numB {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(ta.Value, tb.Value)
}

func kindRank(t graph.Term) int {
	switch t.Kind {
	case graph.KindBlank:
		return 0
	case graph.KindIRI:
		return 1
	}
	return 2
}
