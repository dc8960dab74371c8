package query

import (
	"iter"
	"slices"

	"github.com/vkb-graph/backend/internal/graph"
)

// Closure yields the statements reachable from subject.
//
// Every statement with subject as its subject is yielded. Anonymous objects are
// expanded in place, right after the statement that references them. Objects
// of predicates in follow are expanded afterwards, whatever their kind, in the
// order they were met.
//
// Without guard the graph must be acyclic along anonymous nodes and followed
// predicates; a cycle makes the sequence infinite. With guard every node is
// expanded at most once.
func Closure(g *graph.Graph, subject graph.Term, follow []string, guard bool) iter.Seq[graph.Statement] {
	followSet := make(map[graph.Term]bool, len(follow))
	for _, p := range follow {
		followSet[graph.IRI(p)] = true
	}

	return func(yield func(graph.Statement) bool) {
		var visited map[graph.Term]bool
		if guard {
			visited = map[graph.Term]bool{}
		}
		enter := func(node graph.Term) bool {
			if visited == nil {
				return true
			}
			if visited[node] {
				return false
			}
			visited[node] = true
			return true
		}

		pending := []graph.Term{subject}
		for len(pending) > 0 {
			node := pending[len(pending)-1]
			pending = pending[:len(pending)-1]
			if !enter(node) {
				continue
			}

			var related []graph.Term
			ok := expandInline(g, node, enter, func(st graph.Statement) bool {
				if followSet[st.Predicate] {
					related = append(related, st.Object)
				}
				return yield(st)
			})
			if !ok {
				return
			}

			// Reversed so the first related node is expanded first.
			slices.Reverse(related)
			pending = append(pending, related...)
		}
	}
}

// expandInline yields the statements of node, descending into anonymous
// objects depth-first. It returns false when yield asked to stop.
func expandInline(g *graph.Graph, node graph.Term, enter func(graph.Term) bool, yield func(graph.Statement) bool) bool {
	type frame struct {
		statements []graph.Statement
		next       int
	}

	stack := []*frame{{statements: statementsOf(g, node)}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.statements) {
			stack = stack[:len(stack)-1]
			continue
		}
		st := top.statements[top.next]
		top.next++

		if !yield(st) {
			return false
		}
		if st.Object.IsBlank() && enter(st.Object) {
			stack = append(stack, &frame{statements: statementsOf(g, st.Object)})
		}
	}
	return true
}

func statementsOf(g *graph.Graph, node graph.Term) []graph.Statement {
	return slices.Collect(g.Match(&node, nil, nil))
}
