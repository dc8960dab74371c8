package sparql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/vocab"
)

const ex = "http://example.org/"

func testGraph() *graph.Graph {
	g := graph.New()
	g.AddAll(
		graph.NewStatement(graph.IRI(ex+"i1"), vocab.RDFType, graph.IRI(vocab.Opstelling)),
		graph.NewStatement(graph.IRI(ex+"i2"), vocab.RDFType, graph.IRI(vocab.Opstelling)),
		graph.NewStatement(graph.IRI(ex+"c1"), vocab.PrefLabel, graph.Literal("C43")),
		graph.NewStatement(graph.IRI(ex+"c2"), vocab.PrefLabel, graph.Literal("B1")),
		graph.NewStatement(graph.IRI(ex+"i1"), ex+"height", graph.Decimal(2.1)),
		graph.NewStatement(graph.IRI(ex+"i2"), ex+"height", graph.Decimal(0.3)),
		graph.NewStatement(graph.IRI(ex+"i1"), ex+"concept", graph.IRI(ex+"c1")),
		graph.NewStatement(graph.IRI(ex+"i2"), ex+"concept", graph.IRI(ex+"c2")),
		graph.NewStatement(graph.IRI(ex+"i2"), ex+"concept", graph.IRI(ex+"c1")),
		graph.NewStatement(graph.IRI(ex+"i1"), ex+"count", graph.TypedLiteral("3", vocab.XSDInteger)),
	)
	return g
}

func run(t *testing.T, text string) *Result {
	t.Helper()
	res, err := Exec(context.Background(), testGraph(), text)
	require.NoError(t, err)
	return res
}

func TestExec_TypePattern(t *testing.T) {
	res := run(t, "SELECT ?s WHERE {?s a ?t} ORDER BY ?s")
	assert.Equal(t, []string{"s"}, res.Vars)
	assert.Equal(t, [][]string{{ex + "i1"}, {ex + "i2"}}, res.Strings())
}

func TestExec_PrefixesAndJoin(t *testing.T) {
	res := run(t, `
		PREFIX ex: <http://example.org/>
		PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
		SELECT ?inst ?label WHERE {
			?inst ex:concept ?c .
			?c skos:prefLabel ?label .
		}
		ORDER BY ?inst ?label`)

	assert.Equal(t, []string{"inst", "label"}, res.Vars)
	assert.Equal(t, [][]string{
		{ex + "i1", "C43"},
		{ex + "i2", "B1"},
		{ex + "i2", "C43"},
	}, res.Strings())
}

func TestExec_Shorthands(t *testing.T) {
	res := run(t, `PREFIX ex: <http://example.org/>
		SELECT ?s WHERE { ?s a <https://data.vlaanderen.be/ns/mobiliteit#Opstelling> ; ex:concept ex:c1 , ex:c2 . }`)
	assert.Equal(t, [][]string{{ex + "i2"}}, res.Strings())
}

func TestExec_LiteralsAndDistinct(t *testing.T) {
	res := run(t, `PREFIX skos: <http://www.w3.org/2004/02/skos/core#>
		SELECT ?c WHERE { ?c skos:prefLabel "C43" }`)
	assert.Equal(t, [][]string{{ex + "c1"}}, res.Strings())

	res = run(t, `PREFIX ex: <http://example.org/> SELECT ?s WHERE { ?s ex:count 3 }`)
	assert.Equal(t, [][]string{{ex + "i1"}}, res.Strings())

	res = run(t, `PREFIX ex: <http://example.org/> SELECT DISTINCT ?c WHERE { ?s ex:concept ?c } ORDER BY ?c`)
	assert.Equal(t, [][]string{{ex + "c1"}, {ex + "c2"}}, res.Strings())
}

func TestExec_StarOrderLimitOffset(t *testing.T) {
	res := run(t, `PREFIX ex: <http://example.org/>
		SELECT * WHERE { ?s ex:height ?h } ORDER BY DESC(?h)`)
	assert.Equal(t, []string{"s", "h"}, res.Vars)
	assert.Equal(t, [][]string{{ex + "i1", "2.1"}, {ex + "i2", "0.3"}}, res.Strings())

	res = run(t, `PREFIX ex: <http://example.org/>
		SELECT ?s WHERE { ?s ex:height ?h } ORDER BY ASC(?h) LIMIT 1 OFFSET 1`)
	assert.Equal(t, [][]string{{ex + "i1"}}, res.Strings())

	res = run(t, `SELECT ?s WHERE { ?s ?p ?o } OFFSET 100`)
	assert.Empty(t, res.Strings())
}

func TestExec_BlankNodesAreHidden(t *testing.T) {
	res := run(t, `PREFIX ex: <http://example.org/> SELECT * WHERE { _:x ex:concept ?c }`)
	assert.Equal(t, []string{"c"}, res.Vars)
	assert.Len(t, res.Solutions, 3)
}

func TestExec_NoMatch(t *testing.T) {
	res := run(t, `SELECT ?s WHERE { ?s <http://example.org/none> ?o }`)
	assert.Equal(t, []string{"s"}, res.Vars)
	assert.Empty(t, res.Solutions)
}

func TestExec_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing select", "WHERE { ?s ?p ?o }"},
		{"unterminated group", "SELECT ?s WHERE { ?s ?p ?o"},
		{"undeclared prefix", "SELECT ?s WHERE { ?s foo:bar ?o }"},
		{"literal subject", `SELECT ?s WHERE { "x" ?p ?o }`},
		{"trailing garbage", "SELECT ?s WHERE { ?s ?p ?o } GROUP"},
		{"bad escape", `SELECT ?s WHERE { ?s ?p "a\qb" }`},
		{"empty projection", "SELECT WHERE { ?s ?p ?o }"},
		{"negative limit", "SELECT ?s WHERE { ?s ?p ?o } LIMIT -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Exec(context.Background(), testGraph(), tt.query)
			var syntaxErr *SyntaxError
			assert.True(t, errors.As(err, &syntaxErr), "got %v", err)
		})
	}
}

func TestExec_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Exec(ctx, testGraph(), "SELECT ?s WHERE { ?s ?p ?o }")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_LiteralForms(t *testing.T) {
	q, err := Parse(`PREFIX xsd: <http://www.w3.org/2001/XMLSchema#>
		SELECT ?s WHERE { ?s ?p "1.5"^^xsd:decimal . ?s ?p "hallo"@NL . ?s ?p 'x' . ?s ?p 2.5 . ?s ?p true }`)
	require.NoError(t, err)
	require.Len(t, q.Patterns, 5)

	assert.Equal(t, graph.TypedLiteral("1.5", vocab.XSDDecimal), q.Patterns[0].Object.Term)
	assert.Equal(t, graph.LangLiteral("hallo", "nl"), q.Patterns[1].Object.Term)
	assert.Equal(t, graph.Literal("x"), q.Patterns[2].Object.Term)
	assert.Equal(t, graph.TypedLiteral("2.5", vocab.XSDDecimal), q.Patterns[3].Object.Term)
	assert.Equal(t, graph.TypedLiteral("true", vocab.XSDBoolean), q.Patterns[4].Object.Term)
}

func TestParse_TrailingDotInPrefixedName(t *testing.T) {
	q, err := Parse(`PREFIX mob: <https://data.vlaanderen.be/ns/mobiliteit#>
		SELECT ?s WHERE { ?s a mob:Opstelling. }`)
	require.NoError(t, err)
	require.Len(t, q.Patterns, 1)
	assert.Equal(t, graph.IRI(vocab.Opstelling), q.Patterns[0].Object.Term)
}
