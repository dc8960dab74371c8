package graph

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkb-graph/backend/internal/vocab"
)

func richGraph() *Graph {
	g := sampleGraph()
	sign := IRI(vocab.SignIRI(1, 2))
	g.AddAll(
		NewStatement(IRI(vocab.InstallationIRI(1)), vocab.ContainsSign, sign),
		NewStatement(IRI(vocab.InstallationIRI(1)), vocab.Aspect, Literal("270.0")),
		NewStatement(IRI(vocab.ConceptIRI(1, 2)), vocab.PrefLabel, Literal("GXa")),
		NewStatement(IRI(vocab.RealizationIRI(1, 2)), vocab.VariableText, Literal("uitgezonderd \"fietsers\" 7u-9u")),
	)
	return g
}

func TestFormatForPath(t *testing.T) {
	f, err := FormatForPath("graph.ttl")
	require.NoError(t, err)
	assert.Equal(t, FormatTurtle, f)

	f, err = FormatForPath("/tmp/GRAPH.NT")
	require.NoError(t, err)
	assert.Equal(t, FormatNTriples, f)

	_, err = FormatForPath("graph.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{FormatTurtle, FormatNTriples} {
		t.Run(string(f), func(t *testing.T) {
			g := richGraph()

			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, g, f, vocab.Prefixes))

			back, err := Decode(&buf, f)
			require.NoError(t, err)

			if diff := cmp.Diff(g.Statements(), back.Statements()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteFileAndParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.ttl")
	g := richGraph()

	require.NoError(t, WriteFile(path, g, vocab.Prefixes))

	back, err := ParseFile(path)
	require.NoError(t, err)
	assert.True(t, g.Equal(back))
}

func TestTurtleWriter_UsesPrefixes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTurtleWriter(&buf, vocab.Prefixes).WriteGraph(sampleGraph()))

	out := buf.String()
	assert.Contains(t, out, "@prefix mob: <"+vocab.Mob+"> .")
	assert.Contains(t, out, "a mob:Opstelling")
	// local names starting with a digit stay as full references
	assert.Contains(t, out, "<"+vocab.InstallationIRI(1)+">")
}
