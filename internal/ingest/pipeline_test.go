package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/metrics"
	"github.com/vkb-graph/backend/internal/vocab"
	"go.uber.org/goleak"
)

const records = `{"geometry":{"coordinates":[104720,194050]},"properties":{"id":1,"beheerder":{"key":1,"naam":"Gemeente Gent"},"aanzichten":[{"hoek":0,"wegsegmentid":11,"borden":[{"id":1,"code":"C43","x":0,"y":2000,"breedte":700,"hoogte":700,"vorm":"rond"},{"id":2,"code":"GXa","x":0,"y":1500,"breedte":700,"hoogte":300,"vorm":"rechthoekig","parameters":["\xc3\x98 3m"]}]}]}}
{"geometry":{"coordinates":[150000,170000]},"properties":{"id":2,"beheerder":{"key":2,"naam":"Onbekend"},"aanzichten":[{"hoek":3.14159,"wegsegmentid":12,"borden":[{"id":1,"code":"B1","x":0,"y":1800,"breedte":900,"hoogte":900,"vorm":"driehoekig"}]}]}}
{"geometry": broken}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestConvert(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	opts := Options{
		Inputs:      []string{writeFile(t, dir, "records.jsonl", records)},
		Output:      filepath.Join(dir, "graph.ttl"),
		AliasesPath: writeFile(t, dir, "aliases.txt", "Stad Gent\nJa\nGent\nOVO002067\n"),
		Workers:     2,
	}

	m := metrics.New()
	summary, err := New(nil, m).Convert(context.Background(), opts)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.Records)
	assert.Equal(t, 2, summary.Features)
	require.Len(t, summary.Failed, 1)
	assert.Equal(t, 2, summary.Failed[0].Record)
	require.Len(t, summary.Misses, 1)
	assert.Equal(t, int64(2), summary.Misses[0].FeatureID)

	g, err := graph.ParseFile(opts.Output)
	require.NoError(t, err)
	assert.Equal(t, summary.Statements, g.Len())

	owner := graph.NewStatement(graph.IRI(vocab.SignIRI(1, 1)), vocab.Owner, graph.IRI(vocab.OrganisationIRI("OVO002067")))
	assert.True(t, g.Has(owner))
	legend := graph.NewStatement(graph.IRI(vocab.RealizationIRI(1, 2)), vocab.VariableText, graph.Literal("(diam) 3m"))
	assert.True(t, g.Has(legend))
	link := graph.NewStatement(graph.IRI(vocab.RealizationIRI(1, 1)), vocab.HasSubSign, graph.IRI(vocab.RealizationIRI(1, 2)))
	assert.True(t, g.Has(link))

	out, err := os.ReadFile(opts.Output)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(out), "@prefix mob:"))
}

func TestBuild_IsDeterministic(t *testing.T) {
	dir := t.TempDir()
	opts := Options{Inputs: []string{writeFile(t, dir, "records.jsonl", records)}}

	p := New(nil, nil)
	first, _, err := p.Build(context.Background(), opts)
	require.NoError(t, err)
	second, _, err := p.Build(context.Background(), opts)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
}

func TestConvert_Errors(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "records.jsonl", records)
	p := New(nil, nil)

	_, err := p.Convert(context.Background(), Options{Inputs: []string{input}})
	assert.Error(t, err, "missing output")

	_, err = p.Convert(context.Background(), Options{Inputs: []string{input}, Output: filepath.Join(dir, "graph.xml")})
	assert.ErrorIs(t, err, graph.ErrUnknownFormat)

	_, err = p.Convert(context.Background(), Options{Inputs: []string{filepath.Join(dir, "absent.json")}, Output: filepath.Join(dir, "g.nt")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = p.Convert(context.Background(), Options{Inputs: []string{input}, Output: filepath.Join(dir, "g.nt"), RulesPath: filepath.Join(dir, "absent.yaml")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
