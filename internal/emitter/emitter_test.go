package emitter

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkb-graph/backend/internal/geo"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/models"
	"github.com/vkb-graph/backend/internal/owner"
	"github.com/vkb-graph/backend/internal/vocab"
	"go.uber.org/goleak"
)

type failingTransformer struct{}

func (failingTransformer) ToWGS84(orb.Point) (float64, float64, error) {
	return 0, 0, errors.New("no projection")
}

func testResolver() *owner.Resolver {
	return owner.NewResolver(owner.Tables{
		Codes: map[string]string{"44021": "OVO002067"},
	}, owner.DefaultRules())
}

func testFeature(id int64) *models.Feature {
	f := models.NewFeature(id)
	f.Location = orb.Point{3.70, 51.04}
	f.OwnerCode = "44021"
	f.OwnerName = "Stad Gent"
	f.SegmentIDs = []string{"555001"}
	f.Signs = []models.Sign{
		{ID: 1, Code: "C43", Angle: 270, Y: 1200},
		{ID: 2, Code: "A1", Angle: 270, Y: 800},
		{ID: 3, Code: "GXa", Angle: 270, Y: 300, Parameters: []string{"uitgezonderd", "fietsers"}},
	}
	return f
}

func stmt(s, p string, o graph.Term) graph.Statement {
	return graph.NewStatement(graph.IRI(s), p, o)
}

func TestEmit_Installation(t *testing.T) {
	e := New(geo.Identity{}, testResolver())
	g, report := e.Emit(testFeature(7))

	assert.Empty(t, report.Misses)
	assert.Equal(t, 1, report.Features)

	inst := vocab.InstallationIRI(7)
	sign1 := vocab.SignIRI(7, 1)

	expected := []graph.Statement{
		stmt(inst, vocab.RDFType, graph.IRI(vocab.Opstelling)),
		stmt(inst, vocab.BelongsTo, graph.IRI(vocab.SegmentIRI("555001"))),
		stmt(inst, vocab.ContainsSign, graph.IRI(sign1)),
		stmt(inst, vocab.Aspect, graph.Literal("270.0")),
		stmt(sign1, vocab.Owner, graph.IRI(vocab.OrganisationIRI("OVO002067"))),
		stmt(sign1, vocab.Realizes, graph.IRI(vocab.RealizationIRI(7, 1))),
		stmt(vocab.RealizationIRI(7, 1), vocab.HasConcept, graph.IRI(vocab.ConceptIRI(7, 1))),
		stmt(vocab.ConceptIRI(7, 1), vocab.PrefLabel, graph.Literal("C43")),
		stmt(vocab.RealizationIRI(7, 3), vocab.VariableText, graph.Literal("uitgezonderd fietsers")),
	}
	for _, st := range expected {
		assert.True(t, g.Has(st), "missing %s", st)
	}

	instTerm := graph.IRI(inst)
	var points []graph.Term
	for st := range g.Match(&instTerm, ptr(graph.IRI(vocab.Geometry)), nil) {
		points = append(points, st.Object)
	}
	require.Len(t, points, 1)
	assert.True(t, points[0].IsBlank())
	assert.True(t, g.Has(graph.NewStatement(points[0], vocab.Lat, graph.Decimal(51.04))))
	assert.True(t, g.Has(graph.NewStatement(points[0], vocab.Long, graph.Decimal(3.70))))
	assert.True(t, g.Has(graph.NewStatement(points[0], vocab.RDFType, graph.IRI(vocab.GeoPoint))))
}

func ptr(t graph.Term) *graph.Term { return &t }

func TestEmit_HeightQuantity(t *testing.T) {
	g, _ := New(geo.Identity{}, testResolver()).Emit(testFeature(7))

	sign := graph.IRI(vocab.SignIRI(7, 1))
	var heights []graph.Term
	for st := range g.Match(&sign, ptr(graph.IRI(vocab.MountHeight)), nil) {
		heights = append(heights, st.Object)
	}
	require.Len(t, heights, 1)

	q := heights[0]
	assert.True(t, g.Has(graph.NewStatement(q, vocab.QuantityValue, graph.Decimal(1.2))))
	assert.True(t, g.Has(graph.NewStatement(q, vocab.QuantityUnit, graph.Literal("MTR"))))
}

func TestEmit_NoHeightForGroundSigns(t *testing.T) {
	f := testFeature(7)
	f.Signs = []models.Sign{{ID: 1, Code: "B1", Y: 0}}
	g, _ := New(geo.Identity{}, testResolver()).Emit(f)

	sign := graph.IRI(vocab.SignIRI(7, 1))
	count := 0
	for range g.Match(&sign, ptr(graph.IRI(vocab.MountHeight)), nil) {
		count++
	}
	assert.Zero(t, count)
}

func TestEmit_Idempotent(t *testing.T) {
	lambert, err := geo.NewLambert72()
	require.NoError(t, err)
	defer lambert.Close()

	e := New(lambert, testResolver())
	f := testFeature(7)
	f.Location = orb.Point{104720, 194050}

	first, _ := e.Emit(f)
	second, _ := e.Emit(f)
	assert.True(t, first.Equal(second))

	first.Merge(second)
	assert.Equal(t, second.Len(), first.Len())
}

func TestEmit_SubSignParentIsTallest(t *testing.T) {
	g, _ := New(geo.Identity{}, testResolver()).Emit(testFeature(7))

	child := graph.IRI(vocab.RealizationIRI(7, 3))
	var parents []graph.Term
	for st := range g.Match(nil, ptr(graph.IRI(vocab.HasSubSign)), &child) {
		parents = append(parents, st.Subject)
	}
	assert.Equal(t, []graph.Term{graph.IRI(vocab.RealizationIRI(7, 1))}, parents)
}

func TestSubSignLinks(t *testing.T) {
	tests := []struct {
		name  string
		signs []models.Sign
		want  []Link
	}{
		{
			name: "tallest candidate wins",
			signs: []models.Sign{
				{ID: 1, Code: "A1", Y: 800},
				{ID: 2, Code: "C3", Y: 1200},
				{ID: 3, Code: "G1", Y: 300},
			},
			want: []Link{{Parent: 2, Child: 3}},
		},
		{
			name: "ground level sub-sign is skipped",
			signs: []models.Sign{
				{ID: 1, Code: "A1", Y: 500},
				{ID: 2, Code: "G1", Y: 0},
			},
		},
		{
			name: "sub-signs are not candidates",
			signs: []models.Sign{
				{ID: 1, Code: "GIII", Y: 900},
				{ID: 2, Code: "G1", Y: 300},
			},
		},
		{
			name: "equal heights pick the last declared sign",
			signs: []models.Sign{
				{ID: 1, Code: "A1", Y: 900},
				{ID: 2, Code: "A2", Y: 900},
				{ID: 3, Code: "G1", Y: 100},
			},
			want: []Link{{Parent: 2, Child: 3}},
		},
		{
			name: "tie below the tallest sign does not matter",
			signs: []models.Sign{
				{ID: 1, Code: "A1", Y: 1500},
				{ID: 2, Code: "A2", Y: 900},
				{ID: 3, Code: "A3", Y: 900},
				{ID: 4, Code: "G1", Y: 100},
			},
			want: []Link{{Parent: 1, Child: 4}},
		},
		{
			name: "signs below the sub-sign are ignored",
			signs: []models.Sign{
				{ID: 1, Code: "A1", Y: 200},
				{ID: 2, Code: "G1", Y: 300},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := models.NewFeature(1)
			f.Signs = tt.signs
			assert.Equal(t, tt.want, SubSignLinks(f))
		})
	}
}

func TestEmit_OwnerMiss(t *testing.T) {
	f := testFeature(9)
	f.OwnerCode = ""
	f.OwnerName = "Provincie Vlaams Brabant"

	g, report := New(geo.Identity{}, testResolver()).Emit(f)

	require.Len(t, report.Misses, 1, "one miss per feature, not per sign")
	assert.Equal(t, models.ResolutionMiss{FeatureID: 9, Code: "", Name: "Vlaams-Brabant"}, report.Misses[0])

	count := 0
	for range g.Match(nil, ptr(graph.IRI(vocab.Owner)), nil) {
		count++
	}
	assert.Zero(t, count)
}

func TestEmit_GeometryFailureIsNotFatal(t *testing.T) {
	g, report := New(failingTransformer{}, testResolver()).Emit(testFeature(7))

	assert.Equal(t, []int64{7}, report.GeometryFailures)
	count := 0
	for range g.Match(nil, ptr(graph.IRI(vocab.Geometry)), nil) {
		count++
	}
	assert.Zero(t, count)
	assert.True(t, g.Has(stmt(vocab.InstallationIRI(7), vocab.RDFType, graph.IRI(vocab.Opstelling))))
}

func TestEmitAll(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := New(geo.Identity{}, testResolver(), WithWorkers(3))

	features := make([]*models.Feature, 0, 20)
	expected := graph.New()
	for i := int64(1); i <= 20; i++ {
		single, _ := e.Emit(testFeature(i))
		expected.Merge(single)

		f := testFeature(i)
		if i%5 == 0 {
			f.OwnerCode = fmt.Sprintf("missing-%d", i)
		}
		features = append(features, f)
	}

	g, report, err := e.EmitAll(context.Background(), features)
	require.NoError(t, err)
	assert.Equal(t, 20, report.Features)
	require.Len(t, report.Misses, 4)
	assert.Equal(t, int64(5), report.Misses[0].FeatureID)
	assert.Equal(t, int64(20), report.Misses[3].FeatureID)

	ownerPred := graph.IRI(vocab.Owner)
	for _, st := range expected.Statements() {
		if st.Predicate == ownerPred {
			continue
		}
		assert.True(t, g.Has(st), "missing %s", st)
	}

	owned := 0
	for range g.Match(nil, &ownerPred, nil) {
		owned++
	}
	assert.Equal(t, 16*3, owned)
}

func TestEmitAll_Cancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	features := []*models.Feature{testFeature(1), testFeature(2)}
	_, _, err := New(geo.Identity{}, testResolver()).EmitAll(ctx, features)
	assert.ErrorIs(t, err, context.Canceled)
}
