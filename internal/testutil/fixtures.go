package testutil

import (
	"github.com/paulmach/orb"
	"github.com/vkb-graph/backend/internal/emitter"
	"github.com/vkb-graph/backend/internal/geo"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/models"
	"github.com/vkb-graph/backend/internal/owner"
)

// GentOVO is the organisation every fixture feature resolves to.
const GentOVO = "OVO002067"

// Resolver resolves the fixture owner code "44021" and the name "Stad Gent".
func Resolver() *owner.Resolver {
	return owner.NewResolver(owner.Tables{
		Codes: map[string]string{"44021": GentOVO},
		Names: map[string]string{"Stad Gent": GentOVO},
	}, owner.DefaultRules())
}

// Feature builds an installation at (lat, lon) on one road segment. Use it
// with geo.Identity so the point is emitted unchanged.
func Feature(id int64, lat, lon float64, segment string, signs ...models.Sign) *models.Feature {
	f := models.NewFeature(id)
	f.Location = orb.Point{lon, lat}
	f.OwnerCode = "44021"
	f.OwnerName = "Stad Gent"
	f.SegmentIDs = []string{segment}
	f.Signs = append(f.Signs, signs...)
	return f
}

// Graph emits features with geo.Identity and the fixture resolver.
func Graph(features ...*models.Feature) *graph.Graph {
	e := emitter.New(geo.Identity{}, Resolver())
	g := graph.New()
	for _, f := range features {
		part, _ := e.Emit(f)
		g.Merge(part)
	}
	return g
}
