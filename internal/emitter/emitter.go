// Package emitter turns normalised features into OSLO linked-data statements.
package emitter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/vkb-graph/backend/internal/geo"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/models"
	"github.com/vkb-graph/backend/internal/vocab"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the number of features emitted concurrently by EmitAll.
const DefaultWorkers = 4

// OwnerResolver maps a feature's owner block to an OVO identifier.
type OwnerResolver interface {
	Resolve(f *models.Feature) (string, bool)
}

// Report collects the non-fatal problems of an emission run.
type Report struct {
	Features         int                     `json:"features"`
	Misses           []models.ResolutionMiss `json:"misses"`
	GeometryFailures []int64                 `json:"geometryFailures"`
}

func (r *Report) merge(other *Report) {
	r.Features += other.Features
	r.Misses = append(r.Misses, other.Misses...)
	r.GeometryFailures = append(r.GeometryFailures, other.GeometryFailures...)
}

// Emitter builds the graph of each feature.
type Emitter struct {
	transformer geo.Transformer
	owners      OwnerResolver
	workers     int
	logger      *zap.Logger
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithWorkers sets how many features EmitAll processes concurrently.
func WithWorkers(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Emitter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Emitter.
func New(t geo.Transformer, owners OwnerResolver, opts ...Option) *Emitter {
	e := &Emitter{
		transformer: t,
		owners:      owners,
		workers:     DefaultWorkers,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit returns the statements of a single feature. Emitting the same feature
// twice yields equal graphs.
func (e *Emitter) Emit(f *models.Feature) (*graph.Graph, *Report) {
	g := graph.New()
	report := &Report{}
	e.emitInto(g, f, report)
	return g, report
}

// EmitAll emits features on a bounded pool. Every worker fills its own partial
// graph; the partials are merged once all workers are done.
func (e *Emitter) EmitAll(ctx context.Context, features []*models.Feature) (*graph.Graph, *Report, error) {
	eg, ctx := errgroup.WithContext(ctx)

	featureChan := make(chan *models.Feature)
	eg.Go(func() error {
		defer close(featureChan)
		for _, f := range features {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case featureChan <- f:
			}
		}
		return nil
	})

	partials := make([]*graph.Graph, e.workers)
	reports := make([]*Report, e.workers)
	for i := 0; i < e.workers; i++ {
		partials[i] = graph.New()
		reports[i] = &Report{}
		eg.Go(func() error {
			for f := range featureChan {
				e.emitInto(partials[i], f, reports[i])
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	g := graph.New()
	report := &Report{}
	for i := range partials {
		g.Merge(partials[i])
		report.merge(reports[i])
	}
	sort.Slice(report.Misses, func(a, b int) bool {
		return report.Misses[a].FeatureID < report.Misses[b].FeatureID
	})

	e.logger.Info("emitted features",
		zap.Int("features", report.Features),
		zap.Int("statements", g.Len()),
		zap.Int("ownerMisses", len(report.Misses)))
	return g, report, nil
}

func (e *Emitter) emitInto(g *graph.Graph, f *models.Feature, report *Report) {
	report.Features++
	inst := graph.IRI(vocab.InstallationIRI(f.ID))

	g.Add(graph.NewStatement(inst, vocab.RDFType, graph.IRI(vocab.Opstelling)))

	if lat, lon, err := e.transformer.ToWGS84(f.Location); err != nil {
		e.logger.Warn("skipping geometry",
			zap.Int64("feature", f.ID), zap.String("wkt", f.WKT), zap.Error(err))
		report.GeometryFailures = append(report.GeometryFailures, f.ID)
	} else {
		point := graph.BlankFor(fmt.Sprintf("geometry:%d", f.ID))
		g.AddAll(
			graph.NewStatement(inst, vocab.Geometry, point),
			graph.NewStatement(point, vocab.RDFType, graph.IRI(vocab.GeoPoint)),
			graph.NewStatement(point, vocab.Lat, graph.Decimal(lat)),
			graph.NewStatement(point, vocab.Long, graph.Decimal(lon)),
		)
	}

	for _, segment := range f.SegmentIDs {
		g.Add(graph.NewStatement(inst, vocab.BelongsTo, graph.IRI(vocab.SegmentIRI(segment))))
	}

	if len(f.Signs) == 0 {
		return
	}

	ovo, resolved := e.owners.Resolve(f)
	if !resolved {
		e.logger.Debug("no owner organisation",
			zap.Int64("feature", f.ID),
			zap.String("code", f.OwnerCode),
			zap.String("name", f.OwnerName))
		report.Misses = append(report.Misses, models.ResolutionMiss{
			FeatureID: f.ID,
			Code:      f.OwnerCode,
			Name:      f.OwnerName,
		})
	}

	for _, s := range f.Signs {
		sign := graph.IRI(vocab.SignIRI(f.ID, s.ID))
		realization := graph.IRI(vocab.RealizationIRI(f.ID, s.ID))
		concept := graph.IRI(vocab.ConceptIRI(f.ID, s.ID))

		g.Add(graph.NewStatement(inst, vocab.ContainsSign, sign))

		if s.Y > 0 {
			height := graph.BlankFor(fmt.Sprintf("height:%d:%d", f.ID, s.ID))
			g.AddAll(
				graph.NewStatement(sign, vocab.MountHeight, height),
				graph.NewStatement(height, vocab.QuantityValue, graph.Decimal(s.Y/1000)),
				graph.NewStatement(height, vocab.QuantityUnit, graph.Literal(vocab.UnitMetre)),
			)
		}

		g.Add(graph.NewStatement(inst, vocab.Aspect, graph.Literal(strconv.FormatFloat(s.Angle, 'f', 1, 64))))

		if resolved {
			g.Add(graph.NewStatement(sign, vocab.Owner, graph.IRI(vocab.OrganisationIRI(ovo))))
		}

		g.Add(graph.NewStatement(sign, vocab.Realizes, realization))
		if s.IsSubSign() && len(s.Parameters) > 0 {
			g.Add(graph.NewStatement(realization, vocab.VariableText, graph.Literal(strings.Join(s.Parameters, " "))))
		}

		g.AddAll(
			graph.NewStatement(realization, vocab.HasConcept, concept),
			graph.NewStatement(concept, vocab.PrefLabel, graph.Literal(s.Code)),
		)
	}

	for _, link := range SubSignLinks(f) {
		g.Add(graph.NewStatement(
			graph.IRI(vocab.RealizationIRI(f.ID, link.Parent)),
			vocab.HasSubSign,
			graph.IRI(vocab.RealizationIRI(f.ID, link.Child)),
		))
	}
}

// Link pairs a parent sign with one of its sub-signs, by sign id.
type Link struct {
	Parent int64
	Child  int64
}

// SubSignLinks assigns every mounted sub-sign of f to a parent sign. The parent
// is the highest mounted regular sign above the sub-sign, not the nearest one.
// Sub-signs at height 0 or without a regular sign above them stay unlinked.
func SubSignLinks(f *models.Feature) []Link {
	var links []Link
	for _, sub := range f.Signs {
		if !sub.IsSubSign() || sub.Y <= 0 {
			continue
		}

		var candidates []models.Sign
		for _, s := range f.Signs {
			if s.Y > sub.Y && s.Y > 0 && !s.IsSubSign() {
				candidates = append(candidates, s)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		// Ascending stable sort, last wins: among equally tall signs the one
		// declared last is the parent.
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Y < candidates[j].Y
		})
		links = append(links, Link{Parent: candidates[len(candidates)-1].ID, Child: sub.ID})
	}
	return links
}
