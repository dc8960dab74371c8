// Package ingest runs the conversion from survey record files to a graph file.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vkb-graph/backend/internal/emitter"
	"github.com/vkb-graph/backend/internal/geo"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/metrics"
	"github.com/vkb-graph/backend/internal/models"
	"github.com/vkb-graph/backend/internal/owner"
	"github.com/vkb-graph/backend/internal/parser"
	"github.com/vkb-graph/backend/internal/vocab"
	"go.uber.org/zap"
)

// Options describes one conversion run.
type Options struct {
	Inputs []string // files or directories of JSON array / JSON Lines records
	Output string   // .ttl or .nt

	CodesPath   string // organisation export CSV
	AliasesPath string // owner alias blocks
	RulesPath   string // owner name rules YAML

	Workers     int
	Transformer geo.Transformer // defaults to EPSG:31370 through PROJ
}

// Summary reports what a run did.
type Summary struct {
	RunID      string                  `json:"runId"`
	Records    int                     `json:"records"`
	Features   int                     `json:"features"`
	Statements int                     `json:"statements"`
	Failed     []*models.RecordError   `json:"failed"`
	Misses     []models.ResolutionMiss `json:"misses"`
	Took       time.Duration           `json:"took"`
}

// Pipeline wires reader, normaliser, resolver and emitter together.
type Pipeline struct {
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New creates a Pipeline. m may be nil.
func New(logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger, metrics: m}
}

// Build reads and converts opts.Inputs into one graph without writing anything.
func (p *Pipeline) Build(ctx context.Context, opts Options) (*graph.Graph, *Summary, error) {
	files, err := ExpandInputs(opts.Inputs)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	summary := &Summary{RunID: uuid.NewString()}
	log := p.logger.With(zap.String("run", summary.RunID))

	resolver, err := p.resolver(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	var raws [][]byte
	for _, file := range files {
		records, err := parser.ReadRecordsFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("reading records from %s: %w", file, err)
		}
		log.Info("read survey records", zap.String("input", file), zap.Int("records", len(records)))
		raws = append(raws, records...)
	}
	summary.Records = len(raws)

	normalizer := parser.NewNormalizer(parser.WithWorkers(opts.Workers), parser.WithLogger(log))
	features, failed, err := normalizer.ParseBatch(ctx, raws)
	if err != nil {
		return nil, nil, err
	}
	summary.Features = len(features)
	summary.Failed = failed

	transformer := opts.Transformer
	if transformer == nil {
		lambert, err := geo.NewLambert72()
		if err != nil {
			return nil, nil, err
		}
		defer lambert.Close()
		transformer = lambert
	}
	em := emitter.New(transformer, resolver, emitter.WithWorkers(opts.Workers), emitter.WithLogger(log))
	g, report, err := em.EmitAll(ctx, features)
	if err != nil {
		return nil, nil, err
	}
	summary.Statements = g.Len()
	summary.Misses = report.Misses

	for _, miss := range report.Misses {
		log.Warn("no owner organisation",
			zap.Int64("feature", miss.FeatureID),
			zap.String("code", miss.Code),
			zap.String("name", miss.Name))
	}

	summary.Took = time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveIngest(summary.Features, len(summary.Failed), len(summary.Misses), summary.Statements, summary.Took)
	}
	log.Info("converted survey records",
		zap.Int("features", summary.Features),
		zap.Int("failed", len(summary.Failed)),
		zap.Int("ownerMisses", len(summary.Misses)),
		zap.Int("statements", summary.Statements),
		zap.Duration("took", summary.Took))
	return g, summary, nil
}

// Convert builds the graph and writes it to opts.Output.
func (p *Pipeline) Convert(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Output == "" {
		return nil, errors.New("no output file")
	}
	if _, err := graph.FormatForPath(opts.Output); err != nil {
		return nil, err
	}

	g, summary, err := p.Build(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := graph.WriteFile(opts.Output, g, vocab.Prefixes); err != nil {
		return nil, fmt.Errorf("writing %s: %w", opts.Output, err)
	}
	p.logger.Info("wrote graph", zap.String("run", summary.RunID), zap.String("output", opts.Output))
	return summary, nil
}

func (p *Pipeline) resolver(ctx context.Context, opts Options) (*owner.Resolver, error) {
	rules := owner.DefaultRules()
	if opts.RulesPath != "" {
		var err error
		if rules, err = owner.LoadRules(opts.RulesPath); err != nil {
			return nil, fmt.Errorf("loading owner rules: %w", err)
		}
	}

	tables, err := owner.LoadTables(ctx, opts.CodesPath, opts.AliasesPath)
	if err != nil {
		return nil, fmt.Errorf("loading owner tables: %w", err)
	}
	p.logger.Debug("owner tables loaded",
		zap.Int("codes", len(tables.Codes)),
		zap.Int("names", len(tables.Names)))
	return owner.NewResolver(tables, rules), nil
}
