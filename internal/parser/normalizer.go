// Package parser reads VKB survey exports and normalises each record into a
// Feature, reporting records it cannot decode without stopping the batch.
package parser

import (
	"context"
	"sync"

	"github.com/vkb-graph/backend/internal/models"
	"go.uber.org/zap"
)

// DefaultWorkers is the size of the normalisation worker pool.
const DefaultWorkers = 4

// Normalizer turns raw survey records into Features.
type Normalizer struct {
	workers int
	logger  *zap.Logger
	strings *Interner
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithWorkers sets the worker pool size used by ParseBatch.
func WithWorkers(n int) Option {
	return func(nz *Normalizer) {
		if n > 0 {
			nz.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(nz *Normalizer) {
		if l != nil {
			nz.logger = l
		}
	}
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(opts ...Option) *Normalizer {
	nz := &Normalizer{
		workers: DefaultWorkers,
		logger:  zap.NewNop(),
		strings: NewInterner(),
	}
	for _, opt := range opts {
		opt(nz)
	}
	return nz
}

// ParseBatch normalises raws on a fixed pool of workers. Features are returned
// in completion order; failed records are reported and skipped. If ctx is
// cancelled, dispatch stops and whatever was completed is returned with ctx.Err().
func (n *Normalizer) ParseBatch(ctx context.Context, raws [][]byte) ([]*models.Feature, []*models.RecordError, error) {
	type work struct {
		index int
		raw   []byte
	}
	type result struct {
		feature *models.Feature
		err     *models.RecordError
	}

	workChan := make(chan work, n.workers*2)
	resultChan := make(chan result, n.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < n.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workChan {
				f, err := n.Parse(w.index, w.raw)
				resultChan <- result{feature: f, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	features := make([]*models.Feature, 0, len(raws))
	var errs []*models.RecordError
	var collectWg sync.WaitGroup
	collectWg.Add(1)
	go func() {
		defer collectWg.Done()
		for r := range resultChan {
			if r.err != nil {
				n.logger.Warn("skipping survey record",
					zap.Int("record", r.err.Record),
					zap.Int64("offset", r.err.Offset),
					zap.String("context", r.err.Context),
					zap.String("reason", r.err.Reason))
				errs = append(errs, r.err)
				continue
			}
			features = append(features, r.feature)
		}
	}()

	var ctxErr error
dispatch:
	for i, raw := range raws {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break dispatch
		case workChan <- work{index: i, raw: raw}:
		}
	}
	close(workChan)
	collectWg.Wait()

	n.logger.Debug("normalised survey records",
		zap.Int("records", len(raws)),
		zap.Int("features", len(features)),
		zap.Int("failed", len(errs)),
		zap.Int("interned", n.strings.Len()),
		zap.Int("intern_hits", n.strings.Hits()))

	return features, errs, ctxErr
}
