package api

import (
	"bytes"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/paulmach/orb"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/metrics"
	"github.com/vkb-graph/backend/internal/query"
	"github.com/vkb-graph/backend/internal/vocab"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const mimeMsgpack = "application/msgpack"

// rdfFormats are checked against Accept in this order.
var rdfFormats = []graph.Format{graph.FormatTurtle, graph.FormatNTriples}

// Query kinds reported to metrics.
const (
	kindInstallation = "installation"
	kindSegment      = "segment"
	kindBounds       = "bounds"
	kindSparql       = "sparql"
)

// StatementsResponse is the body returned by the installation lookups.
type StatementsResponse struct {
	Count      int               `json:"count" msgpack:"count"`
	Statements []graph.Statement `json:"statements" msgpack:"statements"`
}

// Handler handles installation and query requests.
type Handler struct {
	engine   QueryEngine
	observer QueryObserver
	logger   *zap.Logger
}

// NewHandler creates a new query handler. observer may be nil.
func NewHandler(engine QueryEngine, observer QueryObserver, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, observer: observer, logger: logger}
}

// HandleGetInstallation returns the closure of one installation.
// GET /api/installations/:id
func (h *Handler) HandleGetInstallation(c echo.Context) error {
	id := c.Param("id")
	start := time.Now()

	seq, err := h.engine.InstallationClosure(id)
	if err != nil {
		h.observe(kindInstallation, start, err)
		return FromQueryError(err)
	}
	sts := query.Collect(seq)
	if len(sts) == 0 {
		h.observe(kindInstallation, start, errNotFound)
		return NewNotFoundError("installation", id)
	}

	h.observe(kindInstallation, start, nil)
	return respondStatements(c, sts)
}

// HandleGetSegmentInstallations returns every installation belonging to a road segment.
// GET /api/segments/:id/installations
func (h *Handler) HandleGetSegmentInstallations(c echo.Context) error {
	id := c.Param("id")
	return h.serveSeq(c, kindSegment, func() (iter.Seq[graph.Statement], error) {
		return h.engine.ByRoadSegment(id)
	})
}

// HandleGetInstallationsInBounds returns installations strictly inside a box.
// GET /api/installations?bbox=latLow,lonLow,latHigh,lonHigh
func (h *Handler) HandleGetInstallationsInBounds(c echo.Context) error {
	bound, err := parseBBox(c.QueryParam("bbox"))
	if err != nil {
		return NewValidationError("bbox", err)
	}
	return h.serveSeq(c, kindBounds, func() (iter.Seq[graph.Statement], error) {
		return h.engine.ByBounds(bound.Min.Lat(), bound.Min.Lon(), bound.Max.Lat(), bound.Max.Lon())
	})
}

// HandleSparql runs a read-only query and returns {headers, data}.
// GET /api/sparql?query=...
func (h *Handler) HandleSparql(c echo.Context) error {
	text := c.QueryParam("query")
	start := time.Now()

	table, err := h.engine.RawQuery(c.Request().Context(), text)
	h.observe(kindSparql, start, err)
	if err != nil {
		if errors.Is(err, query.ErrQueryRejected) {
			h.logger.Info("query rejected", zap.Error(err))
		}
		return FromQueryError(err)
	}
	return respond(c, http.StatusOK, table)
}

func (h *Handler) serveSeq(c echo.Context, kind string, run func() (iter.Seq[graph.Statement], error)) error {
	start := time.Now()
	seq, err := run()
	h.observe(kind, start, err)
	if err != nil {
		return FromQueryError(err)
	}
	return respondStatements(c, query.Collect(seq))
}

var errNotFound = errors.New("not found")

func (h *Handler) observe(kind string, start time.Time, err error) {
	if h.observer == nil {
		return
	}
	h.observer.ObserveQuery(kind, outcome(err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, errNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, query.ErrQueryRejected):
		return metrics.OutcomeRejected
	case errors.Is(err, query.ErrQueryMalformed):
		return metrics.OutcomeMalformed
	}
	if FromQueryError(err).Status == http.StatusServiceUnavailable {
		return metrics.OutcomeUnavailable
	}
	return metrics.OutcomeError
}

// parseBBox reads "latLow,lonLow,latHigh,lonHigh" into a bound.
func parseBBox(raw string) (orb.Bound, error) {
	if raw == "" {
		return orb.Bound{}, errors.New("bbox is required")
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("expected 4 comma separated numbers, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("bbox value %d: %w", i+1, err)
		}
		v[i] = f
	}
	return orb.Bound{
		Min: orb.Point{v[1], v[0]},
		Max: orb.Point{v[3], v[2]},
	}, nil
}

// respondStatements writes statements as JSON or msgpack, or as Turtle/N-Triples when asked for.
func respondStatements(c echo.Context, sts []graph.Statement) error {
	accept := c.Request().Header.Get(echo.HeaderAccept)
	for _, f := range rdfFormats {
		info := graph.Formats[f]
		if !strings.Contains(accept, info.MIMEType) {
			continue
		}
		g := graph.New()
		g.AddAll(sts...)
		var buf bytes.Buffer
		if err := graph.Encode(&buf, g, info.Name, vocab.Prefixes); err != nil {
			return NewInternalError("failed to encode statements", err)
		}
		return c.Blob(http.StatusOK, info.MIMEType+"; charset=utf-8", buf.Bytes())
	}

	if sts == nil {
		sts = []graph.Statement{}
	}
	return respond(c, http.StatusOK, StatementsResponse{Count: len(sts), Statements: sts})
}

// respond writes v as msgpack when the client accepts it, JSON otherwise.
func respond(c echo.Context, status int, v any) error {
	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), mimeMsgpack) {
		data, err := msgpack.Marshal(v)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to encode msgpack"})
		}
		return c.Blob(status, mimeMsgpack, data)
	}
	return c.JSON(status, v)
}
