// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"iter"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vkb-graph/backend/internal/graph"
	"github.com/vkb-graph/backend/internal/query"
	"github.com/vkb-graph/backend/internal/storage"
)

// QueryHandler handles installation lookups and ad-hoc queries
type QueryHandler interface {
	HandleGetInstallation(c echo.Context) error
	HandleGetSegmentInstallations(c echo.Context) error
	HandleGetInstallationsInBounds(c echo.Context) error
	HandleSparql(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// QueryEngine is the query surface the handlers depend on
// This allows mocking in tests
type QueryEngine interface {
	InstallationClosure(id string) (iter.Seq[graph.Statement], error)
	ByRoadSegment(segmentID string) (iter.Seq[graph.Statement], error)
	ByBounds(latLow, lonLow, latHigh, lonHigh float64) (iter.Seq[graph.Statement], error)
	RawQuery(ctx context.Context, text string) (*query.Table, error)
}

// GraphInfo describes the loaded graph
type GraphInfo interface {
	Info() (storage.Info, error)
}

// QueryObserver records served queries
type QueryObserver interface {
	ObserveQuery(kind, outcome string, took time.Duration)
}
