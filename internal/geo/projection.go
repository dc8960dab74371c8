// Package geo converts installation coordinates from the Belgian Lambert 72
// grid (EPSG:31370) to WGS84 latitude/longitude.
package geo

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-proj/v10"
)

// Transformer converts a planar source point to geographic coordinates.
type Transformer interface {
	ToWGS84(p orb.Point) (lat, lon float64, err error)
}

// ErrOutOfRange is returned for points the projection cannot invert.
var ErrOutOfRange = errors.New("point outside projection domain")

// CRS identifiers.
const (
	Lambert72CRS = "EPSG:31370"
	WGS84CRS     = "EPSG:4326"
)

// Projection transforms points from a source CRS to WGS84 through PROJ,
// including the datum shift. It is safe for concurrent use.
type Projection struct {
	mu     sync.Mutex
	source string
	pj     *proj.PJ
}

// NewProjection builds a transformation from sourceCRS to WGS84.
func NewProjection(sourceCRS string) (*Projection, error) {
	pj, err := proj.NewCRSToCRS(sourceCRS, WGS84CRS, nil)
	if err != nil {
		return nil, fmt.Errorf("creating %s -> %s transformation: %w", sourceCRS, WGS84CRS, err)
	}
	return &Projection{source: sourceCRS, pj: pj}, nil
}

// NewLambert72 builds the EPSG:31370 -> WGS84 transformation used for VKB data.
func NewLambert72() (*Projection, error) {
	return NewProjection(Lambert72CRS)
}

// ToWGS84 implements Transformer. p is (easting, northing).
func (p *Projection) ToWGS84(pt orb.Point) (float64, float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pj == nil {
		return 0, 0, errors.New("projection closed")
	}
	out, err := p.pj.Forward(proj.NewCoord(pt.X(), pt.Y(), 0, 0))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	// EPSG:4326 uses latitude, longitude axis order.
	lat, lon := out.X(), out.Y()
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return 0, 0, ErrOutOfRange
	}
	return lat, lon, nil
}

// Source returns the source CRS identifier.
func (p *Projection) Source() string {
	return p.source
}

// Close releases the PROJ object.
func (p *Projection) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pj != nil {
		p.pj.Destroy()
		p.pj = nil
	}
}

// Identity treats the source point as (lon, lat) already. Useful for data that
// is surveyed in WGS84 and for tests.
type Identity struct{}

// ToWGS84 implements Transformer.
func (Identity) ToWGS84(p orb.Point) (float64, float64, error) {
	return p.Lat(), p.Lon(), nil
}
