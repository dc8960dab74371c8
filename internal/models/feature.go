// Package models contains domain types for the VKB linked-data backend.
package models

import (
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// SubSignPrefix marks a supplementary sign plate (onderbord) by its code.
const SubSignPrefix = "G"

// Feature is one traffic-sign installation (opstelling) as read from a survey record.
type Feature struct {
	ID         int64     `json:"id"`
	ExternalID string    `json:"externalId,omitempty"`
	Location   orb.Point `json:"location"` // Lambert 72 x, y
	WKT        string    `json:"wkt"`

	OwnerKey  int64  `json:"ownerKey"`
	OwnerCode string `json:"ownerCode,omitempty"` // wegenregister code
	OwnerName string `json:"ownerName"`

	SegmentIDs []string  `json:"segmentIds"`
	Signs      []Sign    `json:"signs"`
	Mounts     []Mount   `json:"mounts"`
	Supports   []Support `json:"supports"`
}

// NewFeature creates an empty Feature with initialized collections.
func NewFeature(id int64) *Feature {
	return &Feature{
		ID:         id,
		SegmentIDs: make([]string, 0),
		Signs:      make([]Sign, 0),
		Mounts:     make([]Mount, 0),
		Supports:   make([]Support, 0),
	}
}

// Sign is one sign plate (bord) of an installation.
type Sign struct {
	ID         int64      `json:"id"`
	ExternalID string     `json:"externalId,omitempty"`
	ClientID   string     `json:"clientId,omitempty"`
	Code       string     `json:"code"`
	Angle      float64    `json:"angle"` // degrees in [0, 360)
	X          float64    `json:"x"`
	Y          float64    `json:"y"` // mounting height
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Shape      string     `json:"shape"`
	FoilType   string     `json:"foilType,omitempty"`
	PlacedOn   *time.Time `json:"placedOn,omitempty"`
	Parameters []string   `json:"parameters"`
}

// IsSubSign reports whether the sign is an onderbord.
func (s Sign) IsSubSign() bool {
	return strings.HasPrefix(s.Code, SubSignPrefix)
}

// Mount is a fixing (bevestiging) between a sign and a support.
type Mount struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

// Support is a pole or other carrier (steun) of an installation.
type Support struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}
