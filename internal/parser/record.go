package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/vkb-graph/backend/internal/models"
	"go.uber.org/zap"
)

// MisEscapedDiameter is how the VKB export writes the Ø sign in sign parameters.
// It is not valid JSON and is replaced before decoding.
const MisEscapedDiameter = `\xc3\x98`

// DiameterReplacement is the text substituted for MisEscapedDiameter.
const DiameterReplacement = "(diam)"

// PlaceholderDate is the installation date the export uses for "unknown".
const PlaceholderDate = "01/01/1950"

const dateLayout = "02/01/2006"

// Context window around a decode failure, in bytes before and after the offset.
const (
	contextBefore = 20
	contextAfter  = 50
)

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type rawRecord struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		ID         *int64     `json:"id"`
		ExternalID flexString `json:"externalId"`
		Beheerder  *struct {
			Key               *int64     `json:"key"`
			WegenregisterCode flexString `json:"wegenregisterCode"`
			Naam              *string    `json:"naam"`
		} `json:"beheerder"`
		Aanzichten    *[]rawAspect `json:"aanzichten"`
		Bevestigingen []rawPart    `json:"bevestigingen"`
		Steunen       []rawPart    `json:"steunen"`
	} `json:"properties"`
}

type rawAspect struct {
	Hoek         *float64   `json:"hoek"`
	WegsegmentID flexString `json:"wegsegmentid"`
	Borden       []rawSign  `json:"borden"`
}

type rawSign struct {
	ID             *int64     `json:"id"`
	ExternalID     flexString `json:"externalId"`
	ClientID       flexString `json:"clientId"`
	Code           *string    `json:"code"`
	Parameters     []string   `json:"parameters"`
	FolieType      *string    `json:"folieType"`
	X              *float64   `json:"x"`
	Y              *float64   `json:"y"`
	Breedte        *float64   `json:"breedte"`
	Hoogte         *float64   `json:"hoogte"`
	Vorm           *string    `json:"vorm"`
	DatumPlaatsing *string    `json:"datumPlaatsing"`
}

type rawPart struct {
	ID   *int64 `json:"id"`
	Type string `json:"type"`
}

// errMissing builds the reason for an absent required field.
func errMissing(field string) error {
	return fmt.Errorf("missing required field %s", field)
}

// NormalizeAngle converts an aspect angle in radians to degrees rounded to one
// decimal and folded into [0, 360).
func NormalizeAngle(rad float64) float64 {
	deg := math.Mod(math.Round(rad*180/math.Pi*10)/10, 360)
	if deg < 0 {
		deg += 360
	}
	if deg == 0 {
		return 0
	}
	return deg
}

// Parse turns one raw survey record into a Feature. index is the record's
// position in its batch and is only used for error reporting.
func (n *Normalizer) Parse(index int, raw []byte) (*models.Feature, *models.RecordError) {
	text := strings.ReplaceAll(string(raw), MisEscapedDiameter, DiameterReplacement)
	text = strings.ReplaceAll(text, "\n", "")

	var rec rawRecord
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return nil, decodeError(index, text, err)
	}

	feature, err := n.buildFeature(&rec)
	if err != nil {
		return nil, &models.RecordError{Record: index, Reason: err.Error()}
	}
	return feature, nil
}

func decodeError(index int, text string, err error) *models.RecordError {
	recErr := &models.RecordError{Record: index, Reason: err.Error()}

	var offset int64 = -1
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset >= 0 {
		recErr.Offset = offset
		recErr.Context = contextWindow(text, int(offset))
	}
	return recErr
}

func contextWindow(text string, offset int) string {
	start := offset - contextBefore
	if start < 0 {
		start = 0
	}
	end := offset + contextAfter
	if end > len(text) {
		end = len(text)
	}
	if start > end {
		start = end
	}
	return text[start:end]
}

func (n *Normalizer) buildFeature(rec *rawRecord) (*models.Feature, error) {
	props := &rec.Properties
	if props.ID == nil {
		return nil, errMissing("properties.id")
	}
	if len(rec.Geometry.Coordinates) < 2 {
		return nil, errMissing("geometry.coordinates")
	}
	if props.Beheerder == nil {
		return nil, errMissing("properties.beheerder")
	}
	if props.Beheerder.Key == nil {
		return nil, errMissing("properties.beheerder.key")
	}
	if props.Beheerder.Naam == nil {
		return nil, errMissing("properties.beheerder.naam")
	}
	if props.Aanzichten == nil {
		return nil, errMissing("properties.aanzichten")
	}

	f := models.NewFeature(*props.ID)
	f.ExternalID = string(props.ExternalID)
	x, y := rec.Geometry.Coordinates[0], rec.Geometry.Coordinates[1]
	f.Location = orb.Point{x, y}
	f.WKT = fmt.Sprintf("POINT Z (%s %s 0)", formatCoord(x), formatCoord(y))
	f.OwnerKey = *props.Beheerder.Key
	f.OwnerCode = n.strings.Intern(string(props.Beheerder.WegenregisterCode))
	f.OwnerName = n.strings.Intern(*props.Beheerder.Naam)

	for i, aspect := range *props.Aanzichten {
		if aspect.Hoek == nil {
			return nil, errMissing(fmt.Sprintf("aanzichten[%d].hoek", i))
		}
		angle := NormalizeAngle(*aspect.Hoek)
		if math.IsNaN(angle) {
			return nil, fmt.Errorf("aanzichten[%d].hoek is not a finite angle", i)
		}
		if aspect.WegsegmentID == "" {
			return nil, errMissing(fmt.Sprintf("aanzichten[%d].wegsegmentid", i))
		}
		f.SegmentIDs = append(f.SegmentIDs, n.strings.Intern(string(aspect.WegsegmentID)))

		for j := range aspect.Borden {
			sign, err := n.buildSign(&aspect.Borden[j], angle)
			if err != nil {
				return nil, fmt.Errorf("aanzichten[%d].borden[%d]: %w", i, j, err)
			}
			f.Signs = append(f.Signs, sign)
		}
	}

	for _, part := range props.Bevestigingen {
		if part.ID != nil {
			f.Mounts = append(f.Mounts, models.Mount{ID: *part.ID, Type: part.Type})
		}
	}
	for _, part := range props.Steunen {
		if part.ID != nil {
			f.Supports = append(f.Supports, models.Support{ID: *part.ID, Type: part.Type})
		}
	}

	return f, nil
}

func (n *Normalizer) buildSign(raw *rawSign, angle float64) (models.Sign, error) {
	switch {
	case raw.ID == nil:
		return models.Sign{}, errMissing("id")
	case raw.Code == nil || *raw.Code == "":
		return models.Sign{}, errMissing("code")
	case raw.X == nil:
		return models.Sign{}, errMissing("x")
	case raw.Y == nil:
		return models.Sign{}, errMissing("y")
	case raw.Breedte == nil:
		return models.Sign{}, errMissing("breedte")
	case raw.Hoogte == nil:
		return models.Sign{}, errMissing("hoogte")
	case raw.Vorm == nil:
		return models.Sign{}, errMissing("vorm")
	}

	sign := models.Sign{
		ID:         *raw.ID,
		ExternalID: string(raw.ExternalID),
		ClientID:   string(raw.ClientID),
		Code:       n.strings.Intern(*raw.Code),
		Angle:      angle,
		X:          *raw.X,
		Y:          *raw.Y,
		Width:      *raw.Breedte,
		Height:     *raw.Hoogte,
		Shape:      n.strings.Intern(*raw.Vorm),
		Parameters: make([]string, 0, len(raw.Parameters)),
	}
	sign.Parameters = append(sign.Parameters, raw.Parameters...)
	if raw.FolieType != nil {
		sign.FoilType = n.strings.Intern(*raw.FolieType)
	}

	if raw.DatumPlaatsing != nil && *raw.DatumPlaatsing != PlaceholderDate {
		placed, err := time.Parse(dateLayout, *raw.DatumPlaatsing)
		if err != nil {
			n.logger.Warn("ignoring unparsable installation date",
				zap.Int64("sign", sign.ID), zap.String("date", *raw.DatumPlaatsing))
		} else {
			sign.PlacedOn = &placed
		}
	}

	return sign, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
