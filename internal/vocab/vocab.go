// Package vocab holds the OSLO vocabulary terms used for traffic-sign installations
// and derives the stable references of installations, signs and their parts.
package vocab

import (
	"fmt"
	"strconv"
)

// Namespaces
const (
	Mob    = "https://data.vlaanderen.be/ns/mobiliteit#"
	VKB    = "https://apps.mow.vlaanderen.be/verkeersborden/rest/zi/verkeersborden/"
	Asset  = "https://data.awvvlaanderen.be/id/asset/"
	WR     = "https://www.vlaanderen.be/digitaal-vlaanderen/onze-oplossingen/wegenregister/"
	OrgVL  = "https://data.vlaanderen.be/doc/organisatie/"
	OD     = "https://data.vlaanderen.be/ns/openbaardomein#"
	Geo    = "http://www.w3.org/2003/01/geo/wgs84_pos#"
	Locn   = "http://www.w3.org/ns/locn#"
	Schema = "https://schema.org/"
	Skos   = "http://www.w3.org/2004/02/skos/core#"
	RDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	XSD    = "http://www.w3.org/2001/XMLSchema#"
)

// Classes
const (
	Opstelling = Mob + "Opstelling"
	GeoPoint   = Geo + "Point"
)

// Predicates
const (
	RDFType = RDF + "type"

	// ContainsSign links an installation to each of its sign plates.
	ContainsSign = Mob + "omvatVerkeersbord"
	// Realizes links a sign plate to the traffic sign it shows.
	Realizes = Mob + "realiseert"
	// HasConcept links a traffic sign to its sign concept.
	HasConcept = Mob + "heeftVerkeersbordconcept"
	// BelongsTo links an installation to a road segment.
	BelongsTo     = Mob + "hoortBij"
	HasSubSign    = Mob + "heeftOnderbord"
	MountHeight   = Mob + "opstelhoogte"
	Aspect        = Mob + "aanzicht"
	VariableText  = Mob + "variabelOpschrift"
	Owner         = OD + "beheerder"
	Geometry      = Locn + "geometry"
	Lat           = Geo + "lat"
	Long          = Geo + "long"
	QuantityValue = Schema + "value"
	QuantityUnit  = Schema + "unitCode"
	PrefLabel     = Skos + "prefLabel"
)

// Datatypes
const (
	XSDString  = XSD + "string"
	XSDDecimal = XSD + "decimal"
	XSDInteger = XSD + "integer"
	XSDBoolean = XSD + "boolean"
)

// UnitMetre is the UN/CEFACT code for metres.
const UnitMetre = "MTR"

// Prefixes are the namespace bindings written into serialized graphs.
var Prefixes = map[string]string{
	"mob":    Mob,
	"vkb":    VKB,
	"asset":  Asset,
	"wr":     WR,
	"orgvl":  OrgVL,
	"od":     OD,
	"geo":    Geo,
	"locn":   Locn,
	"schema": Schema,
	"skos":   Skos,
	"rdf":    RDF,
	"xsd":    XSD,
}

// InstallationClosurePredicates are followed when rebuilding an installation subgraph.
var InstallationClosurePredicates = []string{ContainsSign, Realizes, HasConcept, BelongsTo}

// InstallationIRI returns the reference of installation id.
func InstallationIRI(id int64) string {
	return VKB + strconv.FormatInt(id, 10)
}

// InstallationIRIFromString returns the reference of an installation id given as text.
func InstallationIRIFromString(id string) string {
	return VKB + id
}

// SignIRI returns the reference of sign plate signID on installation featureID.
func SignIRI(featureID, signID int64) string {
	return fmt.Sprintf("%s%d_bord_%d", Asset, featureID, signID)
}

// RealizationIRI returns the reference of the traffic sign realized by a sign plate.
func RealizationIRI(featureID, signID int64) string {
	return SignIRI(featureID, signID) + "_teken"
}

// ConceptIRI returns the reference of the sign concept of a sign plate.
func ConceptIRI(featureID, signID int64) string {
	return SignIRI(featureID, signID) + "_concept"
}

// SegmentIRI returns the road register reference of a road segment.
func SegmentIRI(segmentID string) string {
	return WR + segmentID
}

// OrganisationIRI returns the reference of an organisation by its OVO code.
func OrganisationIRI(ovo string) string {
	return OrgVL + ovo
}
