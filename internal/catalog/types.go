package catalog

import (
	"strings"
	"time"
)

// Object types reported by the upstream catalog.
const (
	TypePayload    = "PAYLOAD"
	TypeDebris     = "DEBRIS"
	TypeRocketBody = "ROCKET BODY"
	TypeUnknown    = "UNKNOWN"
)

// AllObjectTypes lists every object type in the order the UI offers them.
var AllObjectTypes = []string{TypeRocketBody, TypeDebris, TypeUnknown, TypePayload}

// Record field names, as they appear on the wire and in the attributes list.
const (
	FieldNoradCatID  = "noradCatId"
	FieldName        = "name"
	FieldLaunchDate  = "launchDate"
	FieldObjectType  = "objectType"
	FieldOrbitCode   = "orbitCode"
	FieldCountryCode = "countryCode"
	FieldStatus      = "status"
)

// Attributes is the attribute list requested from the upstream.
var Attributes = []string{
	FieldNoradCatID,
	FieldName,
	FieldLaunchDate,
	FieldObjectType,
	FieldOrbitCode,
	FieldCountryCode,
	FieldStatus,
}

// OrbitCodes are the orbital regimes offered as filter options.
var OrbitCodes = []string{
	"LEO", "LEO1", "LEO2", "LEO3", "LEO4",
	"MEO", "GEO", "GTO", "HEO", "IGO",
	"EGO", "NSO", "GHO", "HAO", "MGO",
	"LMO", "UFO", "ESO", "UNKNOWN",
}

// ObjectRecord is one tracked space object. Nil fields were absent upstream.
type ObjectRecord struct {
	NoradCatID  *string `json:"noradCatId,omitempty"`
	Name        *string `json:"name,omitempty"`
	LaunchDate  *string `json:"launchDate,omitempty"`
	ObjectType  *string `json:"objectType,omitempty"`
	OrbitCode   *string `json:"orbitCode,omitempty"`
	CountryCode *string `json:"countryCode,omitempty"`
	Status      *string `json:"status,omitempty"`
}

// Field returns the named field's value and whether it was present.
// Unknown field names report absent.
func (r ObjectRecord) Field(name string) (string, bool) {
	var p *string
	switch name {
	case FieldNoradCatID:
		p = r.NoradCatID
	case FieldName:
		p = r.Name
	case FieldLaunchDate:
		p = r.LaunchDate
	case FieldObjectType:
		p = r.ObjectType
	case FieldOrbitCode:
		p = r.OrbitCode
	case FieldCountryCode:
		p = r.CountryCode
	case FieldStatus:
		p = r.Status
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// Key returns the row key used for rendering.
func (r ObjectRecord) Key() string {
	v, _ := r.Field(FieldNoradCatID)
	return v
}

// StrippedOrbitCode returns the orbit code without its brace wrapping.
func (r ObjectRecord) StrippedOrbitCode() (string, bool) {
	if r.OrbitCode == nil {
		return "", false
	}
	return StripBraces(*r.OrbitCode), true
}

// StripBraces removes every '{' and '}' from s.
func StripBraces(s string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	return strings.NewReplacer("{", "", "}", "").Replace(s)
}

// Ptr returns a pointer to s. Handy for building records in code and tests.
func Ptr(s string) *string {
	return &s
}

// Dataset is the result of one resolved upstream query.
type Dataset struct {
	Query     Query
	FetchedAt time.Time
	Records   []ObjectRecord
}
