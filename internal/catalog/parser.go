package catalog

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"
)

// ErrMalformedEnvelope is returned when a response body does not carry
// a data.data array.
var ErrMalformedEnvelope = errors.New("malformed response envelope")

const recordsPath = "data.data"

// ParseEnvelope extracts object records from an upstream response body of the
// form {"data":{"data":[...]}}. Elements that are not objects are skipped with
// a warning. Fields that are missing or null are left absent.
func ParseEnvelope(body []byte, logger *slog.Logger) ([]ObjectRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedEnvelope)
	}

	list := gjson.GetBytes(body, recordsPath)
	if !list.Exists() || !list.IsArray() {
		return nil, fmt.Errorf("%w: missing %s array", ErrMalformedEnvelope, recordsPath)
	}

	records := make([]ObjectRecord, 0)
	index := 0
	list.ForEach(func(_, item gjson.Result) bool {
		defer func() { index++ }()
		if !item.IsObject() {
			logger.Warn("skipping non-object record", "index", index, "type", item.Type.String())
			return true
		}
		records = append(records, ObjectRecord{
			NoradCatID:  field(item, FieldNoradCatID),
			Name:        field(item, FieldName),
			LaunchDate:  field(item, FieldLaunchDate),
			ObjectType:  field(item, FieldObjectType),
			OrbitCode:   field(item, FieldOrbitCode),
			CountryCode: field(item, FieldCountryCode),
			Status:      field(item, FieldStatus),
		})
		return true
	})

	return records, nil
}

// field reads one attribute. Numbers and other scalars keep their textual form
// so that a numeric noradCatId still participates in search.
func field(item gjson.Result, name string) *string {
	v := item.Get(name)
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	s := v.String()
	return &s
}
