package catalog

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	body := []byte(`{"data":{"data":[
		{"noradCatId":"25544","name":"ISS (ZARYA)","launchDate":"1998-11-20","objectType":"PAYLOAD","orbitCode":"{LEO}","countryCode":"ISS","status":"+"},
		{"noradCatId":44713,"name":null,"objectType":"debris"},
		"not an object",
		{}
	]}}`)

	records, err := ParseEnvelope(body, testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records (string element skipped), got %d", len(records))
	}

	iss := records[0]
	if got, _ := iss.Field(FieldName); got != "ISS (ZARYA)" {
		t.Errorf("name = %q", got)
	}
	if got, _ := iss.StrippedOrbitCode(); got != "LEO" {
		t.Errorf("stripped orbit = %q, want LEO", got)
	}
	if got, _ := iss.Field(FieldStatus); got != "+" {
		t.Errorf("status = %q, want +", got)
	}

	// Numeric IDs keep their textual form; null is absent.
	if got := records[1].Key(); got != "44713" {
		t.Errorf("numeric noradCatId = %q, want 44713", got)
	}
	if records[1].Name != nil {
		t.Errorf("null name should be absent, got %q", *records[1].Name)
	}
	if got, _ := records[1].Field(FieldObjectType); got != "debris" {
		t.Errorf("objectType should be stored as provided, got %q", got)
	}

	empty := records[2]
	for _, f := range Attributes {
		if _, ok := empty.Field(f); ok {
			t.Errorf("field %s should be absent on empty record", f)
		}
	}
}

func TestParseEnvelopeEmpty(t *testing.T) {
	records, err := ParseEnvelope([]byte(`{"data":{"data":[]}}`), testLogger())
	if err != nil {
		t.Fatalf("empty result is not an error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

// TestParseEnvelopeLargeList verifies every element of a long list is read in
// order during a single walk of the body.
func TestParseEnvelopeLargeList(t *testing.T) {
	const n = 5000
	var b strings.Builder
	b.WriteString(`{"data":{"data":[`)
	for i := range n {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"noradCatId":"%d","objectType":"DEBRIS"}`, i)
	}
	b.WriteString(`]}}`)

	records, err := ParseEnvelope([]byte(b.String()), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != n {
		t.Fatalf("records = %d, want %d", len(records), n)
	}
	if id, _ := records[n-1].Field(FieldNoradCatID); id != fmt.Sprint(n-1) {
		t.Errorf("last record id = %q, want %d", id, n-1)
	}
}

func TestParseEnvelopeMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"data":`},
		{"missing inner", `{"data":{}}`},
		{"inner not array", `{"data":{"data":{"noradCatId":"1"}}}`},
		{"top-level array", `[{"noradCatId":"1"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body), testLogger())
			if !errors.Is(err, ErrMalformedEnvelope) {
				t.Errorf("expected ErrMalformedEnvelope, got %v", err)
			}
		})
	}
}

func TestStripBraces(t *testing.T) {
	tests := []struct{ in, want string }{
		{"{LEO}", "LEO"},
		{"LEO", "LEO"},
		{"{{GEO}}", "GEO"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripBraces(tt.in); got != tt.want {
			t.Errorf("StripBraces(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQuery(t *testing.T) {
	q := NewQuery([]string{TypePayload})
	if !q.Enabled() {
		t.Error("query with types and attributes should be enabled")
	}
	if (Query{Attributes: Attributes}).Enabled() {
		t.Error("query without object types should be disabled")
	}
	if (Query{ObjectTypes: AllObjectTypes}).Enabled() {
		t.Error("query without attributes should be disabled")
	}

	other := NewQuery([]string{TypePayload})
	if q.Key() != other.Key() {
		t.Errorf("equal queries should share a key: %q vs %q", q.Key(), other.Key())
	}
	if q.Key() == NewQuery([]string{TypeDebris}).Key() {
		t.Error("different object types should not share a key")
	}

	v := q.Values()
	if v.Get("objectTypes") != "PAYLOAD" {
		t.Errorf("objectTypes = %q", v.Get("objectTypes"))
	}
}
