package catalog

import (
	"net/url"
	"strings"
)

// Query is the parameter tuple sent to the upstream /satellites endpoint.
// Two queries with the same Key share one cached result.
type Query struct {
	ObjectTypes []string
	Attributes  []string
}

// NewQuery builds a query for the given object types with the default attributes.
func NewQuery(objectTypes []string) Query {
	return Query{
		ObjectTypes: append([]string(nil), objectTypes...),
		Attributes:  append([]string(nil), Attributes...),
	}
}

// Enabled reports whether the query has enough parameters to be issued.
func (q Query) Enabled() bool {
	return len(q.ObjectTypes) > 0 && len(q.Attributes) > 0
}

// Key returns the cache key for q. Order matters, as it does on the wire.
func (q Query) Key() string {
	return strings.Join(q.ObjectTypes, ",") + "|" + strings.Join(q.Attributes, ",")
}

// Values encodes q as upstream query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("objectTypes", strings.Join(q.ObjectTypes, ","))
	v.Set("attributes", strings.Join(q.Attributes, ","))
	return v
}
