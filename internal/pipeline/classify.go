package pipeline

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/star/assetlist/internal/catalog"
)

// Category names shown as selectors above the table.
const (
	CategoryAll          = "All Objects"
	CategoryPayloads     = "Payloads"
	CategoryDebris       = "Debris"
	CategoryRocketBodies = "Rocket Bodies"
	CategoryUnknown      = "Unknown"
)

// Category is one selectable object-type subset with its running count.
type Category struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	ObjectTypes []string `json:"object_types"`
	Tag         string   `json:"tag"`
	Value       int      `json:"value"`
}

// DefaultCategories returns the category selectors in display order, all at zero.
func DefaultCategories() []Category {
	return []Category{
		{ID: 1, Name: CategoryAll, ObjectTypes: append([]string(nil), catalog.AllObjectTypes...), Tag: "all"},
		{ID: 2, Name: CategoryPayloads, ObjectTypes: []string{catalog.TypePayload}, Tag: "payload"},
		{ID: 3, Name: CategoryDebris, ObjectTypes: []string{catalog.TypeDebris}, Tag: "debris"},
		{ID: 4, Name: CategoryRocketBodies, ObjectTypes: []string{catalog.TypeRocketBody}, Tag: "rocket-body"},
		{ID: 5, Name: CategoryUnknown, ObjectTypes: []string{catalog.TypeUnknown}, Tag: "unknown"},
	}
}

// Counts tallies a collection by object type.
type Counts struct {
	All        int `json:"all"`
	Payload    int `json:"payload"`
	Debris     int `json:"debris"`
	RocketBody int `json:"rocket_body"`
	Unknown    int `json:"unknown"`
}

// Classify buckets records by upper-cased object type. Anything that is not
// a payload, debris or rocket body, including a missing type, is unknown.
func Classify(records []catalog.ObjectRecord) Counts {
	upper := cases.Upper(language.Und)
	c := Counts{All: len(records)}
	for _, r := range records {
		t, _ := r.Field(catalog.FieldObjectType)
		switch upper.String(t) {
		case catalog.TypePayload:
			c.Payload++
		case catalog.TypeDebris:
			c.Debris++
		case catalog.TypeRocketBody:
			c.RocketBody++
		default:
			c.Unknown++
		}
	}
	return c
}

// Apply returns a copy of categories with each value replaced by its tally,
// matched by name. Categories with unrecognized names pass through unchanged.
func (c Counts) Apply(categories []Category) []Category {
	out := make([]Category, len(categories))
	for i, cat := range categories {
		switch cat.Name {
		case CategoryAll:
			cat.Value = c.All
		case CategoryPayloads:
			cat.Value = c.Payload
		case CategoryDebris:
			cat.Value = c.Debris
		case CategoryRocketBodies:
			cat.Value = c.RocketBody
		case CategoryUnknown:
			cat.Value = c.Unknown
		}
		out[i] = cat
	}
	return out
}

// FindCategory returns the category with the given name.
func FindCategory(categories []Category, name string) (Category, bool) {
	for _, c := range categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}
