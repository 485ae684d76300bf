package models

// NormalizedUtterance is the output of the terminology normalization stage.
// Canonical carries the text after phrase corrections and abbreviation
// expansion; Source is preserved untouched for display.
type NormalizedUtterance struct {
	Source      string   `json:"source"`
	Language    string   `json:"language"`
	Canonical   string   `json:"canonical"`
	Corrections []string `json:"correctionsApplied,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// EntityKind classifies an extracted entity span.
type EntityKind string

const (
	EntityPerson      EntityKind = "PERSON"
	EntityLocation    EntityKind = "LOCATION"
	EntityCrimeType   EntityKind = "CRIME_TYPE"
	EntityDate        EntityKind = "DATE"
	EntityStation     EntityKind = "STATION"
	EntityDistrict    EntityKind = "DISTRICT"
	EntityOfficerRank EntityKind = "OFFICER_RANK"
	EntityVehicle     EntityKind = "VEHICLE"
	EntityPhone       EntityKind = "PHONE"
)

// Span marks the half-open byte range [Start, End) of an entity in the
// canonical utterance.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entity is a typed span extracted from an utterance. Entities are immutable
// once produced by the extractor.
type Entity struct {
	Kind       EntityKind `json:"kind"`
	Value      string     `json:"value"`
	Confidence float64    `json:"confidence"`
	Span       Span       `json:"span"`
}

// Overlaps reports whether two entity spans intersect.
func (e Entity) Overlaps(other Entity) bool {
	return e.Span.Start < other.Span.End && other.Span.Start < e.Span.End
}
