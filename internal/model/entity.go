package model

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// EntityType classifies a local institution.
type EntityType string

const (
	EntityCourt           EntityType = "court"
	EntityHospital        EntityType = "hospital"
	EntityPolice          EntityType = "police"
	EntityRegistry        EntityType = "registry"
	EntityGovernment      EntityType = "government"
	EntityRoad            EntityType = "road"
	EntityMediationCenter EntityType = "mediation_center"
	EntityOther           EntityType = "other"
)

var entityTypes = map[EntityType]bool{
	EntityCourt:           true,
	EntityHospital:        true,
	EntityPolice:          true,
	EntityRegistry:        true,
	EntityGovernment:      true,
	EntityRoad:            true,
	EntityMediationCenter: true,
	EntityOther:           true,
}

// ParseEntityType maps a raw type string onto the closed set. Unknown
// values become EntityOther.
func ParseEntityType(s string) EntityType {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if entityTypes[t] {
		return t
	}
	return EntityOther
}

// LocalEntity is a named real-world institution mentioned in generated copy.
type LocalEntity struct {
	EntityType EntityType `json:"entityType"`
	Name       string     `json:"name"`
	Address    string     `json:"address,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Website    string     `json:"website,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	SourceURL  string     `json:"sourceUrl"`
}

// Key returns the dedup key (type + normalized name).
func (e LocalEntity) Key() EntityKey {
	return EntityKey{Type: e.EntityType, NormalizedName: NormalizeName(e.Name)}
}

// EntityKey identifies an entity within a locality.
type EntityKey struct {
	Type           EntityType
	NormalizedName string
}

// NormalizeName strips diacritics, case-folds, and collapses whitespace so
// "Juzgado de  Lorca" and "juzgado de lorca" share one key.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	folded := cases.Fold().String(stripped)
	return strings.Join(strings.Fields(folded), " ")
}
