package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntityType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want EntityType
	}{
		{"court", EntityCourt},
		{" Hospital ", EntityHospital},
		{"MEDIATION_CENTER", EntityMediationCenter},
		{"road", EntityRoad},
		{"notary", EntityOther},
		{"", EntityOther},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseEntityType(tc.in), tc.in)
	}
}

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "juzgado de lorca", NormalizeName("  Juzgado de   Lorca "))
	assert.Equal(t, "hospital reina sofia", NormalizeName("Hospital Reina Sofía"))
	assert.Equal(t, "registro civil de aguilas", NormalizeName("REGISTRO CIVIL DE ÁGUILAS"))
	assert.Equal(t, "", NormalizeName("   "))
}

func TestLocalEntity_Key(t *testing.T) {
	t.Parallel()

	a := LocalEntity{EntityType: EntityCourt, Name: "Juzgado de Murcia"}
	b := LocalEntity{EntityType: EntityCourt, Name: "JUZGADO  DE MURCIA"}
	c := LocalEntity{EntityType: EntityRegistry, Name: "Juzgado de Murcia"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
