package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/localpages-cli/internal/model"
)

func TestUpsertContentSQL_NeverUpdatesSecondary(t *testing.T) {
	for _, numbered := range []bool{true, false} {
		q := upsertContentSQL(numbered)
		_, update, ok := strings.Cut(q, "DO UPDATE SET")
		require.True(t, ok)
		for _, c := range secondaryColumns {
			assert.NotContains(t, update, c+" = ")
		}
		assert.Contains(t, update, "title_es = excluded.title_es")
		assert.NotContains(t, update, "id = excluded.id,")
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3, true))
	assert.Equal(t, "?, ?", placeholders(2, false))
}

func TestContentArgs_AssignsIDAndOrder(t *testing.T) {
	row := &model.ContentRow{ServiceID: 3, LocalityID: 4}
	args, err := contentArgs(row)
	require.NoError(t, err)
	assert.Len(t, args, len(contentColumns))
	assert.NotEmpty(t, row.ID)
	assert.Equal(t, row.ID, args[0])
	assert.Equal(t, int64(3), args[1])
	assert.False(t, row.UpdatedAt.IsZero())
}

func TestEntityRows_DedupesByKey(t *testing.T) {
	now := time.Now()
	rows := entityRows(9, []model.LocalEntity{
		{EntityType: model.EntityCourt, Name: "Juzgado de Águilas"},
		{EntityType: model.EntityCourt, Name: "juzgado de aguilas"},
		{EntityType: model.EntityHospital, Name: "Juzgado de Águilas"},
	}, now)
	require.Len(t, rows, 2)
	assert.Equal(t, "juzgado de aguilas", rows[0][4])
	assert.Equal(t, "hospital", rows[1][2])
}
