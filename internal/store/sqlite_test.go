package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/localpages-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

// seedCatalog inserts one litigation service and one locality.
func seedCatalog(t *testing.T, st *SQLiteStore) (model.Service, model.Locality) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.UpsertServices(ctx, []model.Service{
		{Key: "accidentes", Name: "Accidentes de tráfico", Type: model.ServiceTypeLitigation, Active: true},
		{Key: "retirado", Name: "Retirado", Type: model.ServiceTypeAdvisory, Active: false},
	}))
	require.NoError(t, st.UpsertLocalities(ctx, []model.Locality{
		{Slug: "lorca", Name: "Lorca", Province: "Murcia", Active: true},
	}))
	svcs, err := st.ListServices(ctx, "accidentes")
	require.NoError(t, err)
	require.Len(t, svcs, 1)
	locs, err := st.ListLocalities(ctx, "lorca")
	require.NoError(t, err)
	require.Len(t, locs, 1)
	return svcs[0], locs[0]
}

func TestSQLite_Migrate_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestSQLite_Catalog(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	svc, loc := seedCatalog(t, st)

	assert.Equal(t, model.ServiceTypeLitigation, svc.Type)
	assert.True(t, svc.Active)
	assert.Equal(t, "Murcia", loc.Province)

	// Inactive services are not listed.
	all, err := st.ListServices(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)

	// Upsert updates in place.
	require.NoError(t, st.UpsertServices(ctx, []model.Service{
		{Key: "accidentes", Name: "Accidentes", Type: model.ServiceTypeLitigation, Active: true},
	}))
	all, err = st.ListServices(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Accidentes", all[0].Name)
	assert.Equal(t, svc.ID, all[0].ID)
}

func TestSQLite_GetContent_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)
	svc, loc := seedCatalog(t, st)

	row, err := st.GetContent(context.Background(), svc.ID, loc.ID)
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSQLite_SaveItem_RoundTripAndSecondaryPreserved(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	svc, loc := seedCatalog(t, st)
	generated := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	first := &model.ContentRow{
		ServiceID:  svc.ID,
		LocalityID: loc.ID,
		Primary: model.LocalizedContent{
			Title:        "Abogados de accidentes en Lorca",
			Intro:        "Intro",
			Sections:     []model.Section{{Heading: "Cómo actuar", Body: "Texto"}},
			FAQs:         []model.FAQ{{Question: "¿Cuánto tarda?", Answer: "Depende"}},
			ProcessSteps: []model.ProcessStep{{Title: "Consulta", Description: "Gratis"}},
		},
		Secondary:     model.LocalizedContent{Title: "Accident lawyers in Lorca"},
		QualityScore:  0.8,
		EvidenceCount: 14,
		GeneratedAt:   generated,
		UpdatedAt:     generated,
	}
	_, err := st.SaveItem(ctx, first, nil)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	got, err := st.GetContent(ctx, svc.ID, loc.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.Primary, got.Primary)
	assert.Equal(t, "Accident lawyers in Lorca", got.Secondary.Title)
	assert.Equal(t, 14, got.EvidenceCount)
	assert.True(t, generated.Equal(got.GeneratedAt))

	// A regenerated row with a blank second-language set and a new ID
	// updates the primary columns in place.
	second := &model.ContentRow{
		ID:          "other-id",
		ServiceID:   svc.ID,
		LocalityID:  loc.ID,
		Primary:     model.LocalizedContent{Title: "Nuevo título en Lorca"},
		GeneratedAt: generated.Add(time.Hour),
	}
	_, err = st.SaveItem(ctx, second, nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err = st.GetContent(ctx, svc.ID, loc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nuevo título en Lorca", got.Primary.Title)
	assert.Empty(t, got.Primary.Sections)
	assert.Equal(t, "Accident lawyers in Lorca", got.Secondary.Title)
}

// entityNames returns the stored entity names of a locality.
func entityNames(t *testing.T, st *SQLiteStore, localityID int64) []string {
	t.Helper()
	rows, err := st.db.QueryContext(context.Background(),
		`SELECT name FROM locality_entities WHERE locality_id = ? ORDER BY name`, localityID)
	require.NoError(t, err)
	defer rows.Close() //nolint:errcheck

	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestSQLite_SaveItem_EntitiesInsertIfAbsent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	svc, loc := seedCatalog(t, st)

	row := &model.ContentRow{ServiceID: svc.ID, LocalityID: loc.ID, Primary: model.LocalizedContent{Title: "Uno"}}
	n, err := st.SaveItem(ctx, row, []model.LocalEntity{
		{EntityType: model.EntityCourt, Name: "Juzgado de Lorca", SourceURL: "https://example.es/a"},
		{EntityType: model.EntityHospital, Name: "Hospital Rafael Méndez", SourceURL: "https://example.es/b"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Same court under a different spelling is ignored.
	n, err = st.SaveItem(ctx, row, []model.LocalEntity{
		{EntityType: model.EntityCourt, Name: "JUZGADO DE  LORCA", Address: "Calle Nueva"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Equal(t, []string{"Hospital Rafael Méndez", "Juzgado de Lorca"}, entityNames(t, st, loc.ID))
}

func TestSQLite_SaveItem_ContentFailureLeavesNoEntities(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	_, loc := seedCatalog(t, st)

	// No service 999: the content row violates its foreign key after the
	// entity insert already ran in the same transaction.
	row := &model.ContentRow{ServiceID: 999, LocalityID: loc.ID, Primary: model.LocalizedContent{Title: "Huérfano"}}
	n, err := st.SaveItem(ctx, row, []model.LocalEntity{
		{EntityType: model.EntityCourt, Name: "Juzgado de Lorca"},
	})
	require.Error(t, err)
	assert.Zero(t, n)
	assert.Contains(t, err.Error(), "sqlite: save item")

	assert.Empty(t, entityNames(t, st, loc.ID))
	got, err := st.GetContent(ctx, 999, loc.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
