package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/localpages-cli/internal/cost"
	"github.com/sells-group/localpages-cli/internal/evidence"
	"github.com/sells-group/localpages-cli/internal/generate"
	"github.com/sells-group/localpages-cli/internal/model"
	"github.com/sells-group/localpages-cli/internal/monitoring"
	"github.com/sells-group/localpages-cli/internal/persist"
	"github.com/sells-group/localpages-cli/internal/pipeline"
	"github.com/sells-group/localpages-cli/internal/steps"
	"github.com/sells-group/localpages-cli/internal/steps/stepstest"
)

// memStore is an in-memory catalog and entity/content writer.
type memStore struct {
	mu         sync.Mutex
	services   []model.Service
	localities []model.Locality
	content    map[[2]int64]*model.ContentRow
	entities   map[int64]map[model.EntityKey]model.LocalEntity
	writes     int
	failUpsert error
}

func newMemStore() *memStore {
	return &memStore{
		services: []model.Service{
			{ID: 1, Key: "accidentes", Name: "Accidentes de tráfico", Type: model.ServiceTypeLitigation, Active: true},
			{ID: 2, Key: "herencias", Name: "Herencias", Type: model.ServiceTypeAdvisory, Active: true},
		},
		localities: []model.Locality{
			{ID: 10, Slug: "lorca", Name: "Lorca", Province: "Murcia", Active: true},
			{ID: 11, Slug: "murcia", Name: "Murcia", Province: "Murcia", Active: true},
		},
		content:  make(map[[2]int64]*model.ContentRow),
		entities: make(map[int64]map[model.EntityKey]model.LocalEntity),
	}
}

func (s *memStore) ListServices(_ context.Context, key string) ([]model.Service, error) {
	var out []model.Service
	for _, svc := range s.services {
		if svc.Active && (key == "" || svc.Key == key) {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *memStore) ListLocalities(_ context.Context, slug string) ([]model.Locality, error) {
	var out []model.Locality
	for _, loc := range s.localities {
		if loc.Active && (slug == "" || loc.Slug == slug) {
			out = append(out, loc)
		}
	}
	return out, nil
}

func (s *memStore) GetContent(_ context.Context, serviceID, localityID int64) (*model.ContentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.content[[2]int64{serviceID, localityID}]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

// SaveItem applies row and entities together; failUpsert rejects the
// whole item before anything is stored.
func (s *memStore) SaveItem(_ context.Context, row *model.ContentRow, entities []model.LocalEntity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpsert != nil {
		return 0, s.failUpsert
	}
	s.writes++
	ents := s.entities[row.LocalityID]
	if ents == nil {
		ents = make(map[model.EntityKey]model.LocalEntity)
	}
	var n int64
	for _, e := range entities {
		if _, ok := ents[e.Key()]; ok {
			continue
		}
		ents[e.Key()] = e
		n++
	}
	if len(ents) > 0 {
		s.entities[row.LocalityID] = ents
	}
	cp := *row
	s.content[[2]int64{row.ServiceID, row.LocalityID}] = &cp
	return n, nil
}

// fakeCollector returns evidence naming one of the courts fakeExecutor
// emits.
type fakeCollector struct {
	calls int
	err   error
}

func (f *fakeCollector) Collect(_ context.Context, queries []string) ([]model.EvidenceItem, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []model.EvidenceItem{
		{Query: queries[0], Title: "Juzgado de Primera Instancia de Lorca", URL: "https://example.es/juzgado", Snippet: "Sede judicial"},
		{Query: queries[0], Title: "Ayuntamiento", URL: "https://example.es/ayto", Snippet: "Trámites municipales"},
	}, nil
}

// fakeExecutor decodes canned outputs. failStep fails that step, for every
// locality or only failLoc.
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []steps.ID
	failStep steps.ID
	failLoc  string
	failErr  error
}

func (f *fakeExecutor) Execute(_ context.Context, step steps.Step, sc steps.Context) (steps.Result, *generate.Usage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, step.ID)
	f.mu.Unlock()

	usage := &generate.Usage{Step: step.ID, Model: "gpt-4o-mini", InputTokens: 1000, OutputTokens: 500}
	if step.ID == f.failStep && (f.failLoc == "" || f.failLoc == sc.Item.LocalitySlug) {
		return nil, usage, f.failErr
	}
	obj := stepstest.Output(step.ID, sc.Item.LocalityName)
	if step.ID == steps.Local {
		obj = stepstest.LocalOutput(sc.Item.LocalityName, "Juzgado de Primera Instancia de Lorca", "Juzgado Imaginario")
	}
	res, err := step.Decode(obj, steps.Rules{LocalityName: sc.Item.LocalityName})
	return res, usage, err
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store     *memStore
	collector *fakeCollector
	executor  *fakeExecutor
	metrics   *monitoring.Metrics
	orch      *Orchestrator
}

func newFixture(t *testing.T, dryRun bool) *fixture {
	t.Helper()
	f := &fixture{
		store:     newMemStore(),
		collector: &fakeCollector{},
		executor:  &fakeExecutor{},
		metrics:   monitoring.NewMetrics(),
	}
	log := zap.NewNop()
	runner := pipeline.NewRunner(f.collector, f.executor, log)
	writer := persist.New(f.store, dryRun, log)
	f.orch = New(f.store, runner, writer, cost.NewCalculator(cost.DefaultRates()), f.metrics, log)
	return f
}

func TestWorkItems_CrossProductAndLimit(t *testing.T) {
	f := newFixture(t, false)

	items, err := f.orch.WorkItems(context.Background(), Selection{ServiceFilter: "all", LocalityFilter: "all"})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "accidentes", items[0].ServiceKey)
	assert.Equal(t, "lorca", items[0].LocalitySlug)
	assert.Equal(t, "murcia", items[1].LocalitySlug)
	assert.Equal(t, "herencias", items[2].ServiceKey)

	items, err = f.orch.WorkItems(context.Background(), Selection{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestWorkItems_UnknownFilter(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.orch.WorkItems(context.Background(), Selection{ServiceFilter: "divorcios"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no active service "divorcios"`)

	_, err = f.orch.WorkItems(context.Background(), Selection{LocalityFilter: "cartagena"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no active locality "cartagena"`)
}

func TestRun_CompletesAndPersists(t *testing.T) {
	f := newFixture(t, false)

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Completed)
	assert.Zero(t, sum.Failed)
	assert.Equal(t, 1, sum.EntitiesInserted)
	assert.Equal(t, 1, sum.EntitiesDropped)
	assert.Equal(t, 6000, sum.InputTokens)
	assert.Greater(t, sum.CostUSD, 0.0)

	row := f.store.content[[2]int64{1, 10}]
	require.NotNil(t, row)
	assert.NotEmpty(t, row.ID)
	assert.Contains(t, row.Primary.Title, "Lorca")
	assert.NotEmpty(t, row.Primary.LocalContext)

	// Only the evidence-backed entity is stored.
	ents := f.store.entities[10]
	require.Len(t, ents, 1)
	for k := range ents {
		assert.Equal(t, "juzgado de primera instancia de lorca", k.NormalizedName)
	}

	expected := `
# HELP localpages_items_total Work items handled, by outcome
# TYPE localpages_items_total counter
localpages_items_total{outcome="completed"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.metrics.Registry(), strings.NewReader(expected), "localpages_items_total"))
}

func TestRun_AdvisoryUsesCustomSections(t *testing.T) {
	f := newFixture(t, false)

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "herencias", LocalityFilter: "murcia"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)

	row := f.store.content[[2]int64{2, 11}]
	require.NotNil(t, row)
	assert.Len(t, row.CustomSections, 2)
	assert.Empty(t, row.Primary.LocalContext)
	assert.NotContains(t, f.executor.calls, steps.Local)
}

func TestRun_SkipsExistingWithoutCalls(t *testing.T) {
	f := newFixture(t, false)
	f.store.content[[2]int64{1, 10}] = &model.ContentRow{ID: "row-1", ServiceID: 1, LocalityID: 10}

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Zero(t, sum.Completed)
	assert.Zero(t, sum.Failed)
	assert.Zero(t, f.executor.callCount())
	assert.Zero(t, f.collector.calls)
	assert.Zero(t, f.store.writes)
}

func TestRun_SecondRunWritesNothing(t *testing.T) {
	f := newFixture(t, false)

	first, err := f.orch.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Completed)
	writes := f.store.writes
	calls := f.executor.callCount()

	second, err := f.orch.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, 4, second.Processed)
	assert.Equal(t, 4, second.Skipped)
	assert.Equal(t, writes, f.store.writes)
	assert.Equal(t, calls, f.executor.callCount())
}

func TestRun_ForceRegeneratesAndKeepsSecondLanguage(t *testing.T) {
	f := newFixture(t, false)
	f.store.content[[2]int64{1, 10}] = &model.ContentRow{
		ID:         "row-1",
		ServiceID:  1,
		LocalityID: 10,
		Primary:    model.LocalizedContent{Title: "Viejo"},
		Secondary:  model.LocalizedContent{Title: "Accident lawyers in Lorca", Intro: "English"},
	}

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca", Force: true})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Completed)

	row := f.store.content[[2]int64{1, 10}]
	assert.Equal(t, "row-1", row.ID)
	assert.NotEqual(t, "Viejo", row.Primary.Title)
	assert.Equal(t, "Accident lawyers in Lorca", row.Secondary.Title)
	assert.Equal(t, "English", row.Secondary.Intro)
}

func TestRun_FailureIsolation(t *testing.T) {
	f := newFixture(t, false)
	f.executor.failStep = steps.Sections
	f.executor.failLoc = "lorca"
	f.executor.failErr = &generate.ValidationError{Step: steps.Sections, Err: errors.New("sections_es: array must have 4 items")}

	sum, err := f.orch.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Processed)
	assert.Equal(t, 2, sum.Completed)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 2, sum.FailuresByKind[KindValidation])

	// Failed items leave no row; the others were written.
	assert.Nil(t, f.store.content[[2]int64{1, 10}])
	assert.Nil(t, f.store.content[[2]int64{2, 10}])
	assert.NotNil(t, f.store.content[[2]int64{1, 11}])
	assert.NotNil(t, f.store.content[[2]int64{2, 11}])

	// Tokens of the failed calls are still counted.
	assert.Equal(t, 2*6000+2*3000, sum.InputTokens)
}

func TestRun_FailFastStopsLaterSteps(t *testing.T) {
	f := newFixture(t, false)
	f.executor.failStep = steps.Sections
	f.executor.failErr = &generate.ValidationError{Step: steps.Sections, Err: errors.New("arity")}

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []steps.ID{steps.SEO, steps.Intro, steps.Sections}, f.executor.calls)
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.store.entities)
}

func TestRun_EvidenceFailure(t *testing.T) {
	f := newFixture(t, false)
	f.collector.err = &evidence.FetchError{Query: "q", Provider: "serper", Err: errors.New("status 500")}

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.FailuresByKind[KindEvidenceFetch])
	assert.Zero(t, f.executor.callCount())
}

func TestRun_PersistenceFailure(t *testing.T) {
	f := newFixture(t, false)
	f.store.failUpsert = errors.New("connection refused")

	sum, err := f.orch.Run(context.Background(), Selection{ServiceFilter: "accidentes", LocalityFilter: "lorca"})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.FailuresByKind[KindPersistence])
	assert.Empty(t, f.store.content)
	// The verified court is not left behind without its content row.
	assert.Empty(t, f.store.entities[10])
	assert.Zero(t, sum.EntitiesInserted)
}

func TestRun_DryRunWritesNothing(t *testing.T) {
	f := newFixture(t, true)

	sum, err := f.orch.Run(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Completed)
	assert.Zero(t, sum.EntitiesInserted)
	assert.Zero(t, f.store.writes)
	assert.Empty(t, f.store.content)
	assert.Empty(t, f.store.entities)
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	f := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := f.orch.Run(ctx, Selection{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch: canceled")
	require.NotNil(t, sum)
	assert.Zero(t, sum.Processed)
	assert.Zero(t, f.executor.callCount())
}

func TestSummary_Snapshot(t *testing.T) {
	sum := &Summary{Processed: 5, Completed: 3, Failed: 1, Skipped: 1, CostUSD: 0.5,
		FailuresByKind: map[string]int{KindValidation: 1}}
	snap := sum.Snapshot()
	assert.Equal(t, 3, snap.Completed)
	assert.InDelta(t, 0.25, snap.FailRate(), 0.0001)
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&evidence.FetchError{Err: errors.New("x")}, KindEvidenceFetch},
		{&generate.InferenceError{Step: steps.SEO, Err: errors.New("x")}, KindInference},
		{&generate.MalformedOutputError{Err: errors.New("x")}, KindMalformedOutput},
		{&generate.ValidationError{Err: errors.New("x")}, KindValidation},
		{&persist.Error{Op: "save item", Err: errors.New("x")}, KindPersistence},
		{&pipeline.Error{Err: &generate.ValidationError{Err: errors.New("x")}}, KindValidation},
		{&generate.InferenceError{Err: fmt.Errorf("call: %w", context.Canceled)}, KindCanceled},
		{errors.New("boom"), KindOther},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FailureKind(tc.err), tc.err.Error())
	}
}
