package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeoGlobe/internal/domain"
)

func newTestProcessor(t *testing.T, store *fakeStore, extract, ground *fakeModelClient) *Processor {
	t.Helper()
	return NewProcessor(ProcessorDeps{
		Events:        store,
		Rows:          store,
		States:        store,
		ExtractClient: extract,
		GroundClient:  ground,
		GroundRetries: 0,
		Logger:        testLogger(t),
	})
}

func seedStates(store *fakeStore, pairs ...[2]string) {
	for _, p := range pairs {
		store.states = append(store.states, domain.State{Name: p[0], ISO3: p[1]})
	}
}

func TestProcessMaterializesAndRunsBothStages(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "Freedonia shelled Sylvania. The weather was calm.")
	seedStates(store, [2]string{"Freedonia", "FRD"}, [2]string{"Sylvania", "SYL"})

	extract := &fakeModelClient{script: []scripted{
		{out: `{"actor": "Freedonian army", "target": "Sylvanian port", "event": "ATTACK"}`},
		{out: `{"event": "UNDEFINED"}`},
	}}
	ground := &fakeModelClient{script: []scripted{
		{out: `{"actor_state": "Freedonia", "target_state": "Sylvania"}`},
	}}

	res, err := newTestProcessor(t, store, extract, ground).Process(context.Background(), domain.ModeAll, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Materialized)
	assert.Equal(t, 2, res.Processed)

	first := store.row(1)
	require.NotNil(t, first)
	assert.Equal(t, "Freedonia shelled Sylvania.", first.SentenceText)
	assert.Equal(t, "ATTACK", *first.EventType)
	assert.True(t, first.StatesResolved)
	assert.Equal(t, "FRD", *first.ActorStateISO3)
	assert.Equal(t, "SYL", *first.TargetStateISO3)

	// The UNDEFINED sentence keeps an empty, unresolved row.
	second := store.row(2)
	require.NotNil(t, second)
	assert.Nil(t, second.EventType)
	assert.False(t, second.StatesResolved)

	assert.Equal(t, domain.EventProcessing, store.events["ev-1"].Status)
}

func TestProcessMaterializationIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "One. Two.")

	extract := &fakeModelClient{script: []scripted{
		{out: `{"event": "UNDEFINED"}`}, {out: `{"event": "UNDEFINED"}`},
		{out: `{"event": "UNDEFINED"}`}, {out: `{"event": "UNDEFINED"}`},
	}}

	p := newTestProcessor(t, store, extract, &fakeModelClient{})
	res, err := p.Process(context.Background(), domain.ModeAll, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Materialized)

	res, err = p.Process(context.Background(), domain.ModeAll, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Materialized, "second run must not duplicate rows")
	assert.Len(t, store.rows, 2)
}

func TestProcessResumable(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "Freedonia shelled Sylvania.")
	seedStates(store, [2]string{"Freedonia", "FRD"})

	extract := &fakeModelClient{script: []scripted{
		{out: `{"actor": "army", "target": "port", "event": "ATTACK"}`},
	}}
	ground := &fakeModelClient{script: []scripted{
		{out: `{"actor_state": "Freedonia", "target_state": null}`},
	}}

	p := newTestProcessor(t, store, extract, ground)
	res, err := p.Process(context.Background(), domain.ModeMissingExtraction, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)

	// All rows became extraction-complete: the second run selects nothing
	// and makes zero backend calls.
	res, err = p.Process(context.Background(), domain.ModeMissingExtraction, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Processed)
	assert.Equal(t, 1, extract.calls())
	assert.Equal(t, 1, ground.calls())
}

func TestProcessSkipsRowOnBackendFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "First sentence. Second sentence.")
	seedStates(store, [2]string{"Freedonia", "FRD"})

	extract := &fakeModelClient{script: []scripted{
		{err: domain.ErrTimeout},
		{out: `{"actor": "army", "target": "port", "event": "THREAT"}`},
	}}
	ground := &fakeModelClient{script: []scripted{
		{out: `{"actor_state": "Freedonia", "target_state": null}`},
	}}

	res, err := newTestProcessor(t, store, extract, ground).Process(context.Background(), domain.ModeAll, 0)
	require.NoError(t, err, "a per-row backend failure must not abort the run")
	assert.Equal(t, 2, res.Processed)

	assert.Nil(t, store.row(1).EventType, "failed row stays incomplete")
	assert.Equal(t, "THREAT", *store.row(2).EventType, "sibling row still processed")
}

func TestProcessCountsAlreadyCompleteRows(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "Freedonia shelled Sylvania.")
	_, err := store.InsertSentenceRows(context.Background(), "ev-1", []string{"Freedonia shelled Sylvania."})
	require.NoError(t, err)
	r := store.row(1)
	r.Actor, r.Target, r.EventType = strptr("a"), strptr("t"), strptr("ATTACK")
	r.StatesResolved = true

	res, err := newTestProcessor(t, store, &fakeModelClient{}, &fakeModelClient{}).
		Process(context.Background(), domain.ModeAll, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed, "a fully resolved row still counts")
}

func TestProcessUnknownModeFailsFast(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	_, err := newTestProcessor(t, store, &fakeModelClient{}, &fakeModelClient{}).
		Process(context.Background(), domain.ProcessingMode("bogus"), 0)

	var fatal *domain.FatalPipelineError
	require.True(t, errors.As(err, &fatal))
}

func TestProcessPersistenceFailureIsFatal(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "Freedonia shelled Sylvania.")
	store.failUpdateExtraction = true

	extract := &fakeModelClient{script: []scripted{
		{out: `{"actor": "a", "target": "t", "event": "ATTACK"}`},
	}}

	_, err := newTestProcessor(t, store, extract, &fakeModelClient{}).
		Process(context.Background(), domain.ModeAll, 0)

	var fatal *domain.FatalPipelineError
	require.True(t, errors.As(err, &fatal))
	assert.Equal(t, "persist extraction", fatal.Op)
}

func TestProcessGroundingOnlyMode(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "Freedonia shelled Sylvania.")
	_, err := store.InsertSentenceRows(context.Background(), "ev-1", []string{"Freedonia shelled Sylvania."})
	require.NoError(t, err)
	r := store.row(1)
	r.Actor, r.Target, r.EventType = strptr("army"), strptr("port"), strptr("ATTACK")
	store.events["ev-1"].Status = domain.EventProcessing
	seedStates(store, [2]string{"Freedonia", "FRD"})

	extract := &fakeModelClient{}
	ground := &fakeModelClient{script: []scripted{
		{out: `{"actor_state": "Freedonia", "target_state": "Atlantis"}`},
	}}

	res, err := newTestProcessor(t, store, extract, ground).
		Process(context.Background(), domain.ModeMissingStates, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	assert.Equal(t, 0, extract.calls(), "extraction-complete row must not re-extract")

	require.True(t, store.row(1).StatesResolved)
	assert.Equal(t, "Freedonia", *store.row(1).ActorState)
	assert.Nil(t, store.row(1).TargetState, "hallucinated state rejected")
	assert.Nil(t, store.row(1).TargetStateISO3)

	// All rows of the event resolved: the owning event is done.
	assert.Equal(t, domain.EventDone, store.events["ev-1"].Status)
}

func TestProcessLastNDescending(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.addEvent("ev-1", "One. Two. Three.")
	_, err := store.InsertSentenceRows(context.Background(), "ev-1", []string{"One.", "Two.", "Three."})
	require.NoError(t, err)
	for _, r := range store.rows {
		r.Actor, r.Target, r.EventType = strptr("a"), strptr("t"), strptr("ATTACK")
		r.StatesResolved = true
	}

	rows, err := store.SelectRows(context.Background(), domain.ModeLastN, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(3), rows[0].ID)
	assert.Equal(t, int64(2), rows[1].ID)
}
