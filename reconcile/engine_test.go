package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"moddb-curator/moddb"
	"moddb-curator/steam"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(lookup lookupFunc) (*Engine, *[]Event) {
	var mu sync.Mutex
	events := []Event{}
	e := &Engine{
		Fetcher: &Fetcher{Lookup: lookup, Concurrency: 2},
		Log:     zap.NewNop().Sugar(),
		Events: func(ev Event) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, ev)
		},
	}
	return e, &events
}

func TestEngineInsertsAndEnriches(t *testing.T) {
	e, events := newTestEngine(func(ctx context.Context, id string) (*steam.Details, error) {
		assert.Equal(t, "100", id)
		return &steam.Details{RemoteID: id, Tags: []string{"1.5", "1.6", "notaversion"}}, nil
	})
	db := moddb.New()

	sum, err := e.Run(context.Background(), db, []moddb.Observation{{
		StableID: "A.B",
		RemoteID: "100",
		Name:     "AB",
		Authors:  "x",
		Versions: []string{"1.4"},
	}})
	require.NoError(t, err)

	rec := db.Get("a.b", "100")
	require.NotNil(t, rec)
	assert.Equal(t, "AB", rec.Name)
	assert.Equal(t, "x", rec.Authors)
	assert.Equal(t, []string{"1.5", "1.6"}, rec.Versions)
	assert.True(t, rec.Published)

	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Enriched)
	assert.Equal(t, 0, sum.Failed)
	require.Len(t, sum.Changes, 2)
	assert.Equal(t, ChangeInsert, sum.Changes[0].Action)
	assert.Equal(t, ChangeEnrich, sum.Changes[1].Action)
	assert.Equal(t, []string{"1.4"}, sum.Changes[1].OldVersions)

	var sawStart, sawProgress bool
	for _, ev := range *events {
		switch ev.Kind {
		case EventFetchStart:
			sawStart = ev.Total == 1
		case EventFetchProgress:
			sawProgress = ev.Done == 1 && ev.Total == 1
		}
	}
	assert.True(t, sawStart)
	assert.True(t, sawProgress)
}

func TestEngineKeepsLocalVersionsWhenAbsent(t *testing.T) {
	e, _ := newTestEngine(func(ctx context.Context, id string) (*steam.Details, error) {
		return nil, errors.New("service unavailable")
	})
	db := moddb.New()

	sum, err := e.Run(context.Background(), db, []moddb.Observation{{
		StableID: "c.d",
		RemoteID: "200",
		Versions: []string{"1.3"},
	}})
	require.NoError(t, err)

	rec := db.Get("c.d", "200")
	require.NotNil(t, rec)
	assert.Equal(t, []string{"1.3"}, rec.Versions)
	assert.False(t, rec.Published)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, ChangeEnrichFailed, sum.Changes[len(sum.Changes)-1].Action)
}

func TestEngineOnlyLooksUpNewRecords(t *testing.T) {
	var mu sync.Mutex
	var looked []string
	e, _ := newTestEngine(func(ctx context.Context, id string) (*steam.Details, error) {
		mu.Lock()
		looked = append(looked, id)
		mu.Unlock()
		return &steam.Details{RemoteID: id, Tags: []string{"1.5"}}, nil
	})

	db := moddb.New()
	require.NoError(t, db.Put("known.mod", "1", &moddb.ModRecord{Versions: []string{"1.3"}, Published: true}))

	sum, err := e.Run(context.Background(), db, []moddb.Observation{
		{StableID: "Known.Mod", RemoteID: "1", Versions: []string{"1.4"}},
		{StableID: "new.mod", RemoteID: "2", Versions: []string{"1.4"}},
		{StableID: "bad", RemoteID: "abc", Versions: []string{"1.4"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"2"}, looked)
	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, []string{"1.4"}, db.Get("known.mod", "1").Versions)
	assert.True(t, db.Get("known.mod", "1").Published)
}

func TestEngineRunTwiceIsStable(t *testing.T) {
	e, _ := newTestEngine(func(ctx context.Context, id string) (*steam.Details, error) {
		return &steam.Details{RemoteID: id, Tags: []string{"1.5"}}, nil
	})
	db := moddb.New()
	obs := []moddb.Observation{{StableID: "s", RemoteID: "9", Versions: []string{"1.5"}}}

	_, err := e.Run(context.Background(), db, obs)
	require.NoError(t, err)
	sum, err := e.Run(context.Background(), db, obs)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Unchanged)
	assert.Empty(t, sum.Changes)
	assert.Equal(t, []string{"1.5"}, db.Get("s", "9").Versions)
}

func TestEngineRejectsNilDatabase(t *testing.T) {
	e, _ := newTestEngine(nil)
	_, err := e.Run(context.Background(), nil, nil)
	assert.Error(t, err)
}
