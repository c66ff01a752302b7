package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"moddb-curator/moddb"

	"go.uber.org/zap"
)

// EventKind identifies what an Event reports.
type EventKind string

const (
	EventLog           EventKind = "log"
	EventFetchStart    EventKind = "fetch_start"
	EventFetchProgress EventKind = "fetch_progress"
)

// Level tags a log event for display.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Event is a notification emitted while the engine runs. Events are for
// display only; the engine does not depend on anyone consuming them.
type Event struct {
	Kind    EventKind
	Level   Level
	Message string
	Done    int
	Total   int
}

// Change records one mutation made to the database during a run.
type Change struct {
	StableID     string
	RemoteID     string
	Action       string
	Reason       string
	OldVersions  []string
	NewVersions  []string
	OldPublished bool
	NewPublished bool
}

const (
	ChangeInsert       = "insert"
	ChangeReplace      = "replace"
	ChangeEnrich       = "enrich"
	ChangeEnrichFailed = "enrich_failed"
)

// Summary counts what a run did.
type Summary struct {
	Observed  int
	Skipped   int
	Inserted  int
	Updated   int
	Unchanged int
	Enriched  int
	Failed    int
	Changes   []Change
}

// Engine reconciles local observations into a database and enriches new
// records from the remote source.
type Engine struct {
	Fetcher *Fetcher
	Log     *zap.SugaredLogger
	// Events receives progress and log notifications; may be nil.
	Events func(Event)
}

type pending struct {
	stableID string
	record   *moddb.ModRecord
}

func (e *Engine) emit(ev Event) {
	if e.Events != nil {
		e.Events(ev)
	}
}

func (e *Engine) logf(level Level, format string, args ...any) {
	e.emit(Event{Kind: EventLog, Level: level, Message: fmt.Sprintf(format, args...)})
}

// Run merges every observation into db, looks up the newly inserted records
// and applies the results. db is mutated in place; persisting it is up to
// the caller. Individual failures are counted, never returned.
func (e *Engine) Run(ctx context.Context, db *moddb.Database, observations []moddb.Observation) (Summary, error) {
	if db == nil {
		return Summary{}, errors.New("reconcile: nil database")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var sum Summary
	var worklist []string
	queued := make(map[string]pending)

	for _, obs := range observations {
		sum.Observed++
		stableID := moddb.NormalizeStableID(obs.StableID)
		if stableID == "" || !moddb.ValidRemoteID(obs.RemoteID) {
			sum.Skipped++
			log.Warnw("Skipping observation with invalid identifiers",
				zap.String("stable_id", obs.StableID),
				zap.String("remote_id", obs.RemoteID),
			)
			continue
		}

		d := Merge(db.Get(stableID, obs.RemoteID), obs)
		switch d.Action {
		case ActionInsert:
			if err := db.Put(stableID, obs.RemoteID, d.Record); err != nil {
				return sum, err
			}
			sum.Inserted++
			sum.Changes = append(sum.Changes, Change{
				StableID:    stableID,
				RemoteID:    obs.RemoteID,
				Action:      ChangeInsert,
				Reason:      d.Reason,
				NewVersions: slices.Clone(d.Record.Versions),
			})
			if _, ok := queued[obs.RemoteID]; !ok {
				worklist = append(worklist, obs.RemoteID)
			}
			queued[obs.RemoteID] = pending{stableID: stableID, record: d.Record}
			log.Infow("New mod entry", zap.String("stable_id", stableID), zap.String("remote_id", obs.RemoteID))

		case ActionReplace:
			sum.Updated++
			sum.Changes = append(sum.Changes, Change{
				StableID:     stableID,
				RemoteID:     obs.RemoteID,
				Action:       ChangeReplace,
				Reason:       d.Reason,
				OldVersions:  d.Previous,
				NewVersions:  slices.Clone(d.Record.Versions),
				OldPublished: d.Record.Published,
				NewPublished: d.Record.Published,
			})
			e.logf(LevelSuccess, "Update '%s': replacing versions because %s.", stableID, d.Reason)
			log.Infow("Replaced versions",
				zap.String("stable_id", stableID),
				zap.String("remote_id", obs.RemoteID),
				zap.String("reason", d.Reason),
			)

		default:
			sum.Unchanged++
		}
	}

	if len(worklist) == 0 {
		e.logf(LevelInfo, "No new mods to check against the remote service.")
		return sum, nil
	}
	if e.Fetcher == nil || e.Fetcher.Lookup == nil {
		return sum, errors.New("reconcile: no fetcher configured")
	}

	e.logf(LevelInfo, "Found %d new mods. Fetching details...", len(worklist))
	e.emit(Event{Kind: EventFetchStart, Total: len(worklist)})

	fetcher := *e.Fetcher
	if fetcher.Log == nil {
		fetcher.Log = log
	}
	userProgress := e.Fetcher.OnProgress
	fetcher.OnProgress = func(done, total int) {
		if userProgress != nil {
			userProgress(done, total)
		}
		e.emit(Event{Kind: EventFetchProgress, Done: done, Total: total})
	}

	for _, res := range fetcher.FetchAll(ctx, worklist) {
		item, ok := queued[res.RemoteID]
		if !ok {
			continue
		}
		oldVersions := slices.Clone(item.record.Versions)
		oldPublished := item.record.Published

		Apply(item.record, res.Details)

		change := Change{
			StableID:     item.stableID,
			RemoteID:     res.RemoteID,
			OldVersions:  oldVersions,
			NewVersions:  slices.Clone(item.record.Versions),
			OldPublished: oldPublished,
			NewPublished: item.record.Published,
		}
		if res.Found() {
			sum.Enriched++
			change.Action = ChangeEnrich
			change.Reason = "remote details found"
		} else {
			sum.Failed++
			change.Action = ChangeEnrichFailed
			change.Reason = "remote details unavailable"
			if res.Err != nil {
				change.Reason = res.Err.Error()
			}
		}
		sum.Changes = append(sum.Changes, change)
	}

	e.logf(LevelSuccess, "Successfully enriched: %d mods", sum.Enriched)
	failedLevel := LevelInfo
	if sum.Failed > 0 {
		failedLevel = LevelError
	}
	e.logf(failedLevel, "Failed to enrich: %d mods", sum.Failed)
	return sum, nil
}
