package reconcile

import (
	"moddb-curator/moddb"
	"moddb-curator/version"
)

// Action is the outcome of merging one local observation.
type Action string

const (
	ActionInsert  Action = "insert"
	ActionReplace Action = "replace"
	ActionNoop    Action = "noop"
)

const (
	ReasonNew       = "new mod observed"
	ReasonEmptyObs  = "observed version list is empty"
	ReasonPopulate  = "populated empty version list"
	ReasonNewer     = "newer version observed"
	ReasonPrecise   = "more precise (fewer, equally-maximal) versions"
	ReasonUnchanged = "stored versions are current"
	ReasonSameSet   = "observed versions match stored versions"
)

// Decision describes what Merge decided for one observation.
type Decision struct {
	Action Action
	Reason string
	// Record is the record to store: a new one for an insert, the existing
	// one (possibly updated in place) otherwise.
	Record *moddb.ModRecord
	// Enrich is set when the record should be looked up remotely.
	Enrich bool
	// Previous holds the stored versions before a replace.
	Previous []string
}

// Merge decides how obs affects the stored record existing (nil when the
// stable id / remote id pair is unknown). A replace mutates existing in
// place, and only when the version set actually changes.
func Merge(existing *moddb.ModRecord, obs moddb.Observation) Decision {
	if existing == nil {
		return Decision{
			Action: ActionInsert,
			Reason: ReasonNew,
			Record: &moddb.ModRecord{
				Name:     obs.Name,
				Authors:  obs.Authors,
				Versions: version.Sort(obs.Versions),
			},
			Enrich: true,
		}
	}

	noop := func(reason string) Decision {
		return Decision{Action: ActionNoop, Reason: reason, Record: existing}
	}

	if version.Distinct(obs.Versions) == 0 {
		return noop(ReasonEmptyObs)
	}

	var reason string
	switch {
	case version.Distinct(existing.Versions) == 0:
		reason = ReasonPopulate
	default:
		observedMax := version.MaxOf(obs.Versions)
		storedMax := version.MaxOf(existing.Versions)
		switch c := version.Compare(observedMax, storedMax); {
		case c > 0:
			reason = ReasonNewer
		case c == 0 && version.Distinct(obs.Versions) < version.Distinct(existing.Versions):
			reason = ReasonPrecise
		default:
			return noop(ReasonUnchanged)
		}
	}

	if version.SameSet(obs.Versions, existing.Versions) {
		return noop(ReasonSameSet)
	}

	previous := existing.Versions
	existing.Versions = version.Sort(obs.Versions)
	return Decision{
		Action:   ActionReplace,
		Reason:   reason,
		Record:   existing,
		Previous: previous,
	}
}
