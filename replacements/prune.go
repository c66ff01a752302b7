package replacements

import (
	"fmt"

	"moddb-curator/moddb"
	"moddb-curator/version"
)

// Diagnostic explains what Prune did with one entry.
type Diagnostic struct {
	RemoteID string
	Name     string
	Kept     bool
	Reason   string
}

const (
	ReasonMissingReference  = "missing reference, kept defensively"
	ReasonOriginalAbsent    = "original absent from database"
	ReasonReplacementAbsent = "replacement absent from database"
)

// Prune drops the entries whose original mod now supports a newer game
// version than its replacement. Entries that cannot be checked against the
// database are kept. The input mapping is not modified.
//
// Pruning its own output again removes nothing.
func Prune(m *Mapping, idx *moddb.Index) (*Mapping, []Diagnostic) {
	kept := NewMapping()
	var diags []Diagnostic

	for _, id := range m.IDs() {
		entry := m.Mods[id]
		keep := func(reason string) {
			kept.Mods[id] = entry
			diags = append(diags, Diagnostic{RemoteID: id, Name: entry.ModName, Kept: true, Reason: reason})
		}

		if entry.ReplacementSteamID == "" {
			keep(ReasonMissingReference)
			continue
		}
		original, ok := idx.Lookup(id)
		if !ok {
			keep(ReasonOriginalAbsent)
			continue
		}
		replacement, ok := idx.Lookup(entry.ReplacementSteamID)
		if !ok {
			keep(ReasonReplacementAbsent)
			continue
		}

		origMax := version.MaxOf(original.Record.Versions)
		replMax := version.MaxOf(replacement.Record.Versions)
		if version.Compare(origMax, replMax) > 0 {
			diags = append(diags, Diagnostic{
				RemoteID: id,
				Name:     entry.ModName,
				Reason:   fmt.Sprintf("original version is newer than replacement: %s > %s", origMax, replMax),
			})
			continue
		}
		kept.Mods[id] = entry
	}
	return kept, diags
}

// Removed filters diags down to the entries Prune dropped.
func Removed(diags []Diagnostic) []Diagnostic {
	var out []Diagnostic
	for _, d := range diags {
		if !d.Kept {
			out = append(out, d)
		}
	}
	return out
}
