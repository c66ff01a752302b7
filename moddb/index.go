package moddb

import (
	"sort"

	"moddb-curator/version"
)

// Entry is one record located through the Index.
type Entry struct {
	StableID string
	RemoteID string
	Record   *ModRecord
}

// Collision reports a remote id stored under more than one stable id. Kept
// is the entry the index resolves the remote id to.
type Collision struct {
	RemoteID string
	Kept     Entry
	Shadowed []Entry
}

// Index is a flat view of a Database keyed by remote id. It is built once
// with BuildIndex and does not follow later changes to the database; build a
// new one after mutating.
type Index struct {
	byRemote   map[string]Entry
	byStable   map[string][]Entry
	collisions []Collision
}

// BuildIndex flattens db. Records stored under a non-digit remote id are
// left out.
//
// A remote id stored under several stable ids (a mod that changed its
// package id) resolves to the published record first, then to the one with
// the newest version, then to the lowest stable id. Every such remote id is
// reported by Collisions.
func BuildIndex(db *Database) *Index {
	idx := &Index{
		byRemote: make(map[string]Entry),
		byStable: make(map[string][]Entry),
	}
	if db == nil {
		return idx
	}

	stableIDs := make([]string, 0, len(db.Mods))
	for stableID := range db.Mods {
		stableIDs = append(stableIDs, stableID)
	}
	sort.Strings(stableIDs)

	candidates := make(map[string][]Entry)
	var remoteIDs []string
	for _, stableID := range stableIDs {
		for remoteID, rec := range db.Mods[stableID] {
			if !ValidRemoteID(remoteID) || rec == nil {
				continue
			}
			e := Entry{StableID: stableID, RemoteID: remoteID, Record: rec}
			if _, seen := candidates[remoteID]; !seen {
				remoteIDs = append(remoteIDs, remoteID)
			}
			candidates[remoteID] = append(candidates[remoteID], e)
			idx.byStable[stableID] = append(idx.byStable[stableID], e)
		}
	}
	sort.Strings(remoteIDs)

	for _, remoteID := range remoteIDs {
		entries := candidates[remoteID]
		best := 0
		for i := 1; i < len(entries); i++ {
			if preferred(entries[i], entries[best]) {
				best = i
			}
		}
		idx.byRemote[remoteID] = entries[best]
		if len(entries) > 1 {
			c := Collision{RemoteID: remoteID, Kept: entries[best]}
			for i, e := range entries {
				if i != best {
					c.Shadowed = append(c.Shadowed, e)
				}
			}
			idx.collisions = append(idx.collisions, c)
		}
	}

	for _, entries := range idx.byStable {
		sort.Slice(entries, func(a, b int) bool { return entries[a].RemoteID < entries[b].RemoteID })
	}
	return idx
}

// preferred reports whether a should win over b for the same remote id.
// Candidates arrive in stable id order, so b already wins a full tie.
func preferred(a, b Entry) bool {
	if a.Record.Published != b.Record.Published {
		return a.Record.Published
	}
	return version.Compare(version.MaxOf(a.Record.Versions), version.MaxOf(b.Record.Versions)) > 0
}

// Len is the number of indexed remote ids.
func (i *Index) Len() int {
	return len(i.byRemote)
}

// Collisions lists the remote ids found under more than one stable id, in
// remote id order.
func (i *Index) Collisions() []Collision {
	return i.collisions
}

// Lookup finds the record published under remoteID.
func (i *Index) Lookup(remoteID string) (Entry, bool) {
	e, ok := i.byRemote[remoteID]
	return e, ok
}

// Resolve finds a record for a stable id, preferring a published copy when
// the mod exists under several remote ids.
func (i *Index) Resolve(stableID string) (Entry, bool) {
	entries := i.byStable[NormalizeStableID(stableID)]
	if len(entries) == 0 {
		return Entry{}, false
	}
	for _, e := range entries {
		if e.Record.Published {
			return e, true
		}
	}
	return entries[0], true
}

// RemoteIDs lists the remote ids published under stableID.
func (i *Index) RemoteIDs(stableID string) []string {
	entries := i.byStable[NormalizeStableID(stableID)]
	out := make([]string, len(entries))
	for n, e := range entries {
		out[n] = e.RemoteID
	}
	return out
}
