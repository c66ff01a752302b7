// Package moddb holds the community mod database: one record per
// (stable id, remote id) pair describing a mod's name, authors and the game
// versions it supports.
package moddb

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRemoteID is returned when a remote identifier is not a digit string.
var ErrInvalidRemoteID = errors.New("remote id must be a non-empty digit string")

// ModRecord is the stored metadata for one published copy of a mod.
type ModRecord struct {
	Name      string   `json:"name"`
	Authors   string   `json:"authors"`
	Versions  []string `json:"versions"`
	Published bool     `json:"published"`
}

// Observation is a mod as seen on disk by the local scan.
type Observation struct {
	StableID string
	RemoteID string
	Name     string
	Authors  string
	Versions []string
}

// Database maps a lower-cased stable id to the records published under it,
// keyed by remote id. One mod package can be republished under several
// remote ids, hence the second level.
type Database struct {
	Mods map[string]map[string]*ModRecord `json:"mods"`
}

// New returns an empty database.
func New() *Database {
	return &Database{Mods: make(map[string]map[string]*ModRecord)}
}

// NormalizeStableID lower-cases and trims a stable identifier.
func NormalizeStableID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ValidRemoteID reports whether id is a non-empty digit string.
func ValidRemoteID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Get returns the record for the pair, or nil.
func (d *Database) Get(stableID, remoteID string) *ModRecord {
	byRemote, ok := d.Mods[NormalizeStableID(stableID)]
	if !ok {
		return nil
	}
	return byRemote[remoteID]
}

// Put stores rec under the pair, creating the stable id bucket if needed.
func (d *Database) Put(stableID, remoteID string, rec *ModRecord) error {
	if !ValidRemoteID(remoteID) {
		return fmt.Errorf("put %s/%q: %w", stableID, remoteID, ErrInvalidRemoteID)
	}
	if d.Mods == nil {
		d.Mods = make(map[string]map[string]*ModRecord)
	}
	key := NormalizeStableID(stableID)
	byRemote, ok := d.Mods[key]
	if !ok {
		byRemote = make(map[string]*ModRecord)
		d.Mods[key] = byRemote
	}
	byRemote[remoteID] = rec
	return nil
}

// Delete removes the pair and drops the stable id bucket when it empties.
// It reports whether anything was removed.
func (d *Database) Delete(stableID, remoteID string) bool {
	key := NormalizeStableID(stableID)
	byRemote, ok := d.Mods[key]
	if !ok {
		return false
	}
	if _, ok := byRemote[remoteID]; !ok {
		return false
	}
	delete(byRemote, remoteID)
	if len(byRemote) == 0 {
		delete(d.Mods, key)
	}
	return true
}

// Len counts records across all stable ids.
func (d *Database) Len() int {
	n := 0
	for _, byRemote := range d.Mods {
		n += len(byRemote)
	}
	return n
}

// normalize folds stable ids to lower case, merging buckets that collide,
// and replaces nil records with empty ones.
func (d *Database) normalize() {
	if d.Mods == nil {
		d.Mods = make(map[string]map[string]*ModRecord)
		return
	}
	for key, byRemote := range d.Mods {
		norm := NormalizeStableID(key)
		for remoteID, rec := range byRemote {
			if rec == nil {
				byRemote[remoteID] = &ModRecord{}
			}
		}
		if norm == key {
			continue
		}
		delete(d.Mods, key)
		target, ok := d.Mods[norm]
		if !ok {
			d.Mods[norm] = byRemote
			continue
		}
		for remoteID, rec := range byRemote {
			if _, exists := target[remoteID]; !exists {
				target[remoteID] = rec
			}
		}
	}
}
