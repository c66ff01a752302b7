// Package replacements manages the mapping from outdated mods to the mods
// that replace them.
package replacements

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"moddb-curator/jsonfile"
	"moddb-curator/moddb"
)

const fileIndent = 2

var (
	ErrNotFound = errors.New("not found")
	ErrRejected = errors.New("replacement rejected")
)

// Entry is one replacement relationship, denormalised so the file can be
// read without the database.
type Entry struct {
	Author              string `json:"Author"`
	ModID               string `json:"ModId"`
	ModName             string `json:"ModName"`
	Versions            string `json:"Versions"`
	SteamID             string `json:"SteamId"`
	ReplacementAuthor   string `json:"ReplacementAuthor"`
	ReplacementModID    string `json:"ReplacementModId"`
	ReplacementName     string `json:"ReplacementName"`
	ReplacementSteamID  string `json:"ReplacementSteamId"`
	ReplacementVersions string `json:"ReplacementVersions"`
}

// Mapping is keyed by the original mod's remote id.
type Mapping struct {
	Mods map[string]Entry `json:"mods"`
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{Mods: make(map[string]Entry)}
}

// Load reads a mapping file. A missing file yields an empty mapping.
func Load(path string) (*Mapping, error) {
	m := NewMapping()
	if _, err := jsonfile.Read(path, m); err != nil {
		return nil, fmt.Errorf("failed to load replacements %s: %w", path, err)
	}
	if m.Mods == nil {
		m.Mods = make(map[string]Entry)
	}
	return m, nil
}

// Save rewrites the mapping file.
func Save(path string, m *Mapping) error {
	if err := jsonfile.Write(path, m, fileIndent); err != nil {
		return fmt.Errorf("failed to save replacements %s: %w", path, err)
	}
	return nil
}

// IDs returns the original remote ids in sorted order.
func (m *Mapping) IDs() []string {
	ids := make([]string, 0, len(m.Mods))
	for id := range m.Mods {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone copies the mapping.
func (m *Mapping) Clone() *Mapping {
	out := &Mapping{Mods: make(map[string]Entry, len(m.Mods))}
	for id, e := range m.Mods {
		out.Mods[id] = e
	}
	return out
}

// NewEntry builds the stored form of a relationship from two database
// records.
func NewEntry(original, replacement moddb.Entry) Entry {
	return Entry{
		Author:              joinAuthors(original.Record.Authors),
		ModID:               original.StableID,
		ModName:             original.Record.Name,
		Versions:            strings.Join(original.Record.Versions, ","),
		SteamID:             original.RemoteID,
		ReplacementAuthor:   joinAuthors(replacement.Record.Authors),
		ReplacementModID:    replacement.StableID,
		ReplacementName:     replacement.Record.Name,
		ReplacementSteamID:  replacement.RemoteID,
		ReplacementVersions: strings.Join(replacement.Record.Versions, ","),
	}
}

func joinAuthors(raw string) string {
	var parts []string
	for _, a := range strings.Split(raw, ",") {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, ", ")
}
