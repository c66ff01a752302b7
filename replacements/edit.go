package replacements

import (
	"fmt"
	"strings"

	"moddb-curator/moddb"
	"moddb-curator/version"
)

// Mode is the edit an assessed pair allows.
type Mode string

const (
	ModeAdd    Mode = "add"
	ModeChange Mode = "change"
	ModeRemove Mode = "remove"
)

// Assessment is the outcome of checking a proposed original/replacement
// pair against the database and the current mapping.
type Assessment struct {
	Original    moddb.Entry
	Replacement moddb.Entry

	BothPublished   bool
	NewRelationship bool
	UpToDate        bool

	Mode Mode
}

// Assess looks both mods up in idx and evaluates the relationship rules:
// both mods must be published, the original must not already be replaced,
// and the replacement must support at least the original's newest version.
func (m *Mapping) Assess(idx *moddb.Index, originalID, replacementID string) (Assessment, error) {
	original, ok := idx.Lookup(originalID)
	if !ok {
		return Assessment{}, fmt.Errorf("original %s: %w in database", originalID, ErrNotFound)
	}
	replacement, ok := idx.Lookup(replacementID)
	if !ok {
		return Assessment{}, fmt.Errorf("replacement %s: %w in database", replacementID, ErrNotFound)
	}

	upToDate := version.Compare(
		version.MaxOf(replacement.Record.Versions),
		version.MaxOf(original.Record.Versions),
	) >= 0

	a := Assessment{
		Original:        original,
		Replacement:     replacement,
		BothPublished:   original.Record.Published && replacement.Record.Published,
		NewRelationship: true,
		UpToDate:        upToDate,
		Mode:            ModeAdd,
	}

	if existing, ok := m.Mods[originalID]; ok {
		a.NewRelationship = false
		if existing.ReplacementSteamID == replacementID {
			a.Mode = ModeRemove
		} else {
			a.Mode = ModeChange
		}
	}
	return a, nil
}

// Problems lists the rules the assessment fails for its mode.
func (a Assessment) Problems() []string {
	var problems []string
	if a.Mode == ModeRemove {
		return nil
	}
	if !a.BothPublished {
		problems = append(problems, "both mods must be published")
	}
	if a.Mode == ModeAdd && !a.NewRelationship {
		problems = append(problems, "relationship already exists")
	}
	if !a.UpToDate {
		problems = append(problems, fmt.Sprintf("replacement is not up to date (%s < %s)",
			version.MaxOf(a.Replacement.Record.Versions), version.MaxOf(a.Original.Record.Versions)))
	}
	return problems
}

// Allowed reports whether the assessment's mode may be applied.
func (a Assessment) Allowed() bool {
	return len(a.Problems()) == 0
}

func (a Assessment) require(mode Mode) error {
	if a.Mode != mode {
		return fmt.Errorf("%w: pair calls for %s, not %s", ErrRejected, a.Mode, mode)
	}
	if problems := a.Problems(); len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrRejected, strings.Join(problems, "; "))
	}
	return nil
}

// Add stores a new relationship.
func (m *Mapping) Add(a Assessment) error {
	if err := a.require(ModeAdd); err != nil {
		return err
	}
	m.Mods[a.Original.RemoteID] = NewEntry(a.Original, a.Replacement)
	return nil
}

// Change points an existing original at a different replacement.
func (m *Mapping) Change(a Assessment) error {
	if err := a.require(ModeChange); err != nil {
		return err
	}
	m.Mods[a.Original.RemoteID] = NewEntry(a.Original, a.Replacement)
	return nil
}

// Remove deletes the relationship for originalID.
func (m *Mapping) Remove(originalID string) error {
	if _, ok := m.Mods[originalID]; !ok {
		return fmt.Errorf("replacement for %s: %w", originalID, ErrNotFound)
	}
	delete(m.Mods, originalID)
	return nil
}
