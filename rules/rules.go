// Package rules holds per-mod load-order and compatibility rules.
//
// Each owning mod lists other mods (by stable id) in exactly one of three
// buckets: load before, load after, or incompatible. A Rule stores all of
// them in a single map keyed by the referenced id, so an id can never sit in
// two buckets at once.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"moddb-curator/moddb"
	"moddb-curator/version"
)

// Bucket names a relationship list.
type Bucket string

const (
	LoadBefore        Bucket = "loadBefore"
	LoadAfter         Bucket = "loadAfter"
	Incompatibilities Bucket = "incompatibilities"
)

// Buckets lists every bucket in file order.
var Buckets = []Bucket{LoadBefore, LoadAfter, Incompatibilities}

var (
	ErrDuplicate     = errors.New("already listed")
	ErrConflict      = errors.New("listed in another bucket")
	ErrNotFound      = errors.New("not listed")
	ErrUnknownBucket = errors.New("unknown bucket")
)

// ConflictError reports that a candidate already sits in a different bucket.
type ConflictError struct {
	ID     string
	Bucket Bucket
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("'%s' is already listed in %s; a mod can only be in one rule list", e.ID, e.Bucket)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ParseBucket accepts a bucket name or its short form (before, after,
// incompatible).
func ParseBucket(s string) (Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loadbefore", "before":
		return LoadBefore, nil
	case "loadafter", "after":
		return LoadAfter, nil
	case "incompatibilities", "incompatible", "incompatibility":
		return Incompatibilities, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownBucket, s)
}

// Reference is one referenced mod in a rule.
type Reference struct {
	Bucket  Bucket
	Name    []string
	Comment []string
	// HardIncompatibility only applies to the incompatibilities bucket.
	HardIncompatibility bool
}

// BottomRule pins the owning mod to the end of the load order.
type BottomRule struct {
	Value   bool       `json:"value"`
	Comment StringList `json:"comment"`
}

// Rule is the full rule set of one owning mod.
type Rule struct {
	Refs              map[string]Reference
	LoadBottom        *BottomRule
	SupportedVersions []string

	dropped []DroppedRef
}

// NewRule returns an empty rule.
func NewRule() *Rule {
	return &Rule{Refs: make(map[string]Reference)}
}

// IsEmpty reports whether the rule carries nothing worth saving.
func (r *Rule) IsEmpty() bool {
	return len(r.Refs) == 0 && r.LoadBottom == nil && len(r.SupportedVersions) == 0
}

// In returns the ids in bucket, sorted.
func (r *Rule) In(bucket Bucket) []string {
	var ids []string
	for id, ref := range r.Refs {
		if ref.Bucket == bucket {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Validate checks whether candidate may be placed in target. A candidate
// already in target is a duplicate unless excludingSelf says it is the
// entry being edited; a candidate in any other bucket is a conflict naming
// that bucket.
func (r *Rule) Validate(candidate string, target Bucket, excludingSelf bool) error {
	id := moddb.NormalizeStableID(candidate)
	existing, ok := r.Refs[id]
	if !ok {
		return nil
	}
	if existing.Bucket == target {
		if excludingSelf {
			return nil
		}
		return fmt.Errorf("'%s' in %s: %w", id, target, ErrDuplicate)
	}
	return &ConflictError{ID: id, Bucket: existing.Bucket}
}

// Add lists id in ref.Bucket.
func (r *Rule) Add(id string, ref Reference) error {
	id = moddb.NormalizeStableID(id)
	if id == "" {
		return errors.New("referenced id must not be empty")
	}
	if err := checkBucket(ref.Bucket); err != nil {
		return err
	}
	if err := r.Validate(id, ref.Bucket, false); err != nil {
		return err
	}
	r.set(id, ref)
	return nil
}

// Edit replaces the entry oldID in ref.Bucket, optionally renaming it to
// newID. The id is only re-validated when it changes.
func (r *Rule) Edit(oldID, newID string, ref Reference) error {
	oldID = moddb.NormalizeStableID(oldID)
	newID = moddb.NormalizeStableID(newID)
	if newID == "" {
		newID = oldID
	}
	existing, ok := r.Refs[oldID]
	if !ok || existing.Bucket != ref.Bucket {
		return fmt.Errorf("'%s' in %s: %w", oldID, ref.Bucket, ErrNotFound)
	}
	if newID != oldID {
		if err := r.Validate(newID, ref.Bucket, false); err != nil {
			return err
		}
		delete(r.Refs, oldID)
	}
	r.set(newID, ref)
	return nil
}

// Remove drops id from bucket.
func (r *Rule) Remove(bucket Bucket, id string) error {
	id = moddb.NormalizeStableID(id)
	existing, ok := r.Refs[id]
	if !ok || existing.Bucket != bucket {
		return fmt.Errorf("'%s' in %s: %w", id, bucket, ErrNotFound)
	}
	delete(r.Refs, id)
	return nil
}

// SetLoadBottom sets or clears the load-bottom flag.
func (r *Rule) SetLoadBottom(value bool, comment []string) {
	if !value {
		r.LoadBottom = nil
		return
	}
	r.LoadBottom = &BottomRule{Value: true, Comment: comment}
}

// SetSupportedVersions replaces the supported versions, sorted by version.
func (r *Rule) SetSupportedVersions(versions []string) {
	r.SupportedVersions = version.Sort(versions)
}

func (r *Rule) set(id string, ref Reference) {
	if r.Refs == nil {
		r.Refs = make(map[string]Reference)
	}
	if ref.Bucket != Incompatibilities {
		ref.HardIncompatibility = false
	}
	r.Refs[id] = ref
}

func checkBucket(b Bucket) error {
	for _, known := range Buckets {
		if b == known {
			return nil
		}
	}
	return fmt.Errorf("%w %q", ErrUnknownBucket, b)
}
