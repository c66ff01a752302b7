package rules

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"moddb-curator/jsonfile"
	"moddb-curator/moddb"
)

const fileIndent = 4

// StringList decodes from either a JSON string or an array of strings.
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = StringList{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*s = list
	return nil
}

func (s StringList) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

type dependencyJSON struct {
	Name    StringList `json:"name"`
	Comment StringList `json:"comment"`
}

type incompatibilityJSON struct {
	HardIncompatibility bool       `json:"hardIncompatibility"`
	Comment             StringList `json:"comment"`
	Name                StringList `json:"name"`
}

type ruleJSON struct {
	LoadBefore        map[string]dependencyJSON      `json:"loadBefore,omitempty"`
	LoadAfter         map[string]dependencyJSON      `json:"loadAfter,omitempty"`
	LoadBottom        *BottomRule                    `json:"loadBottom,omitempty"`
	Incompatibilities map[string]incompatibilityJSON `json:"incompatibilities,omitempty"`
	SupportedVersions StringList                     `json:"supportedVersions,omitempty"`
}

func (r *Rule) MarshalJSON() ([]byte, error) {
	out := ruleJSON{
		LoadBottom:        r.LoadBottom,
		SupportedVersions: r.SupportedVersions,
	}
	for id, ref := range r.Refs {
		switch ref.Bucket {
		case LoadBefore:
			if out.LoadBefore == nil {
				out.LoadBefore = make(map[string]dependencyJSON)
			}
			out.LoadBefore[id] = dependencyJSON{Name: ref.Name, Comment: ref.Comment}
		case LoadAfter:
			if out.LoadAfter == nil {
				out.LoadAfter = make(map[string]dependencyJSON)
			}
			out.LoadAfter[id] = dependencyJSON{Name: ref.Name, Comment: ref.Comment}
		case Incompatibilities:
			if out.Incompatibilities == nil {
				out.Incompatibilities = make(map[string]incompatibilityJSON)
			}
			out.Incompatibilities[id] = incompatibilityJSON{
				HardIncompatibility: ref.HardIncompatibility,
				Comment:             ref.Comment,
				Name:                ref.Name,
			}
		}
	}
	return json.Marshal(out)
}

// DroppedRef is a reference left out on load because its id was already
// listed in another bucket of the same rule.
type DroppedRef struct {
	Owner  string
	ID     string
	Bucket Bucket
	KeptIn Bucket
}

// UnmarshalJSON reads the three-bucket file shape. An id found in more than
// one bucket keeps the first one in file order (loadBefore, loadAfter,
// incompatibilities); the others are recorded as dropped.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r.Refs = make(map[string]Reference)
	r.LoadBottom = in.LoadBottom
	r.SupportedVersions = in.SupportedVersions
	r.dropped = nil

	put := func(id string, ref Reference) {
		id = moddb.NormalizeStableID(id)
		if kept, taken := r.Refs[id]; taken {
			r.dropped = append(r.dropped, DroppedRef{ID: id, Bucket: ref.Bucket, KeptIn: kept.Bucket})
			return
		}
		r.Refs[id] = ref
	}
	for _, id := range sortedKeys(in.LoadBefore) {
		d := in.LoadBefore[id]
		put(id, Reference{Bucket: LoadBefore, Name: d.Name, Comment: d.Comment})
	}
	for _, id := range sortedKeys(in.LoadAfter) {
		d := in.LoadAfter[id]
		put(id, Reference{Bucket: LoadAfter, Name: d.Name, Comment: d.Comment})
	}
	for _, id := range sortedKeys(in.Incompatibilities) {
		d := in.Incompatibilities[id]
		put(id, Reference{
			Bucket:              Incompatibilities,
			Name:                d.Name,
			Comment:             d.Comment,
			HardIncompatibility: d.HardIncompatibility,
		})
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Document is the whole rules file.
type Document struct {
	Timestamp int64            `json:"timestamp"`
	Rules     map[string]*Rule `json:"rules"`

	// Dropped lists the references Load could not keep, ordered by owner
	// then id. Saving the document removes them from the file.
	Dropped []DroppedRef `json:"-"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Rules: make(map[string]*Rule)}
}

// Get returns the rule for the owning mod, or nil.
func (d *Document) Get(owner string) *Rule {
	return d.Rules[moddb.NormalizeStableID(owner)]
}

// GetOrNew returns the owner's rule, creating an empty one if needed. The
// second result reports whether the rule already existed.
func (d *Document) GetOrNew(owner string) (*Rule, bool) {
	key := moddb.NormalizeStableID(owner)
	if r, ok := d.Rules[key]; ok && r != nil {
		return r, true
	}
	r := NewRule()
	d.Rules[key] = r
	return r, false
}

// Delete removes the owner's rule and reports whether it existed.
func (d *Document) Delete(owner string) bool {
	key := moddb.NormalizeStableID(owner)
	if _, ok := d.Rules[key]; !ok {
		return false
	}
	delete(d.Rules, key)
	return true
}

// Load reads a rules file, lower-casing owner ids. A missing file yields an
// empty document.
func Load(path string) (*Document, error) {
	var raw Document
	if _, err := jsonfile.Read(path, &raw); err != nil {
		return nil, fmt.Errorf("failed to load rules %s: %w", path, err)
	}
	doc := NewDocument()
	doc.Timestamp = raw.Timestamp
	for owner, r := range raw.Rules {
		if r == nil {
			r = NewRule()
		}
		key := moddb.NormalizeStableID(owner)
		doc.Rules[key] = r
		for _, d := range r.dropped {
			d.Owner = key
			doc.Dropped = append(doc.Dropped, d)
		}
		r.dropped = nil
	}
	sort.Slice(doc.Dropped, func(i, j int) bool {
		a, b := doc.Dropped[i], doc.Dropped[j]
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.Bucket < b.Bucket
	})
	return doc, nil
}

// Save stamps the document with now and rewrites the rules file.
func Save(path string, doc *Document, now time.Time) error {
	doc.Timestamp = now.Unix()
	if err := jsonfile.Write(path, doc, fileIndent); err != nil {
		return fmt.Errorf("failed to save rules %s: %w", path, err)
	}
	return nil
}
