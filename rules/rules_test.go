package rules

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	r := NewRule()
	require.NoError(t, r.Add("x.y", Reference{Bucket: LoadAfter, Name: []string{"XY"}}))
	require.NoError(t, r.Add("a.b", Reference{Bucket: LoadBefore}))

	tests := []struct {
		name          string
		candidate     string
		target        Bucket
		excludingSelf bool
		wantErr       error
		wantBucket    Bucket
	}{
		{name: "unlisted id", candidate: "new.mod", target: Incompatibilities},
		{name: "conflict names the other bucket", candidate: "x.y", target: Incompatibilities, wantErr: ErrConflict, wantBucket: LoadAfter},
		{name: "case-insensitive conflict", candidate: "X.Y", target: LoadBefore, wantErr: ErrConflict, wantBucket: LoadAfter},
		{name: "duplicate in same bucket", candidate: "a.b", target: LoadBefore, wantErr: ErrDuplicate},
		{name: "editing self is allowed", candidate: "a.b", target: LoadBefore, excludingSelf: true},
		{name: "excluding self does not hide conflicts", candidate: "a.b", target: LoadAfter, excludingSelf: true, wantErr: ErrConflict, wantBucket: LoadBefore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Validate(tt.candidate, tt.target, tt.excludingSelf)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantBucket != "" {
				var conflict *ConflictError
				require.True(t, errors.As(err, &conflict))
				assert.Equal(t, tt.wantBucket, conflict.Bucket)
				assert.Contains(t, err.Error(), string(tt.wantBucket))
			}
		})
	}
}

func TestAddRejectsIncompatibleLoadAfter(t *testing.T) {
	r := NewRule()
	require.NoError(t, r.Add("x.y", Reference{Bucket: LoadAfter}))

	err := r.Add("x.y", Reference{Bucket: Incompatibilities, HardIncompatibility: true})

	require.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "loadAfter")
	assert.Equal(t, []string{"x.y"}, r.In(LoadAfter))
	assert.Empty(t, r.In(Incompatibilities))
}

func TestEditAndRemove(t *testing.T) {
	r := NewRule()
	require.NoError(t, r.Add("one", Reference{Bucket: LoadBefore}))
	require.NoError(t, r.Add("two", Reference{Bucket: LoadBefore}))
	require.NoError(t, r.Add("three", Reference{Bucket: Incompatibilities}))

	require.NoError(t, r.Edit("one", "one", Reference{Bucket: LoadBefore, Comment: []string{"updated"}}))
	assert.Equal(t, []string{"updated"}, r.Refs["one"].Comment)

	assert.ErrorIs(t, r.Edit("one", "two", Reference{Bucket: LoadBefore}), ErrDuplicate)
	assert.ErrorIs(t, r.Edit("one", "three", Reference{Bucket: LoadBefore}), ErrConflict)
	assert.ErrorIs(t, r.Edit("one", "four", Reference{Bucket: LoadAfter}), ErrNotFound)

	require.NoError(t, r.Edit("one", "Four", Reference{Bucket: LoadBefore}))
	assert.Equal(t, []string{"four", "two"}, r.In(LoadBefore))

	assert.ErrorIs(t, r.Remove(LoadAfter, "two"), ErrNotFound)
	require.NoError(t, r.Remove(LoadBefore, "two"))
	assert.Equal(t, []string{"four"}, r.In(LoadBefore))
}

func TestHardIncompatibilityOnlyForIncompatibilities(t *testing.T) {
	r := NewRule()
	require.NoError(t, r.Add("dep", Reference{Bucket: LoadAfter, HardIncompatibility: true}))
	assert.False(t, r.Refs["dep"].HardIncompatibility)
}

func TestParseBucket(t *testing.T) {
	for in, want := range map[string]Bucket{
		"before":            LoadBefore,
		"loadAfter":         LoadAfter,
		"incompatible":      Incompatibilities,
		"Incompatibilities": Incompatibilities,
	} {
		got, err := ParseBucket(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseBucket("sideways")
	assert.ErrorIs(t, err, ErrUnknownBucket)
}

func TestRuleJSON(t *testing.T) {
	raw := `{
		"loadBefore": {"Core.Mod": {"name": "Core", "comment": ["first"]}},
		"loadAfter": {"core.mod": {"name": ["Dup"]}, "lib.mod": {"name": ["Lib"], "comment": "c"}},
		"loadBottom": {"value": true, "comment": "keep last"},
		"incompatibilities": {"bad.mod": {"hardIncompatibility": true, "name": "Bad"}},
		"supportedVersions": "1.5"
	}`

	var r Rule
	require.NoError(t, json.Unmarshal([]byte(raw), &r))

	assert.Equal(t, LoadBefore, r.Refs["core.mod"].Bucket, "first bucket wins")
	assert.Equal(t, []string{"Core"}, r.Refs["core.mod"].Name)
	assert.Equal(t, []string{"c"}, r.Refs["lib.mod"].Comment)
	assert.True(t, r.Refs["bad.mod"].HardIncompatibility)
	require.NotNil(t, r.LoadBottom)
	assert.Equal(t, []string{"keep last"}, []string(r.LoadBottom.Comment))
	assert.Equal(t, []string{"1.5"}, r.SupportedVersions)

	out, err := json.Marshal(&r)
	require.NoError(t, err)

	var shape map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &shape))
	assert.Contains(t, shape, "loadBefore")
	assert.Contains(t, shape, "loadAfter")
	assert.Contains(t, shape, "incompatibilities")
	assert.JSONEq(t, `{"hardIncompatibility": true, "comment": [], "name": ["Bad"]}`,
		string(mustField(t, shape["incompatibilities"], "bad.mod")))
}

func mustField(t *testing.T, data json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	v, ok := m[key]
	require.True(t, ok, key)
	return v
}

func TestEmptyRuleMarshalsToEmptyObject(t *testing.T) {
	out, err := json.Marshal(NewRule())
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(out))
}

func TestDocumentLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, doc.Rules)

	raw := `{"timestamp": 5, "rules": {"Owner.Mod": {"loadAfter": {"x.y": {"name": "XY", "comment": ""}}}}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	doc, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), doc.Timestamp)
	owner := doc.Get("owner.mod")
	require.NotNil(t, owner)
	assert.Equal(t, []string{"x.y"}, owner.In(LoadAfter))

	r, existed := doc.GetOrNew("other.mod")
	assert.False(t, existed)
	r.SetSupportedVersions([]string{"1.5", "1.4", "1.5"})
	r.SetLoadBottom(true, []string{"last"})

	now := time.Unix(1700000000, 0)
	require.NoError(t, Save(path, doc, now))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, now.Unix(), reloaded.Timestamp)
	assert.Equal(t, []string{"1.4", "1.5"}, reloaded.Get("other.mod").SupportedVersions)
	assert.True(t, reloaded.Get("other.mod").LoadBottom.Value)
	assert.Equal(t, []string{"x.y"}, reloaded.Get("owner.mod").In(LoadAfter))

	assert.True(t, reloaded.Delete("OTHER.mod"))
	assert.False(t, reloaded.Delete("other.mod"))

	require.NoError(t, os.WriteFile(path, []byte(`{"rules": []}`), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadReportsReferencesInSeveralBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.json")
	raw := `{"timestamp": 1, "rules": {
		"b.owner": {"loadBefore": {"z.z": {"name": "Z"}}, "loadAfter": {"Z.Z": {"name": "Z"}}},
		"a.owner": {
			"loadAfter": {"x.y": {"name": "XY"}},
			"incompatibilities": {"x.y": {"name": "XY", "comment": "breaks saves", "hardIncompatibility": true}}
		}
	}}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	doc, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []DroppedRef{
		{Owner: "a.owner", ID: "x.y", Bucket: Incompatibilities, KeptIn: LoadAfter},
		{Owner: "b.owner", ID: "z.z", Bucket: LoadAfter, KeptIn: LoadBefore},
	}, doc.Dropped)
	assert.Equal(t, []string{"x.y"}, doc.Get("a.owner").In(LoadAfter))
	assert.Empty(t, doc.Get("a.owner").In(Incompatibilities))

	require.NoError(t, Save(path, doc, time.Unix(2, 0)))
	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, reloaded.Dropped)
}
