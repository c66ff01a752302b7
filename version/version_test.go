package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
	}{
		{"1.5.2", Key{1, 5, 2}},
		{"1.4", Key{1, 4}},
		{" 1.3 ", Key{1, 3}},
		{"10", Key{10}},
		{"", Sentinel},
		{"   ", Sentinel},
		{"abc", Sentinel},
		{"1.5a", Sentinel},
		{"1.", Sentinel},
		{".5", Sentinel},
		{"1..5", Sentinel},
		{"-1.2", Sentinel},
		{"+1.2", Sentinel},
		{"99999999999999999999999.1", Sentinel},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw))
		})
	}
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(Key{1, 4}, Key{1, 5}))
	assert.Equal(t, 1, Compare(Key{1, 10}, Key{1, 9}))
	assert.Equal(t, 0, Compare(Key{1, 5}, Parse("1.5")))
	assert.Equal(t, -1, Compare(Key{1, 5}, Key{1, 5, 0}), "a strict prefix sorts first")
	assert.Equal(t, 1, Compare(Key{2}, Key{1, 9, 9}))
	assert.True(t, Sentinel.Less(Key{0, 1}))
	assert.True(t, Parse("junk").Equal(Sentinel))
}

func TestMaxOf(t *testing.T) {
	t.Run("empty list gives sentinel", func(t *testing.T) {
		assert.Equal(t, Sentinel, MaxOf(nil))
		assert.Equal(t, Sentinel, MaxOf([]string{}))
	})

	t.Run("numeric not lexical", func(t *testing.T) {
		assert.Equal(t, Key{1, 10}, MaxOf([]string{"1.9", "1.10", "1.2"}))
	})

	t.Run("unparseable never wins", func(t *testing.T) {
		assert.Equal(t, Key{1, 0}, MaxOf([]string{"zzz", "1.0", "9.x"}))
		assert.Equal(t, Sentinel, MaxOf([]string{"zzz"}))
	})

	t.Run("result bounds every element", func(t *testing.T) {
		versions := []string{"1.0", "1.5.3", "1.5", "0.19", "1.5.10", "bad"}
		top := MaxOf(versions)
		for _, v := range versions {
			assert.False(t, top.Less(Parse(v)), "max %s below %s", top, v)
		}
		assert.Equal(t, "1.5.10", top.String())
	})
}

func TestSort(t *testing.T) {
	got := Sort([]string{"1.5", "1.10", "1.4", "1.5", "", "1.4.1"})
	assert.Equal(t, []string{"1.4", "1.4.1", "1.5", "1.10"}, got)
}

func TestFilterTags(t *testing.T) {
	got := FilterTags([]string{"1.6", "Mod", "1.5", "notaversion", "1.5.2.1", "1.4.3", "v1.2"})
	assert.Equal(t, []string{"1.4.3", "1.5", "1.6"}, got)
	assert.Empty(t, FilterTags(nil))
}

func TestSameSet(t *testing.T) {
	assert.True(t, SameSet([]string{"1.5", "1.4"}, []string{"1.4", "1.5", "1.4"}))
	assert.False(t, SameSet([]string{"1.5"}, []string{"1.4", "1.5"}))
	assert.True(t, SameSet(nil, []string{}))
	assert.Equal(t, 2, Distinct([]string{"1.4", "1.4", "1.5"}))
}
