// Package version parses the dotted game-version strings that mods declare
// ("1.4", "1.5.2") into comparable keys.
//
// A Key is the sequence of numeric segments. Keys compare segment by segment;
// when one key is a strict prefix of the other, the shorter key is the lesser
// one, so (1,5) < (1,5,0). Every string that is not a clean dotted number maps
// to the sentinel Key (0), which sorts below any real version.
package version

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// tagPattern is the shape a remote tag must have to count as a game version.
var tagPattern = regexp.MustCompile(`^\d+\.\d+(\.\d+)?$`)

// Key is a parsed version string.
type Key []int

// Sentinel is the lowest possible key, returned for unparseable input.
var Sentinel = Key{0}

// Parse converts raw into a Key. It never fails: empty strings, non-numeric
// segments, empty segments ("1..2", "1.") and overflowing numbers all yield
// the Sentinel.
func Parse(raw string) Key {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Sentinel
	}

	parts := strings.Split(raw, ".")
	key := make(Key, 0, len(parts))
	for _, part := range parts {
		if part == "" || strings.IndexFunc(part, notDigit) >= 0 {
			return Sentinel
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return Sentinel
		}
		key = append(key, n)
	}
	return key
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}

// Compare returns -1, 0 or +1 following tuple ordering.
func Compare(a, b Key) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// Less reports whether k sorts before other.
func (k Key) Less(other Key) bool {
	return Compare(k, other) < 0
}

// Equal reports whether k and other are the same key.
func (k Key) Equal(other Key) bool {
	return Compare(k, other) == 0
}

// String renders the key back in dotted form.
func (k Key) String() string {
	if len(k) == 0 {
		return Sentinel.String()
	}
	parts := make([]string, len(k))
	for i, n := range k {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// MaxOf returns the greatest key among versions, or the Sentinel when the
// list is empty.
func MaxOf(versions []string) Key {
	best := Sentinel
	for _, v := range versions {
		if k := Parse(v); Compare(k, best) > 0 {
			best = k
		}
	}
	return best
}

// Sort returns a de-duplicated copy of versions ordered by key. Strings with
// equal keys (for example unparseable ones) fall back to lexical order so the
// result is deterministic.
func Sort(versions []string) []string {
	out := make([]string, 0, len(versions))
	seen := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.SortStableFunc(out, func(a, b string) int {
		if c := Compare(Parse(a), Parse(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return out
}

// FilterTags keeps only the tags shaped like a game version ("1.5",
// "1.5.2") and returns them sorted.
func FilterTags(tags []string) []string {
	kept := make([]string, 0, len(tags))
	for _, t := range tags {
		if tagPattern.MatchString(t) {
			kept = append(kept, t)
		}
	}
	return Sort(kept)
}

// SameSet reports whether a and b contain the same distinct strings,
// ignoring order and duplicates.
func SameSet(a, b []string) bool {
	as := toSet(a)
	bs := toSet(b)
	if len(as) != len(bs) {
		return false
	}
	for v := range as {
		if _, ok := bs[v]; !ok {
			return false
		}
	}
	return true
}

// Distinct counts the distinct non-empty strings in versions.
func Distinct(versions []string) int {
	return len(toSet(versions))
}

func toSet(versions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(versions))
	for _, v := range versions {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
