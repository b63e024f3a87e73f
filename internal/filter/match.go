package filter

import (
	"bytes"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
)

func matchEquality(a, b []byte) bool {
	return bytes.EqualFold(a, b)
}

// matchSubstring matches value against the components of sf in order,
// ignoring case. Values and components are case folded the way index keys
// are, so a substring index never misses a match.
func matchSubstring(value []byte, sf *SubstringFilter) bool {
	v := index.FoldCase(string(value))
	pos := 0

	if len(sf.Initial) > 0 {
		initial := index.FoldCase(string(sf.Initial))
		if !strings.HasPrefix(v, initial) {
			return false
		}
		pos = len(initial)
	}

	for _, part := range sf.Any {
		if len(part) == 0 {
			continue
		}
		p := index.FoldCase(string(part))
		idx := strings.Index(v[pos:], p)
		if idx < 0 {
			return false
		}
		pos += idx + len(p)
	}

	if len(sf.Final) > 0 {
		return strings.HasSuffix(v[pos:], index.FoldCase(string(sf.Final)))
	}
	return true
}

func compareFold(a, b []byte) int {
	return bytes.Compare(bytes.ToLower(a), bytes.ToLower(b))
}

// matchApprox compares values after lowercasing and collapsing whitespace.
func matchApprox(a, b []byte) bool {
	return approxForm(a) == approxForm(b)
}

func approxForm(v []byte) string {
	return strings.Join(strings.Fields(strings.ToLower(string(v))), " ")
}
