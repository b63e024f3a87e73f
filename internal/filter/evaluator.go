package filter

import (
	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Evaluate reports whether entry matches f. Attribute names compare without
// case and values use case-insensitive string matching. A nil filter or
// entry never matches.
func Evaluate(f *Filter, entry *storage.Entry) bool {
	if f == nil || entry == nil {
		return false
	}

	switch f.Type {
	case And:
		for _, c := range f.Children {
			if !Evaluate(c, entry) {
				return false
			}
		}
		return true
	case Or:
		for _, c := range f.Children {
			if Evaluate(c, entry) {
				return true
			}
		}
		return false
	case Not:
		if f.Child == nil {
			return false
		}
		return !Evaluate(f.Child, entry)
	case Present:
		return len(entry.GetAttribute(f.Attribute)) > 0
	case Substring:
		if f.Substring == nil {
			return false
		}
		return anyValue(entry, f.Attribute, func(v []byte) bool {
			return matchSubstring(v, f.Substring)
		})
	case Equality:
		return anyValue(entry, f.Attribute, func(v []byte) bool {
			return matchEquality(v, f.Value)
		})
	case GreaterOrEqual:
		return anyValue(entry, f.Attribute, func(v []byte) bool {
			return compareFold(v, f.Value) >= 0
		})
	case LessOrEqual:
		return anyValue(entry, f.Attribute, func(v []byte) bool {
			return compareFold(v, f.Value) <= 0
		})
	case Approx:
		return anyValue(entry, f.Attribute, func(v []byte) bool {
			return matchApprox(v, f.Value)
		})
	default:
		return false
	}
}

func anyValue(entry *storage.Entry, attr string, match func([]byte) bool) bool {
	for _, v := range entry.GetAttribute(attr) {
		if match(v) {
			return true
		}
	}
	return false
}
