package filter

import (
	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
)

// Candidates narrows f to the IDs the configured indexes allow. The result
// is a superset of the matching entries; callers still run Evaluate on each
// one. A nil bitmap means the indexes cannot narrow f and every entry is a
// candidate.
//
// Equality, presence and substring assertions on attributes indexed for that
// type are answered from the index trees. AND intersects the children it can
// answer, OR needs all of its children answered. Everything else scans.
func Candidates(s index.Store, set *index.Set, f *Filter) (*roaring64.Bitmap, error) {
	if f == nil || set == nil {
		return nil, nil
	}

	switch f.Type {
	case And:
		var out *roaring64.Bitmap
		for _, c := range f.Children {
			bm, err := Candidates(s, set, c)
			if err != nil {
				return nil, err
			}
			if bm == nil {
				continue
			}
			if out == nil {
				out = bm
			} else {
				out.And(bm)
			}
			if out.IsEmpty() {
				break
			}
		}
		return out, nil

	case Or:
		out := roaring64.New()
		for _, c := range f.Children {
			bm, err := Candidates(s, set, c)
			if err != nil || bm == nil {
				return nil, err
			}
			out.Or(bm)
		}
		return out, nil

	case Equality:
		if idx, ok := indexed(set, f.Attribute, index.TypeEq); ok {
			return index.Lookup(s, idx.Tree(), index.EqualityKey(f.Value))
		}

	case Present:
		if idx, ok := indexed(set, f.Attribute, index.TypePres); ok {
			return index.Lookup(s, idx.Tree(), index.PresenceKey())
		}

	case Substring:
		if idx, ok := indexed(set, f.Attribute, index.TypeSub); ok && f.Substring != nil {
			return substringCandidates(s, idx, f.Substring)
		}
	}
	return nil, nil
}

func indexed(set *index.Set, attr string, t index.Type) (index.Index, bool) {
	pos, ok := set.Lookup(attr)
	if !ok {
		return index.Index{}, false
	}
	idx := set.At(pos)
	return idx, idx.Types.Has(t)
}

// substringCandidates intersects the postings of every trigram of every
// component. Components shorter than a trigram contribute nothing.
func substringCandidates(s index.Store, idx index.Index, sf *SubstringFilter) (*roaring64.Bitmap, error) {
	parts := make([][]byte, 0, len(sf.Any)+2)
	parts = append(parts, sf.Initial)
	parts = append(parts, sf.Any...)
	parts = append(parts, sf.Final)

	var out *roaring64.Bitmap
	for _, part := range parts {
		for _, key := range index.SubstringPatternKeys(part) {
			bm, err := index.Lookup(s, idx.Tree(), key)
			if err != nil {
				return nil, err
			}
			if out == nil {
				out = bm
			} else {
				out.And(bm)
			}
			if out.IsEmpty() {
				return out, nil
			}
		}
	}
	return out, nil
}
