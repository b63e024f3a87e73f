package index

import (
	"errors"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// DefaultRangeThreshold is the number of IDs a key holds before it is
// promoted to a range.
const DefaultRangeThreshold = 65536

// rangeMarker is the duplicate that marks the range form.
var rangeMarker = storage.EncodeID(0)

// Store is the part of a transaction the index trees need.
type Store interface {
	PutDup(tree string, key, value []byte) error
	AppendDups(tree string, key []byte, values [][]byte) error
	DeleteDup(tree string, key, value []byte) error
	DeleteKey(tree string, key []byte) error
	CountDups(tree string, key []byte) (int, error)
	FirstDup(tree string, key []byte) ([]byte, error)
	LastDup(tree string, key []byte) ([]byte, error)
	NextDup(tree string, key, value []byte) ([]byte, error)
	Dups(tree string, key []byte) ([][]byte, error)
}

// diskState describes the postings of a key as stored.
type diskState struct {
	found   bool
	isRange bool
	// count is the number of IDs of a list. Unused for ranges.
	count int
	// first and last bound the IDs; for a range they are its bounds.
	first storage.ID
	last  storage.ID
}

func readState(s Store, tree string, key []byte) (diskState, error) {
	var st diskState

	first, err := s.FirstDup(tree, key)
	if errors.Is(err, kv.ErrNotFound) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	st.found = true

	last, err := s.LastDup(tree, key)
	if err != nil {
		return st, err
	}
	st.last = storage.DecodeID(last)

	if storage.DecodeID(first) == 0 {
		st.isRange = true
		lo, err := s.NextDup(tree, key, rangeMarker)
		if err != nil {
			return st, err
		}
		st.first = storage.DecodeID(lo)
		return st, nil
	}

	st.first = storage.DecodeID(first)
	if st.count, err = s.CountDups(tree, key); err != nil {
		return st, err
	}
	return st, nil
}

// writeRange replaces the postings of key with the range [first, last].
func writeRange(s Store, tree string, key []byte, first, last storage.ID) error {
	if err := s.DeleteKey(tree, key); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}
	return s.AppendDups(tree, key, [][]byte{rangeMarker, storage.EncodeID(first), storage.EncodeID(last)})
}

// Lookup returns the IDs stored under key. A range yields every ID between
// its bounds. A missing key yields an empty bitmap.
func Lookup(s Store, tree string, key []byte) (*roaring64.Bitmap, error) {
	bm := roaring64.New()

	st, err := readState(s, tree, key)
	if err != nil || !st.found {
		return bm, err
	}
	if st.isRange {
		bm.AddRange(uint64(st.first), uint64(st.last)+1)
		return bm, nil
	}

	dups, err := s.Dups(tree, key)
	if err != nil {
		return nil, err
	}
	for _, d := range dups {
		bm.Add(uint64(storage.DecodeID(d)))
	}
	return bm, nil
}

// IsRange reports whether key is stored in range form.
func IsRange(s Store, tree string, key []byte) (bool, error) {
	st, err := readState(s, tree, key)
	return st.isRange, err
}

// Insert adds id under key directly, promoting the key to a range once it
// holds threshold IDs.
func Insert(s Store, tree string, key []byte, id storage.ID, threshold int) error {
	if threshold <= 0 {
		threshold = DefaultRangeThreshold
	}

	st, err := readState(s, tree, key)
	if err != nil {
		return err
	}

	switch {
	case !st.found:
		return s.PutDup(tree, key, storage.EncodeID(id))

	case st.isRange:
		if id >= st.first && id <= st.last {
			return nil
		}
		return writeRange(s, tree, key, min(st.first, id), max(st.last, id))

	case st.count >= threshold:
		return writeRange(s, tree, key, min(st.first, id), max(st.last, id))

	default:
		return s.PutDup(tree, key, storage.EncodeID(id))
	}
}

// InsertKeys adds id under every key.
func InsertKeys(s Store, tree string, keys [][]byte, id storage.ID, threshold int) error {
	for _, k := range keys {
		if err := Insert(s, tree, k, id, threshold); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes id from key. Deleting a bound of a range shrinks it; an ID
// inside a range stays covered. The key disappears with its last ID.
func Delete(s Store, tree string, key []byte, id storage.ID) error {
	st, err := readState(s, tree, key)
	if err != nil || !st.found {
		return err
	}

	if !st.isRange {
		err := s.DeleteDup(tree, key, storage.EncodeID(id))
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		return err
	}

	first, last := st.first, st.last
	switch id {
	case first:
		first++
	case last:
		last--
	default:
		return nil
	}
	if first > last {
		return s.DeleteKey(tree, key)
	}
	return writeRange(s, tree, key, first, last)
}

// DeleteKeys removes id from every key.
func DeleteKeys(s Store, tree string, keys [][]byte, id storage.ID) error {
	for _, k := range keys {
		if err := Delete(s, tree, k, id); err != nil {
			return err
		}
	}
	return nil
}
