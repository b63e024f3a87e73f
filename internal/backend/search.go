package backend

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/KilimcininKorOglu/obakv/internal/filter"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// iterator is the position of First/Next over the entry store.
type iterator struct {
	active bool
	done   bool

	base   string
	scope  storage.Scope
	filter *filter.Filter

	// cands, when set, replaces the scan of id2entry.
	cands roaring64.IntPeekable64

	cur    *kv.Cursor
	previd storage.ID

	// entry is the entry decoded for the last returned ID.
	entry *storage.Entry
}

// invalidate drops the cursor and the decoded entry. The next step re-seeks
// past previd. Every write goes through here, so Get never serves an entry
// that was modified or deleted since Next decoded it.
func (it *iterator) invalidate() {
	it.entry = nil
	if it.cur != nil {
		it.cur.Close()
		it.cur = nil
	}
}

// First starts an iteration over the entries in scope of base that match f
// and returns the first ID. A nil filter matches every entry; an empty base
// covers the whole database. It returns storage.NOID when nothing matches.
func (t *Tool) First(base string, scope storage.Scope, f *filter.Filter) (storage.ID, error) {
	if t.closed {
		return storage.NOID, ErrSessionClosed
	}
	nbase, err := dn.Normalize(base)
	if err != nil {
		return storage.NOID, fmt.Errorf("entry_first: base %q: %w", base, err)
	}

	t.iter.invalidate()
	t.iter = iterator{active: true, base: nbase, scope: scope, filter: f}

	if f != nil && t.b.indexes.Len() > 0 {
		s, err := t.reader()
		if err != nil {
			return storage.NOID, err
		}
		// pending postings of the batch must be visible to the index lookup
		if t.cache != nil && t.txn != nil {
			if err := t.flushCache(t.txn); err != nil {
				return storage.NOID, t.failed("entry_first", err)
			}
		}
		bm, err := filter.Candidates(s, t.b.indexes, f)
		if err != nil {
			return storage.NOID, toolError("entry_first", "index lookup failed", err)
		}
		if bm != nil {
			t.log.Debug("filter candidates", "filter", f.String(), "count", bm.GetCardinality())
			t.iter.cands = bm.Iterator()
		}
	}
	return t.Next()
}

// Next returns the next ID of the iteration started by First, or
// storage.NOID when the iteration is exhausted.
func (t *Tool) Next() (storage.ID, error) {
	if t.closed {
		return storage.NOID, ErrSessionClosed
	}
	it := &t.iter
	it.entry = nil
	if !it.active || it.done {
		return storage.NOID, nil
	}

	for {
		id, raw, ok, err := t.step()
		if err != nil {
			return storage.NOID, err
		}
		if !ok {
			it.done = true
			it.invalidate()
			return storage.NOID, nil
		}
		it.previd = id

		// placeholders carry no entry
		if len(raw) == 0 {
			continue
		}
		e, err := t.b.codec.Decode(raw)
		if err != nil {
			return storage.NOID, toolError("entry_next", fmt.Sprintf("decode id=%d failed", uint64(id)), err)
		}
		e.ID = id
		if !inScope(e.NDN, it.base, it.scope) {
			continue
		}
		if it.filter != nil && !filter.Evaluate(it.filter, e) {
			continue
		}
		it.entry = e
		return id, nil
	}
}

// step advances to the next stored record.
func (t *Tool) step() (storage.ID, []byte, bool, error) {
	it := &t.iter
	s, err := t.reader()
	if err != nil {
		return storage.NOID, nil, false, err
	}

	if it.cands != nil {
		for it.cands.HasNext() {
			id := storage.ID(it.cands.Next())
			if id <= it.previd {
				continue
			}
			raw, err := s.Get(storage.TreeID2Entry, storage.EncodeID(id))
			if errors.Is(err, kv.ErrNotFound) {
				continue
			}
			if err != nil {
				return storage.NOID, nil, false, toolError("entry_next", "get failed", err)
			}
			return id, raw, true, nil
		}
		return storage.NOID, nil, false, nil
	}

	var k, v []byte
	var ok bool
	if it.cur == nil || it.cur.Closed() {
		it.cur, err = s.OpenCursor(storage.TreeID2Entry)
		if err != nil {
			return storage.NOID, nil, false, toolError("entry_next", "cursor_open failed", err)
		}
		k, v, ok = it.cur.Seek(storage.EncodeID(it.previd + 1))
	} else {
		k, v, ok = it.cur.Next()
	}
	if !ok {
		return storage.NOID, nil, false, nil
	}
	return storage.DecodeID(k), v, true, nil
}

func inScope(ndn, base string, scope storage.Scope) bool {
	switch scope {
	case storage.ScopeBase:
		return ndn == base
	case storage.ScopeOneLevel:
		return dn.IsChildOf(ndn, base)
	default:
		return dn.IsSuffixOf(ndn, base)
	}
}

// Get returns the entry stored under id. Placeholders and missing IDs fail
// with storage.ErrNoSuchObject.
func (t *Tool) Get(id storage.ID) (*storage.Entry, error) {
	if t.closed {
		return nil, ErrSessionClosed
	}
	if e := t.iter.entry; e != nil && e.ID == id {
		return e.Clone(), nil
	}

	s, err := t.reader()
	if err != nil {
		return nil, err
	}
	raw, err := s.Get(storage.TreeID2Entry, storage.EncodeID(id))
	if errors.Is(err, kv.ErrNotFound) || (err == nil && len(raw) == 0) {
		return nil, storage.ErrNoSuchObject
	}
	if err != nil {
		return nil, toolError("entry_get", "get failed", err)
	}
	e, err := t.b.codec.Decode(raw)
	if err != nil {
		return nil, toolError("entry_get", fmt.Sprintf("decode id=%d failed", uint64(id)), err)
	}
	e.ID = id
	return e, nil
}

// DN2IDGet resolves a DN to its ID. The empty DN is the root, ID 0.
func (t *Tool) DN2IDGet(name string) (storage.ID, error) {
	if t.closed {
		return storage.NOID, ErrSessionClosed
	}
	if name == "" {
		return storage.RootID, nil
	}
	ndn, err := dn.Normalize(name)
	if err != nil {
		return storage.NOID, err
	}
	s, err := t.reader()
	if err != nil {
		return storage.NOID, err
	}
	return t.b.tree.Resolve(s, ndn)
}
