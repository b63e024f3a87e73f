package backend

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// structural reports whether err is a problem with the request rather than
// the engine. Such errors leave the batch intact.
func structural(err error) bool {
	return errors.Is(err, storage.ErrNotInSuffix) ||
		errors.Is(err, storage.ErrAlreadyExists) ||
		errors.Is(err, storage.ErrNoSuchObject) ||
		errors.Is(err, storage.ErrHasChildren) ||
		errors.Is(err, dn.ErrInvalidDN) ||
		errors.Is(err, dn.ErrInvalidRDN) ||
		errors.Is(err, dn.ErrEmptyRDNComponent)
}

// Put adds e to the database and returns its new ID. Missing ancestors are
// created as placeholders; adding the entry of a placeholder fills it in.
//
// The entry goes through dn2id, the indexes and id2entry in that order.
// Request errors such as an existing DN return without touching the batch;
// engine errors abort the batch.
func (t *Tool) Put(e *storage.Entry) (storage.ID, error) {
	const op = "entry_put"
	if e == nil {
		return storage.NOID, fmt.Errorf("%s: nil entry", op)
	}
	txn, err := t.writer()
	if err != nil {
		return storage.NOID, err
	}

	id, err := t.b.tree.EnsureChain(txn, e, t.b.alloc, &t.holes)
	if err != nil {
		if structural(err) {
			return storage.NOID, toolError(op, "dn2id_add failed", err)
		}
		return storage.NOID, t.failed(op, fmt.Errorf("dn2id_add: %w", err))
	}
	e.ID = id

	if err := t.index(txn, e, id, nil); err != nil {
		return storage.NOID, t.failed(op, fmt.Errorf("index_add: %w", err))
	}

	data, err := t.b.codec.Encode(e)
	if err != nil {
		return storage.NOID, t.failed(op, fmt.Errorf("id2entry_add: %w", err))
	}
	if err := txn.Put(storage.TreeID2Entry, storage.EncodeID(id), data); err != nil {
		return storage.NOID, t.failed(op, fmt.Errorf("id2entry_add: %w", err))
	}

	if err := t.completed(op); err != nil {
		return storage.NOID, err
	}
	return id, nil
}

// Modify rewrites the stored record of e.ID with e and commits. Index
// postings are left alone; run Reindex for changed indexed values.
func (t *Tool) Modify(e *storage.Entry) (storage.ID, error) {
	const op = "entry_modify"
	if e == nil || e.ID == storage.NOID || e.ID == storage.RootID {
		return storage.NOID, ErrNoID
	}
	txn, err := t.writer()
	if err != nil {
		return storage.NOID, err
	}

	raw, err := txn.Get(storage.TreeID2Entry, storage.EncodeID(e.ID))
	switch {
	case errors.Is(err, kv.ErrNotFound), err == nil && len(raw) == 0:
		return storage.NOID, toolError(op, fmt.Sprintf("id=%d", uint64(e.ID)), storage.ErrNoSuchObject)
	case err != nil:
		return storage.NOID, t.failed(op, err)
	}

	data, err := t.b.codec.Encode(e)
	if err != nil {
		return storage.NOID, t.failed(op, err)
	}
	if err := txn.Put(storage.TreeID2Entry, storage.EncodeID(e.ID), data); err != nil {
		return storage.NOID, t.failed(op, fmt.Errorf("id2entry_update: %w", err))
	}
	t.writes++
	if err := t.commit(op); err != nil {
		return storage.NOID, err
	}
	return e.ID, nil
}

// index adds the postings of e for the indexes at positions, or for every
// index when positions is nil. In quick mode the postings go to the cache,
// split across the worker shards; the call returns once every shard is done.
func (t *Tool) index(txn *kv.Txn, e *storage.Entry, id storage.ID, positions []int) error {
	set := t.b.indexes
	if set.Len() == 0 {
		return nil
	}
	if positions == nil {
		positions = make([]int, set.Len())
		for i := range positions {
			positions[i] = i
		}
	}

	if t.cache == nil {
		for _, pos := range positions {
			idx := set.At(pos)
			if err := index.InsertKeys(txn, idx.Tree(), idx.Keys(e), id, t.b.threshold); err != nil {
				return fmt.Errorf("index %s: %w", idx.Attribute, err)
			}
		}
		return nil
	}

	add := func(shard int) error {
		for _, pos := range positions {
			if t.cache.Shard(pos) != shard {
				continue
			}
			keys := set.At(pos).Keys(e)
			if len(keys) == 0 {
				continue
			}
			if err := t.cache.Add(txn, pos, keys, id); err != nil {
				return err
			}
		}
		return nil
	}
	if t.pool == nil {
		return add(0)
	}
	return t.pool.run(add)
}
