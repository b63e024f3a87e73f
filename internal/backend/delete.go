package backend

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Delete removes the entry named by name together with its DN node and
// index postings, then commits. Entries with children are refused with
// storage.ErrHasChildren; the batch is kept in that case.
func (t *Tool) Delete(name string) error {
	const op = "entry_delete"

	ndn, err := dn.Normalize(name)
	if err != nil {
		return toolError(op, "invalid DN", err)
	}
	txn, err := t.writer()
	if err != nil {
		return err
	}

	// postings of the batch must be on disk before they can be removed
	if t.cache != nil {
		if err := t.flushCache(txn); err != nil {
			return t.failed(op, fmt.Errorf("index flush: %w", err))
		}
	}

	id, err := t.b.tree.Resolve(txn, ndn)
	if err != nil {
		if structural(err) {
			return toolError(op, "dn2id lookup failed", err)
		}
		return t.failed(op, err)
	}

	raw, err := txn.Get(storage.TreeID2Entry, storage.EncodeID(id))
	switch {
	case errors.Is(err, kv.ErrNotFound), err == nil && len(raw) == 0:
		return toolError(op, "id2entry lookup failed", storage.ErrNoSuchObject)
	case err != nil:
		return t.failed(op, err)
	}

	has, err := t.b.tree.HasChildren(txn, id)
	if err != nil {
		return t.failed(op, err)
	}
	if has {
		return &ToolError{
			Op:   op,
			Text: "delete failed: subordinate objects must be deleted first",
			Err:  storage.ErrHasChildren,
		}
	}

	e, err := t.b.codec.Decode(raw)
	if err != nil {
		return t.failed(op, fmt.Errorf("decode id=%d: %w", uint64(id), err))
	}

	if err := t.b.tree.Remove(txn, id); err != nil {
		return t.failed(op, fmt.Errorf("dn2id_delete: %w", err))
	}
	for pos := 0; pos < t.b.indexes.Len(); pos++ {
		idx := t.b.indexes.At(pos)
		if err := index.DeleteKeys(txn, idx.Tree(), idx.Keys(e), id); err != nil {
			return t.failed(op, fmt.Errorf("index_delete %s: %w", idx.Attribute, err))
		}
	}
	if err := txn.Delete(storage.TreeID2Entry, storage.EncodeID(id)); err != nil {
		return t.failed(op, fmt.Errorf("id2entry_delete: %w", err))
	}

	t.writes++
	if err := t.commit(op); err != nil {
		return err
	}
	t.log.Debug("entry deleted", "dn", name, "id", uint64(id))
	return nil
}
