package backend

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Reindex derives the postings of entry id again for the indexes of attrs,
// or for every configured index when attrs is empty. Naming an attribute
// without a configured index is an error. In truncate mode the target index
// trees are emptied on the first call of the session.
//
// When attrs[0] is entryDN, Reindex instead upgrades a legacy DN tree to the
// current format and ends the running iteration; id is ignored.
func (t *Tool) Reindex(id storage.ID, attrs []string) error {
	const op = "entry_reindex"
	if t.closed {
		return ErrSessionClosed
	}
	if t.mode.Has(ModeReadOnly) {
		return ErrReadOnlySession
	}

	if len(attrs) > 0 && strings.EqualFold(attrs[0], AttrEntryDN) {
		return t.upgrade()
	}

	positions, err := t.b.indexes.Positions(attrs)
	if err != nil {
		return toolError(op, "reindex failed", err)
	}
	if len(positions) == 0 {
		return nil
	}

	e, err := t.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNoSuchObject) {
			return toolError(op, fmt.Sprintf("could not locate id=%d", uint64(id)), err)
		}
		return err
	}

	txn, err := t.writer()
	if err != nil {
		return err
	}

	if t.mode.Has(ModeTruncate) && !t.truncated {
		for _, pos := range positions {
			idx := t.b.indexes.At(pos)
			if err := txn.Drop(idx.Tree()); err != nil {
				return t.failed(op, fmt.Errorf("truncate %s: %w", idx.Attribute, err))
			}
			t.log.Info("index truncated", "attribute", idx.Attribute)
		}
		t.truncated = true
	}

	if err := t.index(txn, e, id, positions); err != nil {
		return t.failed(op, fmt.Errorf("index_add: %w", err))
	}
	return t.completed(op)
}

// upgrade runs the DN tree format upgrade. The upgrade commits in batches
// of its own, so the session's transactions are closed before it starts.
func (t *Tool) upgrade() error {
	if err := t.commit("entry_reindex"); err != nil {
		return err
	}
	t.iter.invalidate()
	t.closeSnapshot()

	n, err := t.b.tree.Upgrade(t.b.env, t.cfg.UpgradeBatch, t.log)
	if err != nil {
		return toolError("dn2id_upgrade", "upgrade failed", err)
	}
	t.iter.done = true
	t.log.Info("dn2id upgraded", "records", n)
	return nil
}
