package dn2id

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/KilimcininKorOglu/obakv/internal/logging"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

const (
	// StackSize is the initial depth of the upgrade traversal stack. The
	// stack grows past it for deeper trees.
	StackSize = 256

	// DefaultUpgradeBatch is the number of rewritten records per commit.
	DefaultUpgradeBatch = 1000

	// maxDepth bounds walks up the tree so a corrupt parent link cannot loop.
	maxDepth = 1 << 16
)

// NeedsUpgrade reports whether the persisted legacy flag is set.
func NeedsUpgrade(s Store) (bool, error) {
	flags, err := readFlags(s)
	if err != nil {
		return false, err
	}
	return flags&storage.FlagDN2IDLegacy != 0, nil
}

// MarkLegacy sets the persisted legacy flag.
func MarkLegacy(s Store) error {
	flags, err := readFlags(s)
	if err != nil {
		return err
	}
	return s.Put(storage.TreeMeta, storage.MetaFlags, storage.EncodeID(storage.ID(flags|storage.FlagDN2IDLegacy)))
}

func clearLegacy(s Store) error {
	flags, err := readFlags(s)
	if err != nil {
		return err
	}
	return s.Put(storage.TreeMeta, storage.MetaFlags, storage.EncodeID(storage.ID(flags&^storage.FlagDN2IDLegacy)))
}

func readFlags(s Store) (uint64, error) {
	v, err := s.Get(storage.TreeMeta, storage.MetaFlags)
	if errors.Is(err, kv.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(v) != storage.IDSize {
		return 0, fmt.Errorf("dn2id: corrupt flags record (%d bytes)", len(v))
	}
	return uint64(storage.DecodeID(v)), nil
}

// frame is one node on the upgrade stack.
type frame struct {
	id storage.ID
	// rec is the node's child record under its parent; nil for the root.
	rec []byte
	// pos is the last child record of this node that was visited.
	pos []byte
	// total is the number of nodes below this one counted so far.
	total uint64
}

// Upgrade rewrites every legacy child record to the current format, adding
// the subtree count. The walk is post-order over an explicit stack, so the
// counts of all children are known when a record is rewritten. Work is
// committed every batch records; traversal positions are record values and
// stay valid across the commits. It returns the number of rewritten records
// and is a no-op when the legacy flag is clear or the entry store is empty.
func (t *Tree) Upgrade(env *kv.Env, batch int, log logging.Logger) (int, error) {
	if batch <= 0 {
		batch = DefaultUpgradeBatch
	}
	if log == nil {
		log = logging.NewNop()
	}

	var needed, empty bool
	err := env.View(func(txn *kv.Txn) error {
		var err error
		if needed, err = NeedsUpgrade(txn); err != nil {
			return err
		}
		empty, err = txn.Empty(storage.TreeID2Entry)
		return err
	})
	if err != nil {
		return 0, err
	}
	if !needed || empty {
		return 0, nil
	}

	log.Info("upgrading dn2id format")
	start := time.Now()
	progress := rate.Sometimes{Interval: 5 * time.Second}

	txn, err := env.Begin(true)
	if err != nil {
		return 0, err
	}
	defer func() { txn.Abort() }()

	stack := make([]frame, 1, StackSize)
	stack[0] = frame{id: storage.RootID}
	written := 0

	for len(stack) > 0 {
		top := &stack[len(stack)-1]

		var next []byte
		if top.pos == nil {
			next, err = txn.SeekDup(storage.TreeDN2ID, key(top.id), []byte{tagChild})
		} else {
			next, err = txn.NextDup(storage.TreeDN2ID, key(top.id), top.pos)
		}
		if err == nil {
			c, err := decodeChild(next)
			if err != nil {
				return written, err
			}
			top.pos = next
			stack = append(stack, frame{id: c.id, rec: next})
			continue
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return written, err
		}

		done := *top
		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			break
		}
		parent := &stack[len(stack)-1]

		c, err := decodeChild(done.rec)
		if err != nil {
			return written, err
		}
		c.count = done.total + 1
		c.hasCount = true
		rec := c.encode()

		if err := txn.DeleteDup(storage.TreeDN2ID, key(parent.id), done.rec); err != nil {
			return written, fmt.Errorf("dn2id: upgrade node %d: %w", c.id, err)
		}
		if err := txn.PutDup(storage.TreeDN2ID, key(parent.id), rec); err != nil {
			return written, fmt.Errorf("dn2id: upgrade node %d: %w", c.id, err)
		}
		parent.pos = rec
		parent.total += c.count
		written++

		progress.Do(func() {
			log.Info("dn2id upgrade progress", "nodes", written, "depth", len(stack))
		})

		if written%batch == 0 {
			if err := txn.Commit(); err != nil {
				return written, err
			}
			fresh, err := env.Begin(true)
			if err != nil {
				return written, err
			}
			txn = fresh
		}
	}

	if err := clearLegacy(txn); err != nil {
		return written, err
	}
	if err := txn.Commit(); err != nil {
		return written, err
	}
	t.SetLegacy(false)

	log.Info("dn2id upgrade complete", "nodes", written, "elapsed", time.Since(start).String())
	return written, nil
}
