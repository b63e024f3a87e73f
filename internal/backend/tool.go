package backend

import (
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/config"
	"github.com/KilimcininKorOglu/obakv/internal/logging"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn2id"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Mode selects the behavior of a tool session.
type Mode uint8

const (
	// ModeQuick batches WritesPerCommit operations per transaction and
	// accumulates index postings in a cache flushed at commit.
	ModeQuick Mode = 1 << iota
	// ModeReadOnly opens a session that only reads.
	ModeReadOnly
	// ModeTruncate drops the target index trees on the first reindex.
	ModeTruncate
)

// Has reports whether m includes all of other.
func (m Mode) Has(other Mode) bool {
	return m&other == other
}

func (m Mode) String() string {
	var parts []string
	if m.Has(ModeQuick) {
		parts = append(parts, "quick")
	}
	if m.Has(ModeReadOnly) {
		parts = append(parts, "readonly")
	}
	if m.Has(ModeTruncate) {
		parts = append(parts, "truncate")
	}
	if len(parts) == 0 {
		return "safe"
	}
	return strings.Join(parts, "|")
}

// Tool is an offline tool session over a backend. It owns at most one
// transaction at a time: either the read snapshot used by iteration and
// lookups, or the write transaction of the current batch. A Tool is not
// safe for concurrent use.
type Tool struct {
	b    *Backend
	log  logging.Logger
	mode Mode
	cfg  config.ToolConfig

	perCommit int

	txn    *kv.Txn
	rtxn   *kv.Txn
	writes int

	holes dn2id.Holes
	saved []dn2id.Hole

	cache *index.Cache
	pool  *workerPool

	iter iterator
	// truncated is set once the target trees were dropped; wasTruncated
	// is its value at the last commit.
	truncated    bool
	wasTruncated bool
	closed       bool
}

// ToolOpen starts a tool session. Only one session can be open per backend.
func (b *Backend) ToolOpen(mode Mode, cfg config.ToolConfig) (*Tool, error) {
	if b.env.ReadOnly() && !mode.Has(ModeReadOnly) {
		return nil, ErrReadOnlySession
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		return nil, ErrSessionOpen
	}

	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.WritesPerCommit < 1 {
		cfg.WritesPerCommit = config.DefaultWritesPerCommit
	}
	if cfg.UpgradeBatch < 1 {
		cfg.UpgradeBatch = dn2id.DefaultUpgradeBatch
	}

	t := &Tool{
		b:         b,
		log:       b.log.Named("tool"),
		mode:      mode,
		cfg:       cfg,
		perCommit: 1,
	}
	if mode.Has(ModeQuick) && !mode.Has(ModeReadOnly) {
		t.perCommit = cfg.WritesPerCommit
		if b.indexes.Len() > 0 {
			t.cache = index.NewCache(b.indexes, cfg.Threads, b.threshold)
			if cfg.Threads > 1 {
				t.pool = newWorkerPool(cfg.Threads)
			}
		}
	}
	b.session = t

	t.log.Debug("tool session opened",
		"mode", mode.String(),
		"writes_per_commit", t.perCommit,
		"threads", cfg.Threads)
	return t, nil
}

// Mode returns the session mode.
func (t *Tool) Mode() Mode {
	return t.mode
}

// Holes returns the pending placeholders of the session.
func (t *Tool) Holes() []dn2id.Hole {
	return t.holes.List()
}

// reader returns the transaction reads go through: the write transaction of
// the current batch if there is one, else a lazily opened read snapshot.
func (t *Tool) reader() (*kv.Txn, error) {
	if t.closed {
		return nil, ErrSessionClosed
	}
	if t.txn != nil {
		return t.txn, nil
	}
	if t.rtxn == nil {
		txn, err := t.b.env.Begin(false)
		if err != nil {
			return nil, toolError("txn_begin", "read txn_begin failed", err)
		}
		t.rtxn = txn
	}
	return t.rtxn, nil
}

// writer returns the write transaction of the current batch, opening it if
// needed. The read snapshot is torn down first: a live reader would block
// the remap of a growing database file.
func (t *Tool) writer() (*kv.Txn, error) {
	if t.closed {
		return nil, ErrSessionClosed
	}
	if t.mode.Has(ModeReadOnly) {
		return nil, ErrReadOnlySession
	}
	t.iter.invalidate()
	if t.txn != nil {
		return t.txn, nil
	}
	t.closeSnapshot()

	txn, err := t.b.env.Begin(true)
	if err != nil {
		return nil, toolError("txn_begin", "txn_begin failed", err)
	}
	t.txn = txn
	t.saved = t.holes.Snapshot()
	t.wasTruncated = t.truncated
	return txn, nil
}

func (t *Tool) closeSnapshot() {
	if t.rtxn != nil {
		t.rtxn.Abort()
		t.rtxn = nil
	}
}

// completed counts one finished operation and commits once the batch is full.
func (t *Tool) completed(op string) error {
	t.writes++
	if t.writes < t.perCommit {
		return nil
	}
	return t.commit(op)
}

// commit flushes the index cache and commits the write transaction.
func (t *Tool) commit(op string) error {
	if t.txn == nil {
		return nil
	}
	t.iter.invalidate()

	if t.cache != nil {
		if err := t.flushCache(t.txn); err != nil {
			t.abort()
			return toolError(op, "txn_aborted! index flush failed", err)
		}
	}

	txn := t.txn
	t.txn = nil
	t.writes = 0
	if err := txn.Commit(); err != nil {
		if t.cache != nil {
			t.cache.Reset()
		}
		t.holes.Restore(t.saved)
		t.truncated = t.wasTruncated
		t.log.Error("commit failed", "op", op, "error", err)
		return toolError(op, "txn_commit failed", err)
	}
	t.saved = t.holes.Snapshot()
	t.wasTruncated = t.truncated
	return nil
}

// abort discards the write transaction and every piece of state buffered
// since the last commit.
func (t *Tool) abort() {
	t.iter.invalidate()
	if t.txn != nil {
		t.txn.Abort()
		t.txn = nil
	}
	if t.cache != nil {
		t.cache.Reset()
	}
	t.holes.Restore(t.saved)
	t.truncated = t.wasTruncated
	t.writes = 0
}

// failed aborts the transaction after an engine error and reports it.
func (t *Tool) failed(op string, err error) error {
	t.abort()
	t.log.Error("transaction aborted", "op", op, "error", err)
	return toolError(op, "txn_aborted!", err)
}

// flushCache drains the index cache into txn, one shard per worker.
func (t *Tool) flushCache(txn *kv.Txn) error {
	if t.pool == nil {
		return t.cache.FlushAll(txn)
	}
	shards := t.cache.Shards()
	return t.pool.run(func(shard int) error {
		for pos := shard; pos < t.b.indexes.Len(); pos += shards {
			if err := t.cache.Flush(txn, pos); err != nil {
				return err
			}
		}
		return nil
	})
}

// Commit commits the pending batch.
func (t *Tool) Commit() error {
	if t.closed {
		return ErrSessionClosed
	}
	return t.commit("entry_commit")
}

// Close stops the workers, commits the pending batch and ends the session.
// Placeholders that never received their entry are reported as an error
// wrapping storage.ErrEntriesMissing.
func (t *Tool) Close() error {
	if t.closed {
		return nil
	}

	err := t.commit("entry_close")
	if t.pool != nil {
		t.pool.close()
	}
	t.abort()
	t.closeSnapshot()
	t.closed = true

	t.b.mu.Lock()
	if t.b.session == t {
		t.b.session = nil
	}
	t.b.mu.Unlock()

	if err != nil {
		return err
	}
	if t.holes.Len() > 0 {
		var sb strings.Builder
		sb.WriteString("entries missing:")
		for _, h := range t.holes.List() {
			fmt.Fprintf(&sb, "\n\tentry %d: %s", uint64(h.ID), h.DN)
		}
		t.log.Error("placeholders left without entries", "count", t.holes.Len())
		return &ToolError{Op: "entry_close", Text: sb.String(), Err: storage.ErrEntriesMissing}
	}
	return nil
}
