package kv

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DataFileName is the name of the database file inside the data directory.
const DataFileName = "data.obakv"

// Options configures an environment.
type Options struct {
	// Dir is the data directory. It is created if missing.
	Dir string

	// ReadOnly opens the environment without write access.
	ReadOnly bool

	// NoSync skips fsync on commit. Only safe for reloadable bulk loads.
	NoSync bool

	// InitialMmapSize pre-sizes the memory map in bytes.
	InitialMmapSize int

	// MaxTxnWrites bounds the mutations per write transaction. 0 = unlimited.
	MaxTxnWrites int

	// Timeout waits for the file lock held by another process.
	Timeout time.Duration
}

// TreeSpec names a tree and whether it holds duplicate values.
type TreeSpec struct {
	Name string
	Dup  bool
}

// Env is an open key-value environment.
type Env struct {
	db   *bolt.DB
	opts Options

	mu    sync.RWMutex
	trees map[string]bool
}

// Open opens or creates the environment described by opts.
func Open(opts Options) (*Env, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("kv: data directory is required")
	}
	if !opts.ReadOnly {
		if err := os.MkdirAll(opts.Dir, 0750); err != nil {
			return nil, fmt.Errorf("kv: create data directory: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	db, err := bolt.Open(filepath.Join(opts.Dir, DataFileName), 0600, &bolt.Options{
		Timeout:         timeout,
		NoSync:          opts.NoSync,
		ReadOnly:        opts.ReadOnly,
		InitialMmapSize: opts.InitialMmapSize,
		FreelistType:    bolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("kv: open: %w", err)
	}

	return &Env{
		db:    db,
		opts:  opts,
		trees: make(map[string]bool),
	}, nil
}

// Path returns the database file path.
func (e *Env) Path() string {
	return e.db.Path()
}

// ReadOnly reports whether the environment was opened read-only.
func (e *Env) ReadOnly() bool {
	return e.opts.ReadOnly
}

// EnsureTrees creates the given trees if they do not exist and registers
// their kinds. In a read-only environment missing trees are only registered.
func (e *Env) EnsureTrees(specs ...TreeSpec) error {
	e.mu.Lock()
	for _, s := range specs {
		e.trees[s.Name] = s.Dup
	}
	e.mu.Unlock()

	if e.opts.ReadOnly {
		return nil
	}

	return translate(e.db.Update(func(tx *bolt.Tx) error {
		for _, s := range specs {
			if _, err := tx.CreateBucketIfNotExists([]byte(s.Name)); err != nil {
				return fmt.Errorf("create tree %s: %w", s.Name, err)
			}
		}
		return nil
	}))
}

// IsDup reports whether name was registered as a duplicate tree.
func (e *Env) IsDup(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.trees[name]
}

// Begin starts a transaction. Only one writable transaction can be open at a
// time; a second Begin(true) blocks until the first one ends.
func (e *Env) Begin(writable bool) (*Txn, error) {
	if writable && e.opts.ReadOnly {
		return nil, ErrReadOnly
	}
	tx, err := e.db.Begin(writable)
	if err != nil {
		return nil, translate(err)
	}
	return &Txn{
		env:     e,
		tx:      tx,
		cursors: make(map[*Cursor]struct{}),
	}, nil
}

// Update runs fn in a write transaction, committing on success.
func (e *Env) Update(fn func(*Txn) error) error {
	txn, err := e.Begin(true)
	if err != nil {
		return err
	}
	if err := fn(txn); err != nil {
		txn.Abort()
		return err
	}
	return txn.Commit()
}

// View runs fn in a read-only transaction.
func (e *Env) View(fn func(*Txn) error) error {
	txn, err := e.Begin(false)
	if err != nil {
		return err
	}
	defer txn.Abort()
	return fn(txn)
}

// Close closes the environment. Open transactions must be finished first.
func (e *Env) Close() error {
	return translate(e.db.Close())
}
