package kv

import (
	"bytes"
	"sync"

	bolt "go.etcd.io/bbolt"
)

// Txn is a transaction over the environment's trees.
//
// Returned keys and values are copies and stay valid after the transaction
// ends.
type Txn struct {
	env *Env
	tx  *bolt.Tx

	mu      sync.Mutex
	writes  int
	closed  bool
	cursors map[*Cursor]struct{}
}

// Writable reports whether the transaction can modify trees.
func (t *Txn) Writable() bool {
	return t.tx.Writable()
}

// Writes returns the number of mutations performed so far.
func (t *Txn) Writes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.writes
}

// Commit closes all cursors and commits the transaction. A failed commit
// leaves the transaction aborted.
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTxnClosed
	}
	t.closeCursors()
	t.closed = true

	if !t.tx.Writable() {
		return translate(t.tx.Rollback())
	}
	if err := t.tx.Commit(); err != nil {
		_ = t.tx.Rollback()
		return translate(err)
	}
	return nil
}

// Abort closes all cursors and discards the transaction. Aborting a closed
// transaction is a no-op.
func (t *Txn) Abort() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closeCursors()
	t.closed = true
	_ = t.tx.Rollback()
}

// Closed reports whether Commit or Abort was called.
func (t *Txn) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Txn) closeCursors() {
	for c := range t.cursors {
		c.closed = true
		c.c = nil
	}
	t.cursors = make(map[*Cursor]struct{})
}

// bucket returns the named tree. Callers hold t.mu.
func (t *Txn) bucket(tree string) (*bolt.Bucket, error) {
	if t.closed {
		return nil, ErrTxnClosed
	}
	b := t.tx.Bucket([]byte(tree))
	if b == nil {
		return nil, ErrTreeNotFound
	}
	return b, nil
}

// charge accounts n mutations against the dirty budget. Callers hold t.mu.
func (t *Txn) charge(n int) error {
	if t.closed {
		return ErrTxnClosed
	}
	if !t.tx.Writable() {
		return ErrReadOnly
	}
	if limit := t.env.opts.MaxTxnWrites; limit > 0 && t.writes+n > limit {
		return ErrTxnFull
	}
	t.writes += n
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Get returns the value stored under key. A stored zero-length value is
// returned as a non-nil empty slice.
func (t *Txn) Get(tree string, key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return nil, err
	}
	k, v := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return nil, ErrNotFound
	}
	if v == nil {
		return []byte{}, nil
	}
	return clone(v), nil
}

// Put stores value under key, replacing any previous value.
func (t *Txn) Put(tree string, key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return err
	}
	if err := t.charge(1); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	return translate(b.Put(key, value))
}

// Delete removes key. Missing keys return ErrNotFound.
func (t *Txn) Delete(tree string, key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return err
	}
	k, _ := b.Cursor().Seek(key)
	if k == nil || !bytes.Equal(k, key) {
		return ErrNotFound
	}
	if err := t.charge(1); err != nil {
		return err
	}
	if b.Bucket(key) != nil {
		return translate(b.DeleteBucket(key))
	}
	return translate(b.Delete(key))
}

// Drop empties a tree, keeping the tree itself.
func (t *Txn) Drop(tree string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.bucket(tree); err != nil {
		return err
	}
	if err := t.charge(1); err != nil {
		return err
	}
	name := []byte(tree)
	if err := t.tx.DeleteBucket(name); err != nil {
		return translate(err)
	}
	_, err := t.tx.CreateBucket(name)
	return translate(err)
}

// Count returns the number of keys in a tree.
func (t *Txn) Count(tree string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return 0, err
	}
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n, nil
}

// Empty reports whether a tree has no keys.
func (t *Txn) Empty(tree string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return false, err
	}
	k, _ := b.Cursor().First()
	return k == nil, nil
}

// LastKey returns the greatest key of a tree or ErrNotFound when empty.
func (t *Txn) LastKey(tree string) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return nil, err
	}
	k, _ := b.Cursor().Last()
	if k == nil {
		return nil, ErrNotFound
	}
	return clone(k), nil
}
