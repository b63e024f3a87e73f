package kv

import (
	bolt "go.etcd.io/bbolt"
)

// Cursor iterates the keys of one tree in order. For a dup tree the value of
// each key is nil; use the Txn dup methods to read its duplicates.
type Cursor struct {
	txn    *Txn
	c      *bolt.Cursor
	closed bool
}

// OpenCursor opens a cursor on tree. The cursor is closed automatically when
// the transaction commits or aborts.
func (t *Txn) OpenCursor(tree string) (*Cursor, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return nil, err
	}
	cur := &Cursor{txn: t, c: b.Cursor()}
	t.cursors[cur] = struct{}{}
	return cur, nil
}

type move func(*bolt.Cursor) ([]byte, []byte)

func (c *Cursor) do(m move) ([]byte, []byte, bool) {
	c.txn.mu.Lock()
	defer c.txn.mu.Unlock()

	if c.closed || c.c == nil {
		return nil, nil, false
	}
	k, v := m(c.c)
	if k == nil {
		return nil, nil, false
	}
	if v == nil && c.c.Bucket().Bucket(k) == nil {
		v = []byte{}
	}
	return clone(k), clone(v), true
}

// First moves to the first key.
func (c *Cursor) First() ([]byte, []byte, bool) {
	return c.do((*bolt.Cursor).First)
}

// Last moves to the last key.
func (c *Cursor) Last() ([]byte, []byte, bool) {
	return c.do((*bolt.Cursor).Last)
}

// Next moves to the next key.
func (c *Cursor) Next() ([]byte, []byte, bool) {
	return c.do((*bolt.Cursor).Next)
}

// Prev moves to the previous key.
func (c *Cursor) Prev() ([]byte, []byte, bool) {
	return c.do((*bolt.Cursor).Prev)
}

// Seek moves to the first key >= key.
func (c *Cursor) Seek(key []byte) ([]byte, []byte, bool) {
	return c.do(func(bc *bolt.Cursor) ([]byte, []byte) {
		return bc.Seek(key)
	})
}

// Closed reports whether the cursor was closed.
func (c *Cursor) Closed() bool {
	c.txn.mu.Lock()
	defer c.txn.mu.Unlock()
	return c.closed
}

// Close releases the cursor.
func (c *Cursor) Close() {
	c.txn.mu.Lock()
	defer c.txn.mu.Unlock()

	c.closed = true
	c.c = nil
	delete(c.txn.cursors, c)
}
