package kv

import (
	"bytes"

	bolt "go.etcd.io/bbolt"
)

// dupBucket returns the nested bucket holding the duplicates of key.
// Callers hold t.mu.
func (t *Txn) dupBucket(tree string, key []byte, create bool) (*bolt.Bucket, *bolt.Bucket, error) {
	parent, err := t.bucket(tree)
	if err != nil {
		return nil, nil, err
	}
	if len(key) == 0 {
		return nil, nil, ErrEmptyKey
	}
	sub := parent.Bucket(key)
	if sub == nil {
		if !create {
			return parent, nil, ErrNotFound
		}
		sub, err = parent.CreateBucket(key)
		if err != nil {
			return nil, nil, translate(err)
		}
	}
	return parent, sub, nil
}

// dropIfEmpty removes the nested bucket of key once its last duplicate is gone.
func dropIfEmpty(parent, sub *bolt.Bucket, key []byte) error {
	if k, _ := sub.Cursor().First(); k != nil {
		return nil
	}
	return translate(parent.DeleteBucket(key))
}

// PutDup adds value to the duplicates of key. Adding an existing value is a no-op.
func (t *Txn) PutDup(tree string, key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.charge(1); err != nil {
		return err
	}
	_, sub, err := t.dupBucket(tree, key, true)
	if err != nil {
		return err
	}
	return translate(sub.Put(value, []byte{}))
}

// AppendDups appends values to the duplicates of key. Values must be strictly
// ascending and sort after the key's current last duplicate; a value equal to
// the previous one is skipped. Any smaller value fails with ErrNotAscending
// before anything is written.
func (t *Txn) AppendDups(tree string, key []byte, values [][]byte) error {
	if len(values) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTxnClosed
	}

	var last []byte
	parent, err := t.bucket(tree)
	if err != nil {
		return err
	}
	if sub := parent.Bucket(key); sub != nil {
		last, _ = sub.Cursor().Last()
		last = clone(last)
	}

	n := 0
	prev := last
	for _, v := range values {
		switch c := bytes.Compare(v, prev); {
		case prev != nil && c < 0:
			return ErrNotAscending
		case prev != nil && c == 0:
			continue
		}
		prev = v
		n++
	}
	if n == 0 {
		return nil
	}
	if err := t.charge(n); err != nil {
		return err
	}

	_, sub, err := t.dupBucket(tree, key, true)
	if err != nil {
		return err
	}
	sub.FillPercent = 1.0

	prev = last
	for _, v := range values {
		if prev != nil && bytes.Equal(v, prev) {
			continue
		}
		if err := sub.Put(v, []byte{}); err != nil {
			return translate(err)
		}
		prev = v
	}
	return nil
}

// DeleteDup removes one duplicate value of key. The key disappears with its
// last duplicate.
func (t *Txn) DeleteDup(tree string, key, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return err
	}
	k, _ := sub.Cursor().Seek(value)
	if k == nil || !bytes.Equal(k, value) {
		return ErrNotFound
	}
	if err := t.charge(1); err != nil {
		return err
	}
	if err := sub.Delete(value); err != nil {
		return translate(err)
	}
	return dropIfEmpty(parent, sub, key)
}

// DeleteKey removes key with all of its duplicates.
func (t *Txn) DeleteKey(tree string, key []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	parent, _, err := t.dupBucket(tree, key, false)
	if err != nil {
		return err
	}
	if err := t.charge(1); err != nil {
		return err
	}
	return translate(parent.DeleteBucket(key))
}

// CountDups returns the number of duplicates of key, or ErrNotFound.
func (t *Txn) CountDups(tree string, key []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return 0, err
	}
	n := 0
	c := sub.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n, nil
}

// FirstDup returns the smallest duplicate of key.
func (t *Txn) FirstDup(tree string, key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return nil, err
	}
	k, _ := sub.Cursor().First()
	if k == nil {
		return nil, ErrNotFound
	}
	return clone(k), nil
}

// LastDup returns the greatest duplicate of key.
func (t *Txn) LastDup(tree string, key []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return nil, err
	}
	k, _ := sub.Cursor().Last()
	if k == nil {
		return nil, ErrNotFound
	}
	return clone(k), nil
}

// SeekDup returns the first duplicate of key that is >= value.
func (t *Txn) SeekDup(tree string, key, value []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return nil, err
	}
	k, _ := sub.Cursor().Seek(value)
	if k == nil {
		return nil, ErrNotFound
	}
	return clone(k), nil
}

// NextDup returns the first duplicate of key that is > value.
func (t *Txn) NextDup(tree string, key, value []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return nil, err
	}
	c := sub.Cursor()
	k, _ := c.Seek(value)
	if k != nil && bytes.Equal(k, value) {
		k, _ = c.Next()
	}
	if k == nil {
		return nil, ErrNotFound
	}
	return clone(k), nil
}

// Dups returns all duplicates of key in order.
func (t *Txn) Dups(tree string, key []byte) ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, sub, err := t.dupBucket(tree, key, false)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	c := sub.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		out = append(out, clone(k))
	}
	return out, nil
}

// DupKeys returns every key of a dup tree in order.
func (t *Txn) DupKeys(tree string) ([][]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := t.bucket(tree)
	if err != nil {
		return nil, err
	}
	var out [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		out = append(out, clone(k))
	}
	return out, nil
}
