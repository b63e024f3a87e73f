// Package idalloc issues entry identifiers.
//
// IDs increase monotonically and are never handed out twice while the
// allocator is alive, even when the transaction that received them aborts.
// The high-water mark is persisted in the meta tree with every allocation
// and recovered by Load on startup.
package idalloc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// ErrExhausted is returned when no identifiers are left.
var ErrExhausted = errors.New("idalloc: identifier space exhausted")

// Store is the part of a transaction the allocator needs.
type Store interface {
	Get(tree string, key []byte) ([]byte, error)
	Put(tree string, key, value []byte) error
	LastKey(tree string) ([]byte, error)
}

// Allocator hands out entry IDs.
type Allocator struct {
	mu   sync.Mutex
	last storage.ID
	max  storage.ID
}

// New returns an allocator that has issued nothing yet.
func New() *Allocator {
	return &Allocator{max: storage.NOID - 1}
}

// Load recovers the high-water mark: the larger of the persisted counter and
// the last key of the entry store.
func (a *Allocator) Load(s Store) error {
	var last storage.ID

	v, err := s.Get(storage.TreeMeta, storage.MetaNextID)
	switch {
	case err == nil:
		if len(v) != storage.IDSize {
			return fmt.Errorf("idalloc: corrupt %s record (%d bytes)", storage.MetaNextID, len(v))
		}
		last = storage.DecodeID(v)
	case !errors.Is(err, kv.ErrNotFound):
		return fmt.Errorf("idalloc: read counter: %w", err)
	}

	k, err := s.LastKey(storage.TreeID2Entry)
	switch {
	case err == nil:
		if id := storage.DecodeID(k); id != storage.NOID && id > last {
			last = id
		}
	case !errors.Is(err, kv.ErrNotFound):
		return fmt.Errorf("idalloc: read last entry: %w", err)
	}

	a.mu.Lock()
	if last > a.last {
		a.last = last
	}
	a.mu.Unlock()
	return nil
}

// Next issues the next ID and records it in s. The ID stays consumed even if
// the write fails or the transaction later aborts.
func (a *Allocator) Next(s Store) (storage.ID, error) {
	a.mu.Lock()
	if a.last >= a.max {
		a.mu.Unlock()
		return storage.NOID, ErrExhausted
	}
	a.last++
	id := a.last
	a.mu.Unlock()

	if err := s.Put(storage.TreeMeta, storage.MetaNextID, storage.EncodeID(id)); err != nil {
		return storage.NOID, err
	}
	return id, nil
}

// Last returns the most recently issued ID, or 0 if none was issued.
func (a *Allocator) Last() storage.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}
