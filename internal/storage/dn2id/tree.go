// Package dn2id maintains the DN tree: the hierarchical mapping from
// normalized DNs to entry IDs.
//
// Every node is stored under its own ID in the dn2id dup tree. The first
// duplicate is the node's self record (parent ID and RDN); the remaining
// duplicates are one child record per child (RDN, child ID and, in the
// current format, the size of the child's subtree). The suffix node hangs
// off the implicit root ID 0 and carries the whole suffix as its RDN.
//
// Ancestors missing when an entry is added are created as placeholders
// ("holes") with a zero-length id2entry record; they are tracked in a
// Holes list until the real entry arrives.
package dn2id

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/dn"
	"github.com/KilimcininKorOglu/obakv/internal/storage/idalloc"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Store is the part of a transaction the DN tree needs.
type Store interface {
	idalloc.Store
	PutDup(tree string, key, value []byte) error
	DeleteDup(tree string, key, value []byte) error
	CountDups(tree string, key []byte) (int, error)
	FirstDup(tree string, key []byte) ([]byte, error)
	SeekDup(tree string, key, value []byte) ([]byte, error)
	NextDup(tree string, key, value []byte) ([]byte, error)
}

// Allocator issues IDs for new nodes.
type Allocator interface {
	Next(s idalloc.Store) (storage.ID, error)
}

// Tree manages the DN tree of one backend suffix.
type Tree struct {
	suffix string
	depth  int

	mu     sync.RWMutex
	legacy bool
}

// New returns the tree for the given suffix. An empty suffix places every
// top-level DN directly under the root.
func New(suffix string) (*Tree, error) {
	nsuffix, err := dn.Normalize(suffix)
	if err != nil {
		return nil, fmt.Errorf("dn2id: suffix: %w", err)
	}
	return &Tree{suffix: nsuffix, depth: dn.Depth(nsuffix)}, nil
}

// Suffix returns the normalized suffix.
func (t *Tree) Suffix() string {
	return t.suffix
}

// SetLegacy selects the record format for new child records. Legacy records
// carry no subtree count and are not maintained on add and remove.
func (t *Tree) SetLegacy(legacy bool) {
	t.mu.Lock()
	t.legacy = legacy
	t.mu.Unlock()
}

// Legacy reports whether new child records are written in the legacy format.
func (t *Tree) Legacy() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.legacy
}

// fold turns forward-ordered RDNs into node names from the top node down.
// The suffix RDNs fold into the single top node.
func (t *Tree) fold(rdns []string) []string {
	k := t.depth
	if len(rdns) < k {
		return nil
	}
	out := make([]string, 0, len(rdns)-k+1)
	if k > 0 {
		out = append(out, dn.Join(rdns[len(rdns)-k:]))
	}
	for i := len(rdns) - k - 1; i >= 0; i-- {
		out = append(out, rdns[i])
	}
	return out
}

// path returns the node names of ndn, or ErrNotInSuffix.
func (t *Tree) path(ndn string) ([]string, error) {
	rdns, err := dn.NormalizedRDNs(ndn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrNoSuchObject, err)
	}
	if !dn.IsSuffixOf(dn.Join(rdns), t.suffix) {
		return nil, storage.ErrNotInSuffix
	}
	return t.fold(rdns), nil
}

func key(id storage.ID) []byte {
	return storage.EncodeID(id)
}

// lookup finds the child record named nrdn under parent and returns it with
// its raw bytes.
func lookup(s Store, parent storage.ID, nrdn string) (child, []byte, error) {
	prefix := childPrefix(nrdn)
	v, err := s.SeekDup(storage.TreeDN2ID, key(parent), prefix)
	if errors.Is(err, kv.ErrNotFound) || (err == nil && !bytes.HasPrefix(v, prefix)) {
		return child{}, nil, storage.ErrNoSuchObject
	}
	if err != nil {
		return child{}, nil, err
	}
	c, err := decodeChild(v)
	if err != nil {
		return child{}, nil, err
	}
	return c, v, nil
}

func selfRecord(s Store, id storage.ID) (self, []byte, error) {
	v, err := s.FirstDup(storage.TreeDN2ID, key(id))
	if errors.Is(err, kv.ErrNotFound) || (err == nil && (len(v) == 0 || v[0] != tagSelf)) {
		return self{}, nil, storage.ErrNoSuchObject
	}
	if err != nil {
		return self{}, nil, err
	}
	sr, err := decodeSelf(v)
	return sr, v, err
}

// Resolve returns the ID of the entry or placeholder named ndn. The empty DN
// resolves to the root when the suffix is empty.
func (t *Tree) Resolve(s Store, ndn string) (storage.ID, error) {
	path, err := t.path(ndn)
	if err != nil {
		if errors.Is(err, storage.ErrNotInSuffix) {
			return storage.NOID, storage.ErrNoSuchObject
		}
		return storage.NOID, err
	}

	id := storage.RootID
	for _, nrdn := range path {
		c, _, err := lookup(s, id, nrdn)
		if err != nil {
			return storage.NOID, err
		}
		id = c.id
	}
	return id, nil
}

// EnsureChain assigns the ID for e, creating placeholder nodes for missing
// ancestors. Parents get their IDs before their children. An existing node
// for e is reused only if it is a placeholder; it is then removed from holes.
// e.NDN is filled in when empty.
func (t *Tree) EnsureChain(s Store, e *storage.Entry, alloc Allocator, holes *Holes) (storage.ID, error) {
	nrdns, err := dn.NormalizedRDNs(e.DN)
	if err != nil {
		return storage.NOID, fmt.Errorf("dn2id: %s: %w", e.DN, err)
	}
	ndn := dn.Join(nrdns)
	if e.NDN == "" {
		e.NDN = ndn
	}
	if len(nrdns) == 0 || !dn.IsSuffixOf(ndn, t.suffix) {
		return storage.NOID, storage.ErrNotInSuffix
	}

	prdns, err := dn.Parse(e.DN)
	if err != nil {
		return storage.NOID, err
	}

	path := t.fold(nrdns)
	if len(path) == 0 {
		return storage.NOID, storage.ErrNotInSuffix
	}
	c := chain{
		tree:   t,
		s:      s,
		alloc:  alloc,
		holes:  holes,
		path:   path,
		pretty: t.fold(prdns),
		prdns:  prdns,
		legacy: t.Legacy(),
	}

	id, created, err := c.ensure(len(path))
	if err != nil {
		return storage.NOID, err
	}
	if created {
		return id, nil
	}

	if holes != nil && holes.Fill(id) {
		return id, nil
	}
	v, err := s.Get(storage.TreeID2Entry, key(id))
	if err == nil && len(v) == 0 {
		return id, nil
	}
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return storage.NOID, err
	}
	return storage.NOID, storage.ErrAlreadyExists
}

// chain carries the state of one EnsureChain call through the recursion.
type chain struct {
	tree   *Tree
	s      Store
	alloc  Allocator
	holes  *Holes
	path   []string
	pretty []string
	prdns  []string
	legacy bool
}

// ensure resolves or creates the node for path[:n]. The recursion depth is
// bounded by the number of RDNs in the DN.
func (c *chain) ensure(n int) (storage.ID, bool, error) {
	if n == 0 {
		return storage.RootID, false, nil
	}

	parent, _, err := c.ensure(n - 1)
	if err != nil {
		return storage.NOID, false, err
	}

	existing, _, err := lookup(c.s, parent, c.path[n-1])
	if err == nil {
		return existing.id, false, nil
	}
	if !errors.Is(err, storage.ErrNoSuchObject) {
		return storage.NOID, false, err
	}

	id, err := c.alloc.Next(c.s)
	if err != nil {
		return storage.NOID, false, err
	}
	if err := link(c.s, parent, id, c.path[n-1], c.pretty[n-1], c.legacy); err != nil {
		return storage.NOID, false, err
	}

	if n < len(c.path) {
		if err := c.s.Put(storage.TreeID2Entry, key(id), nil); err != nil {
			return storage.NOID, false, err
		}
		if c.holes != nil {
			c.holes.Add(id, c.prettyDN(n))
		}
	}
	return id, true, nil
}

// prettyDN returns the DN of the node at path depth n.
func (c *chain) prettyDN(n int) string {
	k := n
	if c.tree.depth > 0 {
		k = c.tree.depth + n - 1
	}
	return dn.Join(c.prdns[len(c.prdns)-k:])
}

// link writes the self record of id and its child record under parent.
func link(s Store, parent, id storage.ID, nrdn, rdn string, legacy bool) error {
	if err := checkRDN(nrdn); err != nil {
		return err
	}
	if err := checkRDN(rdn); err != nil {
		return err
	}

	sr := self{parent: parent, nrdn: nrdn, rdn: rdn}
	if err := s.PutDup(storage.TreeDN2ID, key(id), sr.encode()); err != nil {
		return err
	}
	cr := child{nrdn: nrdn, rdn: rdn, id: id, count: 1, hasCount: !legacy}
	if err := s.PutDup(storage.TreeDN2ID, key(parent), cr.encode()); err != nil {
		return err
	}
	return adjust(s, parent, 1)
}

// adjust adds delta to the subtree count stored for id and every ancestor
// of it. Records without a count are left alone.
func adjust(s Store, id storage.ID, delta int64) error {
	for id != storage.RootID {
		sr, _, err := selfRecord(s, id)
		if err != nil {
			return err
		}
		c, old, err := lookup(s, sr.parent, sr.nrdn)
		if err != nil {
			return fmt.Errorf("%w: node %d missing under parent %d", storage.ErrInternal, id, sr.parent)
		}
		if c.hasCount {
			next := int64(c.count) + delta
			if next < 1 {
				next = 1
			}
			c.count = uint64(next)
			if err := s.DeleteDup(storage.TreeDN2ID, key(sr.parent), old); err != nil {
				return err
			}
			if err := s.PutDup(storage.TreeDN2ID, key(sr.parent), c.encode()); err != nil {
				return err
			}
		}
		id = sr.parent
	}
	return nil
}

// HasChildren reports whether the node id has child nodes.
func (t *Tree) HasChildren(s Store, id storage.ID) (bool, error) {
	n, err := s.CountDups(storage.TreeDN2ID, key(id))
	if errors.Is(err, kv.ErrNotFound) {
		if id == storage.RootID {
			return false, nil
		}
		return false, storage.ErrNoSuchObject
	}
	if err != nil {
		return false, err
	}
	if id == storage.RootID {
		return n > 0, nil
	}
	return n > 1, nil
}

// Remove deletes the node id. It fails with ErrHasChildren while the node
// still has children.
func (t *Tree) Remove(s Store, id storage.ID) error {
	if id == storage.RootID || id == storage.NOID {
		return storage.ErrNoSuchObject
	}

	has, err := t.HasChildren(s, id)
	if err != nil {
		return err
	}
	if has {
		return storage.ErrHasChildren
	}

	sr, selfRaw, err := selfRecord(s, id)
	if err != nil {
		return err
	}
	c, childRaw, err := lookup(s, sr.parent, sr.nrdn)
	if err != nil {
		return fmt.Errorf("%w: node %d missing under parent %d", storage.ErrInternal, id, sr.parent)
	}
	if c.id != id {
		return fmt.Errorf("%w: node %d linked as %d", storage.ErrInternal, id, c.id)
	}

	if err := adjust(s, sr.parent, -1); err != nil {
		return err
	}
	if err := s.DeleteDup(storage.TreeDN2ID, key(id), selfRaw); err != nil {
		return err
	}
	return s.DeleteDup(storage.TreeDN2ID, key(sr.parent), childRaw)
}

// Name rebuilds the DN and the normalized DN of id from the self records.
func (t *Tree) Name(s Store, id storage.ID) (string, string, error) {
	var rdns, nrdns []string
	for id != storage.RootID {
		sr, _, err := selfRecord(s, id)
		if err != nil {
			return "", "", err
		}
		rdns = append(rdns, sr.rdn)
		nrdns = append(nrdns, sr.nrdn)
		if len(rdns) > maxDepth {
			return "", "", fmt.Errorf("%w: DN tree cycle at %d", storage.ErrInternal, id)
		}
		id = sr.parent
	}
	return dn.Join(rdns), dn.Join(nrdns), nil
}

// Parent returns the parent ID of id.
func (t *Tree) Parent(s Store, id storage.ID) (storage.ID, error) {
	sr, _, err := selfRecord(s, id)
	if err != nil {
		return storage.NOID, err
	}
	return sr.parent, nil
}

// Children returns the IDs of the children of id in record order.
func (t *Tree) Children(s Store, id storage.ID) ([]storage.ID, error) {
	var out []storage.ID
	v, err := s.SeekDup(storage.TreeDN2ID, key(id), []byte{tagChild})
	for err == nil {
		c, derr := decodeChild(v)
		if derr != nil {
			return nil, derr
		}
		out = append(out, c.id)
		v, err = s.NextDup(storage.TreeDN2ID, key(id), v)
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// SubtreeCount returns the number of nodes in the subtree of id, id
// included. ok is false when the record is in the legacy format.
func (t *Tree) SubtreeCount(s Store, id storage.ID) (count uint64, ok bool, err error) {
	sr, _, err := selfRecord(s, id)
	if err != nil {
		return 0, false, err
	}
	c, _, err := lookup(s, sr.parent, sr.nrdn)
	if err != nil {
		return 0, false, err
	}
	return c.count, c.hasCount, nil
}
