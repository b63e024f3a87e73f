package dn2id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obakv/internal/logging"
	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/idalloc"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

type fixture struct {
	env   *kv.Env
	tree  *Tree
	alloc *idalloc.Allocator
	holes *Holes
}

func newFixture(t *testing.T, suffix string) *fixture {
	t.Helper()
	env, err := kv.Open(kv.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	require.NoError(t, env.EnsureTrees(
		kv.TreeSpec{Name: storage.TreeDN2ID, Dup: true},
		kv.TreeSpec{Name: storage.TreeID2Entry},
		kv.TreeSpec{Name: storage.TreeMeta},
	))

	tree, err := New(suffix)
	require.NoError(t, err)
	return &fixture{env: env, tree: tree, alloc: idalloc.New(), holes: &Holes{}}
}

// add stores e with a non-empty id2entry record, as the loader would.
func (f *fixture) add(t *testing.T, dn string) storage.ID {
	t.Helper()
	var id storage.ID
	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		var err error
		id, err = f.tree.EnsureChain(txn, storage.NewEntry(dn), f.alloc, f.holes)
		if err != nil {
			return err
		}
		return txn.Put(storage.TreeID2Entry, storage.EncodeID(id), []byte{1, 0})
	}))
	return id
}

func (f *fixture) resolve(t *testing.T, ndn string) (storage.ID, error) {
	t.Helper()
	var id storage.ID
	var rerr error
	require.NoError(t, f.env.View(func(txn *kv.Txn) error {
		id, rerr = f.tree.Resolve(txn, ndn)
		return nil
	}))
	return id, rerr
}

func TestHoleCreatedAndFilled(t *testing.T) {
	f := newFixture(t, "dc=com")

	exampleID := f.add(t, "dc=example,dc=com")
	require.Equal(t, 1, f.holes.Len())
	hole := f.holes.List()[0]
	assert.Equal(t, "dc=com", hole.DN)
	assert.Less(t, hole.ID, exampleID, "parents are numbered before children")

	require.NoError(t, f.env.View(func(txn *kv.Txn) error {
		v, err := txn.Get(storage.TreeID2Entry, storage.EncodeID(hole.ID))
		require.NoError(t, err)
		assert.Empty(t, v)
		return nil
	}))

	comID := f.add(t, "DC=Com")
	assert.Equal(t, hole.ID, comID)
	assert.Equal(t, 0, f.holes.Len())

	id, err := f.resolve(t, "dc=example,dc=com")
	require.NoError(t, err)
	assert.Equal(t, exampleID, id)
}

func TestHolesForEmptySuffix(t *testing.T) {
	f := newFixture(t, "")

	f.add(t, "uid=alice,ou=People,dc=example,dc=com")
	holes := f.holes.List()
	require.Len(t, holes, 3)
	assert.Equal(t, "dc=com", holes[0].DN)
	assert.Equal(t, "dc=example,dc=com", holes[1].DN)
	assert.Equal(t, "ou=People,dc=example,dc=com", holes[2].DN)

	id, err := f.resolve(t, "ou=people,dc=example,dc=com")
	require.NoError(t, err)
	assert.Equal(t, holes[2].ID, id)
}

func TestEnsureChainRejectsDuplicatesAndForeignDNs(t *testing.T) {
	f := newFixture(t, "dc=example,dc=com")
	f.add(t, "dc=example,dc=com")

	err := f.env.Update(func(txn *kv.Txn) error {
		_, err := f.tree.EnsureChain(txn, storage.NewEntry("dc=EXAMPLE, dc=com"), f.alloc, f.holes)
		return err
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	for _, dn := range []string{"dc=com", "dc=other,dc=com", ""} {
		err := f.env.Update(func(txn *kv.Txn) error {
			_, err := f.tree.EnsureChain(txn, storage.NewEntry(dn), f.alloc, f.holes)
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotInSuffix, dn)
	}
}

func TestResolveMisses(t *testing.T) {
	f := newFixture(t, "dc=com")
	f.add(t, "dc=com")

	_, err := f.resolve(t, "dc=missing,dc=com")
	assert.ErrorIs(t, err, storage.ErrNoSuchObject)
	_, err = f.resolve(t, "dc=org")
	assert.ErrorIs(t, err, storage.ErrNoSuchObject)
}

func TestNameAndChildren(t *testing.T) {
	f := newFixture(t, "dc=example,dc=com")
	root := f.add(t, "dc=Example,dc=COM")
	people := f.add(t, "ou=People,dc=Example,dc=COM")
	alice := f.add(t, "uid=Alice,ou=People,dc=Example,dc=COM")
	bob := f.add(t, "uid=Bob,ou=People,dc=Example,dc=COM")

	require.NoError(t, f.env.View(func(txn *kv.Txn) error {
		name, nname, err := f.tree.Name(txn, alice)
		require.NoError(t, err)
		assert.Equal(t, "uid=Alice,ou=People,dc=Example,dc=COM", name)
		assert.Equal(t, "uid=alice,ou=people,dc=example,dc=com", nname)

		kids, err := f.tree.Children(txn, people)
		require.NoError(t, err)
		assert.ElementsMatch(t, []storage.ID{alice, bob}, kids)

		parent, err := f.tree.Parent(txn, people)
		require.NoError(t, err)
		assert.Equal(t, root, parent)

		top, err := f.tree.Children(txn, storage.RootID)
		require.NoError(t, err)
		assert.Equal(t, []storage.ID{root}, top)
		return nil
	}))
}

func TestRemove(t *testing.T) {
	f := newFixture(t, "dc=com")
	f.add(t, "dc=com")
	parent := f.add(t, "ou=people,dc=com")
	leaf := f.add(t, "uid=a,ou=people,dc=com")

	err := f.env.Update(func(txn *kv.Txn) error {
		return f.tree.Remove(txn, parent)
	})
	assert.ErrorIs(t, err, storage.ErrHasChildren)

	id, err := f.resolve(t, "ou=people,dc=com")
	require.NoError(t, err)
	assert.Equal(t, parent, id)

	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		has, err := f.tree.HasChildren(txn, parent)
		require.NoError(t, err)
		assert.True(t, has)

		require.NoError(t, f.tree.Remove(txn, leaf))

		has, err = f.tree.HasChildren(txn, parent)
		require.NoError(t, err)
		assert.False(t, has)
		return nil
	}))

	_, err = f.resolve(t, "uid=a,ou=people,dc=com")
	assert.ErrorIs(t, err, storage.ErrNoSuchObject)

	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		assert.ErrorIs(t, f.tree.Remove(txn, leaf), storage.ErrNoSuchObject)
		return f.tree.Remove(txn, parent)
	}))
}

func TestSubtreeCounts(t *testing.T) {
	f := newFixture(t, "dc=com")
	com := f.add(t, "dc=com")
	people := f.add(t, "ou=people,dc=com")
	f.add(t, "uid=a,ou=people,dc=com")
	b := f.add(t, "uid=b,ou=people,dc=com")
	f.add(t, "ou=groups,dc=com")

	count := func(id storage.ID) uint64 {
		var n uint64
		require.NoError(t, f.env.View(func(txn *kv.Txn) error {
			c, ok, err := f.tree.SubtreeCount(txn, id)
			require.NoError(t, err)
			require.True(t, ok)
			n = c
			return nil
		}))
		return n
	}

	assert.Equal(t, uint64(5), count(com))
	assert.Equal(t, uint64(3), count(people))
	assert.Equal(t, uint64(1), count(b))

	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		return f.tree.Remove(txn, b)
	}))
	assert.Equal(t, uint64(4), count(com))
	assert.Equal(t, uint64(2), count(people))
}

func buildLegacy(t *testing.T, f *fixture) map[string]storage.ID {
	t.Helper()
	f.tree.SetLegacy(true)
	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		return MarkLegacy(txn)
	}))

	ids := make(map[string]storage.ID)
	for _, dn := range []string{
		"dc=com",
		"ou=people,dc=com",
		"uid=a,ou=people,dc=com",
		"uid=b,ou=people,dc=com",
		"uid=c,ou=people,dc=com",
		"ou=groups,dc=com",
		"cn=admins,ou=groups,dc=com",
	} {
		ids[dn] = f.add(t, dn)
	}
	return ids
}

func TestUpgrade(t *testing.T) {
	f := newFixture(t, "dc=com")
	ids := buildLegacy(t, f)

	require.NoError(t, f.env.View(func(txn *kv.Txn) error {
		_, ok, err := f.tree.SubtreeCount(txn, ids["ou=people,dc=com"])
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	}))

	n, err := f.tree.Upgrade(f.env, 2, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(ids), n)
	assert.False(t, f.tree.Legacy())

	want := map[string]uint64{
		"dc=com":                     7,
		"ou=people,dc=com":           4,
		"uid=b,ou=people,dc=com":     1,
		"ou=groups,dc=com":           2,
		"cn=admins,ou=groups,dc=com": 1,
	}
	require.NoError(t, f.env.View(func(txn *kv.Txn) error {
		needed, err := NeedsUpgrade(txn)
		require.NoError(t, err)
		assert.False(t, needed)

		for dn, c := range want {
			got, ok, err := f.tree.SubtreeCount(txn, ids[dn])
			require.NoError(t, err)
			assert.True(t, ok, dn)
			assert.Equal(t, c, got, dn)
		}

		// Lookups still work on rewritten records.
		id, err := f.tree.Resolve(txn, "uid=c,ou=people,dc=com")
		require.NoError(t, err)
		assert.Equal(t, ids["uid=c,ou=people,dc=com"], id)
		return nil
	}))

	again, err := f.tree.Upgrade(f.env, 2, logging.NewNop())
	require.NoError(t, err)
	assert.Zero(t, again)
}

func TestUpgradeNoopOnEmptyDatabase(t *testing.T) {
	f := newFixture(t, "dc=com")
	require.NoError(t, f.env.Update(func(txn *kv.Txn) error {
		return MarkLegacy(txn)
	}))

	n, err := f.tree.Upgrade(f.env, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordLayouts(t *testing.T) {
	cur := child{nrdn: "uid=a", rdn: "uid=A", id: 42, count: 3, hasCount: true}
	got, err := decodeChild(cur.encode())
	require.NoError(t, err)
	assert.Equal(t, cur, got)

	legacy := child{nrdn: "uid=a", rdn: "uid=A", id: 42}
	got, err = decodeChild(legacy.encode())
	require.NoError(t, err)
	assert.False(t, got.hasCount)
	assert.Equal(t, storage.ID(42), got.id)

	_, err = decodeChild(append(legacy.encode(), 1))
	assert.ErrorIs(t, err, ErrCorruptRecord)

	s := self{parent: 7, nrdn: "dc=com", rdn: "DC=Com"}
	gotSelf, err := decodeSelf(s.encode())
	require.NoError(t, err)
	assert.Equal(t, s, gotSelf)
}

func TestHolesList(t *testing.T) {
	var h Holes
	h.Add(5, "e")
	h.Add(2, "b")
	h.Add(9, "i")
	h.Add(2, "dup")

	assert.Equal(t, []Hole{{2, "b"}, {5, "e"}, {9, "i"}}, h.List())

	snap := h.Snapshot()
	assert.True(t, h.Fill(5))
	assert.False(t, h.Fill(5))
	assert.False(t, h.Fill(3))
	assert.True(t, h.Contains(9))
	assert.Equal(t, 2, h.Len())

	h.Restore(snap)
	assert.Equal(t, 3, h.Len())
	assert.True(t, h.Contains(5))
}
