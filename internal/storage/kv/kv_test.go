package kv

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEnv(t *testing.T, opts Options) *Env {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	env, err := Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	require.NoError(t, env.EnsureTrees(
		TreeSpec{Name: "plain"},
		TreeSpec{Name: "dups", Dup: true},
	))
	return env
}

func id(n uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, n)
	return b
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	env := openTestEnv(t, Options{})

	require.NoError(t, env.Update(func(txn *Txn) error {
		require.NoError(t, txn.Put("plain", []byte("a"), []byte("alpha")))
		return txn.Put("plain", []byte("hole"), nil)
	}))

	require.NoError(t, env.View(func(txn *Txn) error {
		v, err := txn.Get("plain", []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("alpha"), v)

		v, err = txn.Get("plain", []byte("hole"))
		require.NoError(t, err)
		assert.NotNil(t, v)
		assert.Empty(t, v)

		_, err = txn.Get("plain", []byte("missing"))
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = txn.Get("nope", []byte("a"))
		assert.ErrorIs(t, err, ErrTreeNotFound)
		return nil
	}))

	require.NoError(t, env.Update(func(txn *Txn) error {
		require.NoError(t, txn.Delete("plain", []byte("a")))
		assert.ErrorIs(t, txn.Delete("plain", []byte("a")), ErrNotFound)
		return nil
	}))
}

func TestReadOnlyTxnRejectsWrites(t *testing.T) {
	env := openTestEnv(t, Options{})

	txn, err := env.Begin(false)
	require.NoError(t, err)
	defer txn.Abort()

	assert.False(t, txn.Writable())
	assert.ErrorIs(t, txn.Put("plain", []byte("a"), []byte("b")), ErrReadOnly)
	assert.ErrorIs(t, txn.PutDup("dups", []byte("a"), id(1)), ErrReadOnly)
}

func TestAbortDiscardsWrites(t *testing.T) {
	env := openTestEnv(t, Options{})

	txn, err := env.Begin(true)
	require.NoError(t, err)
	require.NoError(t, txn.Put("plain", []byte("k"), []byte("v")))
	require.NoError(t, txn.AppendDups("dups", []byte("k"), [][]byte{id(1), id(2)}))
	txn.Abort()
	txn.Abort()

	assert.True(t, txn.Closed())
	assert.ErrorIs(t, txn.Commit(), ErrTxnClosed)

	require.NoError(t, env.View(func(txn *Txn) error {
		_, err := txn.Get("plain", []byte("k"))
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = txn.CountDups("dups", []byte("k"))
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestMaxTxnWrites(t *testing.T) {
	env := openTestEnv(t, Options{MaxTxnWrites: 3})

	txn, err := env.Begin(true)
	require.NoError(t, err)
	defer txn.Abort()

	require.NoError(t, txn.Put("plain", []byte("a"), []byte("1")))
	require.NoError(t, txn.Put("plain", []byte("b"), []byte("2")))
	assert.ErrorIs(t, txn.AppendDups("dups", []byte("k"), [][]byte{id(1), id(2)}), ErrTxnFull)
	require.NoError(t, txn.Put("plain", []byte("c"), []byte("3")))
	assert.ErrorIs(t, txn.Put("plain", []byte("d"), []byte("4")), ErrTxnFull)
	assert.Equal(t, 3, txn.Writes())
}

func TestAppendDups(t *testing.T) {
	env := openTestEnv(t, Options{})
	key := []byte("cn=alice")

	require.NoError(t, env.Update(func(txn *Txn) error {
		require.NoError(t, txn.AppendDups("dups", key, [][]byte{id(1), id(3), id(3), id(7)}))
		require.NoError(t, txn.AppendDups("dups", key, [][]byte{id(7), id(9)}))
		assert.ErrorIs(t, txn.AppendDups("dups", key, [][]byte{id(10), id(4)}), ErrNotAscending)
		assert.ErrorIs(t, txn.AppendDups("dups", key, [][]byte{id(2)}), ErrNotAscending)
		return nil
	}))

	require.NoError(t, env.View(func(txn *Txn) error {
		n, err := txn.CountDups("dups", key)
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		all, err := txn.Dups("dups", key)
		require.NoError(t, err)
		assert.Equal(t, [][]byte{id(1), id(3), id(7), id(9)}, all)
		return nil
	}))
}

func TestDupNavigation(t *testing.T) {
	env := openTestEnv(t, Options{})
	key := []byte("k")

	require.NoError(t, env.Update(func(txn *Txn) error {
		for _, n := range []uint64{5, 2, 9} {
			require.NoError(t, txn.PutDup("dups", key, id(n)))
		}
		return nil
	}))

	require.NoError(t, env.View(func(txn *Txn) error {
		first, err := txn.FirstDup("dups", key)
		require.NoError(t, err)
		assert.Equal(t, id(2), first)

		last, err := txn.LastDup("dups", key)
		require.NoError(t, err)
		assert.Equal(t, id(9), last)

		v, err := txn.SeekDup("dups", key, id(5))
		require.NoError(t, err)
		assert.Equal(t, id(5), v)

		v, err = txn.NextDup("dups", key, id(5))
		require.NoError(t, err)
		assert.Equal(t, id(9), v)

		_, err = txn.NextDup("dups", key, id(9))
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestDeleteDupDropsEmptyKey(t *testing.T) {
	env := openTestEnv(t, Options{})
	key := []byte("k")

	require.NoError(t, env.Update(func(txn *Txn) error {
		require.NoError(t, txn.AppendDups("dups", key, [][]byte{id(1), id(2)}))
		require.NoError(t, txn.DeleteDup("dups", key, id(1)))
		assert.ErrorIs(t, txn.DeleteDup("dups", key, id(1)), ErrNotFound)

		n, err := txn.CountDups("dups", key)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, txn.DeleteDup("dups", key, id(2)))
		_, err = txn.CountDups("dups", key)
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestDeleteKeyAndDrop(t *testing.T) {
	env := openTestEnv(t, Options{})

	require.NoError(t, env.Update(func(txn *Txn) error {
		require.NoError(t, txn.AppendDups("dups", []byte("a"), [][]byte{id(1), id(2)}))
		require.NoError(t, txn.AppendDups("dups", []byte("b"), [][]byte{id(3)}))
		require.NoError(t, txn.DeleteKey("dups", []byte("a")))
		assert.ErrorIs(t, txn.DeleteKey("dups", []byte("a")), ErrNotFound)

		keys, err := txn.DupKeys("dups")
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("b")}, keys)

		require.NoError(t, txn.Drop("dups"))
		empty, err := txn.Empty("dups")
		require.NoError(t, err)
		assert.True(t, empty)
		return nil
	}))
}

func TestCursorClosedOnCommit(t *testing.T) {
	env := openTestEnv(t, Options{})

	txn, err := env.Begin(true)
	require.NoError(t, err)
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, txn.Put("plain", id(i), []byte{byte(i)}))
	}

	cur, err := txn.OpenCursor("plain")
	require.NoError(t, err)

	k, v, ok := cur.First()
	require.True(t, ok)
	assert.Equal(t, id(1), k)
	assert.Equal(t, []byte{1}, v)

	k, _, ok = cur.Seek(id(2))
	require.True(t, ok)
	assert.Equal(t, id(2), k)

	k, _, ok = cur.Last()
	require.True(t, ok)
	assert.Equal(t, id(3), k)

	_, _, ok = cur.Next()
	assert.False(t, ok)

	require.NoError(t, txn.Commit())
	assert.True(t, cur.Closed())
	_, _, ok = cur.First()
	assert.False(t, ok)
}

func TestCountAndLastKey(t *testing.T) {
	env := openTestEnv(t, Options{})

	require.NoError(t, env.Update(func(txn *Txn) error {
		_, err := txn.LastKey("plain")
		assert.ErrorIs(t, err, ErrNotFound)

		for i := uint64(1); i <= 4; i++ {
			require.NoError(t, txn.Put("plain", id(i), nil))
		}
		n, err := txn.Count("plain")
		require.NoError(t, err)
		assert.Equal(t, 4, n)

		last, err := txn.LastKey("plain")
		require.NoError(t, err)
		assert.Equal(t, id(4), last)
		return nil
	}))
}

func TestIsDup(t *testing.T) {
	env := openTestEnv(t, Options{})
	assert.True(t, env.IsDup("dups"))
	assert.False(t, env.IsDup("plain"))
}
