package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/index"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

func candidateFixture(t *testing.T) (*kv.Txn, *index.Set) {
	t.Helper()

	set, err := index.NewSet([]index.Index{
		{Attribute: "uid", Types: index.TypeEq},
		{Attribute: "mail", Types: index.TypePres},
		{Attribute: "cn", Types: index.TypeEq | index.TypeSub},
	})
	require.NoError(t, err)

	env, err := kv.Open(kv.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	require.NoError(t, env.EnsureTrees(set.TreeSpecs()...))

	people := []struct {
		id   storage.ID
		uid  string
		cn   string
		mail bool
	}{
		{1, "alice", "Alice Anderson", true},
		{2, "bob", "Bob Builder", false},
		{3, "carol", "Carol Anders", true},
	}

	txn, err := env.Begin(true)
	require.NoError(t, err)
	t.Cleanup(txn.Abort)

	for _, p := range people {
		e := storage.NewEntry("uid=" + p.uid + ",dc=example,dc=com")
		e.SetStringAttribute("uid", p.uid)
		e.SetStringAttribute("cn", p.cn)
		if p.mail {
			e.SetStringAttribute("mail", p.uid+"@example.com")
		}
		for pos := 0; pos < set.Len(); pos++ {
			idx := set.At(pos)
			require.NoError(t, index.InsertKeys(txn, idx.Tree(), idx.Keys(e), p.id, 0))
		}
	}
	return txn, set
}

func TestCandidates(t *testing.T) {
	txn, set := candidateFixture(t)

	tests := []struct {
		filter string
		want   []uint64 // nil means full scan
	}{
		{"(uid=alice)", []uint64{1}},
		{"(uid=ALICE)", []uint64{1}},
		{"(uid=nobody)", []uint64{}},
		{"(mail=*)", []uint64{1, 3}},
		{"(cn=*ander*)", []uint64{1, 3}},
		{"(cn=bob*)", []uint64{2}},
		{"(cn=*an*)", nil},
		{"(uid=*)", nil},
		{"(sn=x)", nil},
		{"(&(mail=*)(cn=*anders*))", []uint64{1, 3}},
		{"(&(mail=*)(uid=carol))", []uint64{3}},
		{"(&(sn=x)(uid=bob))", []uint64{2}},
		{"(|(uid=alice)(uid=bob))", []uint64{1, 2}},
		{"(|(uid=alice)(sn=x))", nil},
		{"(!(uid=alice))", nil},
		{"(uid>=a)", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := Parse(tt.filter)
			require.NoError(t, err)

			bm, err := Candidates(txn, set, f)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, bm)
				return
			}
			require.NotNil(t, bm)
			assert.Equal(t, tt.want, append([]uint64{}, bm.ToArray()...))
		})
	}
}

func TestCandidatesWithoutIndexes(t *testing.T) {
	bm, err := Candidates(nil, nil, NewEquality("uid", []byte("alice")))
	require.NoError(t, err)
	assert.Nil(t, bm)
}

func TestCandidatesFoldCaseLikeEvaluate(t *testing.T) {
	set, err := index.NewSet([]index.Index{
		{Attribute: "cn", Types: index.TypeEq | index.TypeSub},
	})
	require.NoError(t, err)

	env, err := kv.Open(kv.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	require.NoError(t, env.EnsureTrees(set.TreeSpecs()...))

	txn, err := env.Begin(true)
	require.NoError(t, err)
	t.Cleanup(txn.Abort)

	// long s and the Kelvin sign fold to plain ASCII letters
	entries := map[storage.ID]*storage.Entry{
		1: storage.NewEntry("cn=\u017fam,dc=example,dc=com"),
		2: storage.NewEntry("cn=\u212aelvin,dc=example,dc=com"),
	}
	entries[1].SetStringAttribute("cn", "\u017fam")
	entries[2].SetStringAttribute("cn", "\u212aelvin")
	for id, e := range entries {
		idx := set.At(0)
		require.NoError(t, index.InsertKeys(txn, idx.Tree(), idx.Keys(e), id, 0))
	}

	tests := []struct {
		filter string
		id     storage.ID
	}{
		{"(cn=sam)", 1},
		{"(cn=SAM)", 1},
		{"(cn=sa*)", 1},
		{"(cn=*sam)", 1},
		{"(cn=kelvin)", 2},
		{"(cn=*elvin*)", 2},
		{"(cn=kel*)", 2},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			f, err := Parse(tt.filter)
			require.NoError(t, err)
			require.True(t, Evaluate(f, entries[tt.id]))

			bm, err := Candidates(txn, set, f)
			require.NoError(t, err)
			if bm != nil {
				assert.True(t, bm.Contains(uint64(tt.id)))
			}
		})
	}
}
