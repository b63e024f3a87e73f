package storage

import "strings"

// Tree names.
const (
	TreeID2Entry = "id2entry"
	TreeDN2ID    = "dn2id"
	TreeMeta     = "meta"

	// IndexTreePrefix prefixes the lowercased attribute name of an index tree.
	IndexTreePrefix = "idx."
)

// Keys of the meta tree.
var (
	MetaNextID = []byte("nextid")
	MetaFlags  = []byte("flags")
)

// FlagDN2IDLegacy marks a DN tree whose child records carry no subtree count.
const FlagDN2IDLegacy uint64 = 1 << 0

// IndexTree returns the tree holding the index of attr.
func IndexTree(attr string) string {
	return IndexTreePrefix + strings.ToLower(attr)
}
