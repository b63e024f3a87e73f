package index

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Type is a set of index types.
type Type uint8

const (
	// TypeEq supports equality filters like (uid=alice).
	TypeEq Type = 1 << iota
	// TypePres supports presence filters like (mail=*).
	TypePres
	// TypeSub supports substring filters like (cn=*admin*).
	TypeSub
)

// Index configuration errors.
var (
	ErrUnknownType       = errors.New("index: unknown index type")
	ErrDuplicateIndex    = errors.New("index: attribute indexed twice")
	ErrNoIndexConfigured = errors.New("no index configured")
)

// ParseType parses one index type name.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "eq", "equality":
		return TypeEq, nil
	case "pres", "presence":
		return TypePres, nil
	case "sub", "substr", "substring":
		return TypeSub, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

// ParseTypes parses a list of type names into a set.
func ParseTypes(names []string) (Type, error) {
	var t Type
	for _, n := range names {
		one, err := ParseType(n)
		if err != nil {
			return 0, err
		}
		t |= one
	}
	return t, nil
}

// Has reports whether t includes all of other.
func (t Type) Has(other Type) bool {
	return t&other == other
}

// String returns the type names joined by commas.
func (t Type) String() string {
	var names []string
	if t.Has(TypeEq) {
		names = append(names, "eq")
	}
	if t.Has(TypePres) {
		names = append(names, "pres")
	}
	if t.Has(TypeSub) {
		names = append(names, "sub")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Index describes the index of one attribute.
type Index struct {
	Attribute string
	Types     Type
}

// Tree returns the name of the tree holding the index.
func (i Index) Tree() string {
	return storage.IndexTree(i.Attribute)
}

// Keys returns the index keys for the values of the attribute in e.
func (i Index) Keys(e *storage.Entry) [][]byte {
	values := e.GetAttribute(i.Attribute)
	if len(values) == 0 {
		return nil
	}
	return Keys(i.Types, values)
}

// Set is the ordered list of configured indexes. The position of an index
// in the set selects its cache shard.
type Set struct {
	list   []Index
	byName map[string]int
}

// NewSet validates and orders the configured indexes.
func NewSet(indexes []Index) (*Set, error) {
	s := &Set{byName: make(map[string]int, len(indexes))}
	for _, idx := range indexes {
		name := strings.ToLower(strings.TrimSpace(idx.Attribute))
		if name == "" {
			return nil, fmt.Errorf("index: empty attribute name")
		}
		if idx.Types == 0 {
			return nil, fmt.Errorf("index %s: no index types", name)
		}
		if _, ok := s.byName[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIndex, name)
		}
		s.byName[name] = len(s.list)
		s.list = append(s.list, Index{Attribute: name, Types: idx.Types})
	}
	return s, nil
}

// Len returns the number of indexes.
func (s *Set) Len() int {
	return len(s.list)
}

// At returns the index at position pos.
func (s *Set) At(pos int) Index {
	return s.list[pos]
}

// Lookup returns the position of the index for attr.
func (s *Set) Lookup(attr string) (int, bool) {
	pos, ok := s.byName[strings.ToLower(attr)]
	return pos, ok
}

// Positions resolves attribute names to positions. An empty list selects
// every index. Unknown attributes fail with ErrNoIndexConfigured.
func (s *Set) Positions(attrs []string) ([]int, error) {
	if len(attrs) == 0 {
		out := make([]int, len(s.list))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}

	out := make([]int, 0, len(attrs))
	for _, a := range attrs {
		pos, ok := s.Lookup(a)
		if !ok {
			return nil, fmt.Errorf("%w for %s", ErrNoIndexConfigured, a)
		}
		out = append(out, pos)
	}
	return out, nil
}

// TreeSpecs returns the dup trees backing the indexes.
func (s *Set) TreeSpecs() []kv.TreeSpec {
	specs := make([]kv.TreeSpec, len(s.list))
	for i, idx := range s.list {
		specs[i] = kv.TreeSpec{Name: idx.Tree(), Dup: true}
	}
	return specs
}
