package storage

import (
	"encoding/binary"
	"strings"
)

// ID identifies an entry in the entry store, the DN tree and the index trees.
type ID uint64

// NOID is the invalid/unallocated identifier.
const NOID ID = ^ID(0)

// RootID is the implicit parent of the backend suffix in the DN tree.
const RootID ID = 0

// IDSize is the on-disk size of an encoded ID.
const IDSize = 8

// EncodeID returns the big-endian encoding of id.
func EncodeID(id ID) []byte {
	buf := make([]byte, IDSize)
	binary.BigEndian.PutUint64(buf, uint64(id))
	return buf
}

// PutID writes the big-endian encoding of id into buf.
func PutID(buf []byte, id ID) {
	binary.BigEndian.PutUint64(buf, uint64(id))
}

// DecodeID decodes a big-endian ID. It returns NOID if buf is too short.
func DecodeID(buf []byte) ID {
	if len(buf) < IDSize {
		return NOID
	}
	return ID(binary.BigEndian.Uint64(buf))
}

// Scope represents the LDAP search scope.
type Scope int

// Scope constants.
const (
	// ScopeBase returns only the base entry itself.
	ScopeBase Scope = iota
	// ScopeOneLevel returns only the immediate children of the base entry.
	ScopeOneLevel
	// ScopeSubtree returns the base entry and all its descendants.
	ScopeSubtree
)

// String returns the LDAP name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeBase:
		return "base"
	case ScopeOneLevel:
		return "one"
	case ScopeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

// ParseScope parses "base", "one" or "sub". Unknown values map to subtree.
func ParseScope(s string) Scope {
	switch strings.ToLower(s) {
	case "base":
		return ScopeBase
	case "one", "onelevel":
		return ScopeOneLevel
	default:
		return ScopeSubtree
	}
}

// Attribute is one attribute of an entry with its ordered values.
type Attribute struct {
	Type   string
	Values [][]byte
}

// Entry represents a directory entry.
type Entry struct {
	// ID is assigned by the DN tree when the entry is stored.
	ID ID

	// DN is the distinguished name as supplied by the caller.
	DN string

	// NDN is the normalized DN. It is filled in by the backend when empty.
	NDN string

	// Attributes in the order they were supplied.
	Attributes []Attribute
}

// NewEntry creates a new Entry with the given DN.
func NewEntry(dn string) *Entry {
	return &Entry{
		ID: NOID,
		DN: dn,
	}
}

func (e *Entry) find(name string) int {
	for i := range e.Attributes {
		if strings.EqualFold(e.Attributes[i].Type, name) {
			return i
		}
	}
	return -1
}

// GetAttribute returns the values for the given attribute name.
func (e *Entry) GetAttribute(name string) [][]byte {
	if i := e.find(name); i >= 0 {
		return e.Attributes[i].Values
	}
	return nil
}

// HasAttribute returns true if the entry has the given attribute.
func (e *Entry) HasAttribute(name string) bool {
	return e.find(name) >= 0
}

// SetAttribute replaces the values of the given attribute, appending the
// attribute if the entry does not have it yet.
func (e *Entry) SetAttribute(name string, values [][]byte) {
	if i := e.find(name); i >= 0 {
		e.Attributes[i].Values = values
		return
	}
	e.Attributes = append(e.Attributes, Attribute{Type: name, Values: values})
}

// AddAttributeValue adds a value to the given attribute.
func (e *Entry) AddAttributeValue(name string, value []byte) {
	if i := e.find(name); i >= 0 {
		e.Attributes[i].Values = append(e.Attributes[i].Values, value)
		return
	}
	e.Attributes = append(e.Attributes, Attribute{Type: name, Values: [][]byte{value}})
}

// SetStringAttribute sets string values for the given attribute name.
func (e *Entry) SetStringAttribute(name string, values ...string) {
	byteValues := make([][]byte, len(values))
	for i, v := range values {
		byteValues[i] = []byte(v)
	}
	e.SetAttribute(name, byteValues)
}

// RemoveAttribute deletes the attribute and reports whether it was present.
func (e *Entry) RemoveAttribute(name string) bool {
	i := e.find(name)
	if i < 0 {
		return false
	}
	e.Attributes = append(e.Attributes[:i], e.Attributes[i+1:]...)
	return true
}

// Clone creates a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}

	clone := &Entry{
		ID:         e.ID,
		DN:         e.DN,
		NDN:        e.NDN,
		Attributes: make([]Attribute, len(e.Attributes)),
	}

	for i, attr := range e.Attributes {
		values := make([][]byte, len(attr.Values))
		for j, val := range attr.Values {
			values[j] = make([]byte, len(val))
			copy(values[j], val)
		}
		clone.Attributes[i] = Attribute{Type: attr.Type, Values: values}
	}

	return clone
}
