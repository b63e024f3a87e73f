package dn2id

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Record tags. The self record of a node sorts before its child records.
const (
	tagSelf  byte = 0x00
	tagChild byte = 0x01
)

// ErrCorruptRecord is returned for undecodable dn2id records.
var ErrCorruptRecord = errors.New("dn2id: corrupt record")

// self is the record a node stores under its own ID.
type self struct {
	parent storage.ID
	nrdn   string
	rdn    string
}

// child is the record a parent stores for each of its children.
type child struct {
	nrdn string
	rdn  string
	id   storage.ID
	// count is the number of nodes in the child's subtree, the child
	// included. hasCount is false for legacy records.
	count    uint64
	hasCount bool
}

func putString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, ErrCorruptRecord
	}
	n := int(binary.BigEndian.Uint16(buf))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, ErrCorruptRecord
	}
	return string(buf[:n]), buf[n:], nil
}

func checkRDN(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("dn2id: RDN too long (%d bytes)", len(s))
	}
	return nil
}

func (s self) encode() []byte {
	buf := make([]byte, 0, 1+storage.IDSize+4+len(s.nrdn)+len(s.rdn))
	buf = append(buf, tagSelf)
	buf = binary.BigEndian.AppendUint64(buf, uint64(s.parent))
	buf = putString(buf, s.nrdn)
	return putString(buf, s.rdn)
}

func decodeSelf(buf []byte) (self, error) {
	var s self
	if len(buf) < 1+storage.IDSize || buf[0] != tagSelf {
		return s, ErrCorruptRecord
	}
	s.parent = storage.DecodeID(buf[1:])
	rest := buf[1+storage.IDSize:]

	var err error
	if s.nrdn, rest, err = readString(rest); err != nil {
		return s, err
	}
	if s.rdn, rest, err = readString(rest); err != nil {
		return s, err
	}
	if len(rest) != 0 {
		return s, ErrCorruptRecord
	}
	return s, nil
}

// childPrefix is the leading part of every child record for nrdn. It is
// unique per parent, so seeking to it finds the record.
func childPrefix(nrdn string) []byte {
	buf := make([]byte, 0, 3+len(nrdn))
	buf = append(buf, tagChild)
	return putString(buf, nrdn)
}

func (c child) encode() []byte {
	buf := make([]byte, 0, 1+4+len(c.nrdn)+len(c.rdn)+2*storage.IDSize)
	buf = append(buf, tagChild)
	buf = putString(buf, c.nrdn)
	buf = putString(buf, c.rdn)
	buf = binary.BigEndian.AppendUint64(buf, uint64(c.id))
	if c.hasCount {
		buf = binary.BigEndian.AppendUint64(buf, c.count)
	}
	return buf
}

// decodeChild accepts both the current and the legacy layout; they differ
// only by the trailing subtree count.
func decodeChild(buf []byte) (child, error) {
	var c child
	if len(buf) < 1 || buf[0] != tagChild {
		return c, ErrCorruptRecord
	}

	rest := buf[1:]
	var err error
	if c.nrdn, rest, err = readString(rest); err != nil {
		return c, err
	}
	if c.rdn, rest, err = readString(rest); err != nil {
		return c, err
	}

	switch len(rest) {
	case storage.IDSize:
		c.id = storage.DecodeID(rest)
	case 2 * storage.IDSize:
		c.id = storage.DecodeID(rest)
		c.count = binary.BigEndian.Uint64(rest[storage.IDSize:])
		c.hasCount = true
	default:
		return c, ErrCorruptRecord
	}
	return c, nil
}
