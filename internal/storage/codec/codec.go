// Package codec serializes directory entries into id2entry records.
//
// A record is a two byte header followed by the body:
//
//	[version:1][compression:1][body...]
//
// The body holds the DN, the normalized DN and the attributes in their
// original order. A compressed body is prefixed with its uncompressed length
// as a uvarint. Every record is at least two bytes long, so a zero-length
// id2entry value is never a valid entry.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// Version is the current record format version.
const Version byte = 1

const (
	headerSize  = 2
	maxBodySize = 1 << 30
)

// Codec errors.
var (
	ErrCorrupt            = errors.New("codec: corrupt entry record")
	ErrUnknownVersion     = errors.New("codec: unknown record version")
	ErrInvalidCompression = errors.New("codec: invalid compression")
	ErrInvalidEntry       = errors.New("codec: invalid entry")
)

// Codec encodes and decodes entries. It is safe for concurrent use.
type Codec struct {
	compression Compression
}

// New returns a codec compressing new records with c.
func New(c Compression) *Codec {
	return &Codec{compression: c}
}

// Compression returns the algorithm used for new records.
func (c *Codec) Compression() Compression {
	return c.compression
}

// Encode serializes e. The entry ID is not part of the record.
func (c *Codec) Encode(e *storage.Entry) ([]byte, error) {
	if e == nil {
		return nil, ErrInvalidEntry
	}

	size := 4 + len(e.DN) + 4 + len(e.NDN) + 4
	for _, attr := range e.Attributes {
		if len(attr.Type) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: attribute type too long", ErrInvalidEntry)
		}
		size += 2 + len(attr.Type) + 4
		for _, v := range attr.Values {
			size += 4 + len(v)
		}
	}
	if size > maxBodySize {
		return nil, fmt.Errorf("%w: entry too large", ErrInvalidEntry)
	}

	body := make([]byte, 0, size)
	body = appendString(body, e.DN)
	body = appendString(body, e.NDN)
	body = binary.LittleEndian.AppendUint32(body, uint32(len(e.Attributes)))
	for _, attr := range e.Attributes {
		body = binary.LittleEndian.AppendUint16(body, uint16(len(attr.Type)))
		body = append(body, attr.Type...)
		body = binary.LittleEndian.AppendUint32(body, uint32(len(attr.Values)))
		for _, v := range attr.Values {
			body = binary.LittleEndian.AppendUint32(body, uint32(len(v)))
			body = append(body, v...)
		}
	}

	packed, err := compress(body, c.compression)
	if err != nil {
		return nil, fmt.Errorf("codec: compress: %w", err)
	}

	if packed == nil {
		out := make([]byte, headerSize, headerSize+len(body))
		out[0] = Version
		out[1] = byte(CompressionNone)
		return append(out, body...), nil
	}

	out := make([]byte, headerSize, headerSize+len(packed))
	out[0] = Version
	out[1] = byte(c.compression)
	return append(out, packed...), nil
}

// Decode parses a record produced by Encode. The returned entry has ID NOID.
func (c *Codec) Decode(data []byte) (*storage.Entry, error) {
	if len(data) < headerSize {
		return nil, ErrCorrupt
	}
	if data[0] != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, data[0])
	}

	body := data[headerSize:]
	if comp := Compression(data[1]); comp != CompressionNone {
		var err error
		if body, err = decompress(body, comp); err != nil {
			return nil, err
		}
	}

	r := reader{buf: body}
	e := storage.NewEntry(r.string())
	e.NDN = r.string()

	n := r.uint32()
	if r.err == nil && int(n) > len(r.buf) {
		r.err = ErrCorrupt
	}
	if n > 0 && r.err == nil {
		e.Attributes = make([]storage.Attribute, 0, n)
	}
	for i := uint32(0); i < n && r.err == nil; i++ {
		name := string(r.bytes(int(r.uint16())))
		count := r.uint32()
		if r.err == nil && int(count) > len(r.buf) {
			r.err = ErrCorrupt
		}
		var values [][]byte
		if count > 0 && r.err == nil {
			values = make([][]byte, 0, count)
		}
		for j := uint32(0); j < count && r.err == nil; j++ {
			v := r.bytes(int(r.uint32()))
			values = append(values, append([]byte{}, v...))
		}
		e.Attributes = append(e.Attributes, storage.Attribute{Type: name, Values: values})
	}

	if r.err != nil {
		return nil, r.err
	}
	if len(r.buf) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf))
	}
	return e, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

// reader consumes a body and records the first short read.
type reader struct {
	buf []byte
	err error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf) {
		r.err = ErrCorrupt
		return nil
	}
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

func (r *reader) uint16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *reader) uint32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *reader) string() string {
	return string(r.bytes(int(r.uint32())))
}
