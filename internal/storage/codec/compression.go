package codec

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to encoded entry bodies.
type Compression uint8

const (
	// CompressionNone stores bodies as is.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for bulk loads).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses zstd (better ratio, slower).
	CompressionZSTD Compression = 2
)

// minCompressSize is the smallest body worth compressing.
const minCompressSize = 128

// String returns the configuration name of the algorithm.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses "none", "lz4" or "zstd". The empty string means none.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("%w: unknown compression %q", ErrInvalidCompression, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// compress returns the compressed form of body prefixed with the
// uncompressed length, or nil if compression does not shrink it.
func compress(body []byte, c Compression) ([]byte, error) {
	if c == CompressionNone || len(body) < minCompressSize {
		return nil, nil
	}

	out := binary.AppendUvarint(nil, uint64(len(body)))
	hdr := len(out)

	switch c {
	case CompressionLZ4:
		out = append(out, make([]byte, lz4.CompressBlockBound(len(body)))...)
		n, err := lz4.CompressBlock(body, out[hdr:], nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil
		}
		out = out[:hdr+n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		out = enc.EncodeAll(body, out)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, c)
	}

	if len(out) >= len(body) {
		return nil, nil
	}
	return out, nil
}

func decompress(data []byte, c Compression) ([]byte, error) {
	size, n := binary.Uvarint(data)
	if n <= 0 || size > maxBodySize {
		return nil, fmt.Errorf("%w: bad body length", ErrCorrupt)
	}
	data = data[n:]

	switch c {
	case CompressionLZ4:
		body := make([]byte, size)
		m, err := lz4.UncompressBlock(data, body)
		if err != nil {
			return nil, fmt.Errorf("%w: lz4: %v", ErrCorrupt, err)
		}
		if uint64(m) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return body, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		body, err := dec.DecodeAll(data, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return body, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidCompression, c)
	}
}
