package codec

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

func sampleEntry() *storage.Entry {
	e := storage.NewEntry("uid=alice,ou=Users,dc=example,dc=com")
	e.NDN = "uid=alice,ou=users,dc=example,dc=com"
	e.SetStringAttribute("objectClass", "top", "person", "inetOrgPerson")
	e.SetStringAttribute("uid", "alice")
	e.SetStringAttribute("cn", "Alice Smith")
	e.SetAttribute("jpegPhoto", [][]byte{{0x00, 0xff, 0x10}})
	e.SetStringAttribute("description", repeated(40, "directory entry with a long, repetitive description. ")...)
	return e
}

func repeated(n int, s string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", s, i%3)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(comp.String(), func(t *testing.T) {
			c := New(comp)
			in := sampleEntry()

			data, err := c.Encode(in)
			require.NoError(t, err)
			assert.Equal(t, Version, data[0])
			assert.Equal(t, byte(comp), data[1])

			out, err := c.Decode(data)
			require.NoError(t, err)
			assert.Equal(t, storage.NOID, out.ID)
			assert.Equal(t, in.DN, out.DN)
			assert.Equal(t, in.NDN, out.NDN)
			assert.Equal(t, in.Attributes, out.Attributes)
		})
	}
}

func TestSmallBodiesAreNotCompressed(t *testing.T) {
	e := storage.NewEntry("dc=com")
	e.SetStringAttribute("dc", "com")

	data, err := New(CompressionZSTD).Encode(e)
	require.NoError(t, err)
	assert.Equal(t, byte(CompressionNone), data[1])
}

func TestDecodeAcrossCompressionSettings(t *testing.T) {
	data, err := New(CompressionLZ4).Encode(sampleEntry())
	require.NoError(t, err)

	out, err := New(CompressionNone).Decode(data)
	require.NoError(t, err)
	assert.Equal(t, sampleEntry().Attributes, out.Attributes)
}

func TestEmptyEntry(t *testing.T) {
	data, err := New(CompressionNone).Encode(storage.NewEntry(""))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(data), headerSize)

	out, err := New(CompressionNone).Decode(data)
	require.NoError(t, err)
	assert.Empty(t, out.DN)
	assert.Nil(t, out.Attributes)
}

func TestDecodeErrors(t *testing.T) {
	good, err := New(CompressionNone).Encode(sampleEntry())
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrCorrupt},
		{"one byte", []byte{Version}, ErrCorrupt},
		{"bad version", append([]byte{9}, good[1:]...), ErrUnknownVersion},
		{"truncated", good[:len(good)-3], ErrCorrupt},
		{"trailing", append(bytes.Clone(good), 0x01), ErrCorrupt},
		{"bad compression", []byte{Version, 7, 0x05, 0x00}, ErrInvalidCompression},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(CompressionNone).Decode(tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeNil(t *testing.T) {
	_, err := New(CompressionNone).Encode(nil)
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		in      string
		want    Compression
		wantErr bool
	}{
		{"", CompressionNone, false},
		{"none", CompressionNone, false},
		{"LZ4", CompressionLZ4, false},
		{" zstd ", CompressionZSTD, false},
		{"gzip", CompressionNone, true},
	}

	for _, tt := range tests {
		got, err := ParseCompression(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidCompression, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
