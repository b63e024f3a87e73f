package index

import (
	"bytes"
	"crypto/sha256"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxKeyLen is the longest key stored verbatim.
const MaxKeyLen = 512

// Key prefixes.
const (
	prefixPresence  = 'p'
	prefixEquality  = 'e'
	prefixSubstring = 's'
	prefixHashed    = 'h'
)

// Normalize case folds v and collapses runs of whitespace into one space.
func Normalize(v []byte) string {
	return strings.Join(strings.Fields(FoldCase(string(v))), " ")
}

// FoldCase maps every rune of s to the lower case form of the smallest rune
// of its case folding orbit. Strings that bytes.EqualFold reports equal
// fold to the same result, which strings.ToLower does not guarantee: "ſ"
// (long s) and the Kelvin sign stay distinct from "s" and "k" there.
func FoldCase(s string) string {
	return strings.Map(foldRune, s)
}

func foldRune(r rune) rune {
	if r < utf8.RuneSelf {
		if 'A' <= r && r <= 'Z' {
			r += 'a' - 'A'
		}
		return r
	}
	rep := r
	for f := unicode.SimpleFold(r); f != r; f = unicode.SimpleFold(f) {
		if f < rep {
			rep = f
		}
	}
	return unicode.ToLower(rep)
}

func finish(key []byte) []byte {
	if len(key) <= MaxKeyLen {
		return key
	}
	sum := sha256.Sum256(key)
	return append([]byte{prefixHashed}, sum[:]...)
}

// PresenceKey returns the presence key.
func PresenceKey() []byte {
	return []byte{prefixPresence}
}

// EqualityKey returns the equality key of a value.
func EqualityKey(v []byte) []byte {
	n := Normalize(v)
	key := make([]byte, 0, 1+len(n))
	key = append(key, prefixEquality)
	return finish(append(key, n...))
}

// SubstringKeys returns the substring keys of a value, one per distinct
// trigram.
func SubstringKeys(v []byte) [][]byte {
	grams := GenerateUniqueNgrams(Normalize(v), NgramSize)
	keys := make([][]byte, 0, len(grams))
	for _, g := range grams {
		keys = append(keys, append([]byte{prefixSubstring}, g...))
	}
	return keys
}

// SubstringPatternKeys returns the keys every match of a substring filter
// component must carry.
func SubstringPatternKeys(part []byte) [][]byte {
	n := Normalize(part)
	if len(n) < NgramSize {
		return nil
	}
	return SubstringKeys([]byte(n))
}

// Keys derives the sorted, distinct index keys of values for the given types.
func Keys(types Type, values [][]byte) [][]byte {
	var keys [][]byte
	if types.Has(TypePres) && len(values) > 0 {
		keys = append(keys, PresenceKey())
	}
	for _, v := range values {
		if types.Has(TypeEq) {
			keys = append(keys, EqualityKey(v))
		}
		if types.Has(TypeSub) {
			keys = append(keys, SubstringKeys(v)...)
		}
	}
	if len(keys) < 2 {
		return keys
	}

	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	out := keys[:1]
	for _, k := range keys[1:] {
		if !bytes.Equal(k, out[len(out)-1]) {
			out = append(out, k)
		}
	}
	return out
}
