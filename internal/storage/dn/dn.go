// Package dn normalizes distinguished names and splits them into RDN
// components for the DN tree.
package dn

import (
	"errors"
	"strings"
)

// DN parsing errors.
var (
	ErrInvalidDN         = errors.New("invalid DN format")
	ErrInvalidRDN        = errors.New("invalid RDN format")
	ErrEmptyRDNComponent = errors.New("empty RDN component")
)

// Parse splits dn into its RDN components in forward order (leaf first),
// trimming whitespace around every component, type and value. The empty DN
// has no components.
//
//	"uid=alice, ou=users,dc=example,dc=com" -> ["uid=alice", "ou=users", "dc=example", "dc=com"]
func Parse(dn string) ([]string, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return nil, nil
	}

	parts, err := split(dn)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(parts))
	for i, p := range parts {
		rdn, err := cleanRDN(p, false)
		if err != nil {
			return nil, err
		}
		out[i] = rdn
	}
	return out, nil
}

// Normalize returns the normalized form of dn: components trimmed, attribute
// types and values lowercased and runs of spaces inside values collapsed.
// Two DNs naming the same entry normalize to the same string.
func Normalize(dn string) (string, error) {
	rdns, err := NormalizedRDNs(dn)
	if err != nil {
		return "", err
	}
	return strings.Join(rdns, ","), nil
}

// NormalizedRDNs is Normalize returning the components in forward order.
func NormalizedRDNs(dn string) ([]string, error) {
	dn = strings.TrimSpace(dn)
	if dn == "" {
		return nil, nil
	}

	parts, err := split(dn)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(parts))
	for i, p := range parts {
		rdn, err := cleanRDN(p, true)
		if err != nil {
			return nil, err
		}
		out[i] = rdn
	}
	return out, nil
}

// Join joins components given in forward order.
func Join(rdns []string) string {
	return strings.Join(rdns, ",")
}

// Parent returns the parent of a normalized DN, or "" for a single RDN.
func Parent(ndn string) string {
	if i := indexUnescaped(ndn); i >= 0 {
		return ndn[i+1:]
	}
	return ""
}

// RDN returns the leaf component of a normalized DN.
func RDN(ndn string) string {
	if i := indexUnescaped(ndn); i >= 0 {
		return ndn[:i]
	}
	return ndn
}

// IsSuffixOf reports whether the normalized DN ndn equals suffix or lies
// below it. Every DN lies below the empty suffix.
func IsSuffixOf(ndn, suffix string) bool {
	if suffix == "" || ndn == suffix {
		return true
	}
	if !strings.HasSuffix(ndn, suffix) || len(ndn) <= len(suffix) {
		return false
	}
	i := len(ndn) - len(suffix) - 1
	return ndn[i] == ',' && !escapedAt(ndn, i)
}

// IsChildOf reports whether ndn is an immediate child of parent.
func IsChildOf(ndn, parent string) bool {
	if ndn == "" || ndn == parent {
		return false
	}
	return Parent(ndn) == parent
}

// Depth returns the number of components of a normalized DN.
func Depth(ndn string) int {
	if ndn == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(ndn); i++ {
		if ndn[i] == '\\' {
			i++
			continue
		}
		if ndn[i] == ',' {
			n++
		}
	}
	return n
}

// split separates dn at unescaped commas.
func split(dn string) ([]string, error) {
	var components []string
	var current strings.Builder
	escaped := false

	for i := 0; i < len(dn); i++ {
		c := dn[i]

		if escaped {
			current.WriteByte(c)
			escaped = false
			continue
		}

		if c == '\\' {
			current.WriteByte(c)
			escaped = true
			continue
		}

		if c == ',' {
			comp := strings.TrimSpace(current.String())
			if comp == "" {
				return nil, ErrEmptyRDNComponent
			}
			components = append(components, comp)
			current.Reset()
			continue
		}

		current.WriteByte(c)
	}
	if escaped {
		return nil, ErrInvalidDN
	}

	comp := strings.TrimSpace(current.String())
	if comp == "" {
		return nil, ErrEmptyRDNComponent
	}
	return append(components, comp), nil
}

// cleanRDN validates one component. With fold set the value is lowercased and
// inner runs of spaces are collapsed; multi-valued RDNs are handled per value.
func cleanRDN(rdn string, fold bool) (string, error) {
	avas := splitUnescaped(rdn, '+')
	for i, ava := range avas {
		eq := strings.IndexByte(ava, '=')
		if eq <= 0 {
			return "", ErrInvalidRDN
		}
		typ := strings.ToLower(strings.TrimSpace(ava[:eq]))
		val := strings.TrimSpace(ava[eq+1:])
		if typ == "" {
			return "", ErrInvalidRDN
		}
		if fold {
			val = strings.Join(strings.Fields(strings.ToLower(val)), " ")
		}
		avas[i] = typ + "=" + val
	}
	return strings.Join(avas, "+"), nil
}

func indexUnescaped(s string) int {
	return indexByteUnescaped(s, ',')
}

func indexByteUnescaped(s string, sep byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == sep {
			return i
		}
	}
	return -1
}

func splitUnescaped(s string, sep byte) []string {
	var out []string
	for {
		i := indexByteUnescaped(s, sep)
		if i < 0 {
			return append(out, s)
		}
		out = append(out, s[:i])
		s = s[i+1:]
	}
}

func escapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
