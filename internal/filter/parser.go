package filter

import (
	"errors"
	"fmt"
	"strings"
)

// Parser errors
var (
	ErrEmptyFilter      = errors.New("empty filter")
	ErrInvalidFilter    = errors.New("invalid filter syntax")
	ErrUnbalancedParens = errors.New("unbalanced parentheses")
	ErrMissingAttribute = errors.New("missing attribute name")
	ErrBadEscape        = errors.New("invalid escape sequence")
)

// Parse parses a string filter:
//   - (attr=value)     equality
//   - (attr=*)         presence
//   - (attr=ini*any*fin) substring
//   - (attr>=value), (attr<=value), (attr~=value)
//   - (&(f1)(f2)...), (|(f1)(f2)...), (!(f))
//
// A bare item without parentheses such as "uid=alice" is accepted. Values
// use \XX hex escapes for the special characters.
func Parse(s string) (*Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmptyFilter
	}
	if s[0] != '(' {
		s = "(" + s + ")"
	}

	p := &parser{s: s}
	f, err := p.filter()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.s) {
		return nil, fmt.Errorf("%w: trailing data at offset %d", ErrInvalidFilter, p.pos)
	}
	return f, nil
}

type parser struct {
	s   string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.s) && p.s[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) filter() (*Filter, error) {
	p.skipSpace()
	if p.pos >= len(p.s) || p.s[p.pos] != '(' {
		return nil, fmt.Errorf("%w: expected ( at offset %d", ErrInvalidFilter, p.pos)
	}
	p.pos++
	if p.pos >= len(p.s) {
		return nil, ErrUnbalancedParens
	}

	var (
		f   *Filter
		err error
	)
	switch p.s[p.pos] {
	case '&', '|':
		op := p.s[p.pos]
		p.pos++
		var children []*Filter
		if children, err = p.list(); err != nil {
			return nil, err
		}
		if op == '&' {
			f = NewAnd(children...)
		} else {
			f = NewOr(children...)
		}
	case '!':
		p.pos++
		var child *Filter
		if child, err = p.filter(); err != nil {
			return nil, err
		}
		f = NewNot(child)
		p.skipSpace()
	case ')':
		return nil, ErrEmptyFilter
	default:
		if f, err = p.item(); err != nil {
			return nil, err
		}
	}

	if p.pos >= len(p.s) || p.s[p.pos] != ')' {
		return nil, ErrUnbalancedParens
	}
	p.pos++
	return f, nil
}

func (p *parser) list() ([]*Filter, error) {
	var out []*Filter
	for {
		p.skipSpace()
		if p.pos >= len(p.s) || p.s[p.pos] != '(' {
			break
		}
		f, err := p.filter()
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty filter list", ErrInvalidFilter)
	}
	return out, nil
}

// item parses attr OP value up to the closing parenthesis.
func (p *parser) item() (*Filter, error) {
	end := strings.IndexByte(p.s[p.pos:], ')')
	if end < 0 {
		return nil, ErrUnbalancedParens
	}
	raw := p.s[p.pos : p.pos+end]
	p.pos += end
	if strings.IndexByte(raw, '(') >= 0 {
		return nil, fmt.Errorf("%w: unexpected ( in %q", ErrInvalidFilter, raw)
	}

	eq := strings.IndexByte(raw, '=')
	if eq < 0 {
		return nil, fmt.Errorf("%w: no operator in %q", ErrInvalidFilter, raw)
	}
	attr, value := raw[:eq], raw[eq+1:]
	op := byte('=')
	if eq > 0 {
		switch c := raw[eq-1]; c {
		case '>', '<', '~':
			op = c
			attr = raw[:eq-1]
		case ':':
			return nil, fmt.Errorf("%w: extensible match is not supported", ErrInvalidFilter)
		}
	}
	attr = strings.TrimSpace(attr)
	if attr == "" {
		return nil, ErrMissingAttribute
	}

	if op == '=' {
		if value == "*" {
			return NewPresent(attr), nil
		}
		if strings.IndexByte(value, '*') >= 0 {
			return substring(attr, value)
		}
	}

	v, err := unescape(value)
	if err != nil {
		return nil, err
	}
	switch op {
	case '>':
		return NewGreaterOrEqual(attr, v), nil
	case '<':
		return NewLessOrEqual(attr, v), nil
	case '~':
		return NewApprox(attr, v), nil
	default:
		return NewEquality(attr, v), nil
	}
}

func substring(attr, value string) (*Filter, error) {
	parts := strings.Split(value, "*")
	sf := &SubstringFilter{}
	for i, part := range parts {
		if part == "" {
			continue
		}
		v, err := unescape(part)
		if err != nil {
			return nil, err
		}
		switch i {
		case 0:
			sf.Initial = v
		case len(parts) - 1:
			sf.Final = v
		default:
			sf.Any = append(sf.Any, v)
		}
	}
	return NewSubstring(attr, sf), nil
}

func unhex(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func unescape(s string) ([]byte, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return []byte(s), nil
	}
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			out = append(out, s[i])
			continue
		}
		if i+2 >= len(s) {
			return nil, fmt.Errorf("%w in %q", ErrBadEscape, s)
		}
		hi, ok1 := unhex(s[i+1])
		lo, ok2 := unhex(s[i+2])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("%w in %q", ErrBadEscape, s)
		}
		out = append(out, hi<<4|lo)
		i += 2
	}
	return out, nil
}
