package filter

import "strings"

// Type is the kind of a filter node.
type Type int

const (
	// And matches when every child matches.
	And Type = iota
	// Or matches when any child matches.
	Or
	// Not negates its child.
	Not
	// Equality is (attr=value).
	Equality
	// Substring is (attr=ini*any*fin).
	Substring
	// GreaterOrEqual is (attr>=value).
	GreaterOrEqual
	// LessOrEqual is (attr<=value).
	LessOrEqual
	// Present is (attr=*).
	Present
	// Approx is (attr~=value).
	Approx
)

func (t Type) String() string {
	switch t {
	case And:
		return "AND"
	case Or:
		return "OR"
	case Not:
		return "NOT"
	case Equality:
		return "EQUALITY"
	case Substring:
		return "SUBSTRING"
	case GreaterOrEqual:
		return "GREATER_OR_EQUAL"
	case LessOrEqual:
		return "LESS_OR_EQUAL"
	case Present:
		return "PRESENT"
	case Approx:
		return "APPROX"
	default:
		return "UNKNOWN"
	}
}

// Filter is a node of a parsed search filter.
type Filter struct {
	Type      Type
	Attribute string
	Value     []byte
	Children  []*Filter // And, Or
	Child     *Filter   // Not
	Substring *SubstringFilter
}

// SubstringFilter holds the components of a substring assertion.
type SubstringFilter struct {
	Initial []byte
	Any     [][]byte
	Final   []byte
}

// NewAnd returns (&children...).
func NewAnd(children ...*Filter) *Filter {
	return &Filter{Type: And, Children: children}
}

// NewOr returns (|children...).
func NewOr(children ...*Filter) *Filter {
	return &Filter{Type: Or, Children: children}
}

// NewNot returns (!child).
func NewNot(child *Filter) *Filter {
	return &Filter{Type: Not, Child: child}
}

// NewEquality returns (attr=value).
func NewEquality(attr string, value []byte) *Filter {
	return &Filter{Type: Equality, Attribute: attr, Value: value}
}

// NewSubstring returns a substring assertion on attr.
func NewSubstring(attr string, sf *SubstringFilter) *Filter {
	return &Filter{Type: Substring, Attribute: attr, Substring: sf}
}

// NewPresent returns (attr=*).
func NewPresent(attr string) *Filter {
	return &Filter{Type: Present, Attribute: attr}
}

// NewGreaterOrEqual returns (attr>=value).
func NewGreaterOrEqual(attr string, value []byte) *Filter {
	return &Filter{Type: GreaterOrEqual, Attribute: attr, Value: value}
}

// NewLessOrEqual returns (attr<=value).
func NewLessOrEqual(attr string, value []byte) *Filter {
	return &Filter{Type: LessOrEqual, Attribute: attr, Value: value}
}

// NewApprox returns (attr~=value).
func NewApprox(attr string, value []byte) *Filter {
	return &Filter{Type: Approx, Attribute: attr, Value: value}
}

// String renders the filter in its string form with values escaped.
func (f *Filter) String() string {
	var b strings.Builder
	f.write(&b)
	return b.String()
}

func (f *Filter) write(b *strings.Builder) {
	if f == nil {
		return
	}
	b.WriteByte('(')
	switch f.Type {
	case And, Or:
		if f.Type == And {
			b.WriteByte('&')
		} else {
			b.WriteByte('|')
		}
		for _, c := range f.Children {
			c.write(b)
		}
	case Not:
		b.WriteByte('!')
		f.Child.write(b)
	case Equality:
		b.WriteString(f.Attribute + "=")
		escape(b, f.Value)
	case GreaterOrEqual:
		b.WriteString(f.Attribute + ">=")
		escape(b, f.Value)
	case LessOrEqual:
		b.WriteString(f.Attribute + "<=")
		escape(b, f.Value)
	case Approx:
		b.WriteString(f.Attribute + "~=")
		escape(b, f.Value)
	case Present:
		b.WriteString(f.Attribute + "=*")
	case Substring:
		b.WriteString(f.Attribute + "=")
		if f.Substring != nil {
			escape(b, f.Substring.Initial)
			b.WriteByte('*')
			for _, a := range f.Substring.Any {
				escape(b, a)
				b.WriteByte('*')
			}
			escape(b, f.Substring.Final)
		}
	}
	b.WriteByte(')')
}

const hexDigits = "0123456789abcdef"

func escape(b *strings.Builder, v []byte) {
	for _, c := range v {
		switch c {
		case '*', '(', ')', '\\', 0:
			b.WriteByte('\\')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
}
