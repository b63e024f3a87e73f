// Package ldif reads and writes entries in the LDAP Data Interchange Format
// (RFC 2849). Only content records are supported; change records other
// than "changetype: add" are rejected.
package ldif

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
)

// LDIF errors.
var (
	ErrInvalidLDIF       = errors.New("invalid LDIF format")
	ErrMissingDN         = errors.New("missing DN in LDIF entry")
	ErrInvalidBase64     = errors.New("invalid base64 encoding")
	ErrUnsupportedChange = errors.New("unsupported LDIF change record")
	ErrUnsupportedURL    = errors.New("URL values are not supported")
)

const (
	// MaxLineLen bounds a physical input line.
	MaxLineLen = 16 << 20

	// DefaultWidth is the column after which output lines are folded.
	DefaultWidth = 76
)

// Reader reads entries one at a time.
type Reader struct {
	sc   *bufio.Scanner
	line int
	// start is the first physical line of the current logical line.
	start int

	peek    string
	hasPeek bool
	started bool
}

// NewReader returns a reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineLen)
	return &Reader{sc: sc}
}

// Line returns the number of the last line read.
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) physical() (string, bool) {
	if r.hasPeek {
		r.hasPeek = false
		return r.peek, true
	}
	if !r.sc.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimSuffix(r.sc.Text(), "\r"), true
}

// logical returns the next line with its continuation lines joined. An
// empty string is an entry separator.
func (r *Reader) logical() (string, bool) {
	l, ok := r.physical()
	if !ok {
		return "", false
	}
	r.start = r.line
	if l == "" {
		return "", true
	}

	var sb strings.Builder
	sb.WriteString(l)
	for {
		next, ok := r.physical()
		if !ok {
			break
		}
		if len(next) > 0 && next[0] == ' ' {
			sb.WriteString(next[1:])
			continue
		}
		r.peek, r.hasPeek = next, true
		break
	}
	return sb.String(), true
}

func (r *Reader) errorf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: line %d: %s", err, r.start, fmt.Sprintf(format, args...))
}

// Next returns the next entry, or io.EOF after the last one.
func (r *Reader) Next() (*storage.Entry, error) {
	var e *storage.Entry
	for {
		l, ok := r.logical()
		if !ok {
			if err := r.sc.Err(); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidLDIF, r.line+1, err)
			}
			if e != nil {
				return e, nil
			}
			return nil, io.EOF
		}

		if l == "" {
			if e != nil {
				return e, nil
			}
			continue
		}
		if l[0] == '#' {
			continue
		}

		name, value, err := parseLine(l)
		if err != nil {
			return nil, r.errorf(err, "%s", truncate(l))
		}

		if e == nil {
			if !r.started && strings.EqualFold(name, "version") {
				r.started = true
				if string(value) != "1" {
					return nil, r.errorf(ErrInvalidLDIF, "unsupported version %q", value)
				}
				continue
			}
			r.started = true
			if !strings.EqualFold(name, "dn") {
				return nil, r.errorf(ErrMissingDN, "record starts with %q", name)
			}
			if len(value) == 0 {
				return nil, r.errorf(ErrMissingDN, "empty DN")
			}
			e = storage.NewEntry(string(value))
			continue
		}

		switch {
		case strings.EqualFold(name, "changetype"):
			if !strings.EqualFold(string(value), "add") {
				return nil, r.errorf(ErrUnsupportedChange, "changetype %s in %s", value, e.DN)
			}
		case strings.EqualFold(name, "control"):
			return nil, r.errorf(ErrUnsupportedChange, "control in %s", e.DN)
		case strings.EqualFold(name, "dn"):
			return nil, r.errorf(ErrInvalidLDIF, "no empty line before %s", value)
		default:
			e.AddAttributeValue(name, value)
		}
	}
}

// parseLine splits "name: value", "name:: base64" and "name:< url".
func parseLine(l string) (string, []byte, error) {
	idx := strings.IndexByte(l, ':')
	if idx <= 0 {
		return "", nil, ErrInvalidLDIF
	}
	name := strings.TrimSpace(l[:idx])
	if name == "" {
		return "", nil, ErrInvalidLDIF
	}
	rest := l[idx+1:]

	switch {
	case strings.HasPrefix(rest, ":"):
		v, err := base64.StdEncoding.DecodeString(strings.TrimSpace(rest[1:]))
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
		}
		return name, v, nil
	case strings.HasPrefix(rest, "<"):
		return "", nil, ErrUnsupportedURL
	default:
		return name, []byte(strings.TrimLeft(rest, " ")), nil
	}
}

func truncate(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}

// ReadAll reads every entry of r.
func ReadAll(r io.Reader) ([]*storage.Entry, error) {
	rd := NewReader(r)
	var entries []*storage.Entry
	for {
		e, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// Writer writes entries, each followed by an empty line. Attributes and
// values keep their order.
type Writer struct {
	w *bufio.Writer
	// Width folds lines longer than Width columns. 0 disables folding.
	Width int
}

// NewWriter returns a writer folding at DefaultWidth.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), Width: DefaultWidth}
}

// Write writes one entry.
func (w *Writer) Write(e *storage.Entry) error {
	if e == nil {
		return nil
	}
	if err := w.field("dn", []byte(e.DN)); err != nil {
		return err
	}
	for _, attr := range e.Attributes {
		for _, v := range attr.Values {
			if err := w.field(attr.Type, v); err != nil {
				return err
			}
		}
	}
	return w.w.WriteByte('\n')
}

// Comment writes a comment line.
func (w *Writer) Comment(text string) error {
	for _, l := range strings.Split(text, "\n") {
		if err := w.fold("# " + l); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func (w *Writer) field(name string, value []byte) error {
	if needsBase64Encoding(value) {
		return w.fold(name + ":: " + base64.StdEncoding.EncodeToString(value))
	}
	return w.fold(name + ": " + string(value))
}

// fold writes line, continuing it on lines that start with one space.
func (w *Writer) fold(line string) error {
	width := w.Width
	if width <= 1 || len(line) <= width {
		_, err := w.w.WriteString(line + "\n")
		return err
	}

	if _, err := w.w.WriteString(line[:width] + "\n"); err != nil {
		return err
	}
	for rest := line[width:]; len(rest) > 0; {
		n := min(len(rest), width-1)
		if _, err := w.w.WriteString(" " + rest[:n] + "\n"); err != nil {
			return err
		}
		rest = rest[n:]
	}
	return nil
}

// Write writes entries to w.
func Write(w io.Writer, entries []*storage.Entry) error {
	lw := NewWriter(w)
	for _, e := range entries {
		if err := lw.Write(e); err != nil {
			return err
		}
	}
	return lw.Flush()
}

// needsBase64Encoding checks if a value needs base64 encoding.
// According to RFC 2849, values need base64 encoding if they:
// - Contain non-printable characters (< 0x20 or > 0x7E, except for space)
// - Start with a space, colon, or less-than sign
// - End with a space
// - Contain NUL characters or line breaks
func needsBase64Encoding(value []byte) bool {
	if len(value) == 0 {
		return false
	}

	first := value[0]
	if first == ' ' || first == ':' || first == '<' {
		return true
	}
	if value[len(value)-1] == ' ' {
		return true
	}

	for _, b := range value {
		if b < 0x20 || b > 0x7E {
			return true
		}
	}
	return false
}
