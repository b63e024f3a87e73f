package backend

import (
	"errors"
	"fmt"

	"github.com/KilimcininKorOglu/obakv/internal/storage"
	"github.com/KilimcininKorOglu/obakv/internal/storage/kv"
)

// Backend errors.
var (
	// ErrSessionOpen is returned by ToolOpen while another session is open.
	ErrSessionOpen = errors.New("backend: a tool session is already open")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("backend: tool session is closed")
	// ErrReadOnlySession is returned by writes in a read-only session.
	ErrReadOnlySession = errors.New("backend: session is read-only")
	// ErrNoID is returned by Modify for an entry without an ID.
	ErrNoID = errors.New("backend: entry has no ID")
)

// ToolError reports a failed tool operation with a text suitable for the
// command line, such as "txn_commit failed: database not open".
type ToolError struct {
	// Op is the failed operation, e.g. "entry_put".
	Op   string
	Text string
	Err  error
}

func (e *ToolError) Error() string {
	return e.Op + ": " + e.Text
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

func toolError(op, what string, err error) *ToolError {
	if errors.Is(err, kv.ErrNotAscending) {
		err = fmt.Errorf("%w: %w", storage.ErrInternal, err)
	}
	return &ToolError{Op: op, Text: fmt.Sprintf("%s: %v", what, err), Err: err}
}
