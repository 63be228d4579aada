// Package syncerr defines the error taxonomy shared by the scanner, planner,
// executor and session. Kinds are strings so they read well in logs and JSON.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind classifies a sync error.
type Kind string

const (
	// KindPathUnreachable means the source or destination could not be resolved.
	KindPathUnreachable Kind = "PATH_UNREACHABLE"

	// KindScanRead means a single file could not be fingerprinted.
	KindScanRead Kind = "SCAN_READ_ERROR"

	// KindExecution means a single copy, update, delete or move failed.
	KindExecution Kind = "EXECUTION_ERROR"

	// KindCancelled means the cancellation token was observed.
	KindCancelled Kind = "CANCELLED"

	// KindStructural means a precondition on the trees does not hold,
	// e.g. the destination exists but is not a directory.
	KindStructural Kind = "STRUCTURAL_ERROR"

	// KindUnknown is returned by KindOf for errors outside this taxonomy.
	KindUnknown Kind = "UNKNOWN"
)

// ErrCancelled is returned by every component that observes a set cancellation token.
var ErrCancelled = &Error{Kind: KindCancelled, Op: "sync"}

// Error carries a Kind together with the operation and path that failed.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Kind == KindCancelled {
		return msg + ": cancelled"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets a bare sentinel such as ErrCancelled match any *Error of the same
// Kind, whatever its Op or Path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Path == "" && t.Err == nil
}

// New returns an *Error of the given kind.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// IsCancelled reports whether err stems from an observed cancellation.
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}
