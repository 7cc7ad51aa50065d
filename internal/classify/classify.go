// Package classify implements the error taxonomy of §7: errors are
// classified, not typed at the wire, so the copy state machine and
// scheduler can branch on "kind of failure" without a growing switch
// over concrete error values.
package classify

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Class is one of the eight classified error kinds from §7.
type Class int

const (
	// NotFound: source missing mid-traversal.
	NotFound Class = iota
	// Permission: inadequate privilege.
	Permission
	// Exists: destination present and overwrite not authorized.
	Exists
	// Unsupported: kernel/filesystem cannot perform a chosen strategy. Non-fatal.
	Unsupported
	// BackPressure: transient resource exhaustion.
	BackPressure
	// IntegrityFailure: short transfer / size mismatch / write beyond allocated.
	IntegrityFailure
	// Cancelled: session cancellation observed.
	Cancelled
	// Fatal: ring setup failure or runtime invariant violation.
	Fatal
)

func (c Class) String() string {
	switch c {
	case NotFound:
		return "NotFound"
	case Permission:
		return "Permission"
	case Exists:
		return "Exists"
	case Unsupported:
		return "Unsupported"
	case BackPressure:
		return "BackPressure"
	case IntegrityFailure:
		return "IntegrityFailure"
	case Cancelled:
		return "Cancelled"
	case Fatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Error carries a Class alongside the underlying cause, wrapped with
// github.com/pkg/errors so callers retain a stack trace the way the
// teacher's about_unix.go wraps syscall.Statfs failures.
type Error struct {
	Class Class
	Path  string
	cause error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Path, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.Class, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

// New wraps cause into a classified Error for path.
func New(class Class, path string, cause error) error {
	if cause == nil {
		return nil
	}
	return &Error{Class: class, Path: path, cause: pkgerrors.WithStack(cause)}
}

// Wrapf behaves like New but formats the cause message.
func Wrapf(class Class, path string, cause error, format string, args ...any) error {
	if cause == nil {
		return nil
	}
	return &Error{Class: class, Path: path, cause: pkgerrors.Wrapf(cause, format, args...)}
}

// Of extracts the Class of err, defaulting to Fatal for unclassified errors.
func Of(err error) Class {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class
	}
	return Fatal
}

// Is reports whether err is classified as class.
func Is(err error, class Class) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Class == class
	}
	return false
}
