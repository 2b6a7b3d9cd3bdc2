// Package nbterr defines the closed taxonomy of edit statuses the engine
// returns, and a Result type that carries a status alongside a
// human-readable detail the way the teacher's H5Error carries a Context
// string alongside an underlying cause.
package nbterr

import (
	"errors"
	"fmt"
)

// Status is one member of the closed edit-status taxonomy. Every
// engine-facing function (builder, resolver, value engine, mutator,
// serialiser, region reader/writer) returns a Status instead of a bare
// error so callers can switch exhaustively.
type Status int

const (
	// OK indicates the operation succeeded.
	OK Status = iota
	// PathSyntax indicates a malformed path expression.
	PathSyntax
	// PathNotFound indicates no matching tag or index exists.
	PathNotFound
	// IndexBounds indicates a numeric index is out of range.
	IndexBounds
	// TypeMismatch indicates the operation cannot apply to this tag type.
	TypeMismatch
	// InvalidJSON indicates the value expression could not be parsed.
	InvalidJSON
	// NumericRange indicates a value is outside the target type's range.
	NumericRange
	// Unsupported indicates the operation is not permitted in this context.
	Unsupported
	// Memory indicates an allocation failed or a length guard rejected an
	// oversized/corrupt payload before any real allocation was attempted.
	Memory
)

var statusNames = map[Status]string{
	OK:           "OK",
	PathSyntax:   "PATH_SYNTAX",
	PathNotFound: "PATH_NOT_FOUND",
	IndexBounds:  "INDEX_BOUNDS",
	TypeMismatch: "TYPE_MISMATCH",
	InvalidJSON:  "INVALID_JSON",
	NumericRange: "NUMERIC_RANGE",
	Unsupported:  "UNSUPPORTED",
	Memory:       "MEMORY",
}

// String returns the taxonomy name, e.g. "PATH_NOT_FOUND".
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN_STATUS"
}

// severity orders statuses for the resolver's "most informative error"
// rule in spec §4.5: when a sweep finds no targets, INDEX_BOUNDS outranks
// TYPE_MISMATCH, which outranks PATH_NOT_FOUND. Higher is more informative.
func (s Status) severity() int {
	switch s {
	case IndexBounds:
		return 3
	case TypeMismatch:
		return 2
	case PathNotFound:
		return 1
	default:
		return 0
	}
}

// MoreInformative reports whether s should be preferred over other when
// both are candidate failures for the same empty resolver sweep.
func (s Status) MoreInformative(other Status) bool {
	return s.severity() > other.severity()
}

// Result is the value every engine-facing function returns: a status plus
// the detail a caller-provided error buffer would have held in the
// original C implementation, and, for parse failures, the byte offset
// where the failure was detected.
type Result struct {
	Status Status
	Detail string
	Offset int64 // -1 when not applicable.
}

// Ok builds a successful Result.
func Ok() Result {
	return Result{Status: OK, Offset: -1}
}

// New builds a failing Result with a formatted detail message.
func New(status Status, format string, args ...interface{}) Result {
	return Result{Status: status, Detail: fmt.Sprintf(format, args...), Offset: -1}
}

// NewAt builds a failing Result carrying the byte offset at which the
// failure was detected, mirroring the Byte Reader's sticky-failure
// message ("unexpected end of input at offset N").
func NewAt(status Status, offset int64, format string, args ...interface{}) Result {
	return Result{Status: status, Detail: fmt.Sprintf(format, args...), Offset: offset}
}

// IsOK reports whether the result represents success.
func (r Result) IsOK() bool {
	return r.Status == OK
}

// Error implements the error interface so a Result can be returned or
// wrapped anywhere a plain error is expected.
func (r Result) Error() string {
	if r.Offset >= 0 {
		return fmt.Sprintf("%s (%s) at offset %d", r.Detail, r.Status, r.Offset)
	}
	return fmt.Sprintf("%s (%s)", r.Detail, r.Status)
}

// Err returns nil for a successful Result and an error otherwise. The
// returned error unwraps to a sentinel for the Result's Status so callers
// can use errors.Is(err, nbterr.ErrPathNotFound) etc., the same way the
// teacher's H5Error.Unwrap exposes the wrapped cause.
func (r Result) Err() error {
	if r.IsOK() {
		return nil
	}
	return &wrappedResult{Result: r}
}

type wrappedResult struct {
	Result
}

func (w *wrappedResult) Error() string { return w.Result.Error() }

func (w *wrappedResult) Unwrap() error {
	return sentinelFor(w.Result.Status)
}

// Sentinel errors, one per non-OK status, for errors.Is/errors.As.
var (
	ErrPathSyntax   = errors.New(PathSyntax.String())
	ErrPathNotFound = errors.New(PathNotFound.String())
	ErrIndexBounds  = errors.New(IndexBounds.String())
	ErrTypeMismatch = errors.New(TypeMismatch.String())
	ErrInvalidJSON  = errors.New(InvalidJSON.String())
	ErrNumericRange = errors.New(NumericRange.String())
	ErrUnsupported  = errors.New(Unsupported.String())
	ErrMemory       = errors.New(Memory.String())
)

func sentinelFor(s Status) error {
	switch s {
	case PathSyntax:
		return ErrPathSyntax
	case PathNotFound:
		return ErrPathNotFound
	case IndexBounds:
		return ErrIndexBounds
	case TypeMismatch:
		return ErrTypeMismatch
	case InvalidJSON:
		return ErrInvalidJSON
	case NumericRange:
		return ErrNumericRange
	case Unsupported:
		return ErrUnsupported
	case Memory:
		return ErrMemory
	default:
		return nil
	}
}

// Wrap adapts a plain Go error (e.g. from os/io) into a MEMORY or
// UNSUPPORTED Result with context, the way the teacher's WrapError
// attaches a Context string to an I/O failure.
func Wrap(status Status, context string, cause error) Result {
	if cause == nil {
		return Ok()
	}
	return New(status, "%s: %v", context, cause)
}
