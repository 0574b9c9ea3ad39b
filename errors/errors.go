package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // argument shape, before any native call
	PhaseEncode   Phase = "encode"   // Go to native
	PhaseDecode   Phase = "decode"   // native to Go
	PhaseNative   Phase = "native"   // inside a native call
	PhaseSetup    Phase = "setup"    // library setup and teardown
	PhaseLoad     Phase = "load"     // guest module loading
	PhaseConfig   Phase = "config"   // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch   Kind = "type_mismatch"
	KindLengthMismatch Kind = "length_mismatch"
	KindTooLong        Kind = "too_long"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindInvalidInput   Kind = "invalid_input"
	KindAllocation     Kind = "allocation"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindNilPointer     Kind = "nil_pointer"
	KindNotInitialized Kind = "not_initialized"
	KindSetupFailed    Kind = "setup_failed"
	KindMissingExport  Kind = "missing_export"
	KindUnsupported    Kind = "unsupported"
)

// Error is the structured error type used throughout the bindings
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Entry  string // native entry point, e.g. libpostal_expand_address
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Entry != "" {
		b.WriteString(" in ")
		b.WriteString(e.Entry)
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the argument path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Entry sets the native entry point name
func (b *Builder) Entry(name string) *Builder {
	b.err.Entry = name
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(path []string, goType, detail string) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Detail: detail,
	}
}

// LengthMismatch creates an error for parallel arrays of unequal length
func LengthMismatch(path []string, left, right string, leftLen, rightLen int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindLengthMismatch,
		Path:   path,
		Detail: fmt.Sprintf("%s and %s must be of equal length (%d != %d)", left, right, leftLen, rightLen),
		Value:  [2]int{leftLen, rightLen},
	}
}

// TooLong creates an error for a string exceeding a fixed maximum length
func TooLong(path []string, value string, maxLen int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindTooLong,
		Path:   path,
		Detail: fmt.Sprintf("%q is %d bytes, maximum is %d", value, len(value), maxLen-1),
		Value:  value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Path:   path,
		Detail: detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("access at offset %d length %d out of bounds", offset, length),
		Value:  offset,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, entry string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Entry:  entry,
		Detail: detail,
	}
}

// NotInitialized creates an error for calls on a closed or unopened handle
func NotInitialized(what string) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindNotInitialized,
		Detail: what + " is not initialized",
	}
}

// SetupFailed creates an error for a failed native setup call
func SetupFailed(entry string, detail string) *Error {
	return &Error{
		Phase:  PhaseSetup,
		Kind:   KindSetupFailed,
		Entry:  entry,
		Detail: detail,
	}
}

// MissingExport creates an error for a guest module lacking a required export
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Entry:  name,
		Detail: fmt.Sprintf("guest module does not export %q", name),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Native wraps a failure raised while calling a native entry point
func Native(entry string, cause error) *Error {
	return &Error{
		Phase: PhaseNative,
		Kind:  KindInvalidInput,
		Entry: entry,
		Cause: cause,
	}
}

// Taxonomy predicates

// IsArgument reports whether err is an argument-shape error detected
// before any native call.
func IsArgument(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	if e.Phase != PhaseValidate {
		return false
	}
	switch e.Kind {
	case KindTypeMismatch, KindLengthMismatch, KindTooLong, KindInvalidInput:
		return true
	}
	return false
}

// IsEncoding reports whether err is a UTF-8 encoding error in either direction.
func IsEncoding(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindInvalidUTF8
}

// IsSetup reports whether err comes from library lifecycle management.
func IsSetup(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Phase == PhaseSetup || e.Phase == PhaseLoad)
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
