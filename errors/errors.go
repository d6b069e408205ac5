// Package errors provides the structured error type returned by every
// fallible operation in the engine, store, and decoder packages.
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of processing produced the error.
type Phase string

const (
	PhaseTrap          Phase = "trap"          // wasm execution trapped
	PhaseHost          Phase = "host"          // host function interaction
	PhaseInstantiation Phase = "instantiation" // module_instantiate
	PhaseEmbedder      Phase = "embedder"      // misuse of the store API by the embedder
	PhaseLoad          Phase = "load"          // reading/decoding a binary module
	PhaseParse         Phase = "parse"         // WAT parsing
)

// Kind categorizes the error within its phase. The set matches the flat
// error taxonomy of the engine: no kind nests another kind's concerns.
type Kind string

const (
	// Trap kinds.
	KindReachedUnreachable             Kind = "reached_unreachable"
	KindDivideBy0                      Kind = "divide_by_zero"
	KindUnrepresentableResult          Kind = "unrepresentable_result"
	KindBadConversionToInteger         Kind = "bad_conversion_to_integer"
	KindMemoryOrDataAccessOutOfBounds  Kind = "memory_or_data_access_out_of_bounds"
	KindTableAccessOutOfBounds         Kind = "table_access_out_of_bounds"
	KindTableOrElementAccessOutOfBounds Kind = "table_or_element_access_out_of_bounds"
	KindUninitializedElement           Kind = "uninitialized_element"
	KindIndirectCallNullFuncRef        Kind = "indirect_call_null_funcref"
	KindSignatureMismatch              Kind = "signature_mismatch"

	// Host-interaction kinds.
	KindHostFunctionHaltedExecution    Kind = "host_function_halted_execution"
	KindHostFunctionSignatureMismatch  Kind = "host_function_signature_mismatch"

	// Instantiation kinds.
	KindExternValsLenMismatch Kind = "extern_vals_len_mismatch"
	KindInvalidImportType     Kind = "invalid_import_type"
	KindMoreThanOneMemory     Kind = "more_than_one_memory"
	KindTableTypeMismatch     Kind = "table_type_mismatch"
	KindGlobalTypeMismatch    Kind = "global_type_mismatch"

	// Embedder-side kinds.
	KindWriteOnImmutableGlobal            Kind = "write_on_immutable_global"
	KindFunctionInvocationSignatureMismatch Kind = "function_invocation_signature_mismatch"
	KindUnknownExport                     Kind = "unknown_export"
	KindResumableNotFound                 Kind = "resumable_not_found"
	KindOutOfFuel                         Kind = "out_of_fuel"

	// Load/parse kinds, used by the decoder and WAT compiler only.
	KindInvalidData  Kind = "invalid_data"
	KindUnsupported  Kind = "unsupported"
	KindOutOfBounds  Kind = "out_of_bounds"
	KindNotFound     Kind = "not_found"
)

// Error is the structured error type returned throughout the engine.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

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

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Phase and Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsTrap reports whether err is a trap raised by interpreted execution.
func IsTrap(err error) bool {
	e, ok := err.(*Error)
	return ok && e.Phase == PhaseTrap
}

// Builder provides fluent, structured error construction.
type Builder struct {
	err Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

func (b *Builder) Build() *Error {
	return &b.err
}

// Trap constructs a trap error of the given kind.
func Trap(kind Kind, detail string, args ...any) *Error {
	return New(PhaseTrap, kind).Detail(detail, args...).Build()
}

// Host constructs a host-interaction error.
func Host(kind Kind, detail string, args ...any) *Error {
	return New(PhaseHost, kind).Detail(detail, args...).Build()
}

// Instantiation constructs an instantiation error.
func Instantiation(kind Kind, detail string, args ...any) *Error {
	return New(PhaseInstantiation, kind).Detail(detail, args...).Build()
}

// Embedder constructs an embedder-side misuse error.
func Embedder(kind Kind, detail string, args ...any) *Error {
	return New(PhaseEmbedder, kind).Detail(detail, args...).Build()
}

// Load wraps a decoding failure.
func Load(detail string, cause error) *Error {
	return New(PhaseLoad, KindInvalidData).Detail(detail).Cause(cause).Build()
}

// ParseFailed wraps a WAT parsing failure.
func ParseFailed(what string, cause error) *Error {
	return New(PhaseParse, KindInvalidData).Detail("parse %s", what).Cause(cause).Build()
}

// NotFound creates a not-found error (e.g. unknown export name).
func NotFound(phase Phase, what, name string) *Error {
	return New(phase, KindNotFound).Detail("%s %q not found", what, name).Build()
}

// OutOfBounds creates an out-of-bounds error outside the trap taxonomy
// (e.g. a decoder index into a section vector).
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return New(phase, KindOutOfBounds).Path(path...).Value(index).
		Detail("index %d out of bounds (length %d)", index, length).Build()
}

// Unsupported creates an unsupported-feature error.
func Unsupported(phase Phase, what string) *Error {
	return New(phase, KindUnsupported).Detail(what).Build()
}
