package engine

import "github.com/wippyai/wasm-engine/errors"

// Error is the structured error type returned by every fallible engine
// operation; see package errors for Phase/Kind/Builder details.
type Error = errors.Error

const (
	KindReachedUnreachable               = errors.KindReachedUnreachable
	KindDivideBy0                        = errors.KindDivideBy0
	KindUnrepresentableResult            = errors.KindUnrepresentableResult
	KindBadConversionToInteger           = errors.KindBadConversionToInteger
	KindMemoryOrDataAccessOutOfBounds    = errors.KindMemoryOrDataAccessOutOfBounds
	KindTableAccessOutOfBounds           = errors.KindTableAccessOutOfBounds
	KindTableOrElementAccessOutOfBounds  = errors.KindTableOrElementAccessOutOfBounds
	KindUninitializedElement             = errors.KindUninitializedElement
	KindIndirectCallNullFuncRef          = errors.KindIndirectCallNullFuncRef
	KindSignatureMismatch                = errors.KindSignatureMismatch

	KindHostFunctionHaltedExecution   = errors.KindHostFunctionHaltedExecution
	KindHostFunctionSignatureMismatch = errors.KindHostFunctionSignatureMismatch

	KindExternValsLenMismatch = errors.KindExternValsLenMismatch
	KindInvalidImportType     = errors.KindInvalidImportType
	KindMoreThanOneMemory     = errors.KindMoreThanOneMemory
	KindTableTypeMismatch     = errors.KindTableTypeMismatch
	KindGlobalTypeMismatch    = errors.KindGlobalTypeMismatch

	KindWriteOnImmutableGlobal              = errors.KindWriteOnImmutableGlobal
	KindFunctionInvocationSignatureMismatch  = errors.KindFunctionInvocationSignatureMismatch
	KindUnknownExport                       = errors.KindUnknownExport
	KindResumableNotFound                   = errors.KindResumableNotFound
	KindOutOfFuel                           = errors.KindOutOfFuel
)

// Trap constructs a trap error (returned by the interpreter loop).
func Trap(kind errors.Kind, detail string, args ...any) *Error {
	return errors.Trap(kind, detail, args...)
}

// Host constructs a host-interaction error.
func Host(kind errors.Kind, detail string, args ...any) *Error {
	return errors.Host(kind, detail, args...)
}

// Instantiation constructs an instantiation error.
func Instantiation(kind errors.Kind, detail string, args ...any) *Error {
	return errors.Instantiation(kind, detail, args...)
}

// Embedder constructs an embedder-side misuse error.
func Embedder(kind errors.Kind, detail string, args ...any) *Error {
	return errors.Embedder(kind, detail, args...)
}
