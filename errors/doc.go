// Package errors provides structured error types for the postal bindings.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the argument path, the offending Go type,
// the native entry point involved, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseValidate, errors.KindLengthMismatch).
//		Path("labels1").
//		Detail("labels1 and values1 must be of equal length (3 != 2)").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.LengthMismatch(path, "labels", "values", 3, 2)
//	err := errors.InvalidUTF8(errors.PhaseDecode, path, data)
//
// The taxonomy predicates IsArgument, IsEncoding and IsSetup group kinds into
// the classes callers usually branch on. All errors implement the standard
// error interface and support errors.Is/As.
package errors
