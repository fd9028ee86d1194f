// Package errors defines the error taxonomy shared by all NeuroStream
// components.
//
// Errors fall into three classes:
//
//   - transient: recoverable, safe to retry (model timeouts, queue pressure,
//     a buffer that has not filled a window yet)
//   - invalid: caller or configuration mistakes (channel/rate mismatch,
//     unknown classification domain)
//   - fatal: unrecoverable, should stop the affected pipeline
//
// Components wrap errors with WrapTransient, WrapInvalid, or WrapFatal so
// callers can branch on Classify without string matching. Sentinel values
// such as ErrInsufficientData and ErrModelTimeout support errors.Is checks
// across package boundaries.
package errors
