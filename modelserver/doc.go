// Package modelserver abstracts model inference behind a single Server
// interface so the classification layer does not care whether scores come
// from an in-process model, a remote inference service, or a fallback
// chain of the two.
//
// Three implementations are provided:
//
//   - Local: in-process linear models, microsecond-scale latency, always
//     available. Used standalone and as the safety net behind Fallback.
//   - Remote: HTTP JSON inference service with a hard per-call timeout.
//     Transient failures are retried once within the latency budget.
//   - Fallback: decorates a primary server with a backup, switching on
//     any primary failure so a dead inference service degrades accuracy
//     rather than availability.
package modelserver
