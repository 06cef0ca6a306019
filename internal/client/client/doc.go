// Package client talks to the CipherSafe backend over JSON/HTTP.
//
// # Overview
//
//  1. Client is the transport-agnostic contract used by the client core.
//  2. HTTPClient implements it on net/http. The session credential is an
//     HTTP-only cookie kept in a cookie jar; client code never reads it.
//  3. Non-2xx responses become *APIError values whose Kind is one of the
//     sentinel errors (ErrUnauthorized, ErrNotFound, ErrOtpExpired, ...).
//
// # Error Handling
//
// Callers match with errors.Is. The OTP kinds wrap ErrOtpTerminal or
// ErrOtpRetryable so the auth flow only needs to check the umbrella kind.
// Transport failures wrap ErrUnavailable. Nothing in this package retries.
//
// # Concurrency
//
// HTTPClient is safe for concurrent use. Every call honors ctx.
package client
