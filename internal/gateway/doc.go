// Package gateway provides typed clients for the two backends Warden talks to:
// the Wazuh manager REST API and the OpenSearch-compatible alert indexer.
//
// # Overview
//
// One Client owns both backend roles and the shared session lifecycle. Every
// operation returns either a typed value or a *Error carrying a classified
// failure Kind, so callers can decide policy (retry, notify, give up) without
// string matching.
//
// # Session handling
//
// The manager role authenticates with basic credentials exchanged for a bearer
// token. Tokens expire server-side; when a request comes back 401 the client
// re-authenticates exactly once and replays the request once. A second 401 on
// the replay is surfaced as KindAuthInvalid. Re-authentication is mutually
// exclusive process-wide: concurrent requests that hit an expired token queue
// behind a single refresh and reuse its result.
//
// # Retry policy
//
// Timeouts are retried with bounded exponential backoff (maxAttempts total
// tries). Every other failure kind surfaces immediately; the caller decides
// what to do with it.
package gateway
