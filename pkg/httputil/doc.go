// Package httputil provides HTTP plumbing shared by the upstream client, the
// mock API and the gateway.
//
// # Overview
//
//   - [NewClient]: an *http.Client with separate connect and total timeouts
//   - [Transport]: a RoundTripper that reports every exchange to the
//     registered [observability.HTTPHooks]
//   - [ReadBody]: bounded body reads for diagnostics
//
// Retries are not handled here; see package retry.
//
// # Timeouts
//
// Defaults follow the upstream API's expectations:
//
//   - Connect timeout: 5 seconds
//   - Total request timeout: 30 seconds
//
// Both can be overridden through [Timeouts].
package httputil
