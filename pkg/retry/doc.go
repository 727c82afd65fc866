// Package retry classifies upstream failures and decides whether and when to
// retry them.
//
// # Overview
//
// Three pieces cooperate:
//
//   - [Classify] maps a transport outcome (an error from the HTTP client, or a
//     [StatusError] for a received non-success response) onto a closed set of
//     [ErrorKind] values, producing an immutable [ClassifiedError].
//   - [Policy] answers two questions for a classified error and an attempt
//     number: [Policy.ShouldRetry] and [Policy.DelayBeforeRetry]. [Policy.Decide]
//     combines them into a [Decision].
//   - [Do] runs an operation under a policy and returns a [Result] that callers
//     must check with [Result.OK].
//
// # Classification
//
// Status codes map as follows:
//
//   - 401: authentication
//   - 403: authorization
//   - 429: rate_limit, with RetryAfter taken from the Retry-After header
//     (60 seconds when absent or unparseable)
//   - other 4xx: client
//   - 5xx: server
//   - anything else: unknown
//
// Transport errors map to network (connection refused, reset, DNS failure)
// or timeout (deadline exceeded, net.Error timeouts). Validation errors from
// the errors package map to validation. Everything else is unknown.
//
// # Retry policy
//
// network, timeout, server and rate_limit are retried while attempt is below
// MaxRetries. Everything else fails immediately. The delay before a retry is
// the server-directed Retry-After for rate_limit errors, otherwise
//
//	min(BaseDelay * BackoffFactor^attempt, MaxDelay) ± Jitter
//
// clamped to be non-negative.
//
// # Usage
//
//	policy := retry.DefaultPolicy()
//	res := retry.Do(ctx, policy, func(ctx context.Context, attempt int) ([]byte, error) {
//	    return fetch(ctx)
//	}, retry.WithName("GET /items"), retry.WithLogger(logger))
//	if !res.OK() {
//	    return res.Err
//	}
//
// Policies are immutable after construction and safe to share across
// goroutines. Each call to [Do] runs its attempts sequentially and waits only
// on the calling goroutine; a cancelled context abandons the wait.
package retry
