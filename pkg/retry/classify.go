package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	relayerrors "github.com/matzehuels/relay/pkg/errors"
)

// now is replaced in tests.
var now = time.Now

// Classify maps an attempt's error onto a ClassifiedError. It never panics
// and always returns a value; unrecognized errors become [KindUnknown]
// carrying the original message.
func Classify(err error) ClassifiedError {
	if err == nil {
		return ClassifiedError{Kind: KindUnknown, Message: "no error", OccurredAt: now()}
	}

	var ce ClassifiedError
	if errors.As(err, &ce) {
		return ce
	}
	var pce *ClassifiedError
	if errors.As(err, &pce) && pce != nil {
		return *pce
	}

	var se *StatusError
	if errors.As(err, &se) {
		c := ClassifyStatus(se.Code, se.Header)
		c.Cause = err
		return c
	}

	var rl *relayerrors.RateLimitedError
	if errors.As(err, &rl) {
		retryAfter := rl.RetryAfter
		if retryAfter <= 0 {
			retryAfter = DefaultRetryAfter
		}
		return newError(KindRateLimit, rl.Error(), 0, retryAfter, err)
	}

	switch {
	case isTimeout(err):
		return newError(KindTimeout, "request timeout", 0, 0, err)
	case errors.Is(err, context.Canceled):
		return newError(KindUnknown, "request canceled", 0, 0, err)
	case isNetwork(err):
		return newError(KindNetwork, "connection error: "+err.Error(), 0, 0, err)
	}

	if kind, ok := kindFromCode(relayerrors.GetCode(err)); ok {
		retryAfter := 0
		if kind == KindRateLimit {
			retryAfter = DefaultRetryAfter
		}
		return newError(kind, relayerrors.UserMessage(err), 0, retryAfter, err)
	}

	return newError(KindUnknown, err.Error(), 0, 0, err)
}

// ClassifyResponse classifies a received HTTP response by its status code
// and headers. The body is not read.
func ClassifyResponse(resp *http.Response) ClassifiedError {
	if resp == nil {
		return newError(KindUnknown, "no response", 0, 0, nil)
	}
	return ClassifyStatus(resp.StatusCode, resp.Header)
}

// ClassifyStatus classifies an HTTP status code. The header is consulted
// only for 429 responses.
func ClassifyStatus(code int, header http.Header) ClassifiedError {
	status := 0
	if code >= 100 && code <= 599 {
		status = code
	}

	switch {
	case code == http.StatusUnauthorized:
		return newError(KindAuthentication, "authentication failed", status, 0, nil)
	case code == http.StatusForbidden:
		return newError(KindAuthorization, "access forbidden", status, 0, nil)
	case code == http.StatusTooManyRequests:
		return newError(KindRateLimit, "rate limit exceeded", status, parseRetryAfter(header), nil)
	case code >= 400 && code < 500:
		return newError(KindClient, fmt.Sprintf("client error: %d", code), status, 0, nil)
	case code >= 500 && code < 600:
		return newError(KindServer, fmt.Sprintf("server error: %d", code), status, 0, nil)
	default:
		return newError(KindUnknown, fmt.Sprintf("unexpected status: %d", code), status, 0, nil)
	}
}

func newError(kind ErrorKind, msg string, status, retryAfter int, cause error) ClassifiedError {
	return ClassifiedError{
		Kind:       kind,
		Message:    msg,
		StatusCode: status,
		RetryAfter: retryAfter,
		OccurredAt: now(),
		Cause:      cause,
	}
}

// parseRetryAfter reads a delta-seconds Retry-After value.
func parseRetryAfter(h http.Header) int {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return DefaultRetryAfter
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return DefaultRetryAfter
	}
	return n
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

var connErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.EPIPE,
}

func isNetwork(err error) bool {
	for _, errno := range connErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed)
}

// kindFromCode maps structured error codes onto kinds.
func kindFromCode(code relayerrors.Code) (ErrorKind, bool) {
	switch code {
	case "":
		return "", false
	case relayerrors.ErrCodeNetwork:
		return KindNetwork, true
	case relayerrors.ErrCodeTimeout:
		return KindTimeout, true
	case relayerrors.ErrCodeUnauthorized:
		return KindAuthentication, true
	case relayerrors.ErrCodeForbidden:
		return KindAuthorization, true
	case relayerrors.ErrCodeRateLimited:
		return KindRateLimit, true
	}
	if relayerrors.IsValidation(&relayerrors.Error{Code: code}) {
		return KindValidation, true
	}
	return "", false
}
