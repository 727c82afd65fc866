package errors

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputLength is the length limit applied by ValidateInput when
// maxLen is not positive.
const DefaultMaxInputLength = 255

// maliciousPatterns flag values that look like SQL or script injection.
// Matching is keyword based, so ordinary text such as "please update me"
// is rejected too.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER)\b`),
	regexp.MustCompile(`(?i)\b(UNION|OR|AND)\b.*\b(SELECT|INSERT|UPDATE|DELETE)\b`),
	regexp.MustCompile(`(--|#|/\*|\*/)`),
	regexp.MustCompile(`(?i)\b(script|javascript|vbscript|onload|onerror)\b`),
}

// ValidateInput checks a free-form string field before it is sent upstream.
//
// The value is rejected when it is longer than maxLen characters (runes) or
// matches one of the injection patterns. On success the trimmed value is
// returned. A non-positive maxLen selects [DefaultMaxInputLength].
func ValidateInput(value, field string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	if utf8.RuneCountInString(value) > maxLen {
		return "", New(ErrCodeInvalidInput, "%s exceeds maximum length of %d", field, maxLen)
	}
	for _, p := range maliciousPatterns {
		if p.MatchString(value) {
			return "", New(ErrCodeMaliciousInput, "%s contains potentially malicious content", field)
		}
	}
	return strings.TrimSpace(value), nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SanitizeEmail trims and lowercases an email address and checks its shape.
func SanitizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", New(ErrCodeInvalidEmail, "email cannot be empty")
	}
	if !emailRegex.MatchString(email) {
		return "", New(ErrCodeInvalidEmail, "invalid email format")
	}
	return email, nil
}

// ValidateID validates a resource identifier used as a URL path segment.
// Identifiers must be non-empty and consist of letters and digits only,
// which rules out path traversal and query injection.
func ValidateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", New(ErrCodeInvalidID, "invalid ID: cannot be empty")
	}
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return "", New(ErrCodeInvalidID, "invalid ID format: %q", id)
		}
	}
	return id, nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https) and a host.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURL, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidURL, "URL must use http or https scheme")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "malformed URL")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidURL, "URL must include a host")
	}
	return nil
}

// ClampLimit bounds a page size to [1, maxLimit].
func ClampLimit(limit, maxLimit int) int {
	if limit < 1 {
		return 1
	}
	return min(limit, maxLimit)
}

// ClampOffset floors a pagination offset at zero.
func ClampOffset(offset int) int {
	return max(offset, 0)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
