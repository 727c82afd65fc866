package security

import (
	"net/http"
	"slices"
)

// ResponseHeaders are the hardening headers set by [Headers] and checked by
// [PresentHeaders].
var ResponseHeaders = map[string]string{
	"X-Content-Type-Options":    "nosniff",
	"X-Frame-Options":           "DENY",
	"X-XSS-Protection":          "1; mode=block",
	"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
}

// Headers is HTTP middleware adding [ResponseHeaders] to every response.
func Headers(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for k, v := range ResponseHeaders {
			h.Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

// PresentHeaders returns which of [ResponseHeaders] are set in h, sorted.
func PresentHeaders(h http.Header) []string {
	var found []string
	for k := range ResponseHeaders {
		if h.Get(k) != "" {
			found = append(found, k)
		}
	}
	slices.Sort(found)
	return found
}
