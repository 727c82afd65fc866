package mockapi

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/matzehuels/relay/pkg/httputil"
)

// FaultConfig makes the first FailFirst item requests fail with Status.
// RetryAfter, when positive, is sent as a Retry-After header in seconds.
type FaultConfig struct {
	FailFirst  int
	Status     int
	RetryAfter int
}

// Enabled reports whether any request will be failed.
func (c FaultConfig) Enabled() bool { return c.FailFirst > 0 }

type faults struct {
	cfg  FaultConfig
	seen atomic.Int64
}

func newFaults(cfg FaultConfig) *faults {
	if cfg.Status < 400 || cfg.Status > 599 {
		cfg.Status = http.StatusServiceUnavailable
	}
	return &faults{cfg: cfg}
}

// remaining returns how many injected failures are left.
func (f *faults) remaining() int {
	return max(f.cfg.FailFirst-int(f.seen.Load()), 0)
}

func (f *faults) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if n := f.seen.Add(1); n <= int64(f.cfg.FailFirst) {
			if f.cfg.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(f.cfg.RetryAfter))
			}
			httputil.WriteJSON(w, f.cfg.Status, httputil.Detail{Detail: "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
