package httputil

import (
	"io"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a whole request, body included.
	DefaultTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds dialing and the TLS handshake.
	DefaultConnectTimeout = 5 * time.Second

	// MaxErrorBody is the number of bytes kept from a failed response.
	MaxErrorBody = 4 << 10
)

// Timeouts configures [NewClient]. Zero fields use the defaults.
type Timeouts struct {
	Total   time.Duration
	Connect time.Duration
}

func (t Timeouts) withDefaults() Timeouts {
	if t.Total <= 0 {
		t.Total = DefaultTimeout
	}
	if t.Connect <= 0 {
		t.Connect = DefaultConnectTimeout
	}
	return t
}

// NewBaseTransport returns a clone of http.DefaultTransport with the
// connect timeout applied to dialing and TLS handshakes.
func NewBaseTransport(t Timeouts) *http.Transport {
	t = t.withDefaults()
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = (&net.Dialer{Timeout: t.Connect, KeepAlive: 30 * time.Second}).DialContext
	tr.TLSHandshakeTimeout = t.Connect
	return tr
}

// NewClient returns an HTTP client with an instrumented transport. base is
// the RoundTripper being instrumented; nil uses [NewBaseTransport].
func NewClient(t Timeouts, base http.RoundTripper) *http.Client {
	t = t.withDefaults()
	if base == nil {
		base = NewBaseTransport(t)
	}
	return &http.Client{
		Timeout:   t.Total,
		Transport: NewTransport(base),
	}
}

// ReadBody reads at most limit bytes of r. Errors are ignored; whatever was
// read is returned.
func ReadBody(r io.Reader, limit int64) []byte {
	if r == nil {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(r, limit))
	return data
}
