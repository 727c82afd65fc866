package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relay/pkg/buildinfo"
	"github.com/matzehuels/relay/pkg/config"
	relayerrors "github.com/matzehuels/relay/pkg/errors"
	"github.com/matzehuels/relay/pkg/httputil"
	"github.com/matzehuels/relay/pkg/retry"
	"github.com/matzehuels/relay/pkg/security"
)

// Client calls the upstream API with default headers and retries.
// It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
	policy  *retry.Policy
	logger  *log.Logger
	runOpts []retry.RunOption

	transport http.RoundTripper
}

// Option customizes a Client.
type Option func(c *Client)

// WithHTTPClient replaces the HTTP client built from the settings.
// The client is used as is: no signing or instrumentation is added.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTransport sets the innermost RoundTripper. Signing and
// instrumentation still wrap it.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

// WithLogger sets the logger for requests and retry decisions.
// default: log.Default()
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPolicy overrides the policy built from Settings.Retry.
func WithPolicy(p *retry.Policy) Option {
	return func(c *Client) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithRunOptions adds options to every retry loop, e.g. retry.WithSleep
// or retry.WithHooks.
func WithRunOptions(opts ...retry.RunOption) Option {
	return func(c *Client) {
		c.runOpts = append(c.runOpts, opts...)
	}
}

// NewClient builds a client from settings. The settings are copied;
// later changes to s have no effect.
func NewClient(s config.Settings, opts ...Option) (*Client, error) {
	if err := relayerrors.ValidateURL(s.BaseURL); err != nil {
		return nil, err
	}
	policy, err := retry.NewPolicy(s.Retry)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: s.BaseURLTrimmed(),
		headers: map[string]string{
			"Authorization": "Bearer " + s.Token,
			"Accept":        "application/json",
			"Content-Type":  "application/json",
			"User-Agent":    buildinfo.UserAgent(),
		},
		policy: policy,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		timeouts := httputil.Timeouts{Total: s.Timeout, Connect: s.ConnectTimeout}
		base := c.transport
		if base == nil {
			base = httputil.NewBaseTransport(timeouts)
		}
		c.http = httputil.NewClient(timeouts, security.NewSigner(base, s.Secret))
	}
	return c, nil
}

// Policy returns the retry policy in use.
func (c *Client) Policy() *retry.Policy { return c.policy }

// Response is the outcome of one logical request.
//
// Success is true exactly when Err is nil. Data holds the raw JSON body of
// a successful response, nil for empty bodies. StatusCode is 0 when no
// response was received.
type Response struct {
	Success    bool
	StatusCode int
	Data       json.RawMessage
	Err        *retry.ClassifiedError
	Attempts   int
}

// Error returns Err as an error, or nil on success.
func (r Response) Error() error {
	if r.Err == nil {
		return nil
	}
	return *r.Err
}

// Decode unmarshals Data into v. It returns the response error for failed
// responses.
func (r Response) Decode(v any) error {
	if err := r.Error(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	return json.Unmarshal(r.Data, v)
}

// failed builds a Response for an error raised before any request.
func failed(err error) Response {
	ce := retry.Classify(err)
	return Response{Err: &ce}
}

type rawResult struct {
	status int
	body   []byte
}

// Do sends one logical request. body, when non-nil, is JSON encoded once
// and re-sent on every attempt.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) Response {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return failed(relayerrors.Wrap(relayerrors.ErrCodeInvalidInput, err, "encode request body"))
		}
	}

	target := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	name := method + " " + path

	opts := append([]retry.RunOption{retry.WithName(name), retry.WithLogger(c.logger)}, c.runOpts...)
	res := retry.Do(ctx, c.policy, func(ctx context.Context, attempt int) (rawResult, error) {
		return c.attempt(ctx, method, target, payload)
	}, opts...)

	resp := Response{Success: res.OK(), Attempts: res.Attempts, Err: res.Err}
	if res.OK() {
		resp.StatusCode = res.Value.status
		if len(res.Value.body) > 0 {
			resp.Data = res.Value.body
		}
		c.logger.Debug("upstream request", "method", method, "path", path, "status", resp.StatusCode, "attempts", res.Attempts)
	} else {
		resp.StatusCode = res.Err.StatusCode
	}
	return resp
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte) (rawResult, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return rawResult{}, relayerrors.Wrap(relayerrors.ErrCodeInvalidURL, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return rawResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rawResult{}, &retry.StatusError{
			Code:   resp.StatusCode,
			Header: resp.Header.Clone(),
			Body:   httputil.ReadBody(resp.Body, httputil.MaxErrorBody),
		}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResult{}, err
	}
	return rawResult{status: resp.StatusCode, body: data}, nil
}

// Get sends a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) Response {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) Response {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) Response {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete sends a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) Response {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}
