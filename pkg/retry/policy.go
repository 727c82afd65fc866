package retry

import (
	"math"
	"math/rand/v2"
	"time"

	relayerrors "github.com/matzehuels/relay/pkg/errors"
)

// Config holds the retry tuning knobs. It is a plain value; copy it freely.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// default: 3
	MaxRetries int `toml:"max_retries"`

	// BaseDelay is the backoff delay before the first retry.
	// default: 1 second
	BaseDelay time.Duration `toml:"base_delay"`

	// MaxDelay caps the computed backoff delay. Server-directed
	// Retry-After delays are not capped.
	// default: 60 seconds
	MaxDelay time.Duration `toml:"max_delay"`

	// BackoffFactor multiplies the delay after each attempt.
	// default: 2.0
	BackoffFactor float64 `toml:"backoff_factor"`

	// Jitter is the fraction of the delay added or removed at random.
	// default: 0.05
	Jitter float64 `toml:"jitter"`
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		MaxDelay:      60 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        0.05,
	}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	switch {
	case c.MaxRetries < 0:
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "max_retries must be >= 0, got %d", c.MaxRetries)
	case c.BaseDelay <= 0:
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "base_delay must be > 0, got %s", c.BaseDelay)
	case c.MaxDelay < c.BaseDelay:
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "max_delay (%s) must be >= base_delay (%s)", c.MaxDelay, c.BaseDelay)
	case !(c.BackoffFactor > 1):
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "backoff_factor must be > 1, got %v", c.BackoffFactor)
	case c.Jitter < 0 || c.Jitter >= 1:
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "jitter must be in [0, 1), got %v", c.Jitter)
	}
	return nil
}

// Policy decides whether a failed attempt is retried and how long to wait.
//
// A Policy holds no mutable state and is safe for concurrent use.
type Policy struct {
	cfg    Config
	random func() float64
}

// PolicyOption customizes a Policy.
type PolicyOption func(p *Policy)

// WithRandom sets the jitter source. fn must return values in [0, 1) and be
// safe for concurrent use.
// default: math/rand/v2.Float64
func WithRandom(fn func() float64) PolicyOption {
	return func(p *Policy) {
		if fn != nil {
			p.random = fn
		}
	}
}

// NewPolicy validates cfg and returns a Policy.
func NewPolicy(cfg Config, opts ...PolicyOption) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Policy{cfg: cfg, random: rand.Float64}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// DefaultPolicy returns a Policy using [DefaultConfig].
func DefaultPolicy() *Policy {
	return &Policy{cfg: DefaultConfig(), random: rand.Float64}
}

// Config returns a copy of the policy's configuration.
func (p *Policy) Config() Config { return p.cfg }

// MaxAttempts returns the total number of attempts, first try included.
func (p *Policy) MaxAttempts() int { return p.cfg.MaxRetries + 1 }

// ShouldRetry reports whether the attempt that produced err is retried.
// It is false once attempt reaches MaxRetries, and for every kind that is
// not transient.
func (p *Policy) ShouldRetry(err ClassifiedError, attempt int) bool {
	if attempt >= p.cfg.MaxRetries {
		return false
	}
	return err.Kind.Retryable()
}

// Backoff returns the un-jittered exponential delay for attempt:
// min(BaseDelay * BackoffFactor^attempt, MaxDelay).
func (p *Policy) Backoff(attempt int) time.Duration {
	attempt = max(attempt, 0)
	d := float64(p.cfg.BaseDelay) * math.Pow(p.cfg.BackoffFactor, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(p.cfg.MaxDelay) {
		return p.cfg.MaxDelay
	}
	return time.Duration(d)
}

// DelayBeforeRetry returns how long to wait before retrying after err.
//
// A rate_limit error with RetryAfter set returns exactly that many seconds.
// Otherwise the result is Backoff(attempt) perturbed by up to ±Jitter of its
// value, never negative.
func (p *Policy) DelayBeforeRetry(err ClassifiedError, attempt int) time.Duration {
	if err.Kind == KindRateLimit && err.RetryAfter > 0 {
		return err.RetryAfterDuration()
	}
	d := float64(p.Backoff(attempt))
	jitter := d * p.cfg.Jitter * (2*p.random() - 1)
	return max(time.Duration(d+jitter), 0)
}

// Decide combines ShouldRetry and DelayBeforeRetry.
func (p *Policy) Decide(err ClassifiedError, attempt int) Decision {
	if !p.ShouldRetry(err, attempt) {
		return Fail(err)
	}
	return RetryIn(p.DelayBeforeRetry(err, attempt), err)
}

// Action is the outcome of a retry decision.
type Action int

const (
	// ActionFail ends the logical request with the error.
	ActionFail Action = iota
	// ActionRetry waits for Decision.Delay and tries again.
	ActionRetry
)

func (a Action) String() string {
	if a == ActionRetry {
		return "retry"
	}
	return "fail"
}

// Decision is the tagged result of [Policy.Decide]. Side effects such as
// logging or refreshing credentials are left to the caller.
type Decision struct {
	Action Action
	Delay  time.Duration
	Err    ClassifiedError
}

// RetryIn returns a decision to retry after delay.
func RetryIn(delay time.Duration, err ClassifiedError) Decision {
	return Decision{Action: ActionRetry, Delay: delay, Err: err}
}

// Fail returns a decision to stop with err.
func Fail(err ClassifiedError) Decision {
	return Decision{Action: ActionFail, Err: err}
}

// Retry reports whether the decision is to retry.
func (d Decision) Retry() bool { return d.Action == ActionRetry }
