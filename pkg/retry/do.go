package retry

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/relay/pkg/observability"
)

// Operation performs one attempt. attempt is 0 for the first try.
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Result is the terminal state of a logical request.
//
// Exactly one of the following holds: Err is nil and Value is the
// operation's result, or Err carries the last classified failure.
type Result[T any] struct {
	Value    T
	Attempts int
	Err      *ClassifiedError
	Elapsed  time.Duration
}

// OK reports whether the request succeeded.
func (r Result[T]) OK() bool { return r.Err == nil }

// Error returns Err as an error, or nil on success.
func (r Result[T]) Error() error {
	if r.Err == nil {
		return nil
	}
	return *r.Err
}

type runConfig struct {
	name   string
	logger *log.Logger
	hooks  observability.RetryHooks
	sleep  func(ctx context.Context, d time.Duration) error
}

// RunOption customizes a single call to [Do].
type RunOption func(c *runConfig)

// WithName labels the operation in logs and hooks.
// default: "operation"
func WithName(name string) RunOption {
	return func(c *runConfig) {
		c.name = name
	}
}

// WithLogger sets the logger used for attempt, retry and give-up events.
// default: log.Default()
func WithLogger(l *log.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHooks overrides the globally registered retry hooks.
func WithHooks(h observability.RetryHooks) RunOption {
	return func(c *runConfig) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithSleep replaces the wait between attempts. fn must return ctx.Err()
// when ctx is done before d elapses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// Do runs op until it succeeds or p decides to stop.
//
// Attempts are sequential. After a failed attempt the error is classified,
// p decides, and Do either returns a failed Result or waits and tries again.
// If ctx is done before an attempt or during a wait, no further attempts are
// made and Result.Err wraps ctx.Err(). Do never panics on operation errors.
//
// A nil p uses [DefaultPolicy].
func Do[T any](ctx context.Context, p *Policy, op Operation[T], opts ...RunOption) Result[T] {
	cfg := runConfig{
		name:   "operation",
		logger: log.Default(),
		hooks:  observability.Retry(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if p == nil {
		p = DefaultPolicy()
	}

	start := time.Now()
	var res Result[T]

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return abandon(ctx, cfg, res, err, start)
		}

		res.Attempts = attempt + 1
		cfg.logger.Debug("attempting", "op", cfg.name, "attempt", res.Attempts, "max", p.MaxAttempts())

		value, err := op(ctx, attempt)
		if err == nil {
			res.Value = value
			res.Elapsed = time.Since(start)
			return res
		}

		d := p.Decide(Classify(err), attempt)
		if !d.Retry() {
			cfg.logger.Error("giving up",
				"op", cfg.name,
				"attempts", res.Attempts,
				"kind", d.Err.Kind,
				"error", d.Err.Message)
			cfg.hooks.OnGiveUp(ctx, cfg.name, res.Attempts, string(d.Err.Kind))
			res.Err = &d.Err
			res.Elapsed = time.Since(start)
			return res
		}

		cfg.logger.Warn("retrying",
			"op", cfg.name,
			"attempt", res.Attempts,
			"kind", d.Err.Kind,
			"status", d.Err.StatusCode,
			"delay", d.Delay.Round(time.Millisecond))
		cfg.hooks.OnRetry(ctx, cfg.name, attempt, string(d.Err.Kind), d.Delay)

		if err := cfg.sleep(ctx, d.Delay); err != nil {
			return abandon(ctx, cfg, res, err, start)
		}
	}
}

// abandon ends a request whose context finished before it could complete.
func abandon[T any](ctx context.Context, cfg runConfig, res Result[T], err error, start time.Time) Result[T] {
	ce := Classify(err)
	cfg.logger.Warn("abandoned", "op", cfg.name, "attempts", res.Attempts, "error", err)
	cfg.hooks.OnGiveUp(ctx, cfg.name, res.Attempts, string(ce.Kind))
	var zero T
	res.Value = zero
	res.Err = &ce
	res.Elapsed = time.Since(start)
	return res
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
