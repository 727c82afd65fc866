package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relay/pkg/config"
	relayerrors "github.com/matzehuels/relay/pkg/errors"
	"github.com/matzehuels/relay/pkg/retry"
)

// retryCommand creates the retry command group.
func (c *CLI) retryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Inspect the retry policy",
	}

	cmd.AddCommand(c.retrySimulateCommand())
	cmd.AddCommand(c.retryPolicyCommand())

	return cmd
}

type simulateOptions struct {
	outcomes   string
	retryAfter int
	wait       bool
}

func (c *CLI) retrySimulateCommand() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the retry loop against a scripted sequence of outcomes",
		Long: `Run the configured retry policy against scripted attempt outcomes.

Each outcome is an HTTP status code, "timeout" or "network". Attempts past
the end of the list repeat the last outcome. Delays are printed but not
slept unless --wait is given.`,
		Example: `  relay retry simulate --outcomes 500,500,200
  relay retry simulate --outcomes 429,200 --retry-after 5
  relay retry simulate --outcomes network,timeout,503`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Resolve(c.configPath)
			if err != nil {
				return err
			}
			policy, err := retry.NewPolicy(s.Retry)
			if err != nil {
				return err
			}
			outcomes, err := parseOutcomes(opts.outcomes, opts.retryAfter)
			if err != nil {
				return err
			}
			res := simulate(cmd.Context(), os.Stdout, policy, outcomes, opts.wait)
			if !res.OK() {
				return res.Err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.outcomes, "outcomes", "500,500,200", "comma-separated attempt outcomes")
	cmd.Flags().IntVar(&opts.retryAfter, "retry-after", 0, "Retry-After seconds sent with 429 outcomes")
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "actually sleep between attempts")

	return cmd
}

func (c *CLI) retryPolicyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective retry policy and its backoff schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.Resolve(c.configPath)
			if err != nil {
				return err
			}
			policy, err := retry.NewPolicy(s.Retry)
			if err != nil {
				return err
			}
			cfg := policy.Config()
			printKeyValue("max_retries", strconv.Itoa(cfg.MaxRetries))
			printKeyValue("base_delay", cfg.BaseDelay.String())
			printKeyValue("max_delay", cfg.MaxDelay.String())
			printKeyValue("factor", strconv.FormatFloat(cfg.BackoffFactor, 'g', -1, 64))
			printKeyValue("jitter", strconv.FormatFloat(cfg.Jitter, 'g', -1, 64))
			printNewline()
			for attempt := range cfg.MaxRetries {
				printDetail("retry %d after %s", attempt+1, policy.Backoff(attempt))
			}
			return nil
		},
	}
}

// parseOutcomes turns "500,timeout,200" into per-attempt errors. A nil
// entry means the attempt succeeds.
func parseOutcomes(s string, retryAfter int) ([]error, error) {
	var out []error
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		switch tok {
		case "":
			continue
		case "timeout":
			out = append(out, context.DeadlineExceeded)
		case "network":
			out = append(out, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED})
		default:
			code, err := strconv.Atoi(tok)
			if err != nil || code < 100 || code > 599 {
				return nil, relayerrors.New(relayerrors.ErrCodeInvalidInput, "invalid outcome %q", tok)
			}
			if code < 300 {
				out = append(out, nil)
				continue
			}
			header := http.Header{}
			if code == http.StatusTooManyRequests && retryAfter > 0 {
				header.Set("Retry-After", strconv.Itoa(retryAfter))
			}
			out = append(out, &retry.StatusError{Code: code, Header: header})
		}
	}
	if len(out) == 0 {
		return nil, relayerrors.New(relayerrors.ErrCodeInvalidInput, "no outcomes given")
	}
	return out, nil
}

// simulate runs policy over outcomes and prints one line per attempt to w.
func simulate(ctx context.Context, w io.Writer, policy *retry.Policy, outcomes []error, wait bool) retry.Result[int] {
	runOpts := []retry.RunOption{
		retry.WithName("simulate"),
		retry.WithLogger(newLogger(io.Discard, LogInfo)),
		retry.WithHooks(simulationHooks{w: w}),
	}
	if !wait {
		runOpts = append(runOpts, retry.WithSleep(func(ctx context.Context, d time.Duration) error {
			return ctx.Err()
		}))
	}

	res := retry.Do(ctx, policy, func(ctx context.Context, attempt int) (int, error) {
		err := outcomes[min(attempt, len(outcomes)-1)]
		if err != nil {
			fmt.Fprintf(w, "attempt %d: %s\n", attempt+1, retry.Classify(err).Kind)
			return 0, err
		}
		fmt.Fprintf(w, "attempt %d: %s\n", attempt+1, StyleSuccess.Render("ok"))
		return attempt + 1, nil
	}, runOpts...)

	if res.OK() {
		fmt.Fprintf(w, "%s after %d attempts (%s)\n", StyleSuccess.Render("succeeded"), res.Attempts, res.Elapsed.Round(time.Millisecond))
	} else {
		fmt.Fprintf(w, "%s after %d attempts: %s\n", StyleWarning.Render("failed"), res.Attempts, res.Err)
	}
	return res
}

// simulationHooks prints retry decisions as they happen.
type simulationHooks struct {
	w io.Writer
}

func (h simulationHooks) OnRetry(_ context.Context, _ string, _ int, kind string, delay time.Duration) {
	fmt.Fprintf(h.w, "  %s retry in %s\n", StyleDim.Render(kind), delay.Round(time.Millisecond))
}

func (h simulationHooks) OnGiveUp(_ context.Context, _ string, attempts int, kind string) {
	fmt.Fprintf(h.w, "  %s giving up after %d attempts\n", StyleDim.Render(kind), attempts)
}
