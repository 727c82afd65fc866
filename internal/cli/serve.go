package cli

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/relay/pkg/cache"
	"github.com/matzehuels/relay/pkg/config"
	"github.com/matzehuels/relay/pkg/gateway"
	"github.com/matzehuels/relay/pkg/httputil"
	"github.com/matzehuels/relay/pkg/mockapi"
	"github.com/matzehuels/relay/pkg/observability"
	"github.com/matzehuels/relay/pkg/observability/prom"
)

// shutdownGrace bounds how long in-flight requests may run after a signal.
const shutdownGrace = 10 * time.Second

type serveOptions struct {
	listen   string
	withMock bool
	faults   mockapi.FaultConfig
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway in front of the upstream API",
		Long: `Run the gateway. Requests to /items are forwarded to the upstream API
with retries; upstream failures are mapped to 502, 503 or 504.

With --with-mock the mock upstream runs in the same process and the token
defaults to the mock's token.`,
		Example: `  relay serve
  relay serve --with-mock --fail-first 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "gateway listen address (default from config)")
	cmd.Flags().BoolVar(&opts.withMock, "with-mock", false, "also run the mock upstream")
	cmd.Flags().IntVar(&opts.faults.FailFirst, "fail-first", 0, "mock: fail the first N item requests")
	cmd.Flags().IntVar(&opts.faults.Status, "fail-status", 503, "mock: status code for injected failures")
	cmd.Flags().IntVar(&opts.faults.RetryAfter, "retry-after", 0, "mock: Retry-After seconds on injected 429s")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOptions) error {
	s, err := config.Resolve(c.configPath)
	if err != nil {
		return err
	}
	if opts.listen != "" {
		s.Listen = opts.listen
	}
	if opts.withMock && s.Token == "" {
		s.Token = mockapi.DefaultToken
	}
	if err := s.Validate(); err != nil {
		return err
	}

	metrics := prom.New(prometheus.DefaultRegisterer)
	observability.SetHTTPHooks(metrics)
	observability.SetRetryHooks(metrics)
	observability.SetCacheHooks(metrics)
	defer observability.Reset()

	client, err := c.newUpstream(s)
	if err != nil {
		return err
	}
	pages := cache.Instrument(c.newCache(ctx, s), "items")
	defer pages.Close()

	gw := gateway.New(client,
		gateway.WithLogger(c.Logger),
		gateway.WithCache(pages, s.CacheTTL))

	g, ctx := errgroup.WithContext(ctx)
	if opts.withMock {
		mock := mockapi.New(nil,
			mockapi.WithToken(s.Token),
			mockapi.WithFaults(opts.faults),
			mockapi.WithLogger(c.Logger.WithPrefix("mock")))
		g.Go(func() error {
			c.Logger.Info("mock upstream listening", "addr", s.MockListen)
			return httputil.Serve(ctx, s.MockListen, mock.Handler(), shutdownGrace)
		})
	}
	g.Go(func() error {
		c.Logger.Info("gateway listening", "addr", s.Listen, "upstream", s.BaseURLTrimmed())
		return httputil.Serve(ctx, s.Listen, gw.Handler(), shutdownGrace)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	printSuccess("Shut down cleanly")
	return nil
}
