package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relay/pkg/config"
	"github.com/matzehuels/relay/pkg/httputil"
	"github.com/matzehuels/relay/pkg/mockapi"
)

type mockOptions struct {
	listen string
	token  string
	mongo  string
	faults mockapi.FaultConfig
}

// mockCommand creates the mock command.
func (c *CLI) mockCommand() *cobra.Command {
	var opts mockOptions

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run the mock upstream items API",
		Long: `Run the mock upstream. It serves 100 seeded items behind bearer-token
auth and can inject failures into the first N item requests.

Items live in memory unless --mongo (or RELAY_MONGO_URI) names a MongoDB
deployment.`,
		Example: `  relay mock
  relay mock --fail-first 3 --fail-status 429 --retry-after 2
  relay mock --mongo mongodb://localhost:27017`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runMock(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.token, "token", "", "accepted bearer token (default: EXT_API_TOKEN or "+mockapi.DefaultToken+")")
	cmd.Flags().StringVar(&opts.mongo, "mongo", "", "MongoDB URI for item storage")
	cmd.Flags().IntVar(&opts.faults.FailFirst, "fail-first", 0, "fail the first N item requests")
	cmd.Flags().IntVar(&opts.faults.Status, "fail-status", 503, "status code for injected failures")
	cmd.Flags().IntVar(&opts.faults.RetryAfter, "retry-after", 0, "Retry-After seconds on injected 429s")

	return cmd
}

func (c *CLI) runMock(ctx context.Context, opts mockOptions) error {
	s, err := config.Resolve(c.configPath)
	if err != nil {
		return err
	}
	listen := firstNonEmpty(opts.listen, s.MockListen)
	token := firstNonEmpty(opts.token, s.Token, mockapi.DefaultToken)
	mongoURI := firstNonEmpty(opts.mongo, s.MongoURI)

	var store mockapi.Store = mockapi.NewMemoryStore()
	if mongoURI != "" {
		ms, err := mockapi.DialMongo(ctx, mongoURI)
		if err != nil {
			return err
		}
		c.Logger.Info("using mongo store")
		store = ms
	}
	defer store.Close()

	srv := mockapi.New(store,
		mockapi.WithToken(token),
		mockapi.WithFaults(opts.faults),
		mockapi.WithLogger(c.Logger))

	c.Logger.Info("mock upstream listening", "addr", listen, "fail_first", opts.faults.FailFirst)
	return httputil.Serve(ctx, listen, srv.Handler(), shutdownGrace)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
