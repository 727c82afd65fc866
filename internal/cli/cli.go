// Package cli implements the relay command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relay/pkg/buildinfo"
	"github.com/matzehuels/relay/pkg/cache"
	"github.com/matzehuels/relay/pkg/config"
	"github.com/matzehuels/relay/pkg/upstream"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "relay"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is bound to the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Relay is a retrying gateway in front of an external items API",
		Long:         `Relay calls an external HTTP API with classified failures, exponential backoff and Retry-After handling, and serves a small gateway over it. A mock upstream with fault injection is included for local runs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a TOML config file")

	root.AddCommand(c.serveCommand())
	root.AddCommand(c.mockCommand())
	root.AddCommand(c.itemsCommand())
	root.AddCommand(c.retryCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Settings & Clients
// =============================================================================

// settings loads and validates configuration for commands that call upstream.
func (c *CLI) settings() (config.Settings, error) {
	return config.Load(c.configPath)
}

// newUpstream builds the upstream client from validated settings.
func (c *CLI) newUpstream(s config.Settings) (*upstream.Client, error) {
	return upstream.NewClient(s, upstream.WithLogger(c.Logger))
}

// newCache returns the page cache for the gateway: Redis when an address is
// configured, otherwise the file cache. Failures fall back to no caching.
func (c *CLI) newCache(ctx context.Context, s config.Settings) cache.Cache {
	if s.CacheTTL == 0 {
		return cache.NewNullCache()
	}
	if s.RedisAddr != "" {
		rc, err := cache.DialRedis(ctx, s.RedisAddr)
		if err == nil {
			c.Logger.Info("using redis cache", "addr", s.RedisAddr)
			return rc
		}
		c.Logger.Warn("redis unavailable, falling back to file cache", "error", err)
	}
	dir, err := cacheDir(s)
	if err != nil {
		return cache.NewNullCache()
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		c.Logger.Warn("file cache unavailable", "error", err)
		return cache.NewNullCache()
	}
	return fc
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG standard
// location (~/.cache/relay/).
func cacheDir(s config.Settings) (string, error) {
	if s.CacheDir != "" {
		return s.CacheDir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	return cache.DefaultDir()
}
