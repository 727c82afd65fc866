// Package config loads relay settings from a .env file, an optional TOML
// file and the environment, in that order of increasing precedence.
//
// Example relay.toml:
//
//	base_url = "http://localhost:8099"
//	timeout = "10s"
//	listen = ":8000"
//	cache_ttl = "1m"
//
//	[retry]
//	max_retries = 3
//	base_delay = "1s"
//	max_delay = "1m"
//	backoff_factor = 2.0
//	jitter = 0.05
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	relayerrors "github.com/matzehuels/relay/pkg/errors"
	"github.com/matzehuels/relay/pkg/retry"
)

// Environment variables read by [Load].
const (
	EnvBaseURL   = "EXT_API_BASE_URL"
	EnvToken     = "EXT_API_TOKEN"
	EnvSecret    = "EXT_API_SECRET"
	EnvListen    = "RELAY_LISTEN"
	EnvMockAddr  = "RELAY_MOCK_LISTEN"
	EnvRedisAddr = "RELAY_REDIS_ADDR"
	EnvMongoURI  = "RELAY_MONGO_URI"
)

// DefaultBaseURL is where the mock upstream listens by default.
const DefaultBaseURL = "http://localhost:8099"

// Settings is the resolved configuration. It is passed by value to every
// component that needs it; nothing reads the environment after [Load].
type Settings struct {
	BaseURL        string        `toml:"base_url"`
	Token          string        `toml:"token"`
	Secret         string        `toml:"secret"`
	Timeout        time.Duration `toml:"timeout"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
	Retry          retry.Config  `toml:"retry"`

	Listen     string        `toml:"listen"`
	MockListen string        `toml:"mock_listen"`
	RedisAddr  string        `toml:"redis_addr"`
	MongoURI   string        `toml:"mongo_uri"`
	CacheDir   string        `toml:"cache_dir"`
	CacheTTL   time.Duration `toml:"cache_ttl"`
}

// Default returns settings with every optional field populated. Token is
// left empty.
func Default() Settings {
	return Settings{
		BaseURL:        DefaultBaseURL,
		Timeout:        10 * time.Second,
		ConnectTimeout: 5 * time.Second,
		Retry:          retry.DefaultConfig(),
		Listen:         ":8000",
		MockListen:     ":8099",
		CacheTTL:       time.Minute,
	}
}

// Load resolves settings like [Resolve] and validates them.
func Load(path string) (Settings, error) {
	s, err := Resolve(path)
	if err != nil {
		return Settings{}, err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Resolve merges defaults, path and the environment without validating.
// Commands that never call upstream use it so a missing token is not fatal.
// A missing .env in the working directory is ignored; a missing file at
// path is an error. An empty path skips the TOML step.
func Resolve(path string) (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, relayerrors.Wrap(relayerrors.ErrCodeInvalidConfig, err, "read .env")
	}

	s := Default()
	if path != "" {
		if err := decodeFile(path, &s); err != nil {
			return Settings{}, err
		}
	}
	s.applyEnv(os.LookupEnv)
	return s, nil
}

func decodeFile(path string, s *Settings) error {
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		return relayerrors.Wrap(relayerrors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&s.BaseURL, EnvBaseURL)
	set(&s.Token, EnvToken)
	set(&s.Secret, EnvSecret)
	set(&s.Listen, EnvListen)
	set(&s.MockListen, EnvMockAddr)
	set(&s.RedisAddr, EnvRedisAddr)
	set(&s.MongoURI, EnvMongoURI)
}

// Validate checks required fields and value ranges.
func (s Settings) Validate() error {
	if s.Token == "" {
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "missing required environment variable: %s", EnvToken)
	}
	if err := relayerrors.ValidateURL(s.BaseURL); err != nil {
		return fmt.Errorf("%s: %w", EnvBaseURL, err)
	}
	if s.Timeout <= 0 || s.ConnectTimeout <= 0 {
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "timeouts must be positive")
	}
	if s.CacheTTL < 0 {
		return relayerrors.New(relayerrors.ErrCodeInvalidConfig, "cache_ttl must be >= 0")
	}
	return s.Retry.Validate()
}

// BaseURLTrimmed returns BaseURL without a trailing slash.
func (s Settings) BaseURLTrimmed() string {
	return strings.TrimRight(s.BaseURL, "/")
}
