// Package config binds command-line flags to WHOSAID_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/whosaid/internal/cache"
	"github.com/jason-s-yu/whosaid/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "WHOSAID"

// Server configures cmd/server.
type Server struct {
	Bind      string
	Port      int
	PublicURL string

	RoundSeconds  int
	OptionCount   int
	StartDelay    time.Duration
	RoundEndDelay time.Duration

	ReapInterval time.Duration
	IdleTimeout  time.Duration

	CommandRate  float64
	CommandBurst int

	RedisAddr    string
	RedisDB      int
	HistoryQueue string

	TokenExpire    time.Duration
	PrivateKeyPath string
	PublicKeyPath  string

	Verbose bool
}

// RegisterFlags adds the server flags to fs.
func (c *Server) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: WHOSAID_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: WHOSAID_PORT)")
	fs.StringVar(&c.PublicURL, "public-url", "", "externally visible base URL for join links (env: WHOSAID_PUBLIC_URL)")

	fs.IntVar(&c.RoundSeconds, "round-seconds", models.DefaultSecondsPerRound, "default seconds per round (env: WHOSAID_ROUND_SECONDS)")
	fs.IntVar(&c.OptionCount, "option-count", models.DefaultOptionCount, "default candidate authors per round (env: WHOSAID_OPTION_COUNT)")
	fs.DurationVar(&c.StartDelay, "start-delay", models.DefaultStartDelay, "pause before the first round (env: WHOSAID_START_DELAY)")
	fs.DurationVar(&c.RoundEndDelay, "round-end-delay", models.DefaultRoundEndDelay, "pause between rounds (env: WHOSAID_ROUND_END_DELAY)")

	fs.DurationVar(&c.ReapInterval, "reap-interval", 5*time.Minute, "how often idle lobbies are swept (env: WHOSAID_REAP_INTERVAL)")
	fs.DurationVar(&c.IdleTimeout, "idle-timeout", 10*time.Minute, "inactivity before a lobby is removed (env: WHOSAID_IDLE_TIMEOUT)")

	fs.Float64Var(&c.CommandRate, "command-rate", 10, "websocket commands per second per connection, 0 disables (env: WHOSAID_COMMAND_RATE)")
	fs.IntVar(&c.CommandBurst, "command-burst", 20, "websocket command burst per connection (env: WHOSAID_COMMAND_BURST)")

	fs.StringVar(&c.RedisAddr, "redis-addr", "", "redis address for lobby history, empty disables (env: WHOSAID_REDIS_ADDR)")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "redis database number (env: WHOSAID_REDIS_DB)")
	fs.StringVar(&c.HistoryQueue, "history-queue", cache.DefaultQueueName, "redis list receiving history records (env: WHOSAID_HISTORY_QUEUE)")

	fs.DurationVar(&c.TokenExpire, "token-expire", 72*time.Hour, "session token lifetime, 0 never expires (env: WHOSAID_TOKEN_EXPIRE)")
	fs.StringVar(&c.PrivateKeyPath, "private-key", "", "path to raw ed25519 private key; generated when empty (env: WHOSAID_PRIVATE_KEY)")
	fs.StringVar(&c.PublicKeyPath, "public-key", "", "path to raw ed25519 public key (env: WHOSAID_PUBLIC_KEY)")

	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "display additional output (env: WHOSAID_VERBOSE)")
}

func (c *Server) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if (c.PrivateKeyPath == "") != (c.PublicKeyPath == "") {
		return errors.New("both --private-key and --public-key must be provided together")
	}
	if _, err := c.LobbyDefaults().Normalize(); err != nil {
		return err
	}
	if c.IdleTimeout <= 0 || c.ReapInterval <= 0 {
		return errors.New("--idle-timeout and --reap-interval must be positive")
	}
	return nil
}

// Addr is the listen address.
func (c *Server) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// LobbyDefaults are the settings applied to lobbies that leave them unset.
func (c *Server) LobbyDefaults() models.LobbySettings {
	return models.LobbySettings{
		SecondsPerRound: c.RoundSeconds,
		OptionCount:     c.OptionCount,
		StartDelay:      c.StartDelay,
		RoundEndDelay:   c.RoundEndDelay,
	}
}

// Historian configures cmd/historian.
type Historian struct {
	RedisAddr     string
	RedisDB       int
	Queue         string
	PostgresURL   string
	BatchSize     int
	FlushInterval time.Duration
	Migrate       bool
	Verbose       bool
}

func (c *Historian) RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.RedisAddr, "redis-addr", "localhost:6379", "redis address (env: WHOSAID_REDIS_ADDR)")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "redis database number (env: WHOSAID_REDIS_DB)")
	fs.StringVar(&c.Queue, "history-queue", cache.DefaultQueueName, "redis list to consume (env: WHOSAID_HISTORY_QUEUE)")
	fs.StringVar(&c.PostgresURL, "postgres-url", "", "postgres connection URL (env: WHOSAID_POSTGRES_URL)")
	fs.IntVar(&c.BatchSize, "batch-size", 20, "records per insert transaction (env: WHOSAID_BATCH_SIZE)")
	fs.DurationVar(&c.FlushInterval, "flush-interval", 500*time.Millisecond, "max time a record waits before being written (env: WHOSAID_FLUSH_INTERVAL)")
	fs.BoolVar(&c.Migrate, "migrate", true, "create history tables on startup (env: WHOSAID_MIGRATE)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "display additional output (env: WHOSAID_VERBOSE)")
}

func (c *Historian) Validate() error {
	if c.PostgresURL == "" {
		return errors.New("--postgres-url is required")
	}
	if c.RedisAddr == "" {
		return errors.New("--redis-addr is required")
	}
	return nil
}

// BindEnv lets WHOSAID_<FLAG_NAME> environment variables supply any flag in fs that
// was not set on the command line. Call it after registering flags.
func BindEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// NewLogger builds the process logger.
func NewLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
