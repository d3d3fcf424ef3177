package arena

import (
	"time"

	jlconfig "github.com/JeremyLoy/config"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"pkg.world.dev/arena-engine/queue"
)

const DefaultLogLevel = "info"

// Config is the engine's tuning surface. Every value can be overridden from
// the environment; the zero-config defaults run a standard cycle of 5-minute
// matches, 2-minute intermissions, and a full reset every 24 hours.
type Config struct {
	ArenaNamespace       string        `config:"ARENA_NAMESPACE"`
	ArenaPort            string        `config:"ARENA_PORT"`
	ArenaLogLevel        string        `config:"ARENA_LOG_LEVEL"`
	MatchDuration        time.Duration `config:"ARENA_MATCH_DURATION"`
	IntermissionDuration time.Duration `config:"ARENA_INTERMISSION_DURATION"`
	ResetInterval        time.Duration `config:"ARENA_RESET_INTERVAL"`
	RelegationThreshold  int           `config:"ARENA_RELEGATION_THRESHOLD"`
	MaxQueueSize         int           `config:"ARENA_MAX_QUEUE_SIZE"`
	MinMatchPlayers      int           `config:"ARENA_MIN_MATCH_PLAYERS"`
	MaxMatchPlayers      int           `config:"ARENA_MAX_MATCH_PLAYERS"`
	MaxConnections       int           `config:"ARENA_MAX_CONNECTIONS"`
	StaleSessionTimeout  time.Duration `config:"ARENA_STALE_SESSION_TIMEOUT"`
	ResultHistorySize    int           `config:"ARENA_RESULT_HISTORY_SIZE"`
	StatsdAddress        string        `config:"STATSD_ADDRESS"`

	// RelegationBrackets has no environment form; override it in code via
	// WithConfig when the stock table does not fit.
	RelegationBrackets []queue.Bracket
}

var defaultConfig = Config{
	ArenaNamespace:       "arena",
	ArenaPort:            "4040",
	ArenaLogLevel:        DefaultLogLevel,
	MatchDuration:        5 * time.Minute,
	IntermissionDuration: 2 * time.Minute,
	ResetInterval:        24 * time.Hour,
	RelegationThreshold:  3,
	MaxQueueSize:         50,
	MinMatchPlayers:      2,
	MaxMatchPlayers:      16,
	MaxConnections:       100,
	StaleSessionTimeout:  30 * time.Minute,
	ResultHistorySize:    10,
	RelegationBrackets:   queue.DefaultBrackets,
}

// DefaultConfig returns a copy of the stock configuration, for callers that
// want to tweak a few fields in code instead of going through the environment.
func DefaultConfig() Config {
	return defaultConfig
}

// loadConfig reads the environment on top of the defaults.
func loadConfig() (*Config, error) {
	cfg := defaultConfig
	if err := jlconfig.FromEnv().To(&cfg); err != nil {
		return nil, eris.Wrap(err, "failed to load config from environment")
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.ArenaLogLevel); err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.ArenaLogLevel)
	}
	if c.MatchDuration <= 0 || c.IntermissionDuration <= 0 || c.ResetInterval <= 0 {
		return eris.New("match, intermission, and reset durations must all be positive")
	}
	if c.MinMatchPlayers < 2 {
		return eris.New("a match needs at least 2 players")
	}
	if c.MaxMatchPlayers < c.MinMatchPlayers {
		return eris.New("max match players must not be below min match players")
	}
	if c.RelegationThreshold < 1 {
		return eris.New("relegation threshold must be at least 1")
	}
	if c.MaxQueueSize < c.MinMatchPlayers {
		return eris.New("queue capacity below min match players would deadlock the cycle")
	}
	if c.MaxConnections < 1 {
		return eris.New("connection ceiling must be at least 1")
	}
	if c.StaleSessionTimeout <= 0 {
		return eris.New("stale session timeout must be positive")
	}
	if c.ResultHistorySize < 1 {
		return eris.New("result history must keep at least 1 entry")
	}
	return nil
}

func (c *Config) setLogLevel() error {
	level, err := zerolog.ParseLevel(c.ArenaLogLevel)
	if err != nil {
		return eris.Wrapf(err, "invalid log level %q", c.ArenaLogLevel)
	}
	zerolog.SetGlobalLevel(level)
	return nil
}
