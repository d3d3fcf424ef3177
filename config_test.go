package arena

import (
	"testing"
	"time"

	"pkg.world.dev/arena-engine/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg, err := loadConfig()
	assert.NilError(t, err)
	assert.DeepEqual(t, defaultConfig, *cfg)
	assert.NilError(t, cfg.Validate())
}

func TestConfigReadsEnvironment(t *testing.T) {
	t.Setenv("ARENA_MATCH_DURATION", "90s")
	t.Setenv("ARENA_INTERMISSION_DURATION", "15s")
	t.Setenv("ARENA_RESET_INTERVAL", "1h")
	t.Setenv("ARENA_RELEGATION_THRESHOLD", "5")
	t.Setenv("ARENA_MAX_CONNECTIONS", "7")
	t.Setenv("ARENA_NAMESPACE", "staging")

	cfg, err := loadConfig()
	assert.NilError(t, err)
	assert.Equal(t, 90*time.Second, cfg.MatchDuration)
	assert.Equal(t, 15*time.Second, cfg.IntermissionDuration)
	assert.Equal(t, time.Hour, cfg.ResetInterval)
	assert.Equal(t, 5, cfg.RelegationThreshold)
	assert.Equal(t, 7, cfg.MaxConnections)
	assert.Equal(t, "staging", cfg.ArenaNamespace)
	// Untouched fields keep their defaults.
	assert.Equal(t, defaultConfig.MaxQueueSize, cfg.MaxQueueSize)
	assert.Equal(t, defaultConfig.ArenaPort, cfg.ArenaPort)
}

func TestConfigValidateRejectsBadValues(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.ArenaLogLevel = "screaming" },
			wantErr: "invalid log level",
		},
		{
			name:    "zero match duration",
			mutate:  func(c *Config) { c.MatchDuration = 0 },
			wantErr: "must all be positive",
		},
		{
			name:    "solo matches",
			mutate:  func(c *Config) { c.MinMatchPlayers = 1 },
			wantErr: "at least 2 players",
		},
		{
			name:    "max below min",
			mutate:  func(c *Config) { c.MaxMatchPlayers = 1 },
			wantErr: "must not be below",
		},
		{
			name:    "zero threshold",
			mutate:  func(c *Config) { c.RelegationThreshold = 0 },
			wantErr: "threshold",
		},
		{
			name:    "queue smaller than a match",
			mutate:  func(c *Config) { c.MaxQueueSize = 1 },
			wantErr: "deadlock",
		},
		{
			name:    "no connections allowed",
			mutate:  func(c *Config) { c.MaxConnections = 0 },
			wantErr: "ceiling",
		},
		{
			name:    "empty history",
			mutate:  func(c *Config) { c.ResultHistorySize = 0 },
			wantErr: "history",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig
			tc.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tc.wantErr)
		})
	}
}
