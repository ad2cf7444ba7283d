package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	cfg := &Config{}
	cmd := newCmd(cfg)
	require.NoError(t, cmd.ParseFlags(args))
	return cfg, cfg.validate()
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.port)
	assert.Equal(t, 10, cfg.defaultRounds)
	assert.Equal(t, 10, cfg.pointsPerVote)
	assert.Equal(t, 3, cfg.promptAttempts)
	assert.Equal(t, time.Hour, cfg.sessionTimeout)
	assert.Equal(t, 30*time.Second, cfg.bindTimeout)
	assert.Empty(t, cfg.redisAddr)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("PSYKOS_PORT", "9090")
	t.Setenv("PSYKOS_POINTS_PER_VOTE", "5")
	t.Setenv("PSYKOS_CONTENT_MODEL", "tiny")

	cfg, err := parse(t)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 5, cfg.pointsPerVote)
	assert.Equal(t, "tiny", cfg.contentModel)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	t.Setenv("PSYKOS_PORT", "9090")
	cfg, err := parse(t, "--port", "7000")
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.port)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"port", []string{"--port", "0"}},
		{"attempts", []string{"--prompt-attempts", "0"}},
		{"rounds", []string{"--default-rounds", "30", "--max-rounds", "20"}},
		{"points", []string{"--points-per-vote", "-1"}},
		{"timeout", []string{"--session-timeout", "0s"}},
		{"bind timeout", []string{"--bind-timeout", "0s"}},
		{"redis queue", []string{"--redis-addr", "localhost:6379", "--redis-queue", ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parse(t, tc.args...)
			assert.Error(t, err)
		})
	}
}
