package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 9, cfg.Poker.Seats)
	assert.Equal(t, 1500, cfg.Poker.BuyIn)
	assert.Equal(t, 15, cfg.Poker.SmallBlind)
	assert.Equal(t, 6*time.Second, cfg.Poker.WinDelay)
	assert.Equal(t, 10, cfg.Dixit.Seats)
	assert.Equal(t, 5, cfg.Dixit.HandSize)
	assert.Equal(t, 12*time.Second, cfg.Dixit.WinDelay)
	assert.Equal(t, 84, cfg.DixitDeckSize)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("POKER_SMALL_BLIND", "25")
	t.Setenv("POKER_WIN_DELAY", "250ms")
	t.Setenv("DIXIT_SEATS", "6")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Poker.SmallBlind)
	assert.Equal(t, 250*time.Millisecond, cfg.Poker.WinDelay)
	assert.Equal(t, 6, cfg.Dixit.Seats)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("ADDR", ":9000")
	t.Setenv("DATABASE_URL", "postgres://env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(flags)
	require.NoError(t, flags.Parse([]string{"--addr", ":7000"}))

	cfg, err := Load(flags)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "postgres://env", cfg.DatabaseURL, "unset flags leave the environment alone")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DIXIT_HAND_SIZE=7\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DIXIT_HAND_SIZE") })

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Dixit.HandSize)

	_, err = Load(nil, filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	base, err := Load(nil)
	require.NoError(t, err)

	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"one poker seat", func(c *Config) { c.Poker.Seats = 1 }, KeyPokerSeats},
		{"free blinds", func(c *Config) { c.Poker.SmallBlind = 0 }, KeyPokerSmallBlind},
		{"buy-in below big blind", func(c *Config) { c.Poker.BuyIn = 30 }, KeyPokerBuyIn},
		{"one dixit seat", func(c *Config) { c.Dixit.Seats = 1 }, KeyDixitSeats},
		{"empty hands", func(c *Config) { c.Dixit.HandSize = 0 }, KeyDixitHandSize},
		{"deck too small", func(c *Config) { c.DixitDeckSize = 20 }, KeyDixitDeckSize},
		{"negative delay", func(c *Config) { c.Dixit.WinDelay = -time.Second }, "win delays"},
		{"unknown level", func(c *Config) { c.LogLevel = "loud" }, KeyLogLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	t.Run("cards dir skips deck size check", func(t *testing.T) {
		c := base
		c.DixitDeckSize = 0
		c.DixitCardsDir = "/cards"
		assert.NoError(t, c.Validate())
	})
}
