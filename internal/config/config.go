// Package config loads server settings from flags, the environment and an
// optional .env file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/DoyleJ11/cardtable-backend/internal/dixit"
	"github.com/DoyleJ11/cardtable-backend/internal/poker"
)

const (
	KeyAddr            = "addr"
	KeyLogLevel        = "log_level"
	KeyDatabaseURL     = "database_url"
	KeyPokerSeats      = "poker_seats"
	KeyPokerBuyIn      = "poker_buy_in"
	KeyPokerSmallBlind = "poker_small_blind"
	KeyPokerWinDelay   = "poker_win_delay"
	KeyDixitSeats      = "dixit_seats"
	KeyDixitHandSize   = "dixit_hand_size"
	KeyDixitDeckSize   = "dixit_deck_size"
	KeyDixitCardsDir   = "dixit_cards_dir"
	KeyDixitWinDelay   = "dixit_win_delay"
)

type Config struct {
	Addr        string
	LogLevel    string
	DatabaseURL string

	Poker poker.Config

	Dixit         dixit.Config
	DixitDeckSize int
	DixitCardsDir string
}

func defaults(v *viper.Viper) {
	p, d := poker.DefaultConfig(), dixit.DefaultConfig()
	v.SetDefault(KeyAddr, ":8080")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyDatabaseURL, "")
	v.SetDefault(KeyPokerSeats, p.Seats)
	v.SetDefault(KeyPokerBuyIn, p.BuyIn)
	v.SetDefault(KeyPokerSmallBlind, p.SmallBlind)
	v.SetDefault(KeyPokerWinDelay, p.WinDelay)
	v.SetDefault(KeyDixitSeats, d.Seats)
	v.SetDefault(KeyDixitHandSize, d.HandSize)
	v.SetDefault(KeyDixitDeckSize, 84)
	v.SetDefault(KeyDixitCardsDir, "")
	v.SetDefault(KeyDixitWinDelay, d.WinDelay)
}

// RegisterFlags adds a flag for every key that is commonly overridden on the
// command line.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.String("addr", ":8080", "listen address")
	flags.String("log-level", "info", "debug, info, warn or error")
	flags.String("database-url", "", "postgres DSN for round history; empty keeps it in memory")
}

// Load reads .env files (missing ones are fine), then the environment, then
// any flags set on flags. flags may be nil.
func Load(flags *pflag.FlagSet, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !isNotExist(err) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	defaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if flags != nil {
		for _, key := range []string{KeyAddr, KeyLogLevel, KeyDatabaseURL} {
			if f := flags.Lookup(strings.ReplaceAll(key, "_", "-")); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", f.Name, err)
				}
			}
		}
	}

	cfg := Config{
		Addr:        v.GetString(KeyAddr),
		LogLevel:    strings.ToLower(v.GetString(KeyLogLevel)),
		DatabaseURL: v.GetString(KeyDatabaseURL),
		Poker: poker.Config{
			Seats:      v.GetInt(KeyPokerSeats),
			BuyIn:      v.GetInt(KeyPokerBuyIn),
			SmallBlind: v.GetInt(KeyPokerSmallBlind),
			WinDelay:   v.GetDuration(KeyPokerWinDelay),
		},
		Dixit: dixit.Config{
			Seats:    v.GetInt(KeyDixitSeats),
			HandSize: v.GetInt(KeyDixitHandSize),
			WinDelay: v.GetDuration(KeyDixitWinDelay),
		},
		DixitDeckSize: v.GetInt(KeyDixitDeckSize),
		DixitCardsDir: v.GetString(KeyDixitCardsDir),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.Poker.Seats < 2 {
		errs = append(errs, fmt.Errorf("%s must be at least 2, got %d", KeyPokerSeats, c.Poker.Seats))
	}
	if c.Poker.SmallBlind <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyPokerSmallBlind, c.Poker.SmallBlind))
	}
	if c.Poker.BuyIn <= 2*c.Poker.SmallBlind {
		errs = append(errs, fmt.Errorf("%s must exceed the big blind %d, got %d", KeyPokerBuyIn, 2*c.Poker.SmallBlind, c.Poker.BuyIn))
	}
	if c.Dixit.Seats < 2 {
		errs = append(errs, fmt.Errorf("%s must be at least 2, got %d", KeyDixitSeats, c.Dixit.Seats))
	}
	if c.Dixit.HandSize < 1 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %d", KeyDixitHandSize, c.Dixit.HandSize))
	}
	if c.DixitCardsDir == "" && c.DixitDeckSize < c.Dixit.Seats*(c.Dixit.HandSize+1) {
		errs = append(errs, fmt.Errorf("%s %d is too small for %d seats of %d cards", KeyDixitDeckSize, c.DixitDeckSize, c.Dixit.Seats, c.Dixit.HandSize))
	}
	if c.Poker.WinDelay < 0 || c.Dixit.WinDelay < 0 {
		errs = append(errs, errors.New("win delays must not be negative"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%s %q is not one of debug, info, warn, error", KeyLogLevel, c.LogLevel))
	}
	return errors.Join(errs...)
}

func isNotExist(err error) bool { return errors.Is(err, fs.ErrNotExist) }
