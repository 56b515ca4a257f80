package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/cardtable-backend/internal/config"
	"github.com/DoyleJ11/cardtable-backend/internal/engine"
	"github.com/DoyleJ11/cardtable-backend/internal/httpapi"
	"github.com/DoyleJ11/cardtable-backend/internal/hub"
	"github.com/DoyleJ11/cardtable-backend/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cardtable",
		Short:         "Turn-based card table server (poker, dixit)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, log)
		},
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}

type recorder interface {
	store.Recorder
	Close() error
}

func openStore(cfg config.Config, log *zap.Logger) (recorder, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, keeping round history in memory")
		return store.NewMemory(), nil
	}
	return store.OpenGorm(cfg.DatabaseURL)
}

func dixitCards(cfg config.Config) ([]string, error) {
	if cfg.DixitCardsDir == "" {
		return engine.GeneratedTokens(cfg.DixitDeckSize), nil
	}
	cards, err := engine.DirTokens(cfg.DixitCardsDir)
	if err != nil {
		return nil, err
	}
	if need := cfg.Dixit.Seats * (cfg.Dixit.HandSize + 1); len(cards) < need {
		return nil, fmt.Errorf("%s holds %d cards, need at least %d", cfg.DixitCardsDir, len(cards), need)
	}
	return cards, nil
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	rec, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	defer rec.Close()

	cards, err := dixitCards(cfg)
	if err != nil {
		return err
	}

	h := hub.NewHub(ctx, hub.Config{
		Factory: hub.NewFactory(hub.GameConfig{
			Poker:      cfg.Poker,
			Dixit:      cfg.Dixit,
			DixitCards: cards,
		}),
		Recorder: rec,
		Logger:   log,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.SetupRoutes(h, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := srv.Shutdown(sctx)
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		return err
	})
	return g.Wait()
}
