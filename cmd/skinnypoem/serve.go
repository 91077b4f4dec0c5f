package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/seantiz/skinnypoem/internal/api"
	"github.com/seantiz/skinnypoem/internal/config"
	"github.com/seantiz/skinnypoem/internal/engine"
	"github.com/seantiz/skinnypoem/internal/schedule"
	"github.com/seantiz/skinnypoem/internal/state"
	"github.com/seantiz/skinnypoem/internal/store"
	"github.com/seantiz/skinnypoem/internal/wordbank"
)

func newServeCmd(configPath *string) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and phase ticker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := config.NewLogger(os.Stdout, cfg.LogLevel)

			var clock schedule.Clock = schedule.SystemClock{}
			if at != "" {
				start, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				clock = newOffsetClock(start)
				logger.Warn("running on a shifted clock", "start", start)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, clock, logger)
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "start the phase clock at this RFC 3339 time (for demos and testing)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, clock schedule.Clock, logger *slog.Logger) error {
	logger.Info("skinnypoem: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"timezone", cfg.Timezone,
		"codec", cfg.Codec,
	)

	eng, db, watcher, err := openEngine(cfg, clock, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	srv := api.NewServer(cfg.ListenAddr, eng, cfg.AdminTokenHash, logger)
	if cfg.AdminTokenHash == "" {
		logger.Warn("no admin token hash configured, admin endpoints disabled")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	g.Go(func() error { return eng.Run(ctx, cfg.TickInterval) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(ctx) })
	}
	return g.Wait()
}

// openEngine wires the store, repository, word bank and engine from cfg.
// The returned watcher is nil when no word bank file is configured.
func openEngine(cfg config.Config, clock schedule.Clock, logger *slog.Logger) (*engine.Engine, *store.SQLiteStore, *wordbank.Watcher, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, nil, nil, err
	}
	codec, err := state.NewCodec(cfg.Codec)
	if err != nil {
		return nil, nil, nil, err
	}

	var (
		words   wordbank.Source = wordbank.Static{Bank: wordbank.Default()}
		watcher *wordbank.Watcher
	)
	if cfg.WordBankPath != "" {
		watcher, err = wordbank.NewWatcher(cfg.WordBankPath, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		words = watcher
	}

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := state.NewRepository(db, state.Options{
		Codec:        codec,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
	eng := engine.New(engine.Options{
		Repo:     repo,
		Words:    words,
		Schedule: schedule.New(loc),
		Clock:    clock,
		Logger:   logger,
	})
	return eng, db, watcher, nil
}

// offsetClock runs at real speed from a chosen start time.
type offsetClock struct {
	offset time.Duration
}

func newOffsetClock(start time.Time) offsetClock {
	return offsetClock{offset: time.Until(start)}
}

func (c offsetClock) Now() time.Time {
	return time.Now().Add(c.offset)
}
