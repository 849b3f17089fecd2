package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mattjoyce/hearth/internal/api"
	"github.com/mattjoyce/hearth/internal/auth"
	"github.com/mattjoyce/hearth/internal/config"
	"github.com/mattjoyce/hearth/internal/engine"
	"github.com/mattjoyce/hearth/internal/events"
	"github.com/mattjoyce/hearth/internal/history"
	"github.com/mattjoyce/hearth/internal/inspect"
	"github.com/mattjoyce/hearth/internal/lock"
	"github.com/mattjoyce/hearth/internal/log"
	"github.com/mattjoyce/hearth/internal/modules"
	"github.com/mattjoyce/hearth/internal/storage"
)

const eventBuffer = 256

func newRunCmd(opts *rootOptions) *cobra.Command {
	var ticks uint64
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if ticks > 0 {
				cfg.Engine.MaxTicks = ticks
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runEngine(ctx, cfg, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().Uint64Var(&ticks, "ticks", 0, "Stop after N ticks (overrides engine.max_ticks)")
	return cmd
}

func runEngine(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	log.Setup(cfg.Engine.LogLevel, cfg.Engine.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("hearth starting", "version", version, "config", cfg.String())

	mods, err := modules.Build(cfg)
	if err != nil {
		return err
	}

	bootID := uuid.NewString()
	instance, err := lock.Acquire(cfg.StateDir(), bootID)
	if err != nil {
		logger.Error("Failed to acquire instance lock (another engine may be running)", "dir", cfg.StateDir(), "error", err)
		return err
	}
	defer func() { _ = instance.Release() }()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("Failed to open database", "path", cfg.State.Path, "error", err)
		return err
	}
	defer db.Close()
	store := history.NewStore(db)

	hub := events.NewHub(eventBuffer)
	eng, err := engine.New(engine.Options{
		Name:           cfg.Engine.Name,
		TickRate:       cfg.Engine.TickRate,
		Workers:        cfg.Engine.Workers,
		MaxTicks:       cfg.Engine.MaxTicks,
		Profile:        cfg.Profile.Enabled,
		ProfileEvery:   cfg.Profile.CSVEvery,
		TickEventEvery: cfg.Engine.TickEventEvery,
		ConfigHash:     cfg.Hash,
		BootID:         bootID,
		Logger:         log.Get(),
		Events:         hub,
		History:        store,
	}, mods...)
	if err != nil {
		if inspect.RenderDiagnostics(stderr, err) {
			logger.Error("Schedule could not be resolved", "error", err)
			return errReported
		}
		return err
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if cfg.API.Enabled {
		srv := api.New(apiConfig(cfg), eng, store, hub, log.WithComponent("api"))
		go func() {
			if err := srv.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				cancel(fmt.Errorf("api: %w", err))
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	if err := eng.Run(runCtx); err != nil {
		return err
	}
	if cause := context.Cause(runCtx); cause != nil && !errors.Is(cause, context.Canceled) {
		logger.Error("Component failed", "error", cause)
		return cause
	}
	logger.Info("hearth stopped", "boot_id", bootID, "ticks", eng.Stats().Tick)
	return nil
}

func apiConfig(cfg *config.Config) api.Config {
	tokens := make([]auth.TokenConfig, 0, len(cfg.API.Auth.Tokens))
	for _, t := range cfg.API.Auth.Tokens {
		tokens = append(tokens, auth.TokenConfig{Token: t.Token, Scopes: t.Scopes})
	}
	return api.Config{
		Listen: cfg.API.Listen,
		APIKey: cfg.API.Auth.APIKey,
		Tokens: tokens,
	}
}
