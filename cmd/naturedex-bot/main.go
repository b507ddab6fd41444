package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"naturedex/internal/api"
	"naturedex/internal/config"
	"naturedex/internal/db"
	"naturedex/internal/discord"
	"naturedex/internal/game"
	"naturedex/internal/lock"
	"naturedex/internal/nature"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv(true)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("naturedex bot failed", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.BotConfig, logger *slog.Logger) error {
	natures, err := nature.Default()
	if err != nil {
		return err
	}

	store, err := db.Open(ctx, db.Options{Kind: cfg.Store, DatabaseURL: cfg.DatabaseURL, SQLitePath: cfg.SQLitePath})
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("character store ready", "kind", cfg.Store)

	var locks game.Locker = lock.NewLocal()
	if cfg.RedisAddr != "" {
		r, err := lock.NewRedis(ctx, cfg.RedisAddr, cfg.LockTTL, logger)
		if err != nil {
			return err
		}
		defer r.Close()
		locks = r
		logger.Info("owner slots in redis", "addr", cfg.RedisAddr, "ttl", cfg.LockTTL.String())
	}

	session, err := discord.Connect(cfg.DiscordToken)
	if err != nil {
		return err
	}
	defer session.Close()

	prompter := discord.NewPrompter(session, logger)
	svc := game.NewService(store, natures, prompter, locks, cfg.Game(), logger)
	bot := discord.NewBot(session, svc, prompter, cfg.Prefix, logger)

	if cfg.APIToken == "" {
		logger.Warn("NATUREDEX_API_TOKEN is empty, admin routes will refuse requests")
	}
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.New(cfg.APIToken, logger, svc).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("discord bot listening", "prefix", cfg.Prefix)
		return bot.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("admin api listening", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
