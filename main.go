package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"eatwhat-bot/bot"
	"eatwhat-bot/config"
	"eatwhat-bot/db"
	"eatwhat-bot/httpapi"
	"eatwhat-bot/services"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(ctx, cfg, logger)
		return
	}

	if cfg.OneBot.URL == "" && cfg.Telegram.Token == "" {
		logger.Fatal("neither ONEBOT_WS_URL nor TOKEN is set")
	}

	fs := afero.NewOsFs()
	store := services.NewMenuStore(fs, cfg.Bot.MenuFile())
	if err := store.EnsureDir(); err != nil {
		logger.Fatalw("failed to create data directory", "error", err)
	}

	switches, err := newSwitchStore(ctx, cfg, fs, logger)
	if err != nil {
		logger.Fatalw("failed to open switch store", "backend", cfg.Bot.SwitchBackend, "error", err)
	}
	defer db.Close()

	router := bot.NewRouter(bot.RouterConfig{
		PluginName:    cfg.Bot.PluginName,
		ToggleKeyword: cfg.Bot.ToggleKeyword,
	}, store, switches, services.NewAuthorizer(cfg.Bot.OwnerIDs), logger)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.OneBot.URL != "" {
		client := bot.NewOneBotClient(bot.OneBotConfig{
			URL:            cfg.OneBot.URL,
			AccessToken:    cfg.OneBot.AccessToken,
			ReconnectDelay: cfg.OneBot.ReconnectDelay,
		}, logger)
		d := bot.NewDispatcher(router, client, store, cfg.Bot.PluginName, "onebot", logger)
		g.Go(func() error {
			return client.Run(gctx, d.HandleEvent)
		})
		logger.Infow("onebot transport enabled", "url", cfg.OneBot.URL)
	}

	if cfg.Telegram.Token != "" {
		tg, err := bot.New(cfg.Telegram.Token, logger)
		if err != nil {
			logger.Fatalw("failed to start telegram bot", "error", err)
		}
		d := bot.NewDispatcher(router, tg, store, cfg.Bot.PluginName, "telegram", logger)
		g.Go(func() error {
			return tg.Start(gctx, d.HandleEvent)
		})
		logger.Info("telegram transport enabled")
	}

	if cfg.HTTP.Addr != "" {
		srv := httpapi.New(cfg.HTTP.Addr, store, logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	logger.Infow("bot started", "plugin", cfg.Bot.PluginName, "menu", store.Path())
	if err := g.Wait(); err != nil {
		logger.Fatalw("bot stopped", "error", err)
	}
	logger.Info("bot stopped")
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func newSwitchStore(ctx context.Context, cfg *config.Config, fs afero.Fs, logger *zap.SugaredLogger) (services.SwitchStore, error) {
	switch cfg.Bot.SwitchBackend {
	case config.SwitchBackendPostgres:
		if err := db.Init(ctx, cfg.DB); err != nil {
			return nil, fmt.Errorf("db: %w", err)
		}
		// Set AUTO_MIGRATE=1 (or "true") to create the table on startup.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, logger); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		logger.Infow("connected to Postgres", "host", cfg.DB.Host, "database", cfg.DB.Database)
		return services.NewPGSwitchStore(), nil
	case config.SwitchBackendFile, "":
		return services.NewFileSwitchStore(fs, cfg.Bot.SwitchFile()), nil
	}
	return nil, fmt.Errorf("unknown switch backend %q", cfg.Bot.SwitchBackend)
}

func runMigrate(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) {
	if err := db.Init(ctx, cfg.DB); err != nil {
		logger.Fatalw("db", "error", err)
	}
	defer db.Close()

	if err := applyMigrations(ctx, logger); err != nil {
		logger.Fatalw("migrate", "error", err)
	}
}
