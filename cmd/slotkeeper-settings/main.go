// Command slotkeeper-settings validates a provider settings file and loads it
// into the provider_settings table.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"slotkeeper/backend/internal/config"
	"slotkeeper/backend/internal/settings"
	"slotkeeper/backend/internal/store/postgres"
)

func main() {
	var (
		file     = flag.String("file", "", "provider settings file (yaml or json)")
		provider = flag.String("provider", "", "provider id to load from the file")
		dryRun   = flag.Bool("dry-run", false, "validate only")
	)
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With(slog.String("service", "slotkeeper-settings"))

	if strings.TrimSpace(*file) == "" || strings.TrimSpace(*provider) == "" {
		log.Error("-file and -provider are required")
		os.Exit(2)
	}

	src, err := settings.NewFileSource(*file)
	if err != nil {
		log.Error("settings file load failed", slog.Any("err", err), slog.String("path", *file))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	payload, err := src.Get(ctx, *provider)
	if err != nil {
		log.Error("provider not found in file", slog.Any("err", err), slog.String("provider_id", *provider))
		os.Exit(1)
	}
	normalized, err := settings.Normalize(*provider, payload)
	if err != nil {
		log.Error("settings rejected", slog.Any("err", err), slog.String("provider_id", *provider))
		os.Exit(1)
	}
	log.Info(
		"settings valid",
		slog.String("provider_id", *provider),
		slog.String("timezone", normalized.Location.String()),
		slog.Int("appointment_types", normalized.Catalog.Len()),
	)
	if *dryRun {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 1})
	if err != nil {
		log.Error("database connection failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() { _ = postgres.Close(db) }()

	if err := postgres.NewSettingsRepo(db).Put(ctx, *provider, payload); err != nil {
		log.Error("settings write failed", slog.Any("err", err), slog.String("provider_id", *provider))
		os.Exit(1)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer func() { _ = rdb.Close() }()
		if err := settings.NewRedisCache(rdb, nil, cfg.SettingsTTL, log).Invalidate(ctx, *provider); err != nil {
			log.Warn("settings cache invalidation failed", slog.Any("err", err), slog.String("provider_id", *provider))
		}
	}

	log.Info("settings stored", slog.String("provider_id", *provider))
}
