package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"slotkeeper/backend/internal/clock"
	"slotkeeper/backend/internal/config"
	"slotkeeper/backend/internal/events"
	"slotkeeper/backend/internal/service/booking"
	"slotkeeper/backend/internal/settings"
	"slotkeeper/backend/internal/store"
	"slotkeeper/backend/internal/store/memory"
	"slotkeeper/backend/internal/store/postgres"
	"slotkeeper/backend/internal/telemetry"
	grpcTransport "slotkeeper/backend/internal/transport/grpc"
	"slotkeeper/backend/internal/transport/httpapi"
)

const serviceName = "slotkeeper-server"

type bookingStore interface {
	store.BookingLedger
	store.Outbox
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info(
		"starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("store", cfg.Store),
		slog.String("settings_source", cfg.SettingsSource),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	readyChecks := map[string]httpapi.ReadyCheck{}

	var (
		db     *bun.DB
		ledger bookingStore
	)
	switch cfg.Store {
	case config.StorePostgres:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err = postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database connection failed", args...)
			os.Exit(1)
		}
		defer func() {
			if err := postgres.Close(db); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}()
		ledger = postgresLedger{
			BookingLedger: postgres.NewBookingLedger(db),
			Outbox:        postgres.NewOutbox(db),
		}
		readyChecks["postgres"] = postgres.ReadyCheck(db)
	default:
		log.Warn("using in-memory booking ledger; bookings are lost on restart")
		ledger = memory.NewLedger()
	}

	var source settings.Source
	switch cfg.SettingsSource {
	case config.SettingsSourceFile:
		source, err = settings.NewFileSource(cfg.SettingsPath)
		if err != nil {
			log.Error("settings file load failed", slog.Any("err", err), slog.String("path", cfg.SettingsPath))
			os.Exit(1)
		}
	default:
		source = postgres.NewSettingsRepo(db)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		cache := settings.NewRedisCache(rdb, source, cfg.SettingsTTL, log)
		readyChecks["redis"] = cache.Ping
		source = cache
	}

	svc := booking.NewService(settings.NewLoader(source, log), ledger, clock.NewRealClock())

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.AccessLogInterceptor(log),
		),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer, grpcTransport.NewBookingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	var publisher *events.Publisher
	if brokers := events.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		writer := events.NewKafkaWriter(brokers)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		publisher = events.NewPublisher(ledger, writer, log, events.PublisherConfig{
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
		})
		readyChecks["kafka"] = events.ReadyCheck(brokers)
	} else {
		log.Warn("kafka brokers not configured; booking events stay in the outbox")
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(httpapi.NewRouter(svc, log, httpapi.RouterConfig{
			RequestTimeout:  cfg.HTTPRequestTimeout,
			ReadyChecks:     readyChecks,
			WritesPerMinute: cfg.HTTPWritesPerMinute,
			WriteBurst:      cfg.HTTPWriteBurst,
		}), "slotkeeper.http"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if publisher != nil {
		g.Go(func() error {
			return publisher.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, httpServer, cfg.ShutdownTimeout)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("stopped")
}

type postgresLedger struct {
	*postgres.BookingLedger
	*postgres.Outbox
}

func shutdown(log *slog.Logger, s *grpc.Server, h *http.Server, timeout time.Duration) {
	log.Info("shutting down servers", slog.Duration("timeout", timeout))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed", slog.Any("err", err))
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-ctx.Done():
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
