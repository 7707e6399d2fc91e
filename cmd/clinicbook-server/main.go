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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"google.golang.org/grpc"

	"clinicbook/internal/config"
	"clinicbook/internal/directory"
	"clinicbook/internal/domain"
	"clinicbook/internal/metrics"
	"clinicbook/internal/notify"
	"clinicbook/internal/service/scheduling"
	"clinicbook/internal/store"
	"clinicbook/internal/store/memory"
	"clinicbook/internal/store/postgres"
	redisstore "clinicbook/internal/store/redis"
	grpcTransport "clinicbook/internal/transport/grpc"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "clinicbook-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "clinicbook-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr()),
		slog.String("store_driver", cfg.StoreDriver),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	calendar, err := domain.NewCalendarPolicy(cfg.CalendarHours, cfg.CalendarWorkingDays, time.Local)
	if err != nil {
		log.Error("calendar config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	var (
		bookings store.BookingStore
		users    directory.Directory
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("using in-memory store; bookings are lost on restart")
		bookings = memory.NewBookingStore()
		users = directory.NewStatic(demoUsers()...)
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
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
		bookings = postgres.NewBookingRepo(db)
		users = postgres.NewUserRepo(db)
	}

	if cfg.RedisAddr != "" {
		client := redisstore.NewClient(redisstore.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() {
			if err := client.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis unreachable; user lookups will bypass the cache", slog.Any("err", err), slog.String("redis_addr", cfg.RedisAddr))
		}
		cancel()
		users = redisstore.NewCachedDirectory(client, users, cfg.RedisUserTTL, log)
		log.Info("user cache enabled", slog.String("redis_addr", cfg.RedisAddr), slog.Duration("ttl", cfg.RedisUserTTL))
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		defer func() {
			if err := kn.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()
		notifier = kn
		log.Info("kafka notifications enabled", slog.String("topic", cfg.KafkaTopic), slog.Any("brokers", cfg.KafkaBrokers))
	}

	svc := scheduling.NewService(bookings, users, notifier,
		scheduling.WithCalendar(calendar),
		scheduling.WithLogger(log),
		scheduling.WithMetrics(m),
		scheduling.WithNotifyTimeout(cfg.NotifyTimeout),
		scheduling.WithNotifyConcurrency(cfg.NotifyConcurrency),
	)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(defaultRequestTimeoutInterceptor(cfg.GRPCRequestTimeout)),
	)
	grpcTransport.RegisterSchedulingServiceServer(grpcServer, grpcTransport.NewSchedulingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr())
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr()))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr()))

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		log.Info("metrics server started", slog.String("metrics_addr", cfg.MetricsAddr))
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}

	shutdown(log, grpcServer, cfg.ShutdownTimeout)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if metricsServer != nil {
		if err := metricsServer.Shutdown(drainCtx); err != nil {
			log.Warn("metrics server shutdown failed", slog.Any("err", err))
		}
	}
	if err := svc.Close(drainCtx); err != nil {
		log.Warn("pending notifications abandoned", slog.Any("err", err))
	}
}

func defaultRequestTimeoutInterceptor(timeout time.Duration) grpc.UnaryServerInterceptor {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return handler(ctx, req)
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

// demoUsers seeds the in-memory directory so a local server can be exercised end to end.
func demoUsers() []domain.User {
	return []domain.User{
		{ID: "provider-1", Role: domain.RoleProvider, Active: true, DisplayName: "Dr. Demo"},
		{ID: "requester-1", Role: domain.RoleRequester, Active: true, AssignedProviderID: "provider-1", DisplayName: "Demo Patient"},
		{ID: "requester-2", Role: domain.RoleRequester, Active: true, AssignedProviderID: "provider-1"},
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
