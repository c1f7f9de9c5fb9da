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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/eyecare-clinic-api/cmd/mainconfig"
	"github.com/wolfman30/eyecare-clinic-api/internal/admin"
	"github.com/wolfman30/eyecare-clinic-api/internal/api/router"
	"github.com/wolfman30/eyecare-clinic-api/internal/app/bootstrap"
	"github.com/wolfman30/eyecare-clinic-api/internal/booking"
	appconfig "github.com/wolfman30/eyecare-clinic-api/internal/config"
	"github.com/wolfman30/eyecare-clinic-api/internal/contact"
	"github.com/wolfman30/eyecare-clinic-api/internal/health"
	httpmiddleware "github.com/wolfman30/eyecare-clinic-api/internal/http/middleware"
	"github.com/wolfman30/eyecare-clinic-api/internal/messaging"
	"github.com/wolfman30/eyecare-clinic-api/internal/notify"
	"github.com/wolfman30/eyecare-clinic-api/internal/observability/metrics"
	"github.com/wolfman30/eyecare-clinic-api/internal/records"
	"github.com/wolfman30/eyecare-clinic-api/pkg/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := appconfig.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := appconfig.Load()

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting eye clinic API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend", cfg.Backend,
		"version", version,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := buildApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     app.handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the notification websocket is long-lived.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	app.Close()
	logger.Info("server stopped")
}

// app is the wired server plus everything that must be released on exit.
type app struct {
	handler http.Handler
	relay   *notify.Relay
	board   *admin.Board
	closers []func()
}

// Close releases resources in reverse order of construction.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*app, error) {
	a := &app{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	now := func() time.Time { return time.Now().In(loc) }

	metricsHandler, reg := setupMetrics()
	recordMetrics := metrics.NewRecordMetrics(reg)
	notifyMetrics := metrics.NewNotifyMetrics(reg)
	boardMetrics := metrics.NewBoardMetrics(reg)

	redisClient, err := bootstrap.BuildRedisClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if redisClient != nil {
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
	}

	store, err := bootstrap.BuildRecordStore(ctx, cfg, redisClient, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Warn("aws config unavailable; archive, SES and queue delivery disabled", "error", err)
		awsCfg = nil
	} else if awsCfg != nil {
		logger.Info("aws integrations enabled", "services", mainconfig.ClinicServices(cfg))
	}

	composer, err := messaging.NewComposer(cfg.ClinicContactNumber, cfg.PublicBaseURL, loc)
	if err != nil {
		return nil, err
	}

	origins := httpmiddleware.NewOriginPolicy(cfg.CORSAllowedOrigins)
	hub := notify.NewHub(logger, origins.CheckOrigin)
	a.closers = append(a.closers, hub.Close)

	relay, err := notify.NewRelay(notify.RelayConfig{
		Composer:    composer,
		AdminNumber: cfg.AdminWhatsAppNumber,
		Buffer:      notify.NewBuffer(cfg.NotificationCapacity),
		Hub:         hub,
		Sinks:       bootstrap.BuildSinks(cfg, hub, composer, awsCfg, logger),
		Logger:      logger,
		Metrics:     notifyMetrics,
		Stamper:     store.Stamper,
	})
	if err != nil {
		return nil, err
	}
	a.relay = relay
	a.closers = append(a.closers, relay.Close)

	gateway := records.NewGateway(store.Backend, logger,
		records.WithStamper(store.Stamper),
		records.WithLocation(loc),
		records.WithMetrics(recordMetrics),
		records.OnAppointmentCreated(relay.AppointmentBooked),
		records.OnContactCreated(relay.ContactMessageCreated),
	)
	if err := relay.Start(ctx, store.Backend); err != nil {
		return nil, fmt.Errorf("start relay: %w", err)
	}

	board, err := admin.NewBoard(admin.BoardConfig{
		Lister:          gateway,
		Feed:            store.Backend,
		RefreshInterval: cfg.BoardRefreshInterval,
		Logger:          logger,
		Metrics:         boardMetrics,
		Now:             now,
	})
	if err != nil {
		return nil, err
	}
	a.board = board
	a.closers = append(a.closers, board.Close)
	if err := board.Start(ctx); err != nil {
		return nil, fmt.Errorf("start board: %w", err)
	}

	var drafts booking.DraftStore = booking.NewMemoryDraftStore(cfg.DraftTTL)
	if redisClient != nil {
		drafts = booking.NewRedisDraftStore(redisClient, cfg.DraftTTL)
	}
	bookingService := booking.NewService(gateway, drafts, logger, booking.WithNow(now))

	auth, err := admin.NewAuthenticator(admin.AuthConfig{
		Passphrase:     cfg.AdminPassphrase,
		PassphraseHash: cfg.AdminPassphraseHash,
		Secret:         cfg.AdminJWTSecret,
		TTL:            cfg.AdminSessionTTL,
	})
	if err != nil {
		return nil, err
	}
	loginLimiter := httpmiddleware.PerMinute(cfg.LoginRatePerMinute)
	a.closers = append(a.closers, loginLimiter.Close)

	var archiver admin.Archiver
	if archiveStore := bootstrap.BuildArchiveStore(cfg, awsCfg, logger); archiveStore != nil {
		archiver = archiveStore
	}

	adminHandler, err := admin.NewHandler(admin.HandlerConfig{
		Records:       gateway,
		Board:         board,
		Auth:          auth,
		Composer:      composer,
		Notifications: relay.Buffer(),
		Stream:        http.HandlerFunc(hub.ServeWS),
		Archiver:      archiver,
		LoginLimiter:  loginLimiter.Middleware,
		Location:      loc,
		Logger:        logger,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	healthHandler := health.NewHandler(version, logger).
		Register("records", health.GatewayCheck(gateway)).
		Register("postgres", health.SQLCheck(store.SQL))
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	a.handler = router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(bookingService, logger),
		ContactHandler:     contact.NewHandler(gateway, logger),
		AdminHandler:       adminHandler,
		HealthHandler:      healthHandler,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
	})
	ok = true
	return a, nil
}

// setupMetrics creates a private registry with the Go runtime collectors and
// returns its /metrics handler.
func setupMetrics() (http.Handler, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), reg
}
