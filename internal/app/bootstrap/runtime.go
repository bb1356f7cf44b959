package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/events"
	grpcadapter "github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/grpc"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/http"
	payoutadapter "github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/payout"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/adapters/security"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M42-referral-commission-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	outbox     *eventadapter.OutboxWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping m42 referral commission service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(pool)

	tokenCodec, err := security.NewReferralTokenCodec(cfg.ReferralTokenSecret, cfg.TokenTTL)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init referral token codec: %w", err)
	}

	var payoutProvider ports.PayoutProvider
	if cfg.PayoutProviderMode == "live" {
		payoutProvider, err = payoutadapter.NewHTTPProvider(cfg.PayoutProviderURL, cfg.PayoutProviderAPIKey, cfg.PayoutProviderTimeout)
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init payout provider: %w", err)
		}
	} else {
		logger.Warn("using sandbox payout provider; no real transfers will be made")
		payoutProvider = payoutadapter.NewSandboxProvider(logger)
	}

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:            cfg.ServiceID,
			TokenTTL:               cfg.TokenTTL,
			ClearingInterval:       cfg.ClearingInterval,
			MinPayoutAmount:        cfg.MinPayoutAmount,
			ClickVelocityThreshold: cfg.ClickVelocityThreshold,
			ClickVelocityWindow:    cfg.ClickVelocityWindow,
			IdempotencyTTL:         cfg.IdempotencyTTL,
			PayoutMaxRetries:       cfg.PayoutMaxRetries,
			PayoutBackoff:          cfg.PayoutBackoff,
		},
		Accounts:    repos.Accounts,
		Attempts:    repos.Attempts,
		Tiers:       repos.Tiers,
		Commissions: repos.Commissions,
		Batches:     repos.Batches,
		Preferences: repos.Preferences,
		Outbox:      repos.Outbox,
		Idempotency: repos.Idempotency,
		Tokens:      tokenCodec,
		Velocity:    cacheadapter.NewRedisVelocityStore(redisClient),
		Delegations: grpcadapter.NewListingClient(cfg.ListingServiceTarget),
		Payouts:     payoutProvider,
	})

	handler := httpadapter.NewHandler(svc)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("listen gRPC: %w", err)
	}

	var publisher ports.EventPublisher
	var publisherClose func() error
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, topicMap(cfg.TopicPrefix))
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		publisher = kafkaPublisher
		publisherClose = kafkaPublisher.Close
	} else {
		publisher = eventadapter.NewLoggingPublisher(logger)
	}

	outbox := eventadapter.NewOutboxWorker(
		logger,
		repos.Outbox,
		publisher,
		cfg.OutboxPollInterval,
		cfg.OutboxBatchSize,
		cfg.OutboxClaimTTL,
		cfg.OutboxMaxRetries,
	)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		outbox:     outbox,
		cleanupFn: func(ctx context.Context) {
			if publisherClose != nil {
				_ = publisherClose()
			}
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// topicMap routes every outbox event type onto the shared referral topic,
// prefixed per environment when configured.
func topicMap(prefix string) map[string]string {
	topic := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}
	referral := topic("viralforge.referral.events")
	payout := topic("viralforge.payout.events")
	return map[string]string{
		"referral.clicked":      referral,
		"referral.attributed":   referral,
		"referral.converted":    referral,
		"referral.fraud.denied": referral,
		"account.created":       referral,
		"commission.created":    payout,
		"tier.activated":        payout,
		"tier.deactivated":      payout,
		"payout.batch.settled":  payout,
		"payout.batch.failed":   payout,
	}
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc server started", "addr", r.grpcLis.Addr().String())
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return nil
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("outbox worker started")
	err := r.outbox.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.cleanupFn(shutdownCtx)
	return nil
}
