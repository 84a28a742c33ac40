package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/platemate/entitlement-reconciler/internal/cache"
	"github.com/platemate/entitlement-reconciler/internal/config"
	"github.com/platemate/entitlement-reconciler/internal/lib/jwt"
	"github.com/platemate/entitlement-reconciler/internal/lib/rabbitmq"
	"github.com/platemate/entitlement-reconciler/internal/migrations"
	"github.com/platemate/entitlement-reconciler/internal/revenuecat"
	"github.com/platemate/entitlement-reconciler/internal/services/classifier"
	"github.com/platemate/entitlement-reconciler/internal/services/coordinator"
	"github.com/platemate/entitlement-reconciler/internal/services/products"
	"github.com/platemate/entitlement-reconciler/internal/services/snapshot"
	"github.com/platemate/entitlement-reconciler/internal/services/status"
	"github.com/platemate/entitlement-reconciler/internal/storage/repository"
)

// App собирает зависимости сервиса сверки статусов и управляет его жизненным циклом.
type App struct {
	server   *http.Server
	logger   *slog.Logger
	db       *repository.Storage
	amqpConn *amqp.Connection
}

// New инициализирует хранилище, кеш, клиента биллинг-провайдера и брокер,
// собирает сервисы и возвращает готовое к запуску приложение.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	amqpConn, err := rabbitmq.Connect(cfg.RabbitMQURL, 5, 2*time.Second)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(amqpConn, rabbitmq.GetEntitlementQueues())
	if err != nil {
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	providerClient := revenuecat.NewClient(cfg.RevenueCat)
	reader := snapshot.New(providerClient, cfg.RevenueCat.EntitlementID, time.Now, logger)

	statusService := status.New(reader, cacheRedis, db,
		classifier.RulesFromConfig(cfg.TrialRules), cfg.TrialRules.CacheValidity, time.Now, logger)
	coordinatorService := coordinator.New(providerClient, statusService, publisher, db,
		cfg.RevenueCat, cfg.TrialRules, time.Now, logger)
	productsService := products.New(providerClient, cfg.TrialRules, logger)

	tokenMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, tokenMaker, statusService, coordinatorService, productsService, db)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server:   srv,
		logger:   logger,
		db:       db,
		amqpConn: amqpConn,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до ошибки или отмены контекста.
// При отмене сервер останавливается с таймаутом, соединения закрываются.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.amqpConn.Close(); closeErr != nil {
			a.logger.Warn("failed to close amqp connection", slog.Any("err", closeErr))
		}
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Warn("failed to close database", slog.Any("err", closeErr))
		}
		return err
	}
}
