package vocal

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/vocal/internal/cache"
	"github.com/magabrotheeeer/vocal/internal/config"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/articles"
	authnhandler "github.com/magabrotheeeer/vocal/internal/http/handlers/authn"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/payments"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/plans"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/subscriptions"
	"github.com/magabrotheeeer/vocal/internal/http/handlers/users"
	"github.com/magabrotheeeer/vocal/internal/lib/jwt"
	"github.com/magabrotheeeer/vocal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/metrics"
	"github.com/magabrotheeeer/vocal/internal/migrations"
	"github.com/magabrotheeeer/vocal/internal/paymentprovider"
	"github.com/magabrotheeeer/vocal/internal/services/authn"
	"github.com/magabrotheeeer/vocal/internal/services/content"
	"github.com/magabrotheeeer/vocal/internal/services/membership"
	"github.com/magabrotheeeer/vocal/internal/services/notification"
	"github.com/magabrotheeeer/vocal/internal/services/userprofile"
	"github.com/magabrotheeeer/vocal/internal/storage"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := migrations.RunDSN(cfg.StorageConnectionString, cfg.MigrationsPath); err != nil {
		return nil, err
	}
	db, err := storage.New(ctx, cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		db.Close()
		return nil, err
	}
	sessions := cache.NewSessionStore(cacheRedis, cfg.Session.KeyPrefix, cfg.Session.TTL)

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		db.Close()
		_ = cacheRedis.Close()
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, rabbitmq.OTPQueues(cfg.RabbitMQ.EmailQueue, cfg.RabbitMQ.SMSQueue))
	if err != nil {
		_ = conn.Close()
		db.Close()
		_ = cacheRedis.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	processors := paymentprovider.NewRegistry()
	if cfg.Payments.MockEnabled {
		processors.Register(paymentprovider.NewMock(cfg.Payments.ClientID, cfg.Payments.SecretKey))
	}

	publisher := notification.NewPublisher(ch, cfg.RabbitMQ.Exchange, logger)
	userService := userprofile.New(db, logger)
	authnService := authn.New(userService, publisher, m, logger)
	membershipService := membership.New(db, processors, m, logger)
	contentService := content.New(db, logger)

	maker := jwt.NewJWTMaker(cfg.Session.JWTSecretKey, cfg.Session.TTL)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Handlers{
		Authn:         authnhandler.New(logger, authnService, sessions, maker, cfg.Session.CookieName, cfg.Session.TTL),
		Users:         users.New(logger, userService),
		Plans:         plans.New(logger, membershipService),
		Payments:      payments.New(logger, membershipService),
		Subscriptions: subscriptions.New(logger, membershipService),
		Articles:      articles.New(logger, contentService),
	}, RouteDeps{
		Sessions:   sessions,
		Maker:      maker,
		CookieName: cfg.Session.CookieName,
		RateLimit:  cfg.RateLimit,
		Registry:   registry,
	})

	logger.Info("payment processors registered", slog.Any("processors", processors.IDs()))

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

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

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close redis", sl.Err(err))
	}
	a.db.Close()
}
