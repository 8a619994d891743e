// Package sender собирает приложение доставки одноразовых кодов из очередей брокера.
package sender

import (
	"context"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/vocal/internal/config"
	"github.com/magabrotheeeer/vocal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/vocal/internal/services/sender"
)

type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	senderService *senderservice.Service
	cfg           config.RabbitMQ
	logger        *slog.Logger
}

func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.Retries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, err
	}

	queues := rabbitmq.OTPQueues(cfg.RabbitMQ.EmailQueue, cfg.RabbitMQ.SMSQueue)
	ch, err := rabbitmq.SetupChannel(conn, cfg.RabbitMQ.Exchange, queues)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		senderService: senderservice.New(transport, logger),
		cfg:           cfg.RabbitMQ,
		logger:        logger,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	err := rabbitmq.ConsumerMessage(ctx, a.ch, a.cfg.EmailQueue, a.senderService.SendEmailOTP, a.logger)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.cfg.EmailQueue), sl.Err(err))
		return err
	}

	err = rabbitmq.ConsumerMessage(ctx, a.ch, a.cfg.SMSQueue, a.senderService.LogSMSOTP, a.logger)
	if err != nil {
		a.logger.Error("failed to start consumer", slog.String("queue", a.cfg.SMSQueue), sl.Err(err))
		return err
	}

	<-ctx.Done()
	a.logger.Info("sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return nil
}
