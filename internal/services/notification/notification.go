// Package notification публикует одноразовые коды в брокер для отправителя.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/vocal/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/vocal/internal/models"
)

// Publisher публикует коды в exchange по ключу, соответствующему типу вызова.
type Publisher struct {
	ch       rabbitmq.Publisher
	exchange string
	log      *slog.Logger
}

func NewPublisher(ch rabbitmq.Publisher, exchange string, log *slog.Logger) *Publisher {
	return &Publisher{ch: ch, exchange: exchange, log: log}
}

// RoutingKey возвращает ключ маршрутизации для типа вызова.
func RoutingKey(t models.AuthnChallengeType) (string, bool) {
	switch t {
	case models.ChallengeEmail:
		return rabbitmq.RoutingKeyEmailOTP, true
	case models.ChallengeSMS:
		return rabbitmq.RoutingKeySMSOTP, true
	}
	return "", false
}

// SendOTP ставит код в очередь доставки.
func (p *Publisher) SendOTP(ctx context.Context, msg models.OTPMessage) error {
	const op = "notification.SendOTP"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	key, ok := RoutingKey(msg.ChallengeType)
	if !ok {
		return fmt.Errorf("%s: challenge type %q is not delivered", op, msg.ChallengeType)
	}
	if msg.Recipient == "" {
		return fmt.Errorf("%s: empty recipient", op)
	}
	if err := rabbitmq.PublishMessage(p.ch, p.exchange, key, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	p.log.Debug("otp queued",
		slog.String("op", op),
		slog.String("routing_key", key),
		slog.String("challenge_id", msg.ChallengeID.String()),
	)
	return nil
}
