// Package sender доставляет одноразовые коды из очередей брокера.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/vocal/internal/lib/sl"
	"github.com/magabrotheeeer/vocal/internal/lib/smtp"
	"github.com/magabrotheeeer/vocal/internal/models"
)

const emailSubject = "Your Vocal verification code"

type Service struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// New создает новый экземпляр Service.
func New(transport smtp.TransportInterface, log *slog.Logger) *Service {
	return &Service{
		transport: transport,
		log:       log,
	}
}

func decode(body []byte) (models.OTPMessage, error) {
	var msg models.OTPMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("error unmarshalling message: %w", err)
	}
	if msg.Recipient == "" || msg.Code == "" {
		return msg, fmt.Errorf("message %s has no recipient or code", msg.ChallengeID)
	}
	return msg, nil
}

// SendEmailOTP отправляет код из очереди почтовой доставки.
func (s *Service) SendEmailOTP(body []byte) error {
	msg, err := decode(body)
	if err != nil {
		s.log.Error("failed to decode otp message", sl.Err(err))
		return err
	}
	if msg.ChallengeType != models.ChallengeEmail {
		return fmt.Errorf("unexpected challenge type %q in email queue", msg.ChallengeType)
	}

	text := fmt.Sprintf("Your verification code is %s.\r\n\r\nIf you did not request it, ignore this message.", msg.Code)
	return s.sendEmail([]string{msg.Recipient}, emailSubject, text)
}

// LogSMSOTP обслуживает очередь SMS как транспорт только для журнала:
// шлюз SMS не подключён, код получателю не доставляется и в лог не пишется.
func (s *Service) LogSMSOTP(body []byte) error {
	msg, err := decode(body)
	if err != nil {
		s.log.Error("failed to decode otp message", sl.Err(err))
		return err
	}
	s.log.Info("sms delivery is not configured, dropping code",
		slog.String("challenge_id", msg.ChallengeID.String()),
		slog.String("user_profile_id", msg.UserProfileID.String()),
	)
	return nil
}

func (s *Service) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.Int("recipients", len(to)))
	return nil
}
