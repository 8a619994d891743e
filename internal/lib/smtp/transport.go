package smtp

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/magabrotheeeer/vocal/internal/config"
	"github.com/magabrotheeeer/vocal/internal/lib/sl"
)

const dialTimeout = 10 * time.Second

// Transport устанавливает соединения с SMTP-сервером через STARTTLS.
type Transport struct {
	cfg config.SMTP
	log *slog.Logger
}

// smtpClientWrapper обертка для *smtp.Client, реализующая интерфейс Client.
type smtpClientWrapper struct {
	client *smtp.Client
}

func (w *smtpClientWrapper) Mail(from string) error {
	return w.client.Mail(from)
}

func (w *smtpClientWrapper) Rcpt(to string) error {
	return w.client.Rcpt(to)
}

func (w *smtpClientWrapper) Data() (io.WriteCloser, error) {
	return w.client.Data()
}

func (w *smtpClientWrapper) Quit() error {
	return w.client.Quit()
}

func (w *smtpClientWrapper) Close() error {
	return w.client.Close()
}

// NewTransport создает новый экземпляр Transport.
func NewTransport(cfg config.SMTP, log *slog.Logger) *Transport {
	return &Transport{cfg: cfg, log: log}
}

// Connect устанавливает соединение, включает TLS и проходит аутентификацию.
func (t *Transport) Connect() (Client, error) {
	const op = "smtp.Transport.Connect"
	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		t.log.Error("failed to dial SMTP server", slog.String("addr", addr), sl.Err(err))
		return nil, fmt.Errorf("%s: failed to dial SMTP server: %w", op, err)
	}

	client, err := smtp.NewClient(conn, t.cfg.Host)
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			t.log.Error("failed to close connection", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: failed to create SMTP client: %w", op, err)
	}

	fail := func(err error) (Client, error) {
		if closeErr := client.Close(); closeErr != nil {
			t.log.Error("failed to close client", sl.Err(closeErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		return fail(fmt.Errorf("smtp server does not support STARTTLS"))
	}
	tlsConfig := &tls.Config{
		ServerName: t.cfg.Host,
		MinVersion: tls.VersionTLS12,
	}
	if err = client.StartTLS(tlsConfig); err != nil {
		return fail(fmt.Errorf("failed to start TLS: %w", err))
	}

	if t.cfg.User != "" {
		auth := smtp.PlainAuth("", t.cfg.User, t.cfg.Password, t.cfg.Host)
		if err = client.Auth(auth); err != nil {
			return fail(fmt.Errorf("smtp auth failed: %w", err))
		}
	}

	return &smtpClientWrapper{client: client}, nil
}

// Sender адрес отправителя: From, если задан, иначе имя пользователя SMTP.
func (t *Transport) Sender() string {
	if t.cfg.From != "" {
		return t.cfg.From
	}
	return t.cfg.User
}
