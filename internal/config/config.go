// Package config предоставляет структуры и функции для загрузки конфигурации сервиса
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env:"VOCAL_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              `yaml:"http_server"`
	RedisConnection         `yaml:"redis_connection"`
	Session                 Session   `yaml:"session"`
	RabbitMQ                RabbitMQ  `yaml:"rabbitmq"`
	SMTP                    SMTP      `yaml:"smtp"`
	RateLimit               RateLimit `yaml:"rate_limit"`
	Payments                Payments  `yaml:"payments"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// Session настройки сессий аутентификации и токена клиента
type Session struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"SESSION_JWT_SECRET_KEY"`
	TTL          time.Duration `yaml:"ttl" env-default:"24h"`
	CookieName   string        `yaml:"cookie_name" env-default:"VOCAL_SESSION"`
	KeyPrefix    string        `yaml:"key_prefix" env-default:"vocal:session:"`
}

// RabbitMQ настройки брокера для доставки одноразовых кодов
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	Retries    int           `yaml:"retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
	Exchange   string        `yaml:"exchange" env-default:"notifications"`
	EmailQueue string        `yaml:"email_queue" env-default:"otp_email"`
	SMSQueue   string        `yaml:"sms_queue" env-default:"otp_sms"`
}

// SMTP настройки отправки почты
type SMTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" env-default:"587"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from"`
}

// RateLimit ограничение частоты запросов к маршрутам аутентификации
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Payments настройки платёжных процессоров
type Payments struct {
	MockEnabled bool   `yaml:"mock_enabled" env-default:"true"`
	ClientID    string `yaml:"client_id"`
	SecretKey   string `yaml:"secret_key" env:"PAYMENTS_SECRET_KEY"`
}

// Load читает конфиг из файла path, дополняя его переменными окружения.
func Load(path string) (*Config, error) {
	const op = "config.Load"

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH, и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.StorageConnectionString == "" {
		return errors.New("storage_connection_string is required")
	}
	if len(c.Session.JWTSecretKey) < 16 {
		return errors.New("session.jwt_secret_key must be at least 16 characters")
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"MigrationsPath: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  User: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Session:\n"+
			"  TTL: %s\n"+
			"  CookieName: %s\n"+
			"RateLimit:\n"+
			"  RPS: %g\n"+
			"  Burst: %d\n",
		c.Env,
		c.MigrationsPath,
		c.AddressRedis,
		c.User,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Session.TTL,
		c.Session.CookieName,
		c.RateLimit.RPS,
		c.RateLimit.Burst,
	)
}
