package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix префикс переменных окружения, переопределяющих config.toml
const EnvPrefix = "SMC"

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	GatewayDriverSimulated = "simulated"
	GatewayDriverOmise     = "omise"

	NotificationDriverBroker  = "broker"
	NotificationDriverWebhook = "webhook"
	NotificationDriverLog     = "log"
)

var (
	// ErrLoad возвращается, когда файл конфигурации не удалось прочитать
	ErrLoad = errors.New("config: failed to load")

	// ErrInvalid возвращается при некорректных значениях конфигурации
	ErrInvalid = errors.New("config: invalid configuration")
)

type Config struct {
	Server       ServerConfig       `toml:"server"`
	Database     DatabaseConfig     `toml:"database"`
	Storage      StorageConfig      `toml:"storage"`
	Logs         LogsConfig         `toml:"logs"`
	Metrics      MetricsConfig      `toml:"metrics"`
	RabbitMQ     RabbitMQConfig     `toml:"rabbitmq"`
	Refund       RefundConfig       `toml:"refund"`
	Gateway      GatewayConfig      `toml:"gateway"`
	DetailSlots  DetailSlotsConfig  `toml:"detail_slots"`
	Notification NotificationConfig `toml:"notification"`
}

type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`  // секунды
	WriteTimeout    int `toml:"write_timeout"` // секунды
	IdleTimeout     int `toml:"idle_timeout"`  // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения для lib/pq
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type StorageConfig struct {
	Driver string `toml:"driver"` // postgres | memory
}

type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	Path        string `toml:"path"`
	ServiceName string `toml:"service_name"`
}

type RabbitMQConfig struct {
	URL                  string `toml:"url"`
	NotificationExchange string `toml:"notification_exchange"`
}

type RefundConfig struct {
	Enabled                  bool `toml:"enabled"`
	Workers                  int  `toml:"workers"`
	Prefetch                 int  `toml:"prefetch"`
	MaxAttempts              int  `toml:"max_attempts"`
	MessageTTLSeconds        int  `toml:"message_ttl_seconds"`
	ReconcileIntervalSeconds int  `toml:"reconcile_interval_seconds"`
	StuckAfterSeconds        int  `toml:"stuck_after_seconds"`
}

func (r RefundConfig) MessageTTL() time.Duration {
	return time.Duration(r.MessageTTLSeconds) * time.Second
}

func (r RefundConfig) ReconcileInterval() time.Duration {
	return time.Duration(r.ReconcileIntervalSeconds) * time.Second
}

func (r RefundConfig) StuckAfter() time.Duration {
	return time.Duration(r.StuckAfterSeconds) * time.Second
}

type GatewayConfig struct {
	Driver         string  `toml:"driver"` // simulated | omise
	DelayMs        int     `toml:"delay_ms"`
	FailureRate    float64 `toml:"failure_rate"`
	OmisePublicKey string  `toml:"omise_public_key"`
	OmiseSecretKey string  `toml:"omise_secret_key"`
}

func (g GatewayConfig) Delay() time.Duration {
	return time.Duration(g.DelayMs) * time.Millisecond
}

type DetailSlotsConfig struct {
	Capacity int `toml:"capacity"`
}

type NotificationConfig struct {
	Driver     string `toml:"driver"` // broker | webhook | log
	WebhookURL string `toml:"webhook_url"`
	Timeout    int    `toml:"timeout"` // секунды
}

// envOverrides секреты и адреса, которые не хранятся в config.toml
type envOverrides struct {
	DBHost         string `envconfig:"DB_HOST"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	RabbitMQURL    string `envconfig:"RABBITMQ_URL"`
	StorageDriver  string `envconfig:"STORAGE_DRIVER"`
	GatewayDriver  string `envconfig:"GATEWAY_DRIVER"`
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY"`
	WebhookURL     string `envconfig:"NOTIFICATION_WEBHOOK_URL"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
}

// Load читает config.toml, применяет переменные окружения SMC_* и значения по умолчанию
func Load(path string) (*Config, error) {
	cfg := defaults()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLoad, path, err)
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("%w: environment: %v", ErrLoad, err)
	}
	env.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:        8080,
			ReadTimeout:     10,
			WriteTimeout:    10,
			IdleTimeout:     60,
			ShutdownTimeout: 15,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Storage: StorageConfig{Driver: StorageDriverPostgres},
		Logs:    LogsConfig{Level: "info"},
		Metrics: MetricsConfig{Path: "/metrics", ServiceName: "appointment-service"},
		RabbitMQ: RabbitMQConfig{
			NotificationExchange: "notification.exchange",
		},
		Refund: RefundConfig{
			Enabled:                  true,
			Workers:                  4,
			Prefetch:                 8,
			MaxAttempts:              5,
			MessageTTLSeconds:        86400,
			ReconcileIntervalSeconds: 60,
			StuckAfterSeconds:        120,
		},
		Gateway: GatewayConfig{
			Driver:  GatewayDriverSimulated,
			DelayMs: 3000,
		},
		DetailSlots:  DetailSlotsConfig{Capacity: 5},
		Notification: NotificationConfig{Driver: NotificationDriverLog, Timeout: 5},
	}
}

func (e envOverrides) apply(cfg *Config) {
	override(&cfg.Database.Host, e.DBHost)
	override(&cfg.Database.Password, e.DBPassword)
	override(&cfg.RabbitMQ.URL, e.RabbitMQURL)
	override(&cfg.Storage.Driver, e.StorageDriver)
	override(&cfg.Gateway.Driver, e.GatewayDriver)
	override(&cfg.Gateway.OmisePublicKey, e.OmisePublicKey)
	override(&cfg.Gateway.OmiseSecretKey, e.OmiseSecretKey)
	override(&cfg.Notification.WebhookURL, e.WebhookURL)
	override(&cfg.Logs.Level, e.LogLevel)
}

func override(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// Validate проверяет согласованность разделов
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.Host == "" || c.Database.DBName == "" {
			return fmt.Errorf("%w: database host and dbname are required for postgres storage", ErrInvalid)
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}

	switch c.Gateway.Driver {
	case GatewayDriverSimulated:
		if c.Gateway.FailureRate < 0 || c.Gateway.FailureRate > 1 {
			return fmt.Errorf("%w: gateway failure_rate must be within [0, 1]", ErrInvalid)
		}
	case GatewayDriverOmise:
		if c.Gateway.OmisePublicKey == "" || c.Gateway.OmiseSecretKey == "" {
			return fmt.Errorf("%w: omise keys are required for omise gateway", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown gateway driver %q", ErrInvalid, c.Gateway.Driver)
	}

	switch c.Notification.Driver {
	case NotificationDriverBroker:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("%w: rabbitmq url is required for broker notifications", ErrInvalid)
		}
	case NotificationDriverWebhook:
		if c.Notification.WebhookURL == "" {
			return fmt.Errorf("%w: webhook_url is required for webhook notifications", ErrInvalid)
		}
	case NotificationDriverLog:
	default:
		return fmt.Errorf("%w: unknown notification driver %q", ErrInvalid, c.Notification.Driver)
	}

	if c.Refund.Enabled && c.RabbitMQ.URL == "" {
		return fmt.Errorf("%w: rabbitmq url is required when refund processing is enabled", ErrInvalid)
	}
	if c.DetailSlots.Capacity <= 0 {
		return fmt.Errorf("%w: detail_slots capacity must be positive", ErrInvalid)
	}

	return nil
}
