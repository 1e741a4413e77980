package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535

	// MinLivePerTick and MaxLivePerTick bound the live-send cap
	MinLivePerTick = 1
	MaxLivePerTick = 100

	// DefaultLivePerTick is used when the cap is unset or out of range
	DefaultLivePerTick = 10

	// DefaultTickLimit is the batch size used when a tick request omits it
	DefaultTickLimit = 25
	// MaxTickLimit bounds the per-tick batch size
	MaxTickLimit = 100
)

// Config represents the complete application configuration.
// It is built once at process start; nothing reads the environment after Load.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Logging   LoggingConfig   `yaml:"logging"`
	App       AppConfig       `yaml:"app"`
	Worker    WorkerConfig    `yaml:"worker"`
	Sending   SendingConfig   `yaml:"sending"`
	Queue     QueueConfig     `yaml:"queue"`
	Reporting ReportingConfig `yaml:"reporting"`
	SMTP      SMTPConfig      `yaml:"smtp"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AdminSecret     string        `yaml:"admin_secret" env:"ADMIN_SECRET"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host" env:"DB_HOST"`
	Port            int           `yaml:"port" env:"DB_PORT"`
	User            string        `yaml:"user" env:"DB_USER"`
	Password        string        `yaml:"password" env:"DB_PASSWORD"`
	Database        string        `yaml:"database" env:"DB_NAME"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	RunMigrations   bool          `yaml:"run_migrations"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host" env:"RABBITMQ_HOST"`
	Port       int              `yaml:"port" env:"RABBITMQ_PORT"`
	User       string           `yaml:"user" env:"RABBITMQ_USER"`
	Password   string           `yaml:"password" env:"RABBITMQ_PASSWORD"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      BrokerQueue      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// BrokerQueue holds RabbitMQ queue configuration
type BrokerQueue struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count"`
	AutoAck       bool `yaml:"auto_ack"`
	Exclusive     bool `yaml:"exclusive"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	SyncTimeout     time.Duration `yaml:"sync_timeout"`
	TickSchedule    string        `yaml:"tick_schedule"`
	ReclaimSchedule string        `yaml:"reclaim_schedule"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SendingConfig holds the dry-run/live-send gate flags.
// Every flag defaults to the safe (disabled, dry-run) state when unset.
// Environment variables override the file so a deployment can flip the
// canary without shipping a new config file.
type SendingConfig struct {
	WorkerEnabled    bool   `yaml:"worker_enabled" env:"QUEUE_WORKER_ENABLED"`
	Enabled          bool   `yaml:"enabled" env:"SENDING_ENABLED"`
	LiveEnabled      bool   `yaml:"live_enabled" env:"LIVE_SENDING_ENABLED"`
	CanaryCustomerID string `yaml:"canary_customer_id" env:"CANARY_CUSTOMER_ID"`
	CanarySenderID   string `yaml:"canary_sender_id" env:"CANARY_SENDER_ID"`
	MaxLivePerTick   int    `yaml:"max_live_per_tick" env:"MAX_LIVE_SENDS_PER_TICK"`
}

// QueueConfig holds send-queue policy settings
type QueueConfig struct {
	// LockTTL is how long a lock may be held before a reclaim pass
	// recycles the item. Zero means use the default.
	LockTTL time.Duration `yaml:"lock_ttl"`
	// MaxAttempts escalates an item to FAILED once exceeded.
	// Zero disables escalation and only records the count.
	MaxAttempts int `yaml:"max_attempts"`
}

// ReportingConfig holds reporting/bucketing settings
type ReportingConfig struct {
	// Timezone is the IANA zone used for tenant-facing date buckets,
	// so "today" matches the business day rather than UTC.
	Timezone string `yaml:"timezone"`
}

// Location resolves the configured timezone. Validation rejects
// unloadable zones at startup, so the UTC fallback only covers configs
// that skipped validation.
func (r ReportingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SMTPConfig holds the live-send SMTP settings
type SMTPConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from"`
}

// Load reads the configuration file and applies environment overrides
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment wins over the file for tagged fields only.
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills policy values that must never be zero
func (c *Config) applyDefaults() {
	if c.Sending.MaxLivePerTick < MinLivePerTick || c.Sending.MaxLivePerTick > MaxLivePerTick {
		c.Sending.MaxLivePerTick = DefaultLivePerTick
	}
	if c.Queue.LockTTL <= 0 {
		c.Queue.LockTTL = 15 * time.Minute
	}
	if c.Reporting.Timezone == "" {
		c.Reporting.Timezone = "America/New_York"
	}
	if c.Worker.SyncTimeout <= 0 {
		c.Worker.SyncTimeout = 5 * time.Minute
	}
}

// ValidateAPIConfig checks the fields the API service depends on
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Server.AdminSecret == "" {
		return fmt.Errorf("server admin_secret is required")
	}

	return c.validateShared()
}

// ValidateWorkerConfig checks the fields the worker service depends on
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.TickSchedule == "" {
		return fmt.Errorf("worker tick_schedule is required")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	return c.validateShared()
}

// validateShared checks fields both services depend on
func (c *Config) validateShared() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Queue.MaxAttempts < 0 {
		return fmt.Errorf("queue max_attempts must not be negative")
	}

	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid reporting timezone %q: %w", c.Reporting.Timezone, err)
	}

	return nil
}
