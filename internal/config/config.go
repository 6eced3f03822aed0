package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Mail      MailConfig      `yaml:"mail"`
	Lifecycle LifecycleConfig `yaml:"lifecycle"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ChatRatePerSecond limits inbound WebSocket frames per connection.
	ChatRatePerSecond float64 `yaml:"chat_rate_per_second"`
	ChatBurst         int     `yaml:"chat_burst"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Prefetch int    `yaml:"prefetch"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	Issuer    string `yaml:"issuer"`
}

type MailConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	From           string `yaml:"from"`
	AdminRecipient string `yaml:"admin_recipient"`
}

type LifecycleConfig struct {
	// BlockTerminalUpdates rejects status updates on delivered, recieved and cancelled orders.
	BlockTerminalUpdates *bool  `yaml:"block_terminal_updates"`
	ReductionMode        string `yaml:"reduction_mode"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

const (
	ReductionBestEffort    = "best_effort"
	ReductionTransactional = "transactional"
)

// BlockTerminal resolves the terminal guard, enabled unless explicitly turned off.
func (l LifecycleConfig) BlockTerminal() bool {
	return l.BlockTerminalUpdates == nil || *l.BlockTerminalUpdates
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML and fills defaults without touching the environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ChatRatePerSecond == 0 {
		c.Server.ChatRatePerSecond = 5
	}
	if c.Server.ChatBurst == 0 {
		c.Server.ChatBurst = 10
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.RabbitMQ.Port == 0 {
		c.RabbitMQ.Port = 5672
	}
	if c.RabbitMQ.Prefetch == 0 {
		c.RabbitMQ.Prefetch = 1
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "restaurant"
	}
	if c.Lifecycle.ReductionMode == "" {
		c.Lifecycle.ReductionMode = ReductionBestEffort
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}
}

func (c *Config) applyEnv() {
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.RabbitMQ.Password, "RABBITMQ_PASSWORD")
	setString(&c.RabbitMQ.Host, "RABBITMQ_HOST")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Mail.Password, "SMTP_PASSWORD")
	setString(&c.Tracing.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	if v, ok := os.LookupEnv("SERVER_PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" || c.Database.Database == "" {
		errs = append(errs, errors.New("database host and name are required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	switch c.Lifecycle.ReductionMode {
	case ReductionBestEffort, ReductionTransactional:
	default:
		errs = append(errs, fmt.Errorf("unknown lifecycle.reduction_mode %q", c.Lifecycle.ReductionMode))
	}
	return errors.Join(errs...)
}

// ShutdownTimeout bounds graceful shutdown of every mode.
const ShutdownTimeout = 10 * time.Second
