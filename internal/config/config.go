package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidThresholds is returned when a threshold update would leave the
// decision engine with alert_threshold > block_threshold.
var ErrInvalidThresholds = errors.New("alert_threshold must not exceed block_threshold")

// Thresholds drives the Zero-Trust decision policy. Values are 0-100.
type Thresholds struct {
	AlertThreshold float64 `mapstructure:"alert_threshold" json:"alert_threshold"`
	BlockThreshold float64 `mapstructure:"block_threshold" json:"block_threshold"`
	AutoBlock      bool    `mapstructure:"auto_block" json:"auto_block"`
}

// Validate rejects invalid threshold combinations instead of clamping them.
func (t Thresholds) Validate() error {
	if t.AlertThreshold < 0 || t.AlertThreshold > 100 {
		return fmt.Errorf("alert_threshold %v out of range [0,100]", t.AlertThreshold)
	}
	if t.BlockThreshold < 0 || t.BlockThreshold > 100 {
		return fmt.Errorf("block_threshold %v out of range [0,100]", t.BlockThreshold)
	}
	if t.AlertThreshold > t.BlockThreshold {
		return fmt.Errorf("%w: alert=%v block=%v", ErrInvalidThresholds, t.AlertThreshold, t.BlockThreshold)
	}
	return nil
}

// Config holds all configuration for the sentra pipeline.
type Config struct {
	Server     ServerConfig   `mapstructure:"server"`
	Log        LogConfig      `mapstructure:"log"`
	Thresholds Thresholds     `mapstructure:"thresholds"`
	Scorer     ScorerConfig   `mapstructure:"scorer"`
	Analyzer   AnalyzerConfig `mapstructure:"analyzer"`
	Dispatch   DispatchConfig `mapstructure:"dispatch"`
	Channels   ChannelsConfig `mapstructure:"channels"`
	Redis      RedisConfig    `mapstructure:"redis"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Database   DatabaseConfig `mapstructure:"database"`
	Storage    StorageConfig  `mapstructure:"storage"`
	Feed       FeedConfig     `mapstructure:"feed"`
	Pipeline   PipelineConfig `mapstructure:"pipeline"`
}

// ServerConfig holds the metrics/health HTTP listener configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScorerConfig selects the scoring backend.
type ScorerConfig struct {
	ModelPath string `mapstructure:"model_path"`
}

// AnalyzerConfig holds flow-table and detector tuning.
type AnalyzerConfig struct {
	Workers          int           `mapstructure:"workers"`
	FlowIdleTimeout  time.Duration `mapstructure:"flow_idle_timeout"`
	MaxFlowsPerShard int           `mapstructure:"max_flows_per_shard"`
	PortScanPorts    int           `mapstructure:"portscan_distinct_ports"`
	PacketRateLimit  float64       `mapstructure:"packet_rate_limit"`
	SynRateLimit     float64       `mapstructure:"syn_rate_limit"`
}

// DispatchConfig holds dedup/suppression and retry tuning.
type DispatchConfig struct {
	SuppressionWindow time.Duration `mapstructure:"suppression_window"`
	RecordIdleExpiry  time.Duration `mapstructure:"record_idle_expiry"`
	ChannelTimeout    time.Duration `mapstructure:"channel_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
}

// ChannelsConfig configures the notification channels. A channel is active
// when its required endpoint field is non-empty.
type ChannelsConfig struct {
	Email   EmailConfig   `mapstructure:"email"`
	Slack   SlackConfig   `mapstructure:"slack"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// EmailConfig holds SMTP delivery settings.
type EmailConfig struct {
	Host     string   `mapstructure:"host"`
	Port     int      `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// SlackConfig holds the Slack incoming-webhook settings.
type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// WebhookConfig holds the generic HTTP webhook settings.
type WebhookConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig holds the optional Redis suppression-store settings.
type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// NATSConfig holds message bus settings for the decision feed and live intake.
type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

// DatabaseConfig holds the optional Postgres archive settings. An empty DSN
// disables the archive.
type DatabaseConfig struct {
	DSN            string `mapstructure:"dsn"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// StorageConfig holds the optional OpenSearch event sink settings.
type StorageConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Insecure bool   `mapstructure:"insecure"`
}

// FeedConfig holds the downstream append-only feed settings.
type FeedConfig struct {
	CSVPath string `mapstructure:"csv_path"`
}

// PipelineConfig holds batch-processing tuning.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8090)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("thresholds.alert_threshold", 70)
	v.SetDefault("thresholds.block_threshold", 90)
	v.SetDefault("thresholds.auto_block", true)

	v.SetDefault("scorer.model_path", "")

	v.SetDefault("analyzer.workers", 4)
	v.SetDefault("analyzer.flow_idle_timeout", "60s")
	v.SetDefault("analyzer.max_flows_per_shard", 4096)
	v.SetDefault("analyzer.portscan_distinct_ports", 20)
	v.SetDefault("analyzer.packet_rate_limit", 100)
	v.SetDefault("analyzer.syn_rate_limit", 50)

	v.SetDefault("dispatch.suppression_window", "5m")
	v.SetDefault("dispatch.record_idle_expiry", "30m")
	v.SetDefault("dispatch.channel_timeout", "10s")
	v.SetDefault("dispatch.max_attempts", 3)
	v.SetDefault("dispatch.retry_backoff", "500ms")

	v.SetDefault("channels.email.port", 587)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.enabled", false)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("feed.csv_path", "")

	v.SetDefault("pipeline.workers", 8)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix("SENTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
