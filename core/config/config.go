package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	// Username is used to build t.me deep links; the leading "@" is optional.
	Username string `yaml:"username" envconfig:"BOT_USERNAME"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// KeysOrder is a comma-separated key list; empty or "default" keeps the built-in order.
	KeysOrder string `yaml:"keys_order"`
	// DebugSample keeps N of M sampled debug events, written "N/M" or "M" (1 of M).
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

const (
	// StorageMemory keeps FSM state in process memory.
	StorageMemory = "memory"
	// StorageRedis keeps FSM state in Redis.
	StorageRedis = "redis"
	// StoragePostgres keeps FSM state in the fsm_state table.
	StoragePostgres = "postgres"
)

// RedisConfig describes the Redis FSM backend.
type RedisConfig struct {
	Addr     string        `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string        `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int           `yaml:"db" envconfig:"REDIS_DB"`
	Prefix   string        `yaml:"prefix" envconfig:"REDIS_PREFIX"`
	StateTTL time.Duration `yaml:"state_ttl" envconfig:"REDIS_STATE_TTL"`
	DataTTL  time.Duration `yaml:"data_ttl" envconfig:"REDIS_DATA_TTL"`
}

// PostgresConfig mirrors database.Config; it lives here to keep config free of
// imports from packages that log.
type PostgresConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// Migrate applies embedded migrations on startup.
	Migrate bool `yaml:"migrate" envconfig:"DB_MIGRATE"`
}

// StorageConfig selects and configures the FSM storage backend.
type StorageConfig struct {
	Driver   string         `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// LayoutConfig sizes the layout data cache.
type LayoutConfig struct {
	CacheSize int           `yaml:"cache_size" envconfig:"LAYOUT_CACHE_SIZE"`
	CacheTTL  time.Duration `yaml:"cache_ttl" envconfig:"LAYOUT_CACHE_TTL"`
}

// PayloadConfig overrides payload separators.
type PayloadConfig struct {
	CallbackSeparator string `yaml:"callback_separator" envconfig:"PAYLOAD_CALLBACK_SEPARATOR"`
	DeepLinkSeparator string `yaml:"deep_link_separator" envconfig:"PAYLOAD_DEEP_LINK_SEPARATOR"`
}

// MetricsConfig enables the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
	Path   string `yaml:"path" envconfig:"METRICS_PATH"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Layout    LayoutConfig    `yaml:"layout"`
	Payload   PayloadConfig   `yaml:"payload"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CoreConfig lets *Config act as its own carrier for cmd.Run.
func (c *Config) CoreConfig() *Config { return c }

const (
	defaultCallbackSeparator = ":"
	defaultDeepLinkSeparator = "_"
	defaultLayoutCacheSize   = 128
	defaultLayoutCacheTTL    = time.Hour
	defaultMetricsPath       = "/metrics"
)

// Load reads configuration from a YAML file and environment variables.
// A .env file next to the working directory, when present, seeds the environment
// without overriding variables that are already set.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := normalizePayload(&cfg.Payload); err != nil {
		return err
	}
	if cfg.Layout.CacheSize <= 0 {
		cfg.Layout.CacheSize = defaultLayoutCacheSize
	}
	if cfg.Layout.CacheTTL <= 0 {
		cfg.Layout.CacheTTL = defaultLayoutCacheTTL
	}
	cfg.Telegram.Username = strings.TrimPrefix(strings.TrimSpace(cfg.Telegram.Username), "@")
	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = defaultMetricsPath
	}
	return nil
}

func normalizeStorage(sc *StorageConfig) error {
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
	case StorageRedis:
		if strings.TrimSpace(sc.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required when storage.driver is 'redis'")
		}
		if sc.Redis.StateTTL < 0 || sc.Redis.DataTTL < 0 {
			return fmt.Errorf("storage.redis ttl values must be >= 0")
		}
	case StoragePostgres:
		if strings.TrimSpace(sc.Postgres.Host) == "" || strings.TrimSpace(sc.Postgres.Name) == "" {
			return fmt.Errorf("storage.postgres.host and storage.postgres.name are required when storage.driver is 'postgres'")
		}
		if sc.Postgres.Port == "" {
			sc.Postgres.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, redis, postgres", sc.Driver)
	}
	sc.Driver = driver
	return nil
}

func normalizePayload(pc *PayloadConfig) error {
	if pc.CallbackSeparator == "" {
		pc.CallbackSeparator = defaultCallbackSeparator
	}
	if pc.DeepLinkSeparator == "" {
		pc.DeepLinkSeparator = defaultDeepLinkSeparator
	}
	if len([]rune(pc.CallbackSeparator)) != 1 {
		return fmt.Errorf("payload.callback_separator must be a single character, got %q", pc.CallbackSeparator)
	}
	if len([]rune(pc.DeepLinkSeparator)) != 1 {
		return fmt.Errorf("payload.deep_link_separator must be a single character, got %q", pc.DeepLinkSeparator)
	}
	return nil
}
