package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Download DownloadConfig `yaml:"download"`
	Status   StatusConfig   `yaml:"status"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TelegramConfig holds bot credentials and chat wiring.
type TelegramConfig struct {
	BotToken string `yaml:"bot_token" envconfig:"BOT_API_TOKEN"`
	// ErrorChatID receives reports of unexpected errors. 0 disables reporting.
	ErrorChatID int64 `yaml:"error_chat_id" envconfig:"BOT_ERROR_CHAT_ID"`
	// CacheChatID is the chat inline-query videos are uploaded to so that a
	// reusable file handle exists. 0 disables inline downloads (cached
	// results still work).
	CacheChatID int64 `yaml:"cache_chat_id" envconfig:"CACHE_CHAT_ID"`
	// UseWebhook switches from long polling to the webhook server.
	UseWebhook bool `yaml:"use_webhook" envconfig:"USE_WEBHOOK"`
}

// ServerConfig holds the webhook HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8443"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
}

// CacheConfig holds the content cache configuration.
type CacheConfig struct {
	// Backend selects the store: "sqlite", "file" or "none".
	Backend string `yaml:"backend" envconfig:"CACHE_BACKEND" default:"sqlite"`
	// Path is the SQLite database file (sqlite backend).
	Path string `yaml:"path" envconfig:"CACHE_PATH" default:"data/cache.db"`
	// Dir is the directory of per-URL JSON records (file backend).
	Dir string `yaml:"dir" envconfig:"CACHE_DIR" default:"data/cache"`
}

// RedditConfig holds the reddit metadata client configuration.
type RedditConfig struct {
	BaseURL   string        `yaml:"base_url" envconfig:"REDDIT_BASE_URL" default:"https://www.reddit.com"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"REDDIT_TIMEOUT" default:"10s"`
	UserAgent string        `yaml:"user_agent" envconfig:"REDDIT_USER_AGENT" default:"vredditbot/1.0"`
}

// DownloadConfig holds the ffmpeg download configuration.
type DownloadConfig struct {
	FFmpegPath string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	TempDir    string        `yaml:"temp_dir" envconfig:"DOWNLOAD_TEMP_DIR"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"5m"`
	HTTPProxy  string        `yaml:"http_proxy" envconfig:"DOWNLOAD_HTTP_PROXY"`
	// MaxFileSize is the upload size ceiling imposed by the Telegram API.
	MaxFileSize int64 `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"52428800"` // 50MB
}

// StatusConfig holds status reporter tuning.
type StatusConfig struct {
	// Debounce is how long the reporter waits for further progress lines
	// before flushing them as one message edit.
	Debounce time.Duration `yaml:"debounce" envconfig:"STATUS_DEBOUNCE" default:"150ms"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from an optional .env file, an optional YAML
// file, and environment variables. Environment variables override file
// values.
func Load(configPath string) (*Config, error) {
	// Load .env if present; missing file is fine
	_ = godotenv.Load()

	cfg := &Config{}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.Download.TempDir == "" {
		cfg.Download.TempDir = os.TempDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("BOT_API_TOKEN is required")
	}
	switch c.Cache.Backend {
	case "sqlite", "file", "none":
	default:
		return fmt.Errorf("CACHE_BACKEND must be sqlite, file or none, got %q", c.Cache.Backend)
	}
	if c.Download.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
