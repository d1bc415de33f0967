package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	Feeds    FeedsConfig    `koanf:"feeds"`
	Delivery DeliveryConfig `koanf:"delivery"`
	Daemon   DaemonConfig   `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	Path         string `koanf:"path"`
	LockTimeout  string `koanf:"lock_timeout"`
	LockRetry    string `koanf:"lock_retry"`
	LockMaxRetry int    `koanf:"lock_max_retry"`
}

type FeedsConfig struct {
	Timeout          string `koanf:"timeout"`
	UserAgent        string `koanf:"user_agent"`
	TrendsURL        string `koanf:"trends_url"`
	StackExchangeURL string `koanf:"stackexchange_url"`
	ItemsPerFeed     int    `koanf:"items_per_feed"`
	MaxSignals       int    `koanf:"max_signals"`
	MaxSearches      int    `koanf:"max_searches"`
	MaxVideos        int    `koanf:"max_videos"`
}

type DeliveryConfig struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Slack    SlackConfig    `koanf:"slack"`
}

type TelegramConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	ChatID   int64  `koanf:"chat_id"`
}

type SlackConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BotToken string `koanf:"bot_token"`
	Channel  string `koanf:"channel"`
}

type DaemonConfig struct {
	ShutdownTimeout     string `koanf:"shutdown_timeout"`
	HealthCheckInterval string `koanf:"health_check_interval"`
}

const (
	DefaultServerPort             = 3000
	DefaultServerLogLevel         = "info"
	DefaultServerReadTimeout      = "10s"
	DefaultServerWriteTimeout     = "30s"
	DefaultServerIdleTimeout      = "60s"
	DefaultServerShutdownTimeout  = "5s"
	DefaultStoreLockTimeout       = "30s"
	DefaultStoreLockRetry         = "100ms"
	DefaultStoreLockMaxRetry      = 300
	DefaultFeedsTimeout           = "15s"
	DefaultFeedsUserAgent         = "TrendSnifferBot/2.0 (+watchlist and new-item alerts)"
	DefaultFeedsTrendsURL         = "https://trends.google.com/trending/rss?geo=US"
	DefaultFeedsStackExchangeURL  = "https://api.stackexchange.com/2.3/questions"
	DefaultFeedsItemsPerFeed      = 12
	DefaultFeedsMaxSignals        = 40
	DefaultFeedsMaxSearches       = 20
	DefaultFeedsMaxVideos         = 24
	DefaultDaemonShutdownTimeout  = "30s"
	DefaultDaemonHealthInterval   = "30s"
	DefaultConfigDirName          = ".trendsniffer"
	DefaultStoreFileName          = "trend-sniffer-store.json"
)

// Load builds the configuration from hardcoded defaults, an optional YAML
// file, SNIFFER_-prefixed environment variables and CLI flags, in that
// order of precedence.
func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                   DefaultServerPort,
		"server.log_level":              DefaultServerLogLevel,
		"server.read_timeout":           DefaultServerReadTimeout,
		"server.write_timeout":          DefaultServerWriteTimeout,
		"server.idle_timeout":           DefaultServerIdleTimeout,
		"server.shutdown_timeout":       DefaultServerShutdownTimeout,
		"store.path":                    defaultStorePath(),
		"store.lock_timeout":            DefaultStoreLockTimeout,
		"store.lock_retry":              DefaultStoreLockRetry,
		"store.lock_max_retry":          DefaultStoreLockMaxRetry,
		"feeds.timeout":                 DefaultFeedsTimeout,
		"feeds.user_agent":              DefaultFeedsUserAgent,
		"feeds.trends_url":              DefaultFeedsTrendsURL,
		"feeds.stackexchange_url":       DefaultFeedsStackExchangeURL,
		"feeds.items_per_feed":          DefaultFeedsItemsPerFeed,
		"feeds.max_signals":             DefaultFeedsMaxSignals,
		"feeds.max_searches":            DefaultFeedsMaxSearches,
		"feeds.max_videos":              DefaultFeedsMaxVideos,
		"daemon.shutdown_timeout":       DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":  DefaultDaemonHealthInterval,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			globalPath := filepath.Join(home, DefaultConfigDirName, "config.yaml")
			if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
				slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
			}
		}
	}

	// Environment Variables
	k.Load(env.Provider("SNIFFER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "SNIFFER_")), "_", ".", -1)
	}), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Post-Process: Inject standard Env Vars if missing
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" && cfg.Delivery.Telegram.BotToken == "" {
		cfg.Delivery.Telegram.BotToken = token
	}
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" && cfg.Delivery.Slack.BotToken == "" {
		cfg.Delivery.Slack.BotToken = token
	}

	return &cfg, nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("data", DefaultStoreFileName)
	}
	return filepath.Join(home, DefaultConfigDirName, DefaultStoreFileName)
}
