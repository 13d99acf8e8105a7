package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort  int    `mapstructure:"server_port"`
	ServiceName string `mapstructure:"service_name"`

	// Database configuration
	DBURL             string        `mapstructure:"db_url"`
	DBMaxOpenConns    int           `mapstructure:"db_max_open_conns"`
	DBMaxIdleConns    int           `mapstructure:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `mapstructure:"db_conn_max_lifetime"`
	DBConnMaxIdleTime time.Duration `mapstructure:"db_conn_max_idle_time"`
	DBRetryAttempts   int           `mapstructure:"db_retry_attempts"`
	DBRetryDelay      time.Duration `mapstructure:"db_retry_delay"`
	DBAutoMigrate     bool          `mapstructure:"db_auto_migrate"`
	MigrationsPath    string        `mapstructure:"migrations_path"`

	// Query monitoring configuration
	DBSlowQueryThreshold time.Duration `mapstructure:"db_slow_query_threshold"`

	// Redis configuration
	RedisURL string `mapstructure:"redis_url"`

	// Security headers configuration
	SecurityHeadersEnabled bool `mapstructure:"security_headers_enabled"`

	// Metrics configuration
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
	MetricsPath    string `mapstructure:"metrics_path"`

	// Environment (development, production, test)
	Environment string `mapstructure:"environment"`
	LogDir      string `mapstructure:"log_dir"`

	// Discord configuration
	DiscordEnabled        bool              `mapstructure:"discord_enabled"`
	DiscordBotToken       string            `mapstructure:"discord_bot_token"`
	DiscordGuildID        string            `mapstructure:"discord_guild_id"`
	DiscordAPIBase        string            `mapstructure:"discord_api_base"`
	DiscordAlertChannelID string            `mapstructure:"discord_alert_channel_id"`
	DiscordBudgetChannel  string            `mapstructure:"discord_budget_channel_id"`
	DiscordBrandChannels  map[string]string `mapstructure:"discord_brand_channels"`
	DiscordSendRate       float64           `mapstructure:"discord_send_rate"`
	DiscordConnectRetry   time.Duration     `mapstructure:"discord_connect_retry"`
	ProxyService          string            `mapstructure:"proxy_service"`

	// Listing batching
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	// Webhook authentication shared by the sniper and the bot
	WebhookSecret string        `mapstructure:"webhook_secret"`
	WebhookIssuer string        `mapstructure:"webhook_issuer"`
	WebhookTTL    time.Duration `mapstructure:"webhook_ttl"`

	// Sniper configuration
	BotURL            string        `mapstructure:"bot_url"`
	UseDiscordBot     bool          `mapstructure:"use_discord_bot"`
	SniperCron        string        `mapstructure:"sniper_cron"`
	SniperCycleTTL    time.Duration `mapstructure:"sniper_cycle_timeout"`
	SniperMaxPages    int           `mapstructure:"sniper_max_pages"`
	SniperKeywords    int           `mapstructure:"sniper_keywords_per_brand"`
	SniperConcurrency int           `mapstructure:"sniper_concurrency"`
	MinPriceUSD       float64       `mapstructure:"min_price_usd"`
	MaxPriceUSD       float64       `mapstructure:"max_price_usd"`
	QualityThreshold  float64       `mapstructure:"quality_threshold"`
	BrandsFile        string        `mapstructure:"brands_file"`
	ExchangeRateURL   string        `mapstructure:"exchange_rate_url"`
	YahooSearchURL    string        `mapstructure:"yahoo_search_url"`
	SeenCacheSize     int           `mapstructure:"seen_cache_size"`
}

// LoadConfig reads configuration from file or environment variables
func LoadConfig(path string) (*Config, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	// Set config file path
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Read the config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, continue with environment variables
	}

	// Environment variables override file values: SERVER_PORT -> server_port
	v.AutomaticEnv()
	bindEnv(v)

	// Unmarshal config into struct
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.BotURL != "" && !strings.HasPrefix(config.BotURL, "http://") && !strings.HasPrefix(config.BotURL, "https://") {
		config.BotURL = "https://" + config.BotURL
	}
	config.BotURL = strings.TrimRight(config.BotURL, "/")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_port", 8000)
	v.SetDefault("service_name", "discord-bot")
	v.SetDefault("environment", "development")
	v.SetDefault("log_dir", "logs")

	// Database defaults
	v.SetDefault("db_max_open_conns", 10)
	v.SetDefault("db_max_idle_conns", 5)
	v.SetDefault("db_conn_max_lifetime", "15m")
	v.SetDefault("db_conn_max_idle_time", "5m")
	v.SetDefault("db_retry_attempts", 3)
	v.SetDefault("db_retry_delay", "2s")
	v.SetDefault("db_slow_query_threshold", "1s")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("migrations_path", "file://migrations")

	// Security defaults
	v.SetDefault("security_headers_enabled", true)

	// Metrics defaults
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")

	// Discord defaults
	v.SetDefault("discord_enabled", true)
	v.SetDefault("discord_api_base", "https://discord.com/api/v10")
	v.SetDefault("discord_send_rate", 2.0)
	v.SetDefault("discord_connect_retry", "30s")
	v.SetDefault("proxy_service", "zenmarket")

	// Batching defaults
	v.SetDefault("batch_size", 4)
	v.SetDefault("batch_timeout", "30s")

	// Webhook defaults
	v.SetDefault("webhook_issuer", "yahoo-sniper")
	v.SetDefault("webhook_ttl", "5m")

	// Sniper defaults
	v.SetDefault("bot_url", "http://localhost:8000")
	v.SetDefault("use_discord_bot", true)
	v.SetDefault("sniper_cron", "@every 5m")
	v.SetDefault("sniper_cycle_timeout", "4m")
	v.SetDefault("sniper_max_pages", 2)
	v.SetDefault("sniper_keywords_per_brand", 3)
	v.SetDefault("sniper_concurrency", 4)
	v.SetDefault("min_price_usd", 2.0)
	v.SetDefault("max_price_usd", 1500.0)
	v.SetDefault("quality_threshold", 0.01)
	v.SetDefault("brands_file", "brands.json")
	v.SetDefault("exchange_rate_url", "https://api.exchangerate-api.com/v4/latest/USD")
	v.SetDefault("yahoo_search_url", "https://auctions.yahoo.co.jp/search/search")
	v.SetDefault("seen_cache_size", 50000)
}

// bindEnv binds the keys whose hosting-platform variable names differ from the config keys
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server_port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("discord_bot_token", "DISCORD_BOT_TOKEN")
	_ = v.BindEnv("discord_guild_id", "DISCORD_GUILD_ID", "GUILD_ID")
	_ = v.BindEnv("bot_url", "BOT_URL", "DISCORD_BOT_URL")
	_ = v.BindEnv("db_url", "DB_URL", "DATABASE_URL")
	_ = v.BindEnv("redis_url", "REDIS_URL")
	_ = v.BindEnv("webhook_secret", "WEBHOOK_SECRET")
	_ = v.BindEnv("discord_alert_channel_id", "DISCORD_ALERT_CHANNEL_ID")
	_ = v.BindEnv("discord_budget_channel_id", "DISCORD_BUDGET_CHANNEL_ID")
}

// ValidateDiscord checks the Discord credentials before the bot connects
func (c *Config) ValidateDiscord() error {
	if !c.DiscordEnabled {
		return nil
	}

	if c.DiscordBotToken == "" {
		return fmt.Errorf("discord_bot_token is not set")
	}
	if len(c.DiscordBotToken) < 50 || !strings.ContainsAny(c.DiscordBotToken[:1], "MNO") {
		return fmt.Errorf("discord_bot_token has an invalid format")
	}

	if c.DiscordGuildID == "" {
		return fmt.Errorf("discord_guild_id is not set")
	}
	id, err := strconv.ParseUint(c.DiscordGuildID, 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("discord_guild_id must be a positive integer")
	}

	return nil
}
