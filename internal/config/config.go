package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const ENV_PROD = "prod"
const ENV_DEV = "dev"

// Config of the bot, read from the environment and an optional .env file
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"prod"`
	LogLevel string `envconfig:"LOG_LEVEL"`

	Discord struct {
		Token          string `envconfig:"DISCORD_TOKEN"`
		ClientID       string `envconfig:"CLIENT_ID"`
		OwnerID        string `envconfig:"OWNER_DISCORD_ID"`
		SupportLink    string `envconfig:"SUPPORT_GUILD_LINK" default:"https://discord.gg/"`
		JoinChannelID  string `envconfig:"GUILD_JOIN_CHANNEL_ID"`
		LeaveChannelID string `envconfig:"GUILD_LEAVE_CHANNEL_ID"`
		ErrorChannelID string `envconfig:"GUILD_ERROR_CHANNEL_ID"`
		LogsChannelID  string `envconfig:"GUILD_LOGS_CHANNEL_ID"`
	} `envconfig:""`

	StatsAPI struct {
		URL     string        `envconfig:"STATS_API_URL"`
		Key     string        `envconfig:"STATS_API_KEY"`
		Timeout time.Duration `envconfig:"STATS_API_TIMEOUT" default:"10s"`
		// Requests allowed per window, zero disables the limit
		RateLimit       int           `envconfig:"STATS_API_RATE_LIMIT" default:"0"`
		RateLimitWindow time.Duration `envconfig:"STATS_API_RATE_WINDOW" default:"1s"`
	} `envconfig:""`

	Reports struct {
		Cron                  string `envconfig:"WEEKLY_REPORT_CRON" default:"CRON_TZ=UTC 0 20 * * 0"`
		GuildConcurrency      int    `envconfig:"REPORT_GUILD_CONCURRENCY" default:"1"`
		CacheCheckConcurrency int    `envconfig:"CACHE_CHECK_CONCURRENCY" default:"4"`
	} `envconfig:""`

	GuildCountRefresh time.Duration `envconfig:"GUILD_COUNT_REFRESH" default:"1h"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	HTTP struct {
		Addr       string `envconfig:"HTTP_ADDR"`
		AdminToken string `envconfig:"ADMIN_TOKEN"`
	} `envconfig:""`
}

// Load reads the .env file of the working directory if there is one,
// then the environment. Variables already set win over the file
func Load() (Config, error) {
	var cfg Config
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(cfg.AppEnv)
	return cfg, nil
}

// Validate checks what every command needs
func (cfg Config) Validate() error {
	var missing []string
	if cfg.Discord.Token == "" {
		missing = append(missing, "DISCORD_TOKEN")
	}
	if cfg.StatsAPI.URL == "" {
		missing = append(missing, "STATS_API_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if cfg.Reports.GuildConcurrency < 1 || cfg.Reports.CacheCheckConcurrency < 1 {
		return errors.New("REPORT_GUILD_CONCURRENCY and CACHE_CHECK_CONCURRENCY must be at least 1")
	}
	return nil
}

func (cfg Config) IsProd() bool {
	return cfg.AppEnv == ENV_PROD
}

func (cfg Config) IsDev() bool {
	return cfg.AppEnv == ENV_DEV
}
