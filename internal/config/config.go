package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"supernode-rewards/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logging     logging.Config    `mapstructure:"logging"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Settlement  SettlementConfig  `mapstructure:"settlement"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Membership  MembershipConfig  `mapstructure:"membership"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Export      ExportConfig      `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig encapsulates cache connectivity.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// SchedulerConfig governs the daily settlement cadence.
type SchedulerConfig struct {
	RunHourUTC      int           `mapstructure:"run_hour_utc"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
}

// SettlementConfig tunes the batch settlement run.
type SettlementConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	PoolSize    int           `mapstructure:"pool_size"`
	QueueDepth  int           `mapstructure:"queue_depth"`
	WaitTimeout time.Duration `mapstructure:"wait_timeout"`
}

// LeaderboardConfig tunes ranking and caching behaviour.
type LeaderboardConfig struct {
	MaxLeaders      int           `mapstructure:"max_leaders"`
	DefaultPageSize int           `mapstructure:"default_page_size"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// MembershipConfig covers the external membership/identity service.
type MembershipConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertingConfig defines run-report routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram report channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SUPERNODE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "supernode-rewards")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("scheduler.run_hour_utc", 0)
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.advisory_lock_key", int64(0x534e5244))

	v.SetDefault("settlement.batch_size", 1000)
	v.SetDefault("settlement.pool_size", 8)
	v.SetDefault("settlement.queue_depth", 256)
	v.SetDefault("settlement.wait_timeout", "15m")

	v.SetDefault("leaderboard.max_leaders", 50)
	v.SetDefault("leaderboard.default_page_size", 50)
	v.SetDefault("leaderboard.cache_ttl", "24h")

	v.SetDefault("membership.request_timeout", "10s")
	v.SetDefault("membership.user_agent", "supernode-rewards/1.0")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Scheduler.RunHourUTC < 0 || c.Scheduler.RunHourUTC > 23 {
		return fmt.Errorf("scheduler.run_hour_utc must be within 0-23")
	}
	if c.Settlement.BatchSize <= 0 {
		return fmt.Errorf("settlement.batch_size must be greater than zero")
	}
	if c.Settlement.PoolSize <= 0 {
		return fmt.Errorf("settlement.pool_size must be greater than zero")
	}
	if c.Settlement.WaitTimeout <= 0 {
		return fmt.Errorf("settlement.wait_timeout must be greater than zero")
	}
	if c.Leaderboard.MaxLeaders <= 0 {
		return fmt.Errorf("leaderboard.max_leaders must be greater than zero")
	}
	if c.Leaderboard.DefaultPageSize <= 0 {
		return fmt.Errorf("leaderboard.default_page_size must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required")
		}
	}
	return nil
}
