package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Sweeper      SweeperConfig      `mapstructure:"sweeper"`
	Notify       NotifyConfig       `mapstructure:"notify"`
	Email        EmailConfig        `mapstructure:"email"`
	Operators    []OperatorConfig   `mapstructure:"operators"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

type SubscriptionConfig struct {
	DefaultDurationDays int    `mapstructure:"default_duration_days"`
	SystemActorID       int64  `mapstructure:"system_actor_id"`
	DeveloperContact    string `mapstructure:"developer_contact"`
	HistoryLimit        int    `mapstructure:"history_limit"`
	CancellationLimit   int    `mapstructure:"cancellation_limit"`
	AlertLimit          int    `mapstructure:"alert_limit"`
	FeatureLogLimit     int    `mapstructure:"feature_log_limit"`
}

type SweeperConfig struct {
	IntervalHours     int   `mapstructure:"interval_hours"`
	RetryDelayMinutes int   `mapstructure:"retry_delay_minutes"`
	Workers           int   `mapstructure:"workers"`
	Thresholds        []int `mapstructure:"thresholds"`
}

type NotifyConfig struct {
	Queue         string  `mapstructure:"queue"`
	Channel       string  `mapstructure:"channel"`
	Driver        string  `mapstructure:"driver"` // webhook, email
	WebhookURL    string  `mapstructure:"webhook_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	MaxWorkers    int     `mapstructure:"max_workers"`
	MaxRetries    int     `mapstructure:"max_retries"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

type OperatorConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("subscription.default_duration_days", 30)
	v.SetDefault("subscription.history_limit", 1000)
	v.SetDefault("subscription.cancellation_limit", 500)
	v.SetDefault("subscription.alert_limit", 1000)
	v.SetDefault("subscription.feature_log_limit", 1000)
	v.SetDefault("sweeper.interval_hours", 6)
	v.SetDefault("sweeper.retry_delay_minutes", 60)
	v.SetDefault("sweeper.workers", 4)
	v.SetDefault("sweeper.thresholds", []int{30, 14, 7, 3, 1, 0})
	v.SetDefault("notify.queue", "group_notifications")
	v.SetDefault("notify.channel", "entitlement_events")
	v.SetDefault("notify.driver", "webhook")
	v.SetDefault("notify.rate_per_second", 5)
	v.SetDefault("notify.max_workers", 2)
	v.SetDefault("notify.max_retries", 3)
}

func Load(configPath string) (*Config, error) {
	// .env 仅用于本地开发
	_ = godotenv.Load()

	// config.local.yaml 包含真实密钥，不提交到 git
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")
	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Default 返回只包含默认值的配置，供测试和命令行工具使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}
