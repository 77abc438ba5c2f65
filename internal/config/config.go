package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Configuration is the root configuration for the service. Values are loaded
// from config files and PLANPILOT_* environment variables via viper.
type Configuration struct {
	Deployment DeploymentConfig `mapstructure:"deployment"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cache      CacheConfig      `mapstructure:"cache"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	Breaker    BreakerConfig    `mapstructure:"breaker"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

const (
	ModeLocal = "local"
	ModeProd  = "prod"
	ModeTest  = "test"
)

type DeploymentConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type AuthConfig struct {
	Secret         string        `mapstructure:"secret"`
	TokenExpiry    time.Duration `mapstructure:"token_expiry"`
	AdminUserIDs   []string      `mapstructure:"admin_user_ids"`
	BcryptCost     int           `mapstructure:"bcrypt_cost"`
	DisableSignups bool          `mapstructure:"disable_signups"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Type       string        `mapstructure:"type"` // "redis" or "inmemory"
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
}

type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// NewConfig loads configuration from ./config/config.yaml (if present) and
// the environment. A missing config file is not an error; defaults plus env
// vars are enough to run.
func NewConfig() (*Configuration, error) {
	// Load .env if present; ignore absence.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("planpilot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", ModeLocal)
	v.SetDefault("server.address", ":8080")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.token_expiry", 30*24*time.Hour)
	v.SetDefault("auth.admin_user_ids", []string{})
	v.SetDefault("auth.bcrypt_cost", 10)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "planpilot")
	v.SetDefault("postgres.dbname", "planpilot")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open", 20)
	v.SetDefault("postgres.max_idle", 10)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "redis")
	v.SetDefault("cache.default_ttl", 5*time.Minute)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 60)

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.reset_timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
}

// GetDefaultConfig returns a configuration suitable for tests and scripts
// without reading any files.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: ModeTest},
		Server:     ServerConfig{Address: ":8080"},
		Auth: AuthConfig{
			Secret:      "test-secret",
			TokenExpiry: 30 * 24 * time.Hour,
			BcryptCost:  4,
		},
		Cache: CacheConfig{
			Enabled:    true,
			Type:       "inmemory",
			DefaultTTL: 5 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		Logging: LoggingConfig{Level: "debug"},
	}
}
