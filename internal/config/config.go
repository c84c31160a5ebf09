package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config is the root of config/config.yaml.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Lock     LockConfig     `mapstructure:"lock"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Business BusinessConfig `mapstructure:"business"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	StaticDir       string        `mapstructure:"static_dir"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

// DatabaseConfig describes one of the supported gorm dialects: mysql, postgres or sqlite.
// DSN, when set, wins over the discrete connection fields.
type DatabaseConfig struct {
	Driver         string `mapstructure:"driver"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	DSN            string `mapstructure:"dsn"`
	MaxOpenConns   int    `mapstructure:"max_open_conns"`
	MaxIdleConns   int    `mapstructure:"max_idle_conns"`
	MigrationsPath string `mapstructure:"migrations_path"`
	LogLevel       string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LockConfig selects how balance mutations on one account are serialized.
// "redis" uses the distributed lock, "local" an in-process keyed mutex.
type LockConfig struct {
	Backend       string        `mapstructure:"backend"`
	TTL           time.Duration `mapstructure:"ttl"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

type KafkaConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	Ledger string `mapstructure:"ledger"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type AuthConfig struct {
	JWTSecret  string          `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration   `mapstructure:"token_ttl"`
	Issuer     string          `mapstructure:"issuer"`
	Superusers []SuperuserSpec `mapstructure:"superusers"`
}

// SuperuserSpec is a staff login that does not live in the employee table.
// Either Password or PasswordHash (bcrypt) must be set.
type SuperuserSpec struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Role         string `mapstructure:"role"`
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

type BusinessConfig struct {
	OpeningBalance    string        `mapstructure:"opening_balance"`
	LoanApprovalDelay time.Duration `mapstructure:"loan_approval_delay"`
	HistoryLimit      int           `mapstructure:"history_limit"`
	AdminListLimit    int           `mapstructure:"admin_list_limit"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	OutboxInterval    time.Duration `mapstructure:"outbox_interval"`
	MaxRetryCount     int           `mapstructure:"max_retry_count"`
}

// OpeningAmount is the balance credited to every new account.
func (b BusinessConfig) OpeningAmount() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(b.OpeningBalance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("business.opening_balance: %w", err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("business.opening_balance must not be negative")
	}
	return d, nil
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.allow_origins", []string{"*"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.name", "internet_banking")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)

	v.SetDefault("lock.backend", "local")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.retry_interval", 100*time.Millisecond)
	v.SetDefault("lock.max_retries", 50)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("kafka.topic.ledger", "bank.ledger")

	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.from", "no-reply@netbanking.local")

	v.SetDefault("auth.jwt_secret", "your-secret-key")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "netbanking")

	v.SetDefault("business.opening_balance", "1000")
	v.SetDefault("business.loan_approval_delay", 2500*time.Millisecond)
	v.SetDefault("business.history_limit", 50)
	v.SetDefault("business.admin_list_limit", 100)
	v.SetDefault("business.reconcile_interval", 10*time.Minute)
	v.SetDefault("business.outbox_interval", 500*time.Millisecond)
	v.SetDefault("business.max_retry_count", 5)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads configPath on top of the defaults. An empty path or a missing file
// falls back to defaults plus NETBANK_* environment variables,
// e.g. NETBANK_DATABASE_DRIVER=sqlite.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NETBANK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Lock.Backend {
	case "redis", "local":
	default:
		return fmt.Errorf("unsupported lock backend %q", c.Lock.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive")
	}
	if _, err := c.Business.OpeningAmount(); err != nil {
		return err
	}
	if c.Business.HistoryLimit <= 0 {
		return fmt.Errorf("business.history_limit must be positive")
	}
	for _, su := range c.Auth.Superusers {
		if su.ID == "" {
			return fmt.Errorf("superuser without id")
		}
		if su.Password == "" && su.PasswordHash == "" {
			return fmt.Errorf("superuser %s has neither password nor password_hash", su.ID)
		}
		if su.Role != "admin" && su.Role != "manager" {
			return fmt.Errorf("superuser %s has unknown role %q", su.ID, su.Role)
		}
	}
	return nil
}
