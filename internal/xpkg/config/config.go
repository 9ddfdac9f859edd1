package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces overrides, e.g. CANTEEN_DATABASE_HOST.
const envPrefix = "canteen"

type Config struct {
	DB      Postgres `yaml:"database" envconfig:"database"`
	RMQ     RabbitMQ `yaml:"rabbitmq" envconfig:"rabbitmq"`
	Redis   Redis    `yaml:"redis" envconfig:"redis"`
	Auth    Auth     `yaml:"auth" envconfig:"auth"`
	Service Service  `yaml:"service" envconfig:"service"`
}

type Postgres struct {
	Host        string        `yaml:"host" envconfig:"host"`
	Port        string        `yaml:"port" envconfig:"port"`
	User        string        `yaml:"user" envconfig:"user"`
	Password    string        `yaml:"password" envconfig:"password"`
	Database    string        `yaml:"database" envconfig:"database"`
	MaxConns    int32         `yaml:"max_conns" envconfig:"max_conns"`
	LockTimeout time.Duration `yaml:"lock_timeout" envconfig:"lock_timeout"`
}

type RabbitMQ struct {
	User     string `yaml:"user" envconfig:"user"`
	Password string `yaml:"password" envconfig:"password"`
	Host     string `yaml:"host" envconfig:"host"`
	Port     string `yaml:"port" envconfig:"port"`
	VHost    string `yaml:"vhost" envconfig:"vhost"`
}

type Redis struct {
	Addr           string        `yaml:"addr" envconfig:"addr"`
	Password       string        `yaml:"password" envconfig:"password"`
	DB             int           `yaml:"db" envconfig:"db"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl" envconfig:"idempotency_ttl"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt_secret" envconfig:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl" envconfig:"token_ttl"`
}

type Service struct {
	LogLevel       string        `yaml:"log_level" envconfig:"log_level"`
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"request_timeout"`
}

// Default returns the values used when neither the file nor the
// environment set a key.
func Default() *Config {
	return &Config{
		DB: Postgres{
			Host:        "localhost",
			Port:        "5432",
			User:        "canteen",
			Password:    "canteen",
			Database:    "canteen_db",
			MaxConns:    25,
			LockTimeout: 5 * time.Second,
		},
		RMQ: RabbitMQ{
			Port: "5672",
		},
		Redis: Redis{
			IdempotencyTTL: 24 * time.Hour,
		},
		Auth: Auth{
			TokenTTL: 24 * time.Hour,
		},
		Service: Service{
			LogLevel:       "INFO",
			RequestTimeout: 20 * time.Second,
		},
	}
}

// LoadConfig reads the yaml file on top of the defaults and then applies
// CANTEEN_* environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.DB.Host == "" || c.DB.Database == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive: %s", c.Auth.TokenTTL)
	}
	if c.DB.LockTimeout <= 0 {
		return fmt.Errorf("database.lock_timeout must be positive: %s", c.DB.LockTimeout)
	}
	return nil
}

// DSN builds the postgres connection string understood by pgx.
func (p Postgres) DSN() string {
	return p.url("postgres")
}

// MigrateURL is the same connection addressed to the golang-migrate pgx/v5 driver.
func (p Postgres) MigrateURL() string {
	return p.url("pgx5")
}

func (p Postgres) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(p.User, p.Password),
		Host:     p.Host + ":" + p.Port,
		Path:     "/" + p.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Enabled reports whether a broker was configured at all.
func (r RabbitMQ) Enabled() bool {
	return r.Host != ""
}

func (r RabbitMQ) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   r.Host + ":" + r.Port,
		Path:   "/" + r.VHost,
	}
	return u.String()
}

func (r Redis) Enabled() bool {
	return r.Addr != ""
}
