package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config holds the main configuration for the application.
type Config struct {
	Env      string   `mapstructure:"env"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Redis    Redis    `mapstructure:"redis"`
	Auth     Auth     `mapstructure:"auth"`
	Sweeper  Sweeper  `mapstructure:"sweeper"`
}

type Server struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type Database struct {
	Driver string `mapstructure:"driver"` // postgres or memory
	DSN    string `mapstructure:"dsn"`
}

// Redis is optional. An empty address disables broadcasting.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type Auth struct {
	AccessTokenSecret string `mapstructure:"access_token_secret"`
}

type Sweeper struct {
	Interval time.Duration `mapstructure:"interval"`
}

func (s Server) Addr() string {
	return s.Host + ":" + s.Port
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

var bindings = map[string]string{
	"env":                      "GO_ENV",
	"server.host":              "SERVER_HOST",
	"server.port":              "SERVER_PORT",
	"database.driver":          "STORE_DRIVER",
	"database.dsn":             "DB_DSN",
	"redis.addr":               "REDIS_ADDR",
	"redis.password":           "REDIS_PASSWORD",
	"redis.db":                 "REDIS_DB",
	"auth.access_token_secret": "ACCESS_TOKEN_SECRET",
	"sweeper.interval":         "SWEEP_INTERVAL",
}

// Load reads an optional .env file and then the environment.
func Load(envFiles ...string) (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load(envFiles...)

	v := viper.New()
	v.SetDefault("env", "development")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("database.driver", StorePostgres)
	v.SetDefault("redis.db", 0)
	v.SetDefault("sweeper.interval", time.Minute)

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(cfg.Database.Driver)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Must is Load that panics on error.
func Must(envFiles ...string) *Config {
	cfg, err := Load(envFiles...)
	if err != nil {
		panic("[CONFIG] " + err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("DB_DSN is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.Database.Driver))
	}
	if c.Auth.AccessTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET is required"))
	}
	if c.Sweeper.Interval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
