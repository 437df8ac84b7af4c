package config

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// reservedVote is the form value that resets both counters, so it can never be
// used as an option label.
const reservedVote = "reset"

const defaultRedisPort = 6379

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

type HealthCheckConfig struct {
	Interval string `mapstructure:"interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

// VoteConfig holds the two option labels and the page title shown to voters.
type VoteConfig struct {
	Option1  string `mapstructure:"option1"`
	Option2  string `mapstructure:"option2"`
	Title    string `mapstructure:"title"`
	ShowHost bool   `mapstructure:"show_host"`
}

// StoreConfig is read from the process environment only.
type StoreConfig struct {
	Host     string `env:"REDIS,required,notEmpty"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PWD"`
}

type SessionConfig struct {
	SecretKey    string `mapstructure:"-" env:"SECRET_KEY"`
	SecureCookie bool   `mapstructure:"secure_cookie"`

	// CSRFKey is the 32-byte key derived from SecretKey, or random when
	// SecretKey is unset.
	CSRFKey []byte `mapstructure:"-"`
}

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Vote        VoteConfig        `mapstructure:"vote"`
	Session     SessionConfig     `mapstructure:"session"`
	Store       StoreConfig       `mapstructure:"-"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.address":     "SERVER_ADDRESS",
	"server.environment": "SERVER_ENVIRONMENT",
	"logging.level":      "LOGGING_LEVEL",
	"vote.option1":       "VOTE1VALUE",
	"vote.option2":       "VOTE2VALUE",
	"vote.title":         "TITLE",
}

func Load() (*Config, error) {
	return load([]string{"./config", "."}, os.Hostname)
}

func load(paths []string, hostname func() (string, error)) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":80")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("health_check.interval", "10s")
	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("metrics.buffer_size", 1000)
	v.SetDefault("vote.option1", "Cats")
	v.SetDefault("vote.option2", "Dogs")
	v.SetDefault("vote.title", "Azure Voting App")
	v.SetDefault("vote.show_host", false)
	v.SetDefault("session.secure_cookie", false)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// Empty variables are ignored, so an exported-but-blank VOTE1VALUE falls
	// back to the file value.
	for key, name := range envBindings {
		if err := v.BindEnv(key, name); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := env.Parse(&cfg.Store); err != nil {
		return nil, fmt.Errorf("store settings: %w", err)
	}
	if cfg.Store.Port == 0 {
		cfg.Store.Port = defaultRedisPort
	}

	if err := env.Parse(&cfg.Session); err != nil {
		return nil, fmt.Errorf("session settings: %w", err)
	}
	key, err := csrfKey(cfg.Session.SecretKey)
	if err != nil {
		return nil, err
	}
	cfg.Session.CSRFKey = key

	if cfg.Vote.ShowHost {
		host, err := hostname()
		if err != nil {
			return nil, fmt.Errorf("resolve hostname: %w", err)
		}
		cfg.Vote.Title = host
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// Addr returns host:port for the store, keeping a port already present in Host.
func (s StoreConfig) Addr() string {
	if _, _, err := net.SplitHostPort(s.Host); err == nil {
		return s.Host
	}
	port := s.Port
	if port == 0 {
		port = defaultRedisPort
	}
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// Durations parses the server timeouts. Call after Validate.
func (s ServerConfig) Durations() (read, write, idle time.Duration) {
	read, _ = time.ParseDuration(s.ReadTimeout)
	write, _ = time.ParseDuration(s.WriteTimeout)
	idle, _ = time.ParseDuration(s.IdleTimeout)
	return read, write, idle
}

func csrfKey(secret string) ([]byte, error) {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:], nil
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate csrf key: %w", err)
	}
	return key, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.ReadTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.WriteTimeout, validation.Required, validation.By(validateDuration)),
					validation.Field(&sc.IdleTimeout, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthCheckConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Vote,
			validation.Required,
			validation.By(validateVoteConfig),
		),
		validation.Field(&c.Store,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(StoreConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a StoreConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Host, validation.Required, validation.By(validateStoreHost)),
					validation.Field(&sc.Port, validation.Min(1), validation.Max(65535)),
				)
			}),
		),
	)
}

func validateVoteConfig(value interface{}) error {
	vc, ok := value.(VoteConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a VoteConfig")
	}

	return validation.ValidateStruct(&vc,
		validation.Field(&vc.Option1,
			validation.Required,
			validation.NotIn(reservedVote),
		),
		validation.Field(&vc.Option2,
			validation.Required,
			validation.NotIn(reservedVote),
			validation.By(func(value interface{}) error {
				if value.(string) == vc.Option1 {
					return validation.NewError("validation_duplicate_option", "must differ from option1")
				}
				return nil
			}),
		),
		validation.Field(&vc.Title, validation.Required),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateStoreHost(value interface{}) error {
	host, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		if err := validateHostPort(host); err != nil {
			return err
		}
		host = h
	}

	if err := is.Host.Validate(host); err != nil {
		return validation.NewError("validation_invalid_host", "invalid store host")
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}
	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}
