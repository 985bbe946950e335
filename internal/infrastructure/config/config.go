package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // study.location must resolve without a system zoneinfo

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Logging LoggingConfig `mapstructure:"logging"`
	Study   StudyConfig   `mapstructure:"study"`

	v *viper.Viper
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	Path      string `mapstructure:"path"`      // SQLite database file
	Directory string `mapstructure:"directory"` // file backend
	RedisURL  string `mapstructure:"redis_url"`
	Key       string `mapstructure:"key"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Directory  string `mapstructure:"directory"` // empty disables file logging
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

type StudyConfig struct {
	Location string `mapstructure:"location"` // IANA zone for calendar-day streaks
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("storage.path", "study.db")
	v.SetDefault("storage.directory", "data/store")
	v.SetDefault("storage.redis_url", "")
	v.SetDefault("storage.key", "comptia-security-quiz-data")

	v.SetDefault("catalog.path", "data/questions.json")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10) // megabytes
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7) // days
	v.SetDefault("logging.compress", true)

	v.SetDefault("study.location", "Local")
}

// Load reads configuration from defaults, an optional config.yaml in the
// search paths (default "." and "./config") and STUDY_* environment
// variables, in increasing precedence. A .env file is loaded first if present.
func Load(searchPaths ...string) (*Config, error) {
	_ = godotenv.Load()

	if len(searchPaths) == 0 {
		searchPaths = []string{".", "./config"}
	}

	v := viper.New()
	setDefaults(v)
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STUDY") // e.g. STUDY_SERVER_ADDRESS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.v = v
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case BackendSQLite, BackendFile, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisURL == "" {
			errs = append(errs, errors.New("storage.redis_url is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of sqlite, file, redis, memory", c.Storage.Backend))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if c.Storage.Key == "" {
		errs = append(errs, errors.New("storage.key must not be empty"))
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	if _, err := c.Study.TimeLocation(); err != nil {
		errs = append(errs, fmt.Errorf("study.location: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (s StudyConfig) TimeLocation() (*time.Location, error) {
	if s.Location == "" || s.Location == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(s.Location)
}

// Watch reloads the config file when it changes and passes the new config
// to onChange. Invalid edits are logged and ignored.
func (c *Config) Watch(log *zap.Logger, onChange func(*Config)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("configuration file changed, reloading", zap.String("file", e.Name))
		next, err := decode(c.v)
		if err != nil {
			log.Error("error reloading configuration", zap.Error(err))
			return
		}
		onChange(next)
	})
	c.v.WatchConfig()
}
