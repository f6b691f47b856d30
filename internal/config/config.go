// Package config handles loading and parsing application configuration.
//
// Values come from three layers, later ones winning:
//  1. `env-default` tags on the structs below
//  2. an optional YAML file (CONFIG_PATH env var or --config flag)
//  3. environment variables, including a `.env` file in the working
//     directory which godotenv loads at startup
package config

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	_ "github.com/joho/godotenv/autoload"
)

// Storage drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config is the root configuration structure.
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-default:"dev" validate:"oneof=dev staging prod"`

	HTTPServer HTTPServer `yaml:"http_server"`
	Storage    Storage    `yaml:"storage"`
	Log        Log        `yaml:"log"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Host            string        `yaml:"host" env:"HTTP_HOST"`
	Port            string        `yaml:"port" env:"PORT" env-default:"3000" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"*"`
	MaxBodyBytes       int64    `yaml:"max_body_bytes" env:"HTTP_MAX_BODY_BYTES" env-default:"1048576" validate:"gt=0"`
}

// Addr is the TCP address the server listens on, e.g. ":3000".
func (h HTTPServer) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// Storage selects and configures the persistence backend.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"mongo" validate:"oneof=mongo sqlite"`

	MongoURI         string `yaml:"mongo_uri" env:"MONGODB_URI" validate:"required_if=Driver mongo"`
	MongoDatabase    string `yaml:"mongo_database" env:"MONGODB_DATABASE" env-default:"school" validate:"required_if=Driver mongo"`
	MongoCollection  string `yaml:"mongo_collection" env:"MONGODB_COLLECTION" env-default:"students" validate:"required_if=Driver mongo"`
	MongoMaxPoolSize uint64 `yaml:"mongo_max_pool_size" env:"MONGODB_MAX_POOL_SIZE"`

	// SQLitePath is the filesystem path to the SQLite .db file.
	SQLitePath string `yaml:"sqlite_path" env:"STORAGE_PATH" validate:"required_if=Driver sqlite"`

	// ConnectTimeout bounds the startup ping; the server does not listen
	// until the store answers.
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STORAGE_CONNECT_TIMEOUT" env-default:"10s"`
}

// Log configures the root logger.
type Log struct {
	// Level overrides the per-env default (debug, info, warn, error).
	Level string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=trace debug info warn error"`

	// File, when set, receives a copy of every log line with size based
	// rotation.
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB" env-default:"100"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS" env-default:"3"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS" env-default:"28"`
}

// Load reads the config file at path (if path is not empty) and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad resolves the config path from CONFIG_PATH or --config and
// returns the loaded config. It exits the process on any error. With no
// path at all the environment alone is used.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot load config: %s\n", err)
		os.Exit(1)
	}

	return cfg
}
