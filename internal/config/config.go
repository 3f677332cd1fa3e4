// Package config handles loading and parsing application configuration.
// It supports two sources for the config file path (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// A .env file in the working directory, when present, is loaded into the
// process environment first so its values can override the YAML file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Storage drivers understood by cmd/students-api.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Image store backends.
const (
	BackendLocal = "local"
	BackendMinio = "minio"
)

// DefaultMaxUploadBytes bounds multipart uploads when the config leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity: "dev", "staging" or "prod".
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	Storage    Storage `yaml:"storage"`
	Images     Images  `yaml:"images"`
	HTTPServer `yaml:"http_server"`
}

// Storage selects and configures the Record Store.
type Storage struct {
	Driver string `yaml:"driver" env:"STORAGE_DRIVER" env-default:"sqlite"`

	// Path is the SQLite database file.
	Path string `yaml:"path" env:"STORAGE_PATH" env-default:"storage/storage.db"`

	// DSN is the PostgreSQL connection string.
	DSN string `yaml:"dsn" env:"STORAGE_DSN"`
}

// Images selects and configures the Image Store.
type Images struct {
	Backend string `yaml:"backend" env:"IMAGES_BACKEND" env-default:"local"`
	Dir     string `yaml:"dir" env:"IMAGES_DIR" env-default:"./static/student_images"`

	// DeleteOnRemove removes a student's image when the record is deleted.
	DeleteOnRemove bool `yaml:"delete_on_remove" env:"IMAGES_DELETE_ON_REMOVE" env-default:"false"`

	Minio Minio `yaml:"minio"`
}

// Minio holds object storage parameters for the minio backend.
type Minio struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"student-images"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	Addr           string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"HTTP_SERVER_MAX_UPLOAD_BYTES" env-default:"10485760"`
}

// Load reads the YAML file at path, applies environment overrides and
// checks the driver/backend names.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Images.Backend {
	case BackendLocal, BackendMinio:
	default:
		return fmt.Errorf("unknown images backend %q", c.Images.Backend)
	}

	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}

	return nil
}

// MustLoad resolves the config path, reads it and fatals on any failure.
// If this returns, the config is valid.
func MustLoad() *Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot load config: %s", err.Error())
	}

	return cfg
}
