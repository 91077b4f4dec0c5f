package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr   = ":8080"
	defaultDBPath       = "skinnypoem.db"
	defaultTimezone     = "UTC"
	defaultCodec        = "json"
	defaultTickInterval = 30 * time.Second
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 5 * time.Second

	envConfigFile     = "SKINNYPOEM_CONFIG"
	envListenAddr     = "SKINNYPOEM_LISTEN_ADDR"
	envDBPath         = "SKINNYPOEM_DB_PATH"
	envLogLevel       = "SKINNYPOEM_LOG_LEVEL"
	envTimezone       = "SKINNYPOEM_TIMEZONE"
	envCodec          = "SKINNYPOEM_CODEC"
	envAdminTokenHash = "SKINNYPOEM_ADMIN_TOKEN_HASH"
	envWordBankPath   = "SKINNYPOEM_WORDBANK_PATH"
	envTickInterval   = "SKINNYPOEM_TICK_INTERVAL"
	envReadTimeout    = "SKINNYPOEM_READ_TIMEOUT"
	envWriteTimeout   = "SKINNYPOEM_WRITE_TIMEOUT"
)

// Config holds application configuration.
type Config struct {
	ListenAddr string
	DBPath     string
	LogLevel   slog.Level

	// Timezone names the IANA zone that decides the day and phase hours.
	Timezone string
	// Codec is the value encoding in the store: "json" or "cbor".
	Codec string
	// AdminTokenHash is a bcrypt hash of the admin bearer token. Empty
	// disables the admin endpoints.
	AdminTokenHash string
	// WordBankPath is an optional YAML or JSON vocabulary file, watched for
	// changes while serving.
	WordBankPath string

	TickInterval time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// fileConfig mirrors Config in a config file. Durations are strings such
// as "30s".
type fileConfig struct {
	ListenAddr     string `yaml:"listen_addr" toml:"listen_addr"`
	DBPath         string `yaml:"db_path" toml:"db_path"`
	LogLevel       string `yaml:"log_level" toml:"log_level"`
	Timezone       string `yaml:"timezone" toml:"timezone"`
	Codec          string `yaml:"codec" toml:"codec"`
	AdminTokenHash string `yaml:"admin_token_hash" toml:"admin_token_hash"`
	WordBankPath   string `yaml:"wordbank_path" toml:"wordbank_path"`
	TickInterval   string `yaml:"tick_interval" toml:"tick_interval"`
	ReadTimeout    string `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout   string `yaml:"write_timeout" toml:"write_timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:   defaultListenAddr,
		DBPath:       defaultDBPath,
		LogLevel:     slog.LevelInfo,
		Timezone:     defaultTimezone,
		Codec:        defaultCodec,
		TickInterval: defaultTickInterval,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}
}

// Load builds the configuration from defaults, then the file at path (or
// $SKINNYPOEM_CONFIG when path is empty), then environment variables.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(envConfigFile)
	}
	if path != "" {
		fc, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.apply(fc); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if err := cfg.apply(fromEnv()); err != nil {
		return Config{}, fmt.Errorf("environment: %w", err)
	}

	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	case ".toml":
		err = toml.Unmarshal(data, &fc)
	default:
		return fc, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return fc, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, nil
}

func fromEnv() fileConfig {
	return fileConfig{
		ListenAddr:     os.Getenv(envListenAddr),
		DBPath:         os.Getenv(envDBPath),
		LogLevel:       os.Getenv(envLogLevel),
		Timezone:       os.Getenv(envTimezone),
		Codec:          os.Getenv(envCodec),
		AdminTokenHash: os.Getenv(envAdminTokenHash),
		WordBankPath:   os.Getenv(envWordBankPath),
		TickInterval:   os.Getenv(envTickInterval),
		ReadTimeout:    os.Getenv(envReadTimeout),
		WriteTimeout:   os.Getenv(envWriteTimeout),
	}
}

// apply overrides cfg with every non-empty field of fc.
func (cfg *Config) apply(fc fileConfig) error {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.ListenAddr, fc.ListenAddr)
	set(&cfg.DBPath, fc.DBPath)
	set(&cfg.Timezone, fc.Timezone)
	set(&cfg.Codec, fc.Codec)
	set(&cfg.AdminTokenHash, fc.AdminTokenHash)
	set(&cfg.WordBankPath, fc.WordBankPath)
	if fc.LogLevel != "" {
		cfg.LogLevel = parseLogLevel(fc.LogLevel)
	}

	durations := []struct {
		name string
		dst  *time.Duration
		v    string
	}{
		{"tick_interval", &cfg.TickInterval, fc.TickInterval},
		{"read_timeout", &cfg.ReadTimeout, fc.ReadTimeout},
		{"write_timeout", &cfg.WriteTimeout, fc.WriteTimeout},
	}
	for _, d := range durations {
		if d.v == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.v)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("%s: invalid duration %q", d.name, d.v)
		}
		*d.dst = parsed
	}
	return nil
}

// Location resolves Timezone.
func (cfg Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
