package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTPAddr string `yaml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr"` // "" or "off" disables the gRPC health endpoint

	Env      string `yaml:"env"`       // "dev" | "prod"
	LogLevel string `yaml:"log_level"` // zerolog level name

	// Storage
	DBPath           string `yaml:"db_path"`  // e.g. "./data/lock-checker.db"
	LogPath          string `yaml:"log_path"` // text mirror of the history
	StorageTimeoutMs int    `yaml:"storage_timeout_ms"`
	MirrorQueue      int    `yaml:"mirror_queue"`

	// HTTP
	CORSOrigin      string  `yaml:"cors_origin"`
	WriteRatePerSec float64 `yaml:"write_rate_per_sec"` // 0 = unlimited
	WriteBurst      int     `yaml:"write_burst"`

	// Health
	HealthIntervalSeconds int `yaml:"health_interval_seconds"`
}

func Default() Config {
	return Config{
		HTTPAddr:              ":3001",
		GRPCAddr:              ":3002",
		Env:                   "dev",
		LogLevel:              "info",
		DBPath:                "./data/lock-checker.db",
		LogPath:               "./data/lock-history.log",
		StorageTimeoutMs:      5000,
		MirrorQueue:           256,
		CORSOrigin:            "*",
		WriteRatePerSec:       0,
		WriteBurst:            5,
		HealthIntervalSeconds: 10,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $DOORLOCK_CONFIG when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(os.Getenv("DOORLOCK_CONFIG"))
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.HTTPAddr = getenvDefault("DOORLOCK_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = getenvDefault("DOORLOCK_GRPC_ADDR", c.GRPCAddr)
	c.Env = getenvDefault("DOORLOCK_ENV", c.Env)
	c.LogLevel = getenvDefault("DOORLOCK_LOG_LEVEL", c.LogLevel)

	c.DBPath = getenvDefault("DOORLOCK_DB_PATH", c.DBPath)
	c.LogPath = getenvDefault("DOORLOCK_LOG_PATH", c.LogPath)
	c.StorageTimeoutMs = getenvInt("DOORLOCK_STORAGE_TIMEOUT_MS", c.StorageTimeoutMs)
	c.MirrorQueue = getenvInt("DOORLOCK_MIRROR_QUEUE", c.MirrorQueue)

	c.CORSOrigin = getenvDefault("DOORLOCK_CORS_ORIGIN", c.CORSOrigin)
	c.WriteRatePerSec = getenvFloat("DOORLOCK_WRITE_RATE_PER_SEC", c.WriteRatePerSec)
	c.WriteBurst = getenvInt("DOORLOCK_WRITE_BURST", c.WriteBurst)

	c.HealthIntervalSeconds = getenvInt("DOORLOCK_HEALTH_INTERVAL_SECONDS", c.HealthIntervalSeconds)
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env != "dev" && c.Env != "prod" {
		// fail-soft: treat unknown as dev
		c.Env = "dev"
	}
	if strings.EqualFold(strings.TrimSpace(c.GRPCAddr), "off") {
		c.GRPCAddr = ""
	}
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http_addr is required"))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if strings.TrimSpace(c.LogPath) == "" {
		errs = append(errs, errors.New("log_path is required"))
	}
	if c.StorageTimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("storage_timeout_ms must be positive, got %d", c.StorageTimeoutMs))
	}
	if c.WriteRatePerSec < 0 {
		errs = append(errs, fmt.Errorf("write_rate_per_sec must not be negative, got %g", c.WriteRatePerSec))
	}
	if c.WriteRatePerSec > 0 && c.WriteBurst < 1 {
		errs = append(errs, fmt.Errorf("write_burst must be at least 1 when rate limiting, got %d", c.WriteBurst))
	}
	return errors.Join(errs...)
}

func (c Config) StorageTimeout() time.Duration {
	return time.Duration(c.StorageTimeoutMs) * time.Millisecond
}

func (c Config) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalSeconds) * time.Second
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}
