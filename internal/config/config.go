// Package config resolves runtime settings from defaults, an optional YAML
// file and PLANNERD_ environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PLANNERD_"

type RuntimeConfig struct {
	Storage              StorageConfig `yaml:"storage" mapstructure:"storage"`
	Timezone             string        `yaml:"timezone" mapstructure:"timezone"`
	TickInterval         time.Duration `yaml:"tick_interval" mapstructure:"tick_interval"`
	SkipMissed           bool          `yaml:"skip_missed" mapstructure:"skip_missed"`
	SchedulerBuffer      int           `yaml:"scheduler_buffer" mapstructure:"scheduler_buffer"`
	DesktopNotifications bool          `yaml:"desktop_notifications" mapstructure:"desktop_notifications"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	Log                  LogConfig     `yaml:"log" mapstructure:"log"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"`
	Path    string `yaml:"path" mapstructure:"path"`
}

type LogConfig struct {
	Level    string `yaml:"level" mapstructure:"level"`
	Encoding string `yaml:"encoding" mapstructure:"encoding"`
	// File receives log output when set. The TUI always logs to a file.
	File string `yaml:"file" mapstructure:"file"`
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "./data/plannerd.db",
		},
		Timezone:             "Local",
		TickInterval:         30 * time.Second,
		SkipMissed:           false,
		SchedulerBuffer:      64,
		DesktopNotifications: false,
		ShutdownTimeout:      10 * time.Second,
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
	}
}

// Load builds the effective configuration. path names a YAML file; when empty
// PLANNERD_CONFIG is consulted, and a missing file is not an error.
func Load(path string) (RuntimeConfig, error) {
	_ = godotenv.Load(".env")

	cfg := DefaultRuntimeConfig()
	if path == "" {
		path = strings.TrimSpace(os.Getenv(envPrefix + "CONFIG"))
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return RuntimeConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	cfg = RuntimeConfigFromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return RuntimeConfig{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *RuntimeConfig) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}
	return v.Unmarshal(cfg)
}

func RuntimeConfigFromEnv(base RuntimeConfig) RuntimeConfig {
	cfg := base
	if v, ok := getEnvString("STORAGE_BACKEND"); ok {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v, ok := getEnvString("STORAGE_PATH"); ok {
		cfg.Storage.Path = v
	}
	if v, ok := getEnvString("TIMEZONE"); ok {
		cfg.Timezone = v
	}
	if v, ok := getEnvDuration("TICK_INTERVAL"); ok && v > 0 {
		cfg.TickInterval = v
	}
	if v, ok := getEnvBool("SKIP_MISSED"); ok {
		cfg.SkipMissed = v
	}
	if v, ok := getEnvInt("SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvBool("DESKTOP_NOTIFICATIONS"); ok {
		cfg.DesktopNotifications = v
	}
	if v, ok := getEnvDuration("SHUTDOWN_TIMEOUT"); ok && v > 0 {
		cfg.ShutdownTimeout = v
	}
	if v, ok := getEnvString("LOG_LEVEL"); ok {
		cfg.Log.Level = v
	}
	if v, ok := getEnvString("LOG_ENCODING"); ok {
		cfg.Log.Encoding = v
	}
	if v, ok := getEnvString("LOG_FILE"); ok {
		cfg.Log.File = v
	}
	return cfg
}

func (c RuntimeConfig) Validate() error {
	switch c.Storage.Backend {
	case "sqlite", "bolt":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("config: storage path is required")
	}
	if c.TickInterval < time.Second {
		return fmt.Errorf("config: tick interval %s is below one second", c.TickInterval)
	}
	if c.SchedulerBuffer <= 0 {
		return errors.New("config: scheduler buffer must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the host zone.
func (c RuntimeConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", name, err)
	}
	return loc, nil
}

// YAML renders the effective configuration for `plannerd config show`.
func (c RuntimeConfig) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func getEnvString(name string) (string, bool) {
	raw := strings.TrimSpace(os.Getenv(envPrefix + name))
	return raw, raw != ""
}

func getEnvInt(name string) (int, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return false, false
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func getEnvDuration(name string) (time.Duration, bool) {
	raw, ok := getEnvString(name)
	if !ok {
		return 0, false
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, true
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second, true
	}
	return 0, false
}
