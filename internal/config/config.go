// Package config loads formcheck settings from a TOML file, an optional .env
// file and FORMCHECK_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ayusman/formcheck/internal/exercise"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FORMCHECK_"

type Config struct {
	// Exercise is the default exercise for runs that do not name one.
	Exercise string `toml:"exercise"`
	// KeepHistory keeps previous runs in the sinks instead of clearing them.
	KeepHistory bool `toml:"keep_history"`

	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
	Storage StorageConfig `toml:"storage"`
	Pose    PoseConfig    `toml:"pose"`
	Hooks   HooksConfig   `toml:"hooks"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type LoggingConfig struct {
	Level    string `toml:"level"`
	File     string `toml:"file"`
	ToStdout bool   `toml:"to_stdout"`
	JSON     bool   `toml:"json"`
}

type StorageConfig struct {
	DataDir string `toml:"data_dir"`
	// DBPath defaults to formcheck.db in DataDir.
	DBPath string `toml:"db_path"`
	// CSVLog is the workout log path; empty disables it.
	CSVLog string `toml:"csv_log"`
}

type PoseConfig struct {
	PythonPath    string  `toml:"python_path"`
	ScriptPath    string  `toml:"script_path"`
	MinConfidence float64 `toml:"min_confidence"`
	VideoWidth    int     `toml:"video_width"`
}

type HooksConfig struct {
	Dir       string `toml:"dir"`
	TimeoutMs int    `toml:"timeout_ms"`
	Strict    bool   `toml:"strict"`
}

// Timeout returns the hook timeout as a duration.
func (c HooksConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Exercise: string(exercise.Squat),
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:    "info",
			ToStdout: true,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
			CSVLog:  filepath.Join(dataDir, "logs", "workout_log.csv"),
		},
		Pose: PoseConfig{
			MinConfidence: 0.5,
			VideoWidth:    640,
		},
		Hooks: HooksConfig{
			Dir:       filepath.Join(dataDir, "hooks"),
			TimeoutMs: 5000,
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".formcheck"
	}
	return filepath.Join(home, ".formcheck")
}

// Load reads the TOML file at path on top of Default, then applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// DBPath returns the database path, falling back to the data directory.
func (c *Config) DBPath() string {
	if c.Storage.DBPath != "" {
		return c.Storage.DBPath
	}
	return filepath.Join(c.Storage.DataDir, "formcheck.db")
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("EXERCISE", &c.Exercise)
	str("HOST", &c.Server.Host)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FILE", &c.Logging.File)
	str("DATA_DIR", &c.Storage.DataDir)
	str("DB_PATH", &c.Storage.DBPath)
	str("CSV_LOG", &c.Storage.CSVLog)
	str("PYTHON", &c.Pose.PythonPath)
	str("POSE_SCRIPT", &c.Pose.ScriptPath)
	str("HOOKS_DIR", &c.Hooks.Dir)

	if err := boolean("KEEP_HISTORY", &c.KeepHistory); err != nil {
		return err
	}
	if err := boolean("LOG_JSON", &c.Logging.JSON); err != nil {
		return err
	}
	if err := integer("PORT", &c.Server.Port); err != nil {
		return err
	}
	if err := integer("HOOK_TIMEOUT_MS", &c.Hooks.TimeoutMs); err != nil {
		return err
	}

	if v, ok := lookup(EnvPrefix + "MIN_CONFIDENCE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sMIN_CONFIDENCE: %w", EnvPrefix, err)
		}
		c.Pose.MinConfidence = f
	}
	return nil
}

// Validate checks value ranges and the default exercise.
func (c *Config) Validate() error {
	if c.Exercise != "" {
		if _, err := exercise.Parse(c.Exercise); err != nil {
			return fmt.Errorf("config exercise: %w", err)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config server port %d out of range", c.Server.Port)
	}
	if c.Pose.MinConfidence < 0 || c.Pose.MinConfidence > 1 {
		return fmt.Errorf("config pose min_confidence %v not in [0, 1]", c.Pose.MinConfidence)
	}
	if c.Pose.VideoWidth < 0 {
		return fmt.Errorf("config pose video_width %d is negative", c.Pose.VideoWidth)
	}
	if c.Hooks.TimeoutMs <= 0 {
		return fmt.Errorf("config hooks timeout_ms must be positive, got %d", c.Hooks.TimeoutMs)
	}
	return nil
}
