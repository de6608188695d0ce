// Package config loads runtime settings from YAML and the environment.
//
// Environment variables, optionally read from .env files first, override
// values from the YAML file:
//
//	DETOUR_HOOK_FAIL_POLICY    ignore | throw | callback | terminate
//	DETOUR_INJECT_FAIL_POLICY  terminate | throw | callback
//	DETOUR_LOG_LEVEL           debug | info | warn | error
//	DETOUR_LOG_FORMAT          text | json | console
//	DETOUR_LOG_FILE            path of a rotating log file
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/danpasecinic/detour/internal/depends"
	"github.com/danpasecinic/detour/internal/hook"
)

const (
	EnvHookFailPolicy   = "DETOUR_HOOK_FAIL_POLICY"
	EnvInjectFailPolicy = "DETOUR_INJECT_FAIL_POLICY"
	EnvLogLevel         = "DETOUR_LOG_LEVEL"
	EnvLogFormat        = "DETOUR_LOG_FORMAT"
	EnvLogFile          = "DETOUR_LOG_FILE"
	EnvLogMaxSize       = "DETOUR_LOG_MAX_SIZE"
)

type Config struct {
	Hook   HookConfig   `yaml:"hook"`
	Inject InjectConfig `yaml:"inject"`
	Log    Log          `yaml:"log"`
}

type HookConfig struct {
	FailPolicy string `yaml:"fail_policy"`
}

type InjectConfig struct {
	FailPolicy string `yaml:"fail_policy"`
}

// Default is the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Hook:   HookConfig{FailPolicy: hook.FailIgnore.String()},
		Inject: InjectConfig{FailPolicy: depends.FailTerminate.String()},
		Log: Log{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads path, when not empty, and then applies the environment after
// loading envFiles. Missing .env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(data, cfg); err != nil {
			return nil, err
		}
	}

	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Unknown keys are rejected.
func Parse(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Hook.FailPolicy = env(EnvHookFailPolicy, c.Hook.FailPolicy)
	c.Inject.FailPolicy = env(EnvInjectFailPolicy, c.Inject.FailPolicy)
	c.Log.Level = env(EnvLogLevel, c.Log.Level)
	c.Log.Format = env(EnvLogFormat, c.Log.Format)
	c.Log.File = env(EnvLogFile, c.Log.File)
	c.Log.MaxSize = envInt(EnvLogMaxSize, c.Log.MaxSize)
}

func (c *Config) Validate() error {
	if _, err := c.HookFailPolicy(); err != nil {
		return err
	}
	if _, err := c.InjectFailPolicy(); err != nil {
		return err
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

func (c *Config) HookFailPolicy() (hook.FailPolicy, error) {
	return hook.ParseFailPolicy(c.Hook.FailPolicy)
}

func (c *Config) InjectFailPolicy() (depends.FailPolicy, error) {
	return depends.ParseFailPolicy(c.Inject.FailPolicy)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}
