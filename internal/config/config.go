package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"
)

const (
	// FileName is the config file looked up in the working directory.
	FileName = "appcore.cue"
	// EnvPrefix prefixes environment overrides, e.g. APPCORE_HTTP_TIMEOUT.
	EnvPrefix = "APPCORE"
)

// Config holds every runtime setting.
type Config struct {
	LogLevel string        `mapstructure:"log_level" json:"log_level"`
	Journal  JournalConfig `mapstructure:"journal" json:"journal"`
	HTTP     HTTPConfig    `mapstructure:"http" json:"http"`
	Script   ScriptConfig  `mapstructure:"script" json:"script"`
}

// JournalConfig locates the invocation journal. An empty path disables it.
type JournalConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// HTTPConfig tunes the outgoing transport.
type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" json:"rate_limit"`
	Burst     int     `mapstructure:"burst" json:"burst"`
}

// ScriptConfig bounds scripted performs.
type ScriptConfig struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
			Burst:   1,
		},
		Script: ScriptConfig{
			Timeout: 10 * time.Second,
		},
	}
}

// LoadOptions selects where configuration comes from.
type LoadOptions struct {
	// FilePath forces a config file. It must exist.
	FilePath string
	// Dir is searched for FileName when FilePath is empty. Defaults to ".".
	Dir string
	// Env overrides os.LookupEnv, for tests.
	Env func(key string) (string, bool)
}

// Load resolves the configuration. It returns the config and the path of
// the file that was read, or "" when only defaults and env applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("journal.path", defaults.Journal.Path)
	v.SetDefault("http.timeout", defaults.HTTP.Timeout)
	v.SetDefault("http.rate_limit", defaults.HTTP.RateLimit)
	v.SetDefault("http.burst", defaults.HTTP.Burst)
	v.SetDefault("script.timeout", defaults.Script.Timeout)

	path, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", fmt.Errorf("load config %s: %w", path, err)
		}
	}

	if err := applyEnv(v, opts.Env); err != nil {
		return nil, "", err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	return &cfg, path, nil
}

// Validate checks constraints the schema cannot express on env overrides.
func (c *Config) Validate() error {
	var errs []error
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout))
	}
	if c.HTTP.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("http.rate_limit must not be negative, got %v", c.HTTP.RateLimit))
	}
	if c.HTTP.Burst < 0 {
		errs = append(errs, fmt.Errorf("http.burst must not be negative, got %d", c.HTTP.Burst))
	}
	if c.Script.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("script.timeout must be positive, got %s", c.Script.Timeout))
	}
	return errors.Join(errs...)
}

func resolvePath(opts LoadOptions) (string, error) {
	if opts.FilePath != "" {
		if !fileExists(opts.FilePath) {
			return "", fmt.Errorf("config file not found: %s", opts.FilePath)
		}
		return opts.FilePath, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	candidate := dir + string(os.PathSeparator) + FileName
	if fileExists(candidate) {
		return candidate, nil
	}
	return "", nil
}

// Keys that may be overridden from the environment.
var envKeys = []string{
	"log_level",
	"journal.path",
	"http.timeout",
	"http.rate_limit",
	"http.burst",
	"script.timeout",
}

// EnvName returns the environment variable for a config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func applyEnv(v *viper.Viper, lookup func(string) (string, bool)) error {
	if lookup == nil {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		return nil
	}
	for _, key := range envKeys {
		if val, ok := lookup(EnvName(key)); ok {
			v.Set(key, val)
		}
	}
	return nil
}

func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return userValue.Err()
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Config")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return err
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
