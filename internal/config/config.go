// Package config loads samosac.toml and applies SAMOSAC_* environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"
)

// FileName is the project configuration file looked up in the project root.
const FileName = "samosac.toml"

type Config struct {
	Build BuildConfig `toml:"build"`
	Run   RunConfig   `toml:"run"`
	Trace TraceConfig `toml:"trace"`
	Serve ServeConfig `toml:"serve"`
}

type BuildConfig struct {
	OutputDir string `toml:"output_dir"`
	Cache     bool   `toml:"cache"`
	CachePath string `toml:"cache_path"`
	Jobs      int    `toml:"jobs"`
}

type RunConfig struct {
	MaxSteps int64 `toml:"max_steps"`
	Verify   bool  `toml:"verify"`
}

type ServeConfig struct {
	Addr string `toml:"addr"`
	// AllowedOrigins lists browser origins, besides the server's own
	// host, that may open a playground session.
	AllowedOrigins []string `toml:"allowed_origins"`
}

type TraceConfig struct {
	// Level is one of error, info, debug.
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			OutputDir: "build",
			Cache:     true,
			CachePath: filepath.Join(".samosac", "cache.db"),
			Jobs:      runtime.NumCPU(),
		},
		Run: RunConfig{
			MaxSteps: 10_000_000,
			Verify:   true,
		},
		Trace: TraceConfig{Level: "error"},
		Serve: ServeConfig{
			Addr:           "localhost:8080",
			AllowedOrigins: []string{},
		},
	}
}

// Load reads FileName from dir, falling back to Default for a missing
// file, and applies environment overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Build.OutputDir = env.Str("SAMOSAC_OUTPUT_DIR", c.Build.OutputDir)
	if env.Has("SAMOSAC_CACHE") {
		c.Build.Cache = env.Bool("SAMOSAC_CACHE")
	}
	c.Build.CachePath = env.Str("SAMOSAC_CACHE_PATH", c.Build.CachePath)
	c.Build.Jobs = env.Int("SAMOSAC_JOBS", c.Build.Jobs)
	c.Run.MaxSteps = env.Int64("SAMOSAC_MAX_STEPS", c.Run.MaxSteps)
	c.Trace.Level = env.Str("SAMOSAC_TRACE", c.Trace.Level)
	c.Serve.Addr = env.Str("SAMOSAC_SERVE_ADDR", c.Serve.Addr)
	if origins := env.Str("SAMOSAC_ALLOWED_ORIGINS"); origins != "" {
		c.Serve.AllowedOrigins = strings.Split(origins, ",")
	}
}

// Validate rejects settings no command can work with.
func (c *Config) Validate() error {
	if c.Build.Jobs < 1 {
		return fmt.Errorf("build.jobs must be at least 1, got %d", c.Build.Jobs)
	}
	switch c.Trace.Level {
	case "error", "info", "debug":
	default:
		return fmt.Errorf("trace.level must be error, info or debug, got %q", c.Trace.Level)
	}
	return nil
}

// Save writes c as FileName into dir.
func Save(dir string, c *Config) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
