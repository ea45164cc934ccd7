// Package config reads server settings from the environment.
//
// An optional .env file in the working directory is loaded first; variables
// already set in the environment take precedence over it.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/blang/semver"
	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvLogLevel      = "LINE_PROFILE_LOG_LEVEL"
	EnvDisplayWidth  = "LINE_PROFILE_DISPLAY_WIDTH"
	EnvDisplayHeight = "LINE_PROFILE_DISPLAY_HEIGHT"
	EnvMaxValue      = "LINE_PROFILE_MAX_VALUE"
)

// MaxValueLimit is the largest scalar clamp accepted from the environment or
// a request.
const MaxValueLimit = 65535

// Config holds the server settings.
type Config struct {
	LogLevel      slog.Level
	DisplayWidth  int
	DisplayHeight int
	MaxValue      float64
}

// Default returns the settings used when nothing is configured. The display
// box matches an 800x600 canvas.
func Default() Config {
	return Config{
		LogLevel:      slog.LevelWarn,
		DisplayWidth:  800,
		DisplayHeight: 600,
		MaxValue:      255,
	}
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, starting from Default.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvLogLevel); v != "" {
		lvl, err := parseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = lvl
	}

	var err error
	if cfg.DisplayWidth, err = positiveInt(getenv, EnvDisplayWidth, cfg.DisplayWidth); err != nil {
		return cfg, err
	}
	if cfg.DisplayHeight, err = positiveInt(getenv, EnvDisplayHeight, cfg.DisplayHeight); err != nil {
		return cfg, err
	}

	if v := getenv(EnvMaxValue); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f > 0 && f <= MaxValueLimit) {
			return cfg, fmt.Errorf("%s must be a number in (0, %d], got %q", EnvMaxValue, MaxValueLimit, v)
		}
		cfg.MaxValue = f
	}

	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%s: unknown level %q", EnvLogLevel, s)
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

// NormalizeVersion turns a build version such as "v1.2" or "dev" into a
// semantic version string. Unparseable versions become "0.0.0-<input>".
func NormalizeVersion(v string) string {
	sv, err := semver.ParseTolerant(v)
	if err != nil {
		pre, perr := semver.NewPRVersion(sanitizePre(v))
		if perr != nil {
			return "0.0.0"
		}
		return semver.Version{Pre: []semver.PRVersion{pre}}.String()
	}
	return sv.String()
}

func sanitizePre(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
