// Package config reads server settings from the environment. A .env file in
// the working directory is loaded first if present.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr         string
	StoreDriver  string
	DatabaseURL  string
	JWTSecret    string
	QuestionsDir string
	PublicURL    string

	DefaultDepth int
	DefaultTimer int
	TimerOptions []int

	LogLevel  string
	LogFormat string
}

// Load reads .env (if any) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, collecting every bad value.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	var errs error
	atoi := func(k string, def int) int {
		raw := get(k, "")
		if raw == "" {
			return def
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s=%q: %w", k, raw, err))
			return def
		}
		return v
	}

	cfg := Config{
		Addr:         get("ADDR", ":8080"),
		StoreDriver:  strings.ToLower(get("STORE_DRIVER", DriverMemory)),
		DatabaseURL:  get("DATABASE_URL", ""),
		JWTSecret:    get("JWT_SECRET", ""),
		QuestionsDir: get("QUESTIONS_DIR", "questions"),
		PublicURL:    strings.TrimRight(get("PUBLIC_URL", "http://localhost:8080"), "/"),
		DefaultDepth: atoi("DEFAULT_DEPTH", 3),
		DefaultTimer: atoi("DEFAULT_TIMER_SECONDS", 0),
		LogLevel:     get("LOG_LEVEL", "info"),
		LogFormat:    get("LOG_FORMAT", "json"),
	}

	for _, part := range strings.Split(get("ROUND_TIMER_OPTIONS", "0,60,120,180"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			errs = multierr.Append(errs, fmt.Errorf("ROUND_TIMER_OPTIONS: bad value %q", part))
			continue
		}
		cfg.TimerOptions = append(cfg.TimerOptions, v)
	}

	switch cfg.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			errs = multierr.Append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	default:
		errs = multierr.Append(errs, fmt.Errorf("STORE_DRIVER=%q: want memory or postgres", cfg.StoreDriver))
	}

	return cfg, errs
}
