/*
Package config reads the service configuration from the environment.

A .env file in the working directory is loaded first when present; real
environment variables win over it.

VARIABLES:
  APP_PORT            8080
  APP_ENV             development
  LOG_LEVEL           info (debug, info, warn, error)
  DATABASE_URL        PostgreSQL DSN; when set, SQLITE_PATH is ignored
  SQLITE_PATH         attendance.db
  JWT_SECRET          required by serve
  TOKEN_TTL           12h
  HR_PASSWORD_HASH    bcrypt hash, see `punchclock hash-password`
  MGR_PASSWORD_HASH   bcrypt hash
  NIGHT_END           04:00
  LUNCH_POINT         13
  PAYROLL_TEMPLATE    optional .xlsx the payroll sheets are added to
  PUBLIC_BASE_URL     http://localhost:8080, encoded in the kiosk QR code
  CORS_ORIGINS        comma-separated, empty allows all
*/
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/store"
	"github.com/warp/punchclock/store/postgres"
	"github.com/warp/punchclock/store/sqlite"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Kiosk    KioskConfig
	// PayrollTemplate is the path of an optional template workbook.
	PayrollTemplate string
}

type AppConfig struct {
	Port        int
	Env         string
	LogLevel    slog.Level
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL        string
	SQLitePath string
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTL        time.Duration
	HRPasswordHash  string
	MgrPasswordHash string
}

type EngineConfig struct {
	NightEnd   attendance.ClockTime
	LunchPoint int
}

type KioskConfig struct {
	PublicBaseURL string
}

// Load reads .env (if any) and the environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	cfg.App = AppConfig{
		Port:        port,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    level,
		CORSOrigins: getEnvSlice("CORS_ORIGINS"),
	}

	cfg.Database = DatabaseConfig{
		URL:        getEnv("DATABASE_URL", ""),
		SQLitePath: getEnv("SQLITE_PATH", "attendance.db"),
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL: must be positive")
	}
	cfg.Auth = AuthConfig{
		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        ttl,
		HRPasswordHash:  getEnv("HR_PASSWORD_HASH", ""),
		MgrPasswordHash: getEnv("MGR_PASSWORD_HASH", ""),
	}

	nightEnd, err := attendance.ParseClock(getEnv("NIGHT_END", "04:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid NIGHT_END: %w", err)
	}
	lunch, err := strconv.Atoi(getEnv("LUNCH_POINT", "13"))
	if err != nil {
		return nil, fmt.Errorf("invalid LUNCH_POINT: %w", err)
	}
	if lunch < 0 || lunch > 23 {
		return nil, fmt.Errorf("invalid LUNCH_POINT: %d is not an hour of the day", lunch)
	}
	cfg.Engine = EngineConfig{NightEnd: nightEnd, LunchPoint: lunch}

	cfg.Kiosk = KioskConfig{
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
	}
	cfg.PayrollTemplate = getEnv("PAYROLL_TEMPLATE", "")

	return cfg, nil
}

// Validate checks what the HTTP server needs on top of Load.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.HRPasswordHash == "" && c.Auth.MgrPasswordHash == "" {
		return errors.New("at least one of HR_PASSWORD_HASH, MGR_PASSWORD_HASH is required")
	}
	return nil
}

// Policy builds the engine policy.
func (c *Config) Policy() attendance.Policy {
	return attendance.DefaultPolicy().
		WithNightEnd(c.Engine.NightEnd).
		WithLunchPoint(c.Engine.LunchPoint)
}

// OpenStore opens PostgreSQL when DATABASE_URL is set and SQLite otherwise.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	if c.Database.URL != "" {
		st, err := postgres.New(ctx, c.Database.URL)
		if err != nil {
			return nil, err
		}
		return st, nil
	}
	st, err := sqlite.New(c.Database.SQLitePath)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
