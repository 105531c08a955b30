package config_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/punchclock/attendance"
	"github.com/warp/punchclock/config"
)

var keys = []string{
	"APP_PORT", "APP_ENV", "LOG_LEVEL", "DATABASE_URL", "SQLITE_PATH",
	"JWT_SECRET", "TOKEN_TTL", "HR_PASSWORD_HASH", "MGR_PASSWORD_HASH",
	"NIGHT_END", "LUNCH_POINT", "PAYROLL_TEMPLATE", "PUBLIC_BASE_URL", "CORS_ORIGINS",
}

// clearEnv blanks every variable; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, slog.LevelInfo, cfg.App.LogLevel)
	assert.Empty(t, cfg.App.CORSOrigins)
	assert.Equal(t, "attendance.db", cfg.Database.SQLitePath)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "http://localhost:8080", cfg.Kiosk.PublicBaseURL)

	assert.Equal(t, attendance.DefaultPolicy(), cfg.Policy())
	assert.Error(t, cfg.Validate(), "serve needs a secret")
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("NIGHT_END", "05:30")
	t.Setenv("LUNCH_POINT", "12")
	t.Setenv("PUBLIC_BASE_URL", "https://clock.example/")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MGR_PASSWORD_HASH", "$2a$10$abc")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, slog.LevelDebug, cfg.App.LogLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.CORSOrigins)
	assert.Equal(t, "https://clock.example", cfg.Kiosk.PublicBaseURL)
	assert.NoError(t, cfg.Validate())

	p := cfg.Policy()
	assert.Equal(t, "05:30", p.NightEnd.String())
	assert.True(t, p.LunchPoint.Equal(decimal.NewFromInt(12)))
}

func TestLoad_Invalid(t *testing.T) {
	for key, value := range map[string]string{
		"APP_PORT":    "eighty",
		"LOG_LEVEL":   "loud",
		"TOKEN_TTL":   "-1h",
		"NIGHT_END":   "4am",
		"LUNCH_POINT": "25",
	} {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := config.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid "+key)
		})
	}
}

func TestOpenStore_SQLite(t *testing.T) {
	clearEnv(t)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "punch.db"))

	cfg, err := config.Load()
	require.NoError(t, err)

	st, err := cfg.OpenStore(context.Background())
	require.NoError(t, err)
	defer st.Close()

	areas, err := st.ListAreas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, areas)
}
