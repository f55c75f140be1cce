package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		t.Setenv("BIZ_JWT_SECRET", testSecret)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "bizcore-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "bizcore", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "", cfg.Redis.Host)
		assert.Equal(t, 10*time.Second, cfg.PlanState.CacheTTL)
		assert.Equal(t, int64(80), cfg.PlanState.WarningPercent)
		assert.Equal(t, "START", cfg.PlanState.DefaultPlan)
	})

	t.Run("loads values from environment variables with BIZ prefix", func(t *testing.T) {
		t.Setenv("BIZ_JWT_SECRET", testSecret)
		t.Setenv("BIZ_APP_PORT", "9000")
		t.Setenv("BIZ_DATABASE_HOST", "testdb.local")
		t.Setenv("BIZ_DATABASE_PORT", "5433")
		t.Setenv("BIZ_REDIS_HOST", "cache.local")
		t.Setenv("BIZ_PLAN_STATE_CACHE_TTL", "30s")
		t.Setenv("BIZ_PLAN_STATE_WARNING_PERCENT", "90")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "cache.local:6379", cfg.Redis.Addr())
		assert.Equal(t, 30*time.Second, cfg.PlanState.CacheTTL)
		assert.Equal(t, int64(90), cfg.PlanState.WarningPercent)
	})

	t.Run("requires a jwt secret", func(t *testing.T) {
		t.Setenv("BIZ_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret")
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		t.Setenv("BIZ_JWT_SECRET", testSecret)
		t.Setenv("BIZ_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("BIZ_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects warning percent above 100", func(t *testing.T) {
		t.Setenv("BIZ_JWT_SECRET", testSecret)
		t.Setenv("BIZ_PLAN_STATE_WARNING_PERCENT", "120")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "warning_percent")
	})
}

func TestValidate_Production(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		cfg.App.Env = "production"
		cfg.JWT.Secret = testSecret
		cfg.Database.Password = "secret"
		cfg.Database.SSLMode = "require"
		return cfg
	}

	require.NoError(t, base().validate())

	cfg := base()
	cfg.JWT.Secret = "short"
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.Database.SSLMode = "disable"
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.HTTP.CORSAllowOrigins = []string{"*"}
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.Telemetry.DBLogFullSQL = true
	assert.Error(t, cfg.validate())

	cfg = base()
	cfg.Profiling.Enabled = true
	assert.Error(t, cfg.validate())
	cfg.Profiling.ServerAddress = "http://pyroscope:4040"
	assert.NoError(t, cfg.validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss word", DBName: "bizcore", SSLMode: "disable"}

	assert.Equal(t, "postgres://app:p%40ss%20word@db:5432/bizcore?sslmode=disable", d.DSN())
}
