package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
	"github.com/jmehdipour/crm-analytics/internal/gbdt"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 1000, cfg.Warehouse.InsertBatchSize)
	assert.Equal(t, 5*time.Second, cfg.MySQL.PingTimeout)
	assert.Equal(t, "file", cfg.ModelStore.Backend)
	assert.Equal(t, 0.01, cfg.Outlier.Threshold)
	assert.Equal(t, gbdt.DefaultParams(), cfg.Churn.Params)
	assert.False(t, cfg.ClickHouse.Enabled())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("warehouse:\n  admin_schema: ADMIN_X\nchurn:\n  period_days: 120\n"), 0o600))
	t.Setenv("CRM_MYSQL_DSN", "u:p@tcp(db:3306)/crm")
	t.Setenv("CRM_CHURN_PARAMS_NUM_LEAVES", "15")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ADMIN_X", cfg.Warehouse.AdminSchema)
	assert.Equal(t, 120, cfg.Churn.PeriodDays)
	assert.Equal(t, "u:p@tcp(db:3306)/crm", cfg.MySQL.DSN)
	assert.Equal(t, 15, cfg.Churn.Params.NumLeaves)
	assert.Equal(t, 0.05, cfg.Churn.Params.LearningRate, "untouched params keep their defaults")
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CRM_REDIS_ADDR=cache:6379\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CRM_REDIS_ADDR") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Config){
		"no admin schema":      func(c *Config) { c.Warehouse.AdminSchema = "" },
		"zero batch":           func(c *Config) { c.Warehouse.InsertBatchSize = 0 },
		"threshold too large":  func(c *Config) { c.Outlier.Threshold = 1 },
		"unknown store":        func(c *Config) { c.ModelStore.Backend = "s3" },
		"redis store no redis": func(c *Config) { c.ModelStore.Backend = "redis" },
		"no period":            func(c *Config) { c.Churn.PeriodDays = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := base
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), apperrors.ErrConfigInvalid)
		})
	}
}
