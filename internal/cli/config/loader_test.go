package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.CorpusDir)
	assert.Equal(t, DefaultUnitMode, cfg.UnitMode)
	assert.Equal(t, "all", cfg.Sample)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, 5*time.Minute, cfg.UnitTimeout)
	assert.Equal(t, 10*time.Second, cfg.StatementTimeout)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, DefaultStateDSN, cfg.StateDSN)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlharvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpus_dir: /data/corpus
unit_mode: file
workers: 8
state_dsn: postgres://localhost/harvest
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/corpus", cfg.CorpusDir)
	assert.Equal(t, "file", cfg.UnitMode)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "postgres://localhost/harvest", cfg.StateDSN)
	assert.Equal(t, path, GetConfigFileUsed())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sqlharvest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 8\n"), 0o644))
	t.Setenv("SQLHARVEST_WORKERS", "16")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Workers)
}

func TestLoadFlagsOverrideEnv(t *testing.T) {
	t.Setenv("SQLHARVEST_WORKERS", "16")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", DefaultWorkers, "")
	flags.String("sample", "all", "")
	require.NoError(t, flags.Set("workers", "2"))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "all", cfg.Sample, "unchanged flags do not override")
}

func TestLoadRejectsBadUnitMode(t *testing.T) {
	t.Setenv("SQLHARVEST_UNIT_MODE", "directory")
	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unit_mode")
}
