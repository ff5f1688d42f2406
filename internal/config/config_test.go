package config_test

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/nielslerches/ddd-scaffold/internal/config"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Provider)
	require.Equal(t, ":memory:", cfg.DSN)
	require.False(t, cfg.Debug)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	resetViper(t)

	os.Setenv("QUERYCTL_PROVIDER", "postgres")
	os.Setenv("QUERYCTL_DSN", "postgres://localhost/test")
	t.Cleanup(func() {
		os.Unsetenv("QUERYCTL_PROVIDER")
		os.Unsetenv("QUERYCTL_DSN")
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Provider)
	require.Equal(t, "postgres://localhost/test", cfg.DSN)
}

func TestLoadDotenvFile(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, os.WriteFile(".env", []byte("QUERYCTL_PROVIDER=mysql\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("QUERYCTL_PROVIDER") })

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, "mysql", cfg.Provider)
}
