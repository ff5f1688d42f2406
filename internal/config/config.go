// Package config loads the relational backend's connection profile and
// the CLI's debug toggle from a layered source: environment variables
// take precedence over a ".env" file, which takes precedence over an
// optional "~/.queryctl" profile file.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds everything the relational backend and cmd/queryctl need
// to connect and report.
type Config struct {
	// Provider is one of "postgres", "mysql", "sqlite" (relational.DialectFor).
	Provider string
	// DSN is the driver-specific connection string (database/sql.Open's
	// dataSourceName). Defaults to an in-memory SQLite database so the
	// CLI runs with no setup.
	DSN string
	// Debug enables the slog debug logger (internal/debug).
	Debug bool
}

// Load reads Provider/DSN/Debug from the environment, falling back to a
// ".env" file in the working directory and then to a "~/.queryctl"
// profile file, in that precedence order. Missing files are not an
// error — only read errors on a file that does exist are.
func Load() (*Config, error) {
	if err := loadDotenv(".env"); err != nil {
		return nil, err
	}

	home, err := homedir.Dir()
	if err == nil {
		if err := loadDotenv(filepath.Join(home, ".queryctl")); err != nil {
			return nil, err
		}
	}

	viper.SetEnvPrefix("QUERYCTL")
	viper.AutomaticEnv()
	viper.BindEnv("provider", "QUERYCTL_PROVIDER")
	viper.BindEnv("dsn", "QUERYCTL_DSN")
	viper.BindEnv("debug", "QUERYCTL_DEBUG")

	viper.SetDefault("provider", "sqlite")
	viper.SetDefault("dsn", ":memory:")
	viper.SetDefault("debug", false)

	return &Config{
		Provider: viper.GetString("provider"),
		DSN:      viper.GetString("dsn"),
		Debug:    viper.GetBool("debug"),
	}, nil
}

// loadDotenv reads a dotenv-format file at path, if it exists, and sets
// each variable in the process environment without overwriting a
// variable already set (so real environment variables always win, per
// the precedence order Load documents).
func loadDotenv(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return err
	}
	for k, v := range envMap {
		if _, set := os.LookupEnv(k); !set {
			os.Setenv(k, v)
		}
	}
	return nil
}
