// Package config manages application configuration from files and environment.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Limits struct {
		CellCap           int           `mapstructure:"cell_cap"`
		CycleCap          int           `mapstructure:"cycle_cap"`
		MergeExpansionCap int           `mapstructure:"merge_expansion_cap"`
		TimeBudget        time.Duration `mapstructure:"time_budget"`
	} `mapstructure:"limits"`
	Risk struct {
		CrossSheetThreshold int       `mapstructure:"cross_sheet_threshold"`
		AllowedConstants    []float64 `mapstructure:"allowed_constants"`
	} `mapstructure:"risk"`
	Diff struct {
		KeyColumns []string `mapstructure:"key_columns"`
	} `mapstructure:"diff"`
	Output struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
}

// Load reads the configuration from ~/.gridlens/config.yaml and environment variables.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir())

	// Defaults
	v.SetDefault("limits.cell_cap", 100000)
	v.SetDefault("limits.cycle_cap", 100)
	v.SetDefault("limits.merge_expansion_cap", 2000)
	v.SetDefault("limits.time_budget", time.Minute)
	v.SetDefault("risk.cross_sheet_threshold", 2)
	v.SetDefault("diff.key_columns", []string{"A", "B"})
	v.SetDefault("output.color", true)
	v.SetDefault("output.format", "text")

	// Environment variable overrides
	v.SetEnvPrefix("GRIDLENS")
	v.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Dir returns the application configuration directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gridlens"
	}
	return filepath.Join(home, ".gridlens")
}
