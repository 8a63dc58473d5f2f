package config

import (
	"fmt"
	"path/filepath"
	"strings"

	internal "github.com/bcdtools/barcode-collapse/bcc"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Collapse CollapseConfig `mapstructure:"collapse"`
	Output   OutputConfig   `mapstructure:"output"`
}

// CollapseConfig stores the collapse engine parameters.
type CollapseConfig struct {
	Workers         int    `mapstructure:"workers"`
	ReportInterval  int    `mapstructure:"reportInterval"`
	Verbose         bool   `mapstructure:"verbose"`
	FindIndels      bool   `mapstructure:"findIndels"`
	Mode            string `mapstructure:"mode"` // greedy | adaptive | bottomup
	EditDistance    int    `mapstructure:"editDistance"`
	MinEditDistance int    `mapstructure:"minEditDistance"`
	MaxEditDistance int    `mapstructure:"maxEditDistance"`
}

// OutputConfig stores where results go.
type OutputConfig struct {
	Path        string `mapstructure:"path"`        // cluster TSV, empty = stdout
	MetricsPath string `mapstructure:"metricsPath"` // adaptive metrics TSV
	DatabaseDSN string `mapstructure:"databaseDsn"` // empty = no persistence
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join("etc", internal.DefaultAppName))
		viper.AddConfigPath(internal.DefaultConfigPath)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Set default values
	viper.SetDefault("collapse.workers", internal.DefaultWorkers)
	viper.SetDefault("collapse.reportInterval", internal.DefaultReportInterval)
	viper.SetDefault("collapse.verbose", false)
	viper.SetDefault("collapse.findIndels", false)
	viper.SetDefault("collapse.mode", "greedy")
	viper.SetDefault("collapse.editDistance", internal.DefaultEditDistance)
	viper.SetDefault("collapse.minEditDistance", internal.DefaultAdaptiveMinDistance)
	viper.SetDefault("collapse.maxEditDistance", internal.DefaultAdaptiveMaxDistance)
	viper.SetDefault("output.path", "")
	viper.SetDefault("output.metricsPath", "")
	viper.SetDefault("output.databaseDsn", "")

	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // collapse.editDistance becomes COLLAPSE_EDITDISTANCE

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; defaults will be used.
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	err := viper.Unmarshal(&AppConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}
