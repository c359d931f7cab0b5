package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

// Config holds everything tunable from flags, environment, or file.
// Precedence follows viper: flags, then NETRIAGE_ environment variables,
// then the config file, then defaults.
type Config struct {
	CaptureDir      string `mapstructure:"capture_dir"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	LogFile         string `mapstructure:"log_file"`
	GridLimit       int    `mapstructure:"grid_limit"`
	WatchDebounceMs int    `mapstructure:"watch_debounce_ms"`
}

func Default() *Config {
	return &Config{
		CaptureDir:      ".",
		LogLevel:        "info",
		LogFormat:       "text",
		GridLimit:       50,
		WatchDebounceMs: 500,
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("netriage")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix("NETRIAGE")
	viper.AutomaticEnv()

	// Environment lookups only resolve for keys viper already knows, so
	// every key gets its default registered.
	viper.SetDefault("capture_dir", cfg.CaptureDir)
	viper.SetDefault("log_level", cfg.LogLevel)
	viper.SetDefault("log_format", cfg.LogFormat)
	viper.SetDefault("log_file", cfg.LogFile)
	viper.SetDefault("grid_limit", cfg.GridLimit)
	viper.SetDefault("watch_debounce_ms", cfg.WatchDebounceMs)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Netriage")
	case "darwin":
		return "/Library/Application Support/Netriage"
	default:
		return "/etc/netriage"
	}
}
