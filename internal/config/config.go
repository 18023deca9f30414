package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	KeyImage      = "image"
	KeyLogLevel   = "log_level"
	KeyLogFile    = "log_file"
	KeyStrictLock = "strict_lock"

	DefaultImage = "flash.img"
)

// Config holds the run-time settings of the CLI. Partition boundaries are
// not part of it: they are fixed when the binary is linked.
type Config struct {
	Image      string `mapstructure:"image"`
	LogLevel   string `mapstructure:"log_level"`
	LogFile    string `mapstructure:"log_file"`
	StrictLock bool   `mapstructure:"strict_lock"`
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"image":       KeyImage,
	"log-level":   KeyLogLevel,
	"log-file":    KeyLogFile,
	"strict-lock": KeyStrictLock,
}

// Load resolves the configuration from, in decreasing priority, the flags
// explicitly set, FLASHPART_* environment variables, the config file and
// the defaults. An empty configFile searches flashpart.yaml in the usual
// places and tolerates its absence.
func Load(flags *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault(KeyImage, DefaultImage)
	v.SetDefault(KeyLogLevel, "INFO")
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyStrictLock, false)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("flashpart")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.flashpart")
		v.AddConfigPath("/etc/flashpart")
	}

	v.SetEnvPrefix("FLASHPART")
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("error binding flag %q: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}
