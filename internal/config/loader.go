package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/tha-hammer/silmari/internal/types"
)

// Load reads configuration from a YAML file layered over the defaults and
// validates the result. A missing path returns the validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v := viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("yaml")

			if err := v.ReadInConfig(); err != nil {
				return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to read config file", err)
			}
			if err := v.Unmarshal(cfg); err != nil {
				return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to unmarshal config", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, types.WrapError(types.CONFIG_LOAD_FAILED, "failed to stat config file", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
