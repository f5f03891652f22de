package config

import (
	"errors"
	"github.com/spf13/viper"
	"strings"
)

type RedisConfig struct {
	Address       string `mapstructure:"address"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// Enabled reports whether the cross-process live channel is configured.
// Without it live updates stay in-process.
func (config *RedisConfig) Enabled() bool {
	return strings.TrimSpace(config.Address) != ""
}

func (config *RedisConfig) validate() error {
	if config.DB < 0 {
		return errors.New("redis db index must not be negative")
	}
	if config.Enabled() && strings.TrimSpace(config.ChannelPrefix) == "" {
		return errors.New("missing variable: channel_prefix")
	}
	return nil
}

func (config *RedisConfig) bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error
	if err := v.BindEnv("redis.address", "REDIS_ADDRESS"); err != nil {
		errs = append(errs, err)
	}
	if err := v.BindEnv("redis.password", "REDIS_PASSWORD"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
