package config

import (
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

// Config is read once at startup and passed down explicitly. Nothing mutates it at runtime;
// changing a value requires a restart.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger"`
	DB       DBConfig       `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Board    BoardConfig    `mapstructure:"board"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Session  SessionConfig  `mapstructure:"session"`
	Features FeaturesConfig `mapstructure:"features"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type section interface {
	validate() error
	bindEnvironmentVariables(v *viper.Viper) error
}

var defaultConfigFile = "./configs/config.yaml"

func Get() *Config {

	configFile := defaultConfigFile
	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		configFile = value
	}

	config, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func loadConfig(file string) (*Config, error) {

	v := viper.New()
	v.SetConfigFile(file)
	v.AutomaticEnv()
	setDefaults(v)

	config := Config{}
	if err := bindEnvironmentVariables(v, config.sections()); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.log_level", LevelInfo)
	v.SetDefault("logger.output_file", "./logs/pipeline.log")
	v.SetDefault("redis.channel_prefix", "live")
	v.SetDefault("board.layout_breakpoint", 1024)
	v.SetDefault("board.separator_gap", "5m")
	v.SetDefault("sync.resync_cron", "*/15 * * * *")
	v.SetDefault("sync.reconnect_per_minute", 6)
	v.SetDefault("features.kanban_enabled", true)
	v.SetDefault("features.messaging_enabled", true)
	v.SetDefault("features.keyboard_shortcuts", true)
	v.SetDefault("metrics.address", ":8080")
}

func (config *Config) sections() map[string]section {
	return map[string]section{
		"LoggerConfig":  &config.Logger,
		"DBConfig":      &config.DB,
		"RedisConfig":   &config.Redis,
		"BoardConfig":   &config.Board,
		"SyncConfig":    &config.Sync,
		"SessionConfig": &config.Session,
	}
}

func bindEnvironmentVariables(v *viper.Viper, sections map[string]section) error {
	var errs []error

	for name, s := range sections {
		if err := s.bindEnvironmentVariables(v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config *Config) validate() error {
	var errs []error

	for name, s := range config.sections() {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}
