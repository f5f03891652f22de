package config

import (
	"errors"
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"strings"
	"time"
)

type BoardConfig struct {
	LayoutBreakpoint int           `mapstructure:"layout_breakpoint"`
	SeparatorGap     time.Duration `mapstructure:"separator_gap"`
}

func (config *BoardConfig) validate() error {
	var errs []error
	if config.LayoutBreakpoint <= 0 {
		errs = append(errs, errors.New("layout_breakpoint must be greater than zero"))
	}
	if config.SeparatorGap <= 0 {
		errs = append(errs, errors.New("separator_gap must be greater than zero"))
	}
	return errors.Join(errs...)
}

func (config *BoardConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("board.layout_breakpoint", "BOARD_LAYOUT_BREAKPOINT")
}

type SyncConfig struct {
	ResyncCron         string  `mapstructure:"resync_cron"`
	ReconnectPerMinute float64 `mapstructure:"reconnect_per_minute"`
}

func (config *SyncConfig) validate() error {
	var errs []error
	if _, err := cron.ParseStandard(config.ResyncCron); err != nil {
		errs = append(errs, fmt.Errorf("invalid resync_cron: %w", err))
	}
	if config.ReconnectPerMinute <= 0 {
		errs = append(errs, errors.New("reconnect_per_minute must be greater than zero"))
	}
	return errors.Join(errs...)
}

func (config *SyncConfig) bindEnvironmentVariables(v *viper.Viper) error {
	return v.BindEnv("sync.resync_cron", "RESYNC_CRON")
}

type SessionConfig struct {
	ViewerEmail string `mapstructure:"viewer_email"`
	ViewerRole  string `mapstructure:"viewer_role"`
}

func (config *SessionConfig) Viewer() (models.Viewer, error) {
	role, err := models.ToRole(config.ViewerRole)
	if err != nil {
		return models.Viewer{}, err
	}
	return models.NewViewer(config.ViewerEmail, role), nil
}

func (config *SessionConfig) validate() error {
	var missingFields []string

	if strings.TrimSpace(config.ViewerEmail) == "" {
		missingFields = append(missingFields, "viewer_email")
	}

	if config.ViewerRole == "" {
		missingFields = append(missingFields, "viewer_role")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	_, err := config.Viewer()
	return err
}

func (config *SessionConfig) bindEnvironmentVariables(v *viper.Viper) error {
	var errs []error
	if err := v.BindEnv("session.viewer_email", "VIEWER_EMAIL"); err != nil {
		errs = append(errs, err)
	}

	if err := v.BindEnv("session.viewer_role", "VIEWER_ROLE"); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// FeaturesConfig gates optional parts of the session shell.
type FeaturesConfig struct {
	KanbanEnabled     bool `mapstructure:"kanban_enabled"`
	MessagingEnabled  bool `mapstructure:"messaging_enabled"`
	KeyboardShortcuts bool `mapstructure:"keyboard_shortcuts"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}
