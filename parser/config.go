package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Package-level validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// finite rejects NaN and infinities
	validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
}

// Config holds the settings of a Parser.
type Config struct {
	ReplaceInvalidValues bool      `yaml:"replaceInvalidValues"`
	ReplacementValue     float64   `yaml:"replacementValue" default:"0" validate:"finite"`
	MeterName            string    `yaml:"meterName" default:"github.com/BDNK1/vecexpr" validate:"required"`
	Log                  LogConfig `yaml:"log"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"default" validate:"oneof=default text json otel"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	// Defaults are static tags on Config, applying them cannot fail.
	_ = ApplyDefaults(&cfg)
	return cfg
}

// InitializeConfig applies defaults, merges raw values and validates the
// result, in that order.
func InitializeConfig(cfg *Config, rawValues map[string]any) error {
	if err := ApplyDefaults(cfg); err != nil {
		slog.Error("Parser config: failed to apply defaults", "error", err)
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if len(rawValues) > 0 {
		if err := mapToStruct(rawValues, cfg); err != nil {
			slog.Error("Parser config: failed to apply config values",
				"raw_values", rawValues,
				"error", err)
			return fmt.Errorf("failed to apply config values: %w", err)
		}
	}

	if err := validateConfig(*cfg); err != nil {
		slog.Error("Parser config validation failed",
			"config_value", *cfg,
			"error", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func ApplyDefaults(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := defaults.Set(cfg); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}

	return nil
}

func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"field '%s' failed validation: %s (rule: %s)",
					fieldErr.Field(),
					fieldErr.Error(),
					fieldErr.Tag(),
				))
			}
			return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errMessages, "\n  - "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}
