package parser

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DecodeConfig builds a validated Config from loosely typed values, such as
// a section of a host application's settings.
func DecodeConfig(rawValues map[string]any) (Config, error) {
	var cfg Config
	if err := InitializeConfig(&cfg, rawValues); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig builds a validated Config from a YAML document.
func ParseConfig(data []byte) (Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("error unmarshalling YAML: %w", err)
	}
	return DecodeConfig(raw)
}

// mapToStruct decodes m into target using yaml tags, so maps and YAML
// documents share one set of keys.
func mapToStruct(m map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true, // Allow type coercion (e.g., "1.5" -> float64)
		ErrorUnused:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(m); err != nil {
		return fmt.Errorf("failed to decode map to struct: %w", err)
	}

	return nil
}
