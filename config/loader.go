package config

import (
	"fmt"
	"strings"

	"dario.cat/mergo"
	"github.com/iancoleman/strcase"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

const (
	Delimiter = "__"
	EnvPrefix = "SEMCTL__"
)

type ServiceConfig interface {
	Validate() error
}

// LoadServiceConfig fills config from, in increasing priority: the values
// already in config, the YAML file at filePath (skipped when empty), and
// environment variables under EnvPrefix. SEMCTL__LOG__LEVEL=debug sets
// log.level; each segment is converted to lowerCamelCase to match the YAML
// keys. The result is validated.
func LoadServiceConfig[SC ServiceConfig](config SC, filePath string) error {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(config, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(filePath) > 0 {
		if err := k.Load(file.Provider(filePath), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to read config with path %s: %w", filePath, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		nested := strings.Split(s, Delimiter)
		for index := 0; index < len(nested); index++ {
			nested[index] = strcase.ToLowerCamel(strings.ToLower(nested[index]))
		}
		return strings.Join(nested, ".")
	}), nil, koanf.WithMergeFunc(func(src, dest map[string]interface{}) error {
		return mergo.Merge(&dest, src, mergo.WithOverride)
	})); err != nil {
		return fmt.Errorf("failed to read environment variables: %w", err)
	}

	if err := k.Unmarshal("", config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	return nil
}
