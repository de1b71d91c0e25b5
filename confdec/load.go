package confdec

import (
	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// LoadYAML parses YAML into the generic tree form the derived decoders
// consume.
func LoadYAML(data []byte) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "parsing yaml")
	}
	return v, nil
}

// LoadTOML parses TOML into the generic tree form the derived decoders
// consume.
func LoadTOML(data []byte) (any, error) {
	var v map[string]any
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "parsing toml")
	}
	return v, nil
}
