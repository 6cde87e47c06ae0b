package rules

import (
	"fmt"
	"io"

	"github.com/spf13/viper"
)

// Load reads a rule document from path. The format is taken from the file
// extension (yaml, yml, json, toml).
func Load(path string) (*RuleSet, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	return FromViper(v, path)
}

// Parse reads a rule document from r in the given format.
func Parse(r io.Reader, format, source string) (*RuleSet, error) {
	v := viper.New()
	v.SetConfigType(format)
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return FromViper(v, source)
}

// FromViper decodes and compiles the document held by v. Weights absent from
// the document keep their built-in values.
func FromViper(v *viper.Viper, source string) (*RuleSet, error) {
	doc := Document{Weights: DefaultWeights()}
	if err := v.Unmarshal(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	rs, err := Build(doc, source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	return rs, nil
}
