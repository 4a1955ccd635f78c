package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/suykerbuyk/flywheel/internal/friction"
)

// rulesFile is the on-disk shape of a custom classifier rule set:
//
//	rules:
//	  - type: low_conversion
//	    priority: high
//	    keywords: ["traffic", "visits"]
//	    suggestions: ["Shorten the signup form."]
type rulesFile struct {
	Rules []friction.Rule `yaml:"rules"`
}

// LoadRules reads an ordered classifier rule set from a YAML file.
func LoadRules(path string) ([]friction.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule set and validates it the way
// friction.NewClassifier will.
func ParseRules(data []byte) ([]friction.Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if _, err := friction.NewClassifier(f.Rules); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	return f.Rules, nil
}

// LoadClassifier returns the classifier selected by the config: the built-in
// one when no rules file is set.
func (c Config) LoadClassifier() (*friction.Classifier, error) {
	if c.Classifier.RulesFile == "" {
		return friction.Default(), nil
	}
	rules, err := LoadRules(c.Classifier.RulesFile)
	if err != nil {
		return nil, err
	}
	return friction.NewClassifier(rules)
}
