package friction

import (
	"errors"
	"fmt"
	"strings"
)

// Rule pairs keyword triggers with a classification outcome.
type Rule struct {
	Type        Type     `yaml:"type"`
	Priority    Level    `yaml:"priority"`
	Keywords    []string `yaml:"keywords"`
	Suggestions []string `yaml:"suggestions"`
}

// Classifier maps free text to a Classification using an ordered rule list.
// It is immutable after construction and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

var defaultClassifier = MustClassifier(DefaultRules())

// Default returns the classifier built from DefaultRules.
func Default() *Classifier {
	return defaultClassifier
}

// NewClassifier validates rules and returns a classifier that evaluates
// them in the given order. Keywords are lowercased once here.
func NewClassifier(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, errors.New("classifier needs at least one rule")
	}

	compiled := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if _, ok := ParseType(string(r.Type)); !ok || r.Type == TypeUnclassified {
			return nil, fmt.Errorf("rule %d: invalid type %q", i+1, r.Type)
		}
		if _, ok := ParseLevel(string(r.Priority)); !ok {
			return nil, fmt.Errorf("rule %d (%s): invalid priority %q", i+1, r.Type, r.Priority)
		}
		if len(r.Suggestions) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no suggestions", i+1, r.Type)
		}

		var keywords []string
		for _, k := range r.Keywords {
			if k = strings.ToLower(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		if len(keywords) == 0 {
			return nil, fmt.Errorf("rule %d (%s): no keywords", i+1, r.Type)
		}

		compiled = append(compiled, Rule{
			Type:        r.Type,
			Priority:    r.Priority,
			Keywords:    keywords,
			Suggestions: append([]string(nil), r.Suggestions...),
		})
	}

	return &Classifier{rules: compiled}, nil
}

// MustClassifier is like NewClassifier but panics on an invalid rule set.
func MustClassifier(rules []Rule) *Classifier {
	c, err := NewClassifier(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns a copy of the classifier's rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{
			Type:        r.Type,
			Priority:    r.Priority,
			Keywords:    append([]string(nil), r.Keywords...),
			Suggestions: append([]string(nil), r.Suggestions...),
		}
	}
	return out
}

// Classify returns the outcome of the first rule with a keyword contained
// in the lowercased description, or the unclassified fallback.
func (c *Classifier) Classify(description string) Classification {
	lower := strings.ToLower(description)

	for _, r := range c.rules {
		if matchAny(lower, r.Keywords) {
			return Classification{
				Type:        r.Type,
				Priority:    r.Priority,
				Suggestions: append([]string(nil), r.Suggestions...),
			}
		}
	}

	return Classification{
		Type:        TypeUnclassified,
		Priority:    LevelMedium,
		Suggestions: []string{unclassifiedSuggestion},
	}
}

// Classify runs the default classifier.
func Classify(description string) Classification {
	return defaultClassifier.Classify(description)
}

func matchAny(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
