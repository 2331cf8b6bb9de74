package preprocess

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
)

// Rule is one entry of a rules file.
//
//	rules:
//	  - type: rewrite
//	    field: role
//	    replacements: {"is maried to": "is married to"}
//	  - type: split
//	    field: role
//	    separator: " / "
//	  - type: drop
//	    field: source
//	    empty: true
type Rule struct {
	Type         string            `yaml:"type"`
	Field        string            `yaml:"field"`
	Replacements map[string]string `yaml:"replacements,omitempty"`
	Separator    string            `yaml:"separator,omitempty"`
	Values       []string          `yaml:"values,omitempty"`
	Empty        bool              `yaml:"empty,omitempty"`
}

type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads a YAML rules file into a Chain.
func LoadRules(path string) (Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	chain, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return chain, nil
}

// ParseRules decodes YAML rules into a Chain.
func ParseRules(data []byte) (Chain, error) {
	var rf ruleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	chain := make(Chain, 0, len(rf.Rules))
	for n, r := range rf.Rules {
		p, err := r.build()
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", n, err)
		}
		chain = append(chain, p)
	}
	return chain, nil
}

func (r Rule) build() (importer.Preprocessor, error) {
	if r.Field == "" {
		return nil, fmt.Errorf("%s rule has no field", r.Type)
	}
	switch r.Type {
	case "rewrite":
		return Rewrite{Field: r.Field, Replacements: r.Replacements}, nil
	case "split":
		if r.Separator == "" {
			return nil, fmt.Errorf("split rule on %q has no separator", r.Field)
		}
		return Split{Field: r.Field, Separator: r.Separator}, nil
	case "drop":
		if !r.Empty && len(r.Values) == 0 {
			return nil, fmt.Errorf("drop rule on %q matches nothing", r.Field)
		}
		return Drop{Field: r.Field, Values: r.Values, Empty: r.Empty}, nil
	default:
		return nil, fmt.Errorf("unknown rule type %q", r.Type)
	}
}
