// Package preprocess provides declarative preprocessors for the importer:
// value rewrites, fan-out splits and drop filters, loadable from YAML.
package preprocess

import (
	"slices"
	"strings"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/importer"
	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// Rewrite replaces exact values of one field, e.g. to correct known
// misspellings before lookup.
type Rewrite struct {
	Field        string
	Replacements map[string]string
}

func (r Rewrite) Preprocess(f models.Fact) ([]models.Fact, error) {
	if repl, ok := r.Replacements[f.Get(r.Field)]; ok {
		f = f.With(r.Field, repl)
	}
	return []models.Fact{f}, nil
}

// Split fans a fact out into one fact per separated part of a field. Parts
// are trimmed and empty parts skipped. A value that yields no parts leaves
// the fact as it is.
type Split struct {
	Field     string
	Separator string
}

func (s Split) Preprocess(f models.Fact) ([]models.Fact, error) {
	value := f.Get(s.Field)
	if s.Separator == "" || !strings.Contains(value, s.Separator) {
		return []models.Fact{f}, nil
	}
	var out []models.Fact
	for part := range strings.SplitSeq(value, s.Separator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, f.With(s.Field, part))
	}
	if len(out) == 0 {
		return []models.Fact{f}, nil
	}
	return out, nil
}

// Drop removes facts whose field holds one of Values, or is empty when
// Empty is set.
type Drop struct {
	Field  string
	Values []string
	Empty  bool
}

func (d Drop) Preprocess(f models.Fact) ([]models.Fact, error) {
	v := f.Get(d.Field)
	if (d.Empty && v == "") || slices.Contains(d.Values, v) {
		return nil, nil
	}
	return []models.Fact{f}, nil
}

// Chain runs preprocessors in order. Each stage is applied to every fact
// produced by the previous one.
type Chain []importer.Preprocessor

func (c Chain) Preprocess(f models.Fact) ([]models.Fact, error) {
	facts := []models.Fact{f}
	for _, p := range c {
		var next []models.Fact
		for _, in := range facts {
			out, err := p.Preprocess(in)
			if err != nil {
				return nil, err
			}
			next = append(next, out...)
		}
		if len(next) == 0 {
			return nil, nil
		}
		facts = next
	}
	return facts, nil
}
