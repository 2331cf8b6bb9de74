package importer

import "github.com/wagnerlima/memory-cloud/fact-importer/internal/models"

// Preprocessor transforms one fact into zero or more facts before matching.
// Returning an empty slice drops the fact; returning several fans it out.
// Implementations must not touch importer state.
type Preprocessor interface {
	Preprocess(fact models.Fact) ([]models.Fact, error)
}

// PreprocessorFunc adapts a function to Preprocessor.
type PreprocessorFunc func(fact models.Fact) ([]models.Fact, error)

func (f PreprocessorFunc) Preprocess(fact models.Fact) ([]models.Fact, error) {
	return f(fact)
}

// Identity passes every fact through unchanged.
var Identity Preprocessor = PreprocessorFunc(func(fact models.Fact) ([]models.Fact, error) {
	return []models.Fact{fact}, nil
})
