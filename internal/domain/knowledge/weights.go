package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights are the additive relevance contributions used by Scorer. Query* apply to the
// raw search query, Expanded* to each expansion term.
type Weights struct {
	QueryTitle    float64 `yaml:"query_title"`
	QuerySummary  float64 `yaml:"query_summary"`
	QueryContent  float64 `yaml:"query_content"`
	QueryTag      float64 `yaml:"query_tag"`
	QueryCategory float64 `yaml:"query_category"`

	ExpandedTitle   float64 `yaml:"expanded_title"`
	ExpandedSummary float64 `yaml:"expanded_summary"`
	ExpandedContent float64 `yaml:"expanded_content"`
	ExpandedTag     float64 `yaml:"expanded_tag"`
}

// DefaultWeights returns the production weights.
func DefaultWeights() Weights {
	return Weights{
		QueryTitle:    5,
		QuerySummary:  3,
		QueryContent:  2,
		QueryTag:      4,
		QueryCategory: 3,

		ExpandedTitle:   2,
		ExpandedSummary: 1,
		ExpandedContent: 0.5,
		ExpandedTag:     2,
	}
}

// LoadWeights reads a YAML override file. Keys absent from the file keep their default;
// an empty path returns DefaultWeights.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if path == "" {
		return w, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read scoring weights: %w", err)
	}
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return DefaultWeights(), fmt.Errorf("parse scoring weights %s: %w", path, err)
	}
	if err := w.validate(); err != nil {
		return DefaultWeights(), err
	}
	return w, nil
}

func (w Weights) validate() error {
	for name, v := range map[string]float64{
		"query_title": w.QueryTitle, "query_summary": w.QuerySummary, "query_content": w.QueryContent,
		"query_tag": w.QueryTag, "query_category": w.QueryCategory,
		"expanded_title": w.ExpandedTitle, "expanded_summary": w.ExpandedSummary,
		"expanded_content": w.ExpandedContent, "expanded_tag": w.ExpandedTag,
	} {
		if v < 0 {
			return fmt.Errorf("scoring weight %s must not be negative, got %v", name, v)
		}
	}
	return nil
}
