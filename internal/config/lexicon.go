package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LexiconVersion is the lexicon schema version this build understands.
const LexiconVersion = 1

// Lexicon holds the keyword and synonym tables used for query understanding.
type Lexicon struct {
	Version    int             `yaml:"version"`
	Routing    RoutingLexicon  `yaml:"routing"`
	Price      PriceLexicon    `yaml:"price"`
	Categories CategoryLexicon `yaml:"categories"`
}

// RoutingLexicon lists intent keywords per collection.
type RoutingLexicon struct {
	Reviews  []string `yaml:"reviews"`
	Products []string `yaml:"products"`
}

// PriceLexicon lists the phrases that introduce a price bound.
type PriceLexicon struct {
	Upper []string `yaml:"upper"` // "under $300" -> price < 300
	Lower []string `yaml:"lower"` // "over $100" -> price > 100
}

// CategoryLexicon holds the category override rule and synonym table.
type CategoryLexicon struct {
	Override OverrideRule       `yaml:"override"`
	Priority []string           `yaml:"priority"`
	Synonyms []CategorySynonyms `yaml:"synonyms"`
}

// OverrideRule forces the category containing Marker whenever a term appears in the query.
type OverrideRule struct {
	Terms  []string `yaml:"terms"`
	Marker string   `yaml:"marker"`
}

// CategorySynonyms maps a canonical category to its synonym phrases.
type CategorySynonyms struct {
	Category string   `yaml:"category"`
	Terms    []string `yaml:"terms"`
}

// LoadLexicon reads and validates a lexicon file.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Lexicon{}, fmt.Errorf("failed to read lexicon %s: %w", path, err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("failed to parse lexicon: %w", err)
	}
	if err := lex.Validate(); err != nil {
		return Lexicon{}, fmt.Errorf("invalid lexicon %s: %w", path, err)
	}
	return lex, nil
}

// Validate checks the lexicon structure.
func (l *Lexicon) Validate() error {
	if l.Version != LexiconVersion {
		return fmt.Errorf("unsupported lexicon version %d (want %d)", l.Version, LexiconVersion)
	}
	lists := []struct {
		name  string
		terms []string
	}{
		{"routing.reviews", l.Routing.Reviews},
		{"routing.products", l.Routing.Products},
		{"price.upper", l.Price.Upper},
		{"price.lower", l.Price.Lower},
	}
	for _, ls := range lists {
		if err := checkTerms(ls.name, ls.terms); err != nil {
			return err
		}
	}

	if len(l.Categories.Override.Terms) > 0 {
		if err := checkTerms("categories.override.terms", l.Categories.Override.Terms); err != nil {
			return err
		}
		if strings.TrimSpace(l.Categories.Override.Marker) == "" {
			return fmt.Errorf("categories.override.marker is required when override terms are set")
		}
	}

	if len(l.Categories.Synonyms) == 0 {
		return fmt.Errorf("categories.synonyms must not be empty")
	}
	seen := make(map[string]bool, len(l.Categories.Synonyms))
	for i, s := range l.Categories.Synonyms {
		key := strings.ToLower(strings.TrimSpace(s.Category))
		if key == "" {
			return fmt.Errorf("categories.synonyms[%d].category is required", i)
		}
		if seen[key] {
			return fmt.Errorf("duplicate canonical category %q", s.Category)
		}
		seen[key] = true
		if err := checkTerms(fmt.Sprintf("categories.synonyms[%s].terms", s.Category), s.Terms); err != nil {
			return err
		}
	}
	for _, p := range l.Categories.Priority {
		if !seen[strings.ToLower(strings.TrimSpace(p))] {
			return fmt.Errorf("priority category %q has no synonyms entry", p)
		}
	}
	return nil
}

func checkTerms(name string, terms []string) error {
	if len(terms) == 0 {
		return fmt.Errorf("%s must not be empty", name)
	}
	for i, t := range terms {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%s[%d] is blank", name, i)
		}
	}
	return nil
}
