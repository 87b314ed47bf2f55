package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Vocabulary is the set of filterable metadata values known to exist in the catalog.
type Vocabulary struct {
	Brands     []string `json:"brands"`
	Categories []string `json:"categories"`
}

// BuildVocabulary collects sorted unique non-empty brands and categories.
func BuildVocabulary(products []Product) Vocabulary {
	return Vocabulary{
		Brands:     uniqueSorted(products, func(p Product) string { return p.Brand }),
		Categories: uniqueSorted(products, func(p Product) string { return p.Category }),
	}
}

func uniqueSorted(products []Product, get func(Product) string) []string {
	seen := make(map[string]struct{}, len(products))
	out := []string{}
	for _, p := range products {
		v := get(p)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// IsEmpty reports whether the vocabulary carries no values.
func (v Vocabulary) IsEmpty() bool {
	return len(v.Brands) == 0 && len(v.Categories) == 0
}

// LoadVocabulary reads a vocabulary file.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from config
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary %s: %w", path, err)
	}
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary %s: %w", path, err)
	}
	return v, nil
}

// Save writes the vocabulary as JSON indented by four spaces.
func (v Vocabulary) Save(path string) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal vocabulary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write vocabulary %s: %w", path, err)
	}
	return nil
}
