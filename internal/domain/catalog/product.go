// Package catalog parses the product catalog and review dumps into
// embeddable records and derives the filterable vocabulary.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

// Product is one entry of products.json.
type Product struct {
	Name        string   `json:"name"`
	ModelNumber string   `json:"model_number"`
	Brand       string   `json:"brand"`
	Category    string   `json:"category"`
	Price       *float64 `json:"price"`
	Features    []string `json:"features"`
	Description string   `json:"description"`
}

// ParseProducts reads the products object keyed by product name.
// File order is preserved.
func ParseProducts(r io.Reader) ([]Product, error) {
	dec := json.NewDecoder(r)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("read products: expected object keyed by product name")
	}

	var products []Product
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read product key: %w", err)
		}
		key, _ := keyTok.(string)
		var p Product
		if err := dec.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode product %q: %w", key, err)
		}
		products = append(products, p)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}
	return products, nil
}

// Text renders the product as the text that gets embedded.
func (p Product) Text() string {
	return fmt.Sprintf("Product: %s, Brand: %s, Category: %s. Features: %s. Description: %s",
		p.Name, p.Brand, p.Category, strings.Join(p.Features, ", "), p.Description)
}

// Metadata returns the product's typed metadata.
func (p Product) Metadata() document.ProductMetadata {
	return document.ProductMetadata{
		Common: document.Common{
			ProductName: p.Name,
			ModelNumber: p.ModelNumber,
			Category:    p.Category,
			Brand:       p.Brand,
		},
		Price: p.Price,
	}
}
