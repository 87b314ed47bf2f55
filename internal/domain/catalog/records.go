package catalog

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

// Skip describes an input entry that produced no record.
type Skip struct {
	Reason string
}

// ProductRecords converts products into records. Products without a model
// number are skipped since the record id derives from it.
func ProductRecords(products []Product) ([]document.Record, []Skip) {
	records := make([]document.Record, 0, len(products))
	var skipped []Skip
	for _, p := range products {
		if p.ModelNumber == "" {
			skipped = append(skipped, Skip{Reason: fmt.Sprintf("product %q has no model_number", p.Name)})
			continue
		}
		records = append(records, document.Record{
			ID:       document.ProductID(p.ModelNumber),
			Text:     p.Text(),
			Metadata: p.Metadata(),
		})
	}
	return records, skipped
}

// ReviewRecords converts reviews into records, enriching each with the
// product identity looked up by model number.
func ReviewRecords(groups []ReviewGroup, products []Product) ([]document.Record, []Skip) {
	lookup := make(map[string]Product, len(products))
	for _, p := range products {
		if p.ModelNumber != "" {
			lookup[p.ModelNumber] = p
		}
	}

	var (
		records []document.Record
		skipped []Skip
	)
	for _, g := range groups {
		if g.ModelNumber == "" {
			skipped = append(skipped, Skip{Reason: "review group has no model_number"})
			continue
		}
		p, ok := lookup[g.ModelNumber]
		if !ok {
			skipped = append(skipped, Skip{Reason: fmt.Sprintf("no product for model_number %q", g.ModelNumber)})
			continue
		}
		for _, r := range g.Reviews {
			id := r.id()
			if id == "" {
				skipped = append(skipped, Skip{Reason: fmt.Sprintf("review of %q has no review_id", g.ModelNumber)})
				continue
			}
			if strings.TrimSpace(r.Text) == "" {
				skipped = append(skipped, Skip{Reason: fmt.Sprintf("review %q has no text", id)})
				continue
			}
			records = append(records, document.Record{
				ID:   document.ReviewID(id),
				Text: r.Text,
				Metadata: document.ReviewMetadata{
					Common: document.Common{
						ProductName: p.Name,
						ModelNumber: g.ModelNumber,
						Category:    p.Category,
						Brand:       p.Brand,
					},
					Rating: r.RatingValue(),
				},
			})
		}
	}
	return records, skipped
}
