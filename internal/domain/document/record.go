package document

import (
	"fmt"

	"github.com/kailas-cloud/prodrag/internal/domain"
)

// MaxTextSize is the maximum record text size in bytes.
const MaxTextSize = 163840

// Record is an embeddable unit: a product spec sheet or a single review.
type Record struct {
	ID       string
	Text     string
	Metadata Metadata
	Vector   []float32
}

// ProductID namespaces a product record id.
func ProductID(modelNumber string) string { return "product-" + modelNumber }

// ReviewID namespaces a review record id.
func ReviewID(reviewID string) string { return "review-" + reviewID }

// Validate checks the record can be stored.
func (r Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidRecord)
	}
	if r.Text == "" {
		return fmt.Errorf("%w: %s: text is required", domain.ErrInvalidRecord, r.ID)
	}
	if len(r.Text) > MaxTextSize {
		return fmt.Errorf("%w: %s: text too large (max %d bytes)", domain.ErrInvalidRecord, r.ID, MaxTextSize)
	}
	if r.Metadata == nil {
		return fmt.Errorf("%w: %s: metadata is required", domain.ErrInvalidRecord, r.ID)
	}
	return nil
}
