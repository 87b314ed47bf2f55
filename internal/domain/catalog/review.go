package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// ReviewGroup is one entry of product_reviews.json.
type ReviewGroup struct {
	ModelNumber string   `json:"model_number"`
	Reviews     []Review `json:"reviews"`
}

// Review is a single customer review.
type Review struct {
	ReviewID ID           `json:"review_id"`
	Text     string       `json:"review"`
	Rating   *json.Number `json:"rating"`
}

// ID accepts both JSON strings and numbers.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("review_id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// ParseReviews reads the list of review groups.
func ParseReviews(r io.Reader) ([]ReviewGroup, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var groups []ReviewGroup
	if err := dec.Decode(&groups); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return groups, nil
}

// RatingValue returns the rating as given, or nil when absent or malformed.
func (r Review) RatingValue() *float64 {
	if r.Rating == nil {
		return nil
	}
	f, err := r.Rating.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func (r Review) id() string { return strings.TrimSpace(string(r.ReviewID)) }
