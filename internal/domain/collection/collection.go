package collection

import (
	"github.com/kailas-cloud/prodrag/internal/domain/collection/field"
)

// Name identifies a collection in the vector store.
type Name string

// Known collections.
const (
	Products Name = "products"
	Reviews  Name = "reviews"
)

// All returns the known collections in routing order.
func All() Set { return Set{Products, Reviews} }

func (n Name) String() string { return string(n) }

// Set is an ordered set of collection names. Order is the order of insertion.
type Set []Name

// NewSet builds a Set, dropping duplicates.
func NewSet(names ...Name) Set {
	s := make(Set, 0, len(names))
	for _, n := range names {
		if !s.Contains(n) {
			s = append(s, n)
		}
	}
	return s
}

// Contains reports whether n is in the set.
func (s Set) Contains(n Name) bool {
	for _, x := range s {
		if x == n {
			return true
		}
	}
	return false
}

// Strings returns the names as plain strings.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, n := range s {
		out[i] = string(n)
	}
	return out
}

// Metadata field names shared by both collections.
const (
	FieldChunkType   = "chunk_type"
	FieldProductName = "product_name"
	FieldModelNumber = "model_number"
	FieldCategory    = "category"
	FieldBrand       = "brand"
	FieldPrice       = "price"
	FieldRating      = "rating"
)

// Stored but not filterable: the chunk text and its embedding.
const (
	FieldText   = "text"
	FieldVector = "vector"
)

// Schema returns the indexed metadata fields. Products and reviews share
// one schema so a predicate on price or rating never references a missing field.
func Schema() []field.Field {
	return []field.Field{
		field.Reconstruct(FieldChunkType, field.Tag),
		field.Reconstruct(FieldProductName, field.Tag),
		field.Reconstruct(FieldModelNumber, field.Tag),
		field.Reconstruct(FieldCategory, field.Tag),
		field.Reconstruct(FieldBrand, field.Tag),
		field.Reconstruct(FieldPrice, field.Numeric),
		field.Reconstruct(FieldRating, field.Numeric),
	}
}
