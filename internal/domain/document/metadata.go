package document

import (
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"

	"github.com/kailas-cloud/prodrag/internal/domain"
)

// ChunkType discriminates the metadata variants.
type ChunkType string

// Known chunk types.
const (
	ChunkProductInfo ChunkType = "product_info"
	ChunkReview      ChunkType = "review"
)

// Metadata is the typed payload stored next to a record's text and vector.
// It is either ProductMetadata or ReviewMetadata.
type Metadata interface {
	ChunkType() ChunkType
	Base() Common
	// Fields flattens the metadata for storage. Unset optional values are omitted.
	Fields() map[string]string
}

// Common holds the product identity carried by both variants.
type Common struct {
	ProductName string `json:"product_name,omitempty" mapstructure:"product_name"`
	ModelNumber string `json:"model_number,omitempty" mapstructure:"model_number"`
	Category    string `json:"category,omitempty" mapstructure:"category"`
	Brand       string `json:"brand,omitempty" mapstructure:"brand"`
}

func (c Common) fields(ct ChunkType) map[string]string {
	m := map[string]string{"chunk_type": string(ct)}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("product_name", c.ProductName)
	put("model_number", c.ModelNumber)
	put("category", c.Category)
	put("brand", c.Brand)
	return m
}

// ProductMetadata describes a product specification chunk.
type ProductMetadata struct {
	Common `mapstructure:",squash"`
	Price  *float64 `json:"price,omitempty" mapstructure:"price"`
}

// ChunkType implements Metadata.
func (ProductMetadata) ChunkType() ChunkType { return ChunkProductInfo }

// Base implements Metadata.
func (m ProductMetadata) Base() Common { return m.Common }

// Fields implements Metadata.
func (m ProductMetadata) Fields() map[string]string {
	f := m.Common.fields(ChunkProductInfo)
	if m.Price != nil {
		f["price"] = strconv.FormatFloat(*m.Price, 'f', -1, 64)
	}
	return f
}

// ReviewMetadata describes a customer review chunk.
type ReviewMetadata struct {
	Common `mapstructure:",squash"`
	Rating *float64 `json:"rating,omitempty" mapstructure:"rating"`
}

// ChunkType implements Metadata.
func (ReviewMetadata) ChunkType() ChunkType { return ChunkReview }

// Base implements Metadata.
func (m ReviewMetadata) Base() Common { return m.Common }

// Fields implements Metadata.
func (m ReviewMetadata) Fields() map[string]string {
	f := m.Common.fields(ChunkReview)
	if m.Rating != nil {
		f["rating"] = strconv.FormatFloat(*m.Rating, 'f', -1, 64)
	}
	return f
}

// DecodeMetadata builds typed metadata from raw store fields, dispatching on chunk_type.
// Values may be strings (Redis hashes) or JSON scalars (OpenSearch _source).
func DecodeMetadata(raw map[string]any) (Metadata, error) {
	ct, _ := raw["chunk_type"].(string)
	switch ChunkType(ct) {
	case ChunkProductInfo:
		var m ProductMetadata
		if err := decode(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case ChunkReview:
		var m ReviewMetadata
		if err := decode(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown chunk_type %q", domain.ErrInvalidMetadata, ct)
	}
}

// DecodeHash is DecodeMetadata for string-valued hashes.
func DecodeHash(fields map[string]string) (Metadata, error) {
	raw := make(map[string]any, len(fields))
	for k, v := range fields {
		if v == "" {
			continue
		}
		raw[k] = v
	}
	return DecodeMetadata(raw)
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("create metadata decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidMetadata, err)
	}
	return nil
}
