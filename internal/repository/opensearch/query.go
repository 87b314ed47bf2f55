package opensearch

import (
	domcol "github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/collection/field"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
)

// knnQuery builds a lucene k-NN query; the predicate is applied as an efficient filter
// so k results come back even when most of the index is filtered out.
func knnQuery(vector []float32, k int, pred filter.Expression) map[string]any {
	knn := map[string]any{
		"vector": vector,
		"k":      k,
	}
	if f := boolFilter(pred); f != nil {
		knn["filter"] = f
	}
	return map[string]any{
		"size":    k,
		"_source": map[string]any{"excludes": []string{domcol.FieldVector}},
		"query": map[string]any{
			"knn": map[string]any{domcol.FieldVector: knn},
		},
	}
}

// boolFilter translates a predicate into a bool query; nil for an empty predicate.
func boolFilter(expr filter.Expression) map[string]any {
	if expr.IsEmpty() {
		return nil
	}

	b := map[string]any{}
	if must := clauses(expr.Must()); len(must) > 0 {
		b["filter"] = must
	}
	if should := clauses(expr.Should()); len(should) > 0 {
		b["should"] = should
		b["minimum_should_match"] = 1
	}
	if mustNot := clauses(expr.MustNot()); len(mustNot) > 0 {
		b["must_not"] = mustNot
	}
	return map[string]any{"bool": b}
}

func clauses(conds []filter.Condition) []map[string]any {
	out := make([]map[string]any, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.IsMatch():
			out = append(out, map[string]any{"term": map[string]any{c.Key(): c.Match()}})
		case c.IsRange():
			out = append(out, map[string]any{"range": map[string]any{c.Key(): rangeSpec(*c.Range())}})
		}
	}
	return out
}

func rangeSpec(r filter.Range) map[string]any {
	spec := map[string]any{}
	if r.GT() != nil {
		spec["gt"] = *r.GT()
	}
	if r.LT() != nil {
		spec["lt"] = *r.LT()
	}
	return spec
}

// indexMapping declares tag fields as lowercased keywords so term filters match
// case-insensitively, like Redis TAG fields.
func indexMapping(dim, m, efConstruction int) map[string]any {
	props := map[string]any{
		domcol.FieldText: map[string]any{"type": "text"},
		domcol.FieldVector: map[string]any{
			"type":      "knn_vector",
			"dimension": dim,
			"method": map[string]any{
				"name":       "hnsw",
				"engine":     "lucene",
				"space_type": "cosinesimil",
				"parameters": map[string]any{"m": m, "ef_construction": efConstruction},
			},
		},
	}
	for _, f := range domcol.Schema() {
		switch f.FieldType() {
		case field.Tag:
			props[f.Name()] = map[string]any{"type": "keyword", "normalizer": "lowercase"}
		case field.Numeric:
			props[f.Name()] = map[string]any{"type": "double"}
		}
	}

	return map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
			"analysis": map[string]any{
				"normalizer": map[string]any{
					"lowercase": map[string]any{"type": "custom", "filter": []string{"lowercase"}},
				},
			},
		},
		"mappings": map[string]any{"properties": props},
	}
}
