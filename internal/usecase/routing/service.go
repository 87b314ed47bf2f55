// Package routing picks the collections a query is searched against.
package routing

import (
	"strings"

	"github.com/kailas-cloud/prodrag/internal/config"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
)

// Router classifies query intent by keyword. Matching is a plain substring test,
// so "have" also fires inside "behave".
type Router struct {
	reviews  []string
	products []string
}

// New creates a router from the lexicon routing tables.
func New(lex config.RoutingLexicon) *Router {
	return &Router{
		reviews:  lowerAll(lex.Reviews),
		products: lowerAll(lex.Products),
	}
}

// Route never returns an empty set: without any intent keyword both collections are searched.
func (r *Router) Route(query string) collection.Set {
	q := strings.ToLower(query)

	var names []collection.Name
	if containsAny(q, r.reviews) {
		names = append(names, collection.Reviews)
	}
	if containsAny(q, r.products) {
		names = append(names, collection.Products)
	}
	if len(names) == 0 {
		return collection.All()
	}
	return collection.NewSet(names...)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
