package result

import (
	"sort"

	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

// Item is a single nearest-neighbor hit. Lower distance means more similar.
type Item struct {
	id       string
	text     string
	metadata document.Metadata
	distance float64
}

// New creates a search result item.
func New(id, text string, metadata document.Metadata, distance float64) Item {
	return Item{id: id, text: text, metadata: metadata, distance: distance}
}

// ID returns the record identifier.
func (i Item) ID() string { return i.id }

// Text returns the stored record text.
func (i Item) Text() string { return i.text }

// Metadata returns the typed record metadata. May be nil for records
// without a recognized chunk_type.
func (i Item) Metadata() document.Metadata { return i.metadata }

// Distance returns the distance to the query vector.
func (i Item) Distance() float64 { return i.distance }

// SortAndCap orders items by ascending distance, keeping store order
// among ties, and truncates to limit. A non-positive limit keeps everything.
func SortAndCap(items []Item, limit int) []Item {
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].distance < items[b].distance
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
