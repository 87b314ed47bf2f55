// Package extract turns a free-text product question into a metadata predicate.
package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/prodrag/internal/config"
	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
)

// Result is the outcome of extracting filters from one query.
type Result struct {
	Predicate     filter.Expression
	EmbeddingText string

	// Individual signals, in predicate order.
	Price      []filter.Condition
	Brand      string
	Categories []string
}

// Terms returns how many filter terms were extracted.
func (r Result) Terms() int {
	n := len(r.Price) + len(r.Categories)
	if r.Brand != "" {
		n++
	}
	return n
}

type pricePattern struct {
	re    *regexp.Regexp
	upper bool
}

type brandPattern struct {
	re   *regexp.Regexp
	name string
}

type synonym struct {
	category string // vocabulary spelling
	phrase   string // lowercased
	re       *regexp.Regexp
}

// Extractor is safe for concurrent use; all tables are read-only after New.
type Extractor struct {
	price      []pricePattern
	brands     []brandPattern
	override   []*regexp.Regexp
	overrideTo string
	priority   []synonym // multi-word synonyms of priority categories
	single     []synonym // single-word synonyms of all categories
}

// New compiles the lexicon against the catalog vocabulary. Categories missing
// from the vocabulary are never emitted, so an empty vocabulary disables brand
// and category filtering while price filtering stays active.
func New(lex config.Lexicon, vocab catalog.Vocabulary) *Extractor {
	e := &Extractor{}

	for _, p := range lex.Price.Upper {
		e.price = append(e.price, pricePattern{re: priceRegexp(p), upper: true})
	}
	for _, p := range lex.Price.Lower {
		e.price = append(e.price, pricePattern{re: priceRegexp(p), upper: false})
	}

	brands := append([]string(nil), vocab.Brands...)
	sort.SliceStable(brands, func(i, j int) bool { return len(brands[i]) > len(brands[j]) })
	for _, b := range brands {
		if strings.TrimSpace(b) == "" {
			continue
		}
		e.brands = append(e.brands, brandPattern{re: wordRegexp(b, false), name: b})
	}

	known := make(map[string]string, len(vocab.Categories))
	for _, c := range vocab.Categories {
		known[strings.ToLower(c)] = c
	}

	if marker := strings.ToLower(lex.Categories.Override.Marker); marker != "" {
		for _, c := range vocab.Categories {
			if strings.Contains(strings.ToLower(c), marker) {
				e.overrideTo = c
				break
			}
		}
		if e.overrideTo != "" {
			for _, t := range lex.Categories.Override.Terms {
				e.override = append(e.override, wordRegexp(t, true))
			}
		}
	}

	priority := make(map[string]bool, len(lex.Categories.Priority))
	for _, p := range lex.Categories.Priority {
		priority[strings.ToLower(p)] = true
	}

	for _, s := range lex.Categories.Synonyms {
		cat, ok := known[strings.ToLower(s.Category)]
		if !ok {
			continue
		}
		for _, term := range s.Terms {
			phrase := strings.ToLower(strings.TrimSpace(term))
			if strings.Contains(phrase, " ") {
				if priority[strings.ToLower(s.Category)] {
					e.priority = append(e.priority, synonym{category: cat, phrase: phrase})
				}
				continue
			}
			e.single = append(e.single, synonym{category: cat, phrase: phrase, re: wordRegexp(phrase, true)})
		}
	}

	return e
}

// Extract never fails. The embedding text is the query itself: stripping
// filter phrases would weaken the semantic signal.
func (e *Extractor) Extract(query string) Result {
	res := Result{EmbeddingText: query}
	lower := strings.ToLower(query)

	res.Price = e.extractPrice(query)
	res.Brand = e.extractBrand(query)
	res.Categories = e.extractCategories(lower)

	terms := make([]filter.Condition, 0, res.Terms())
	terms = append(terms, res.Price...)
	if res.Brand != "" {
		terms = append(terms, filter.Equals(collection.FieldBrand, res.Brand))
	}
	for _, c := range res.Categories {
		terms = append(terms, filter.Equals(collection.FieldCategory, c))
	}

	// OR across heterogeneous terms widens results; kept for recall.
	pred, err := filter.AnyOf(terms...)
	if err == nil {
		res.Predicate = pred
	}
	return res
}

func (e *Extractor) extractPrice(query string) []filter.Condition {
	var out []filter.Condition
	for _, p := range e.price {
		for _, m := range p.re.FindAllStringSubmatch(query, -1) {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
			if err != nil {
				continue
			}
			if p.upper {
				out = append(out, filter.LessThan(collection.FieldPrice, v))
			} else {
				out = append(out, filter.GreaterThan(collection.FieldPrice, v))
			}
		}
	}
	return out
}

func (e *Extractor) extractBrand(query string) string {
	for _, b := range e.brands {
		if b.re.MatchString(query) {
			return b.name
		}
	}
	return ""
}

func (e *Extractor) extractCategories(lower string) []string {
	for _, re := range e.override {
		if re.MatchString(lower) {
			return []string{e.overrideTo}
		}
	}

	var out []string
	seen := map[string]bool{}
	add := func(c string) {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}

	for _, s := range e.priority {
		if strings.Contains(lower, s.phrase) {
			add(s.category)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, s := range e.single {
		if s.re.MatchString(lower) {
			add(s.category)
		}
	}
	return out
}

// priceRegexp matches "<phrase> $1,299.99" with an optional currency sign ($, £, €, ...).
func priceRegexp(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + spaced(phrase) + `\s*\p{Sc}?\s*(\d[\d,]*(?:\.\d+)?)`)
}

// wordRegexp matches term as a whole word, case-insensitively; plural allows a trailing "s" or "es".
func wordRegexp(term string, plural bool) *regexp.Regexp {
	suffix := ""
	if plural {
		suffix = `(?:e?s)?`
	}
	return regexp.MustCompile(`(?i)(?:^|[^\pL\pN])` + spaced(term) + suffix + `(?:$|[^\pL\pN])`)
}

// spaced quotes term and lets any run of whitespace separate its words.
func spaced(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(words, `\s+`)
}
