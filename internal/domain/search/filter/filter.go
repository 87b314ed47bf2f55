package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// AnyOf builds the expression for a list of extracted terms:
// none yields the empty expression, one becomes a must clause and
// several are OR'ed as should clauses.
func AnyOf(terms ...Condition) (Expression, error) {
	switch len(terms) {
	case 0:
		return Expression{}, nil
	case 1:
		return NewExpression(terms, nil, nil)
	default:
		return NewExpression(nil, terms, nil)
	}
}

// Describe renders the expression in a human readable form,
// e.g. "price < 300 OR price > 100". The empty expression renders as "".
func (e Expression) Describe() string {
	var parts []string
	for _, c := range e.must {
		parts = append(parts, c.String())
	}
	if len(e.should) > 0 {
		or := make([]string, 0, len(e.should))
		for _, c := range e.should {
			or = append(or, c.String())
		}
		s := strings.Join(or, " OR ")
		if len(parts) > 0 {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	for _, c := range e.mustNot {
		parts = append(parts, "NOT "+c.String())
	}
	return strings.Join(parts, " AND ")
}

// Condition is a single filter clause: either a tag match or a numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Equals is a shorthand for a tag match that panics on empty input.
// Callers pass values they already checked.
func Equals(key, value string) Condition {
	c, err := NewMatch(key, value)
	if err != nil {
		panic(err)
	}
	return c
}

// LessThan is a shorthand for the range key < v.
func LessThan(key string, v float64) Condition {
	return Condition{key: key, rangeExpr: &Range{lt: &v}}
}

// GreaterThan is a shorthand for the range key > v.
func GreaterThan(key string, v float64) Condition {
	return Condition{key: key, rangeExpr: &Range{gt: &v}}
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Range is a numeric range with exclusive bounds. Price phrases
// ("under", "over") only ever produce strict comparisons.
type Range struct {
	gt *float64
	lt *float64
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// String renders the condition, e.g. "brand = Lenovo" or "price < 300".
func (c Condition) String() string {
	if c.IsMatch() {
		return c.key + " = " + c.match
	}
	if c.rangeExpr == nil {
		return c.key
	}
	r := c.rangeExpr
	var parts []string
	if r.gt != nil {
		parts = append(parts, c.key+" > "+formatNum(*r.gt))
	}
	if r.lt != nil {
		parts = append(parts, c.key+" < "+formatNum(*r.lt))
	}
	return strings.Join(parts, " AND ")
}

func formatNum(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
