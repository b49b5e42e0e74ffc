// Package condition implements MINOOTS's condition evaluator: a pure
// function evaluating an ordered list of predicates against a timer's
// context/metadata documents. AND semantics: every condition must
// match.
package condition

import "strings"

// Document is a free-form key/value document (context or metadata).
type Document map[string]interface{}

// Operator is a condition comparison operator.
type Operator string

const (
	Equals    Operator = "equals"
	NotEquals Operator = "not_equals"
	GT        Operator = "gt"
	GTE       Operator = "gte"
	LT        Operator = "lt"
	LTE       Operator = "lte"
	Exists    Operator = "exists"
	NotExists Operator = "not_exists"
)

// Condition is a single predicate. Lhs is a dotted path resolved
// against [context, metadata]; Rhs is a literal. LhsValue/RhsValue, when
// non-nil, override path resolution for that side.
type Condition struct {
	Lhs      string      `json:"lhs,omitempty"`
	Rhs      interface{} `json:"rhs,omitempty"`
	Operator Operator    `json:"operator"`
	LhsValue *any        `json:"lhsValue,omitempty"`
	RhsValue *any        `json:"rhsValue,omitempty"`
}

// Evaluate returns true iff every condition matches. An empty list is
// always satisfied.
func Evaluate(conditions []Condition, context, metadata Document) bool {
	for _, c := range conditions {
		if !matches(c, context, metadata) {
			return false
		}
	}
	return true
}

func matches(c Condition, context, metadata Document) bool {
	var lhs interface{}
	var lhsOK bool
	if c.LhsValue != nil {
		lhs, lhsOK = *c.LhsValue, true
	} else {
		lhs, lhsOK = resolvePath(c.Lhs, context, metadata)
	}

	switch c.Operator {
	case Exists:
		return lhsOK
	case NotExists:
		return !lhsOK
	}

	if !lhsOK {
		return false
	}

	rhs := c.Rhs
	if c.RhsValue != nil {
		rhs = *c.RhsValue
	}

	switch c.Operator {
	case Equals:
		return looseEqual(lhs, rhs)
	case NotEquals:
		return !looseEqual(lhs, rhs)
	case GT:
		cmp, ok := compare(lhs, rhs)
		return ok && cmp > 0
	case GTE:
		cmp, ok := compare(lhs, rhs)
		return ok && cmp >= 0
	case LT:
		cmp, ok := compare(lhs, rhs)
		return ok && cmp < 0
	case LTE:
		cmp, ok := compare(lhs, rhs)
		return ok && cmp <= 0
	default:
		// Unknown operator: condition fails.
		return false
	}
}

// resolvePath resolves a dotted path against the lookup stack
// [context, metadata]. If the first segment names a stack root
// ("context" or "metadata"), the remainder descends that root
// directly; otherwise the whole path is tried against context, then
// against metadata, as flat-key fallbacks.
func resolvePath(path string, context, metadata Document) (interface{}, bool) {
	if path == "" {
		return nil, false
	}

	segments := strings.Split(path, ".")
	switch segments[0] {
	case "context":
		return walk(context, segments[1:])
	case "metadata":
		return walk(metadata, segments[1:])
	default:
		if v, ok := walk(context, segments); ok {
			return v, ok
		}
		return walk(metadata, segments)
	}
}

func walk(doc Document, segments []string) (interface{}, bool) {
	if doc == nil {
		return nil, false
	}
	if len(segments) == 0 {
		return doc, true
	}

	var cur interface{} = map[string]interface{}(doc)
	for _, seg := range segments {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		val, exists := m[seg]
		if !exists {
			return nil, false
		}
		cur = val
	}
	return cur, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]interface{}:
		return m, true
	default:
		return nil, false
	}
}

// looseEqual compares two resolved values, treating numeric kinds as
// interchangeable (5 == 5.0 == int64(5)).
func looseEqual(a, b interface{}) bool {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			return af == bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return as == bs
	}
	ab, aok := a.(bool)
	bb, bok := b.(bool)
	if aok && bok {
		return ab == bb
	}
	return a == b
}

// compare orders a and b by the host language's natural ordering:
// numeric comparison when both sides are numeric, lexical comparison
// when both are strings. Mismatched or non-orderable types return
// ok=false, which makes every ordering operator reject them.
func compare(a, b interface{}) (cmp int, ok bool) {
	if af, aok := toFloat64(a); aok {
		if bf, bok := toFloat64(b); bok {
			switch {
			case af < bf:
				return -1, true
			case af > bf:
				return 1, true
			default:
				return 0, true
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
