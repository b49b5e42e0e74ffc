package condition_test

import (
	"testing"

	"github.com/minoots/engine/internal/condition"
	"github.com/stretchr/testify/assert"
)

func TestEvaluate_Empty(t *testing.T) {
	assert.True(t, condition.Evaluate(nil, nil, nil))
}

func TestEvaluate_AndSemantics(t *testing.T) {
	ctx := condition.Document{"stage": "prod", "retries": float64(2)}
	meta := condition.Document{"owner": "agent-1"}

	conds := []condition.Condition{
		{Lhs: "stage", Rhs: "prod", Operator: condition.Equals},
		{Lhs: "retries", Rhs: float64(1), Operator: condition.GT},
	}
	assert.True(t, condition.Evaluate(conds, ctx, meta))

	conds[1].Rhs = float64(5)
	assert.False(t, condition.Evaluate(conds, ctx, meta))
}

func TestEvaluate_PathResolution(t *testing.T) {
	ctx := condition.Document{"nested": map[string]interface{}{"flag": true}}
	meta := condition.Document{"nested": map[string]interface{}{"flag": false}, "only_meta": "x"}

	// "context.nested.flag" explicitly descends the context root.
	assert.True(t, condition.Evaluate([]condition.Condition{
		{Lhs: "context.nested.flag", Rhs: true, Operator: condition.Equals},
	}, ctx, meta))

	// Flat fallback: "only_meta" isn't in context, falls back to metadata.
	assert.True(t, condition.Evaluate([]condition.Condition{
		{Lhs: "only_meta", Rhs: "x", Operator: condition.Equals},
	}, ctx, meta))
}

func TestEvaluate_ExistsNotExists(t *testing.T) {
	ctx := condition.Document{"present": "yes"}

	assert.True(t, condition.Evaluate([]condition.Condition{
		{Lhs: "present", Operator: condition.Exists},
	}, ctx, nil))

	assert.True(t, condition.Evaluate([]condition.Condition{
		{Lhs: "absent", Operator: condition.NotExists},
	}, ctx, nil))

	assert.False(t, condition.Evaluate([]condition.Condition{
		{Lhs: "absent", Operator: condition.Exists},
	}, ctx, nil))
}

func TestEvaluate_UnknownOperatorFails(t *testing.T) {
	ctx := condition.Document{"x": float64(1)}
	assert.False(t, condition.Evaluate([]condition.Condition{
		{Lhs: "x", Rhs: float64(1), Operator: "matches_regex"},
	}, ctx, nil))
}

func TestEvaluate_ExplicitValueOverride(t *testing.T) {
	lhsVal := any(float64(10))
	rhsVal := any(float64(5))
	cond := condition.Condition{
		Lhs:      "unused.path",
		Operator: condition.GT,
		LhsValue: &lhsVal,
		RhsValue: &rhsVal,
	}
	assert.True(t, condition.Evaluate([]condition.Condition{cond}, nil, nil))
}

func TestEvaluate_TypeMismatchOrderingFails(t *testing.T) {
	ctx := condition.Document{"x": "not-a-number"}
	for _, op := range []condition.Operator{condition.GT, condition.GTE, condition.LT, condition.LTE} {
		assert.False(t, condition.Evaluate([]condition.Condition{
			{Lhs: "x", Rhs: float64(1), Operator: op},
		}, ctx, nil), string(op))
	}
}
