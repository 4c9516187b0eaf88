package aggregate

import (
	"context"
	"testing"

	"github.com/dlashua/logic-sub002/pkg/kanren"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numbersOf(t *testing.T, term kanren.Term) []float64 {
	t.Helper()
	var out []float64
	cur := term
	for {
		cons, ok := cur.(*kanren.Cons)
		if !ok {
			break
		}
		p, ok := cons.Head.(kanren.Primitive)
		require.True(t, ok, "expected Primitive element, got %T", cons.Head)
		f, ok := p.Value.(float64)
		require.True(t, ok)
		out = append(out, f)
		cur = cons.Tail
	}
	return out
}

// numbersGoal builds a goal that unifies term with each of values in turn,
// one disjunct per value.
func numbersGoal(term kanren.Term, values ...float64) kanren.Goal {
	goals := make([]kanren.Goal, len(values))
	for i, v := range values {
		goals[i] = kanren.Eq(term, kanren.NewPrimitive(v))
	}
	return kanren.Or(goals...)
}

func TestCollectoGathersAllValues(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	out := kanren.Lvar("out")

	goal := Collecto(x, numbersGoal(x, 1, 2, 3), out)

	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := numbersOf(t, kanren.Walk(out, results[0]))
	assert.ElementsMatch(t, []float64{1, 2, 3}, got)
}

func TestCountoCountsSolutions(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	out := kanren.Lvar("out")
	goal := Counto(numbersGoal(x, 1, 2, 3, 4), out)
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := kanren.Walk(out, results[0])
	assert.True(t, got.Equal(kanren.NewPrimitive(4.0)))
}

func TestCountDistinctoDeduplicates(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	out := kanren.Lvar("out")
	goal := CountDistincto(x, numbersGoal(x, 1, 1, 2), out)
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := kanren.Walk(out, results[0])
	assert.True(t, got.Equal(kanren.NewPrimitive(2.0)))
}

func TestCountValueoCountsOccurrences(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	value := kanren.Lvar("value")
	out := kanren.Lvar("out")

	goal := kanren.And(
		kanren.Eq(value, kanren.NewPrimitive(2.0)),
		CountValueo(x, numbersGoal(x, 1, 2, 2, 3), value, out),
	)
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := kanren.Walk(out, results[0])
	assert.True(t, got.Equal(kanren.NewPrimitive(2.0)))
}

func TestUniqueoDropsDuplicates(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := Uniqueo(x, numbersGoal(x, 1, 1, 2, 2, 2, 3))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestTakeStreamoLimitsResults(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := TakeStreamo(2, numbersGoal(x, 1, 2, 3, 4, 5))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSortByStreamoOrdersAscending(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := SortByStreamo(x, Ascending, nil, numbersGoal(x, 3, 1, 2))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 3)
	var got []float64
	for _, r := range results {
		p := kanren.Walk(x, r).(kanren.Primitive)
		got = append(got, p.Value.(float64))
	}
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestSortByStreamoOrdersDescending(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := SortByStreamo(x, Descending, nil, numbersGoal(x, 3, 1, 2))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 3)
	var got []float64
	for _, r := range results {
		p := kanren.Walk(x, r).(kanren.Primitive)
		got = append(got, p.Value.(float64))
	}
	assert.Equal(t, []float64{3, 2, 1}, got)
}

func TestGroupByCountoGroupsAndCounts(t *testing.T) {
	ctx := context.Background()
	key, val := kanren.Lvar("key"), kanren.Lvar("val")
	outKey, outCount := kanren.Lvar("outKey"), kanren.Lvar("outCount")

	inner := kanren.Or(
		kanren.And(kanren.Eq(key, kanren.NewPrimitive("a")), kanren.Eq(val, kanren.NewPrimitive(1.0))),
		kanren.And(kanren.Eq(key, kanren.NewPrimitive("a")), kanren.Eq(val, kanren.NewPrimitive(2.0))),
		kanren.And(kanren.Eq(key, kanren.NewPrimitive("b")), kanren.Eq(val, kanren.NewPrimitive(3.0))),
	)

	goal := GroupByCounto(key, inner, outKey, outCount)
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 2)

	counts := map[string]float64{}
	for _, r := range results {
		k := kanren.Walk(outKey, r).(kanren.Primitive).Value.(string)
		c := kanren.Walk(outCount, r).(kanren.Primitive).Value.(float64)
		counts[k] = c
	}
	assert.Equal(t, float64(2), counts["a"])
	assert.Equal(t, float64(1), counts["b"])
}

func TestGroupByCollectoGroupsValues(t *testing.T) {
	ctx := context.Background()
	key, val := kanren.Lvar("key"), kanren.Lvar("val")
	outKey, outList := kanren.Lvar("outKey"), kanren.Lvar("outList")

	inner := kanren.Or(
		kanren.And(kanren.Eq(key, kanren.NewPrimitive("a")), kanren.Eq(val, kanren.NewPrimitive(1.0))),
		kanren.And(kanren.Eq(key, kanren.NewPrimitive("a")), kanren.Eq(val, kanren.NewPrimitive(2.0))),
	)

	goal := GroupByCollecto(key, val, inner, outKey, outList)
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := numbersOf(t, kanren.Walk(outList, results[0]))
	assert.ElementsMatch(t, []float64{1, 2}, got)
}

func TestMaxByStreamoPicksLargest(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := MaxByStreamo(x, numbersGoal(x, 3, 7, 2))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := kanren.Walk(x, results[0]).(kanren.Primitive)
	assert.Equal(t, 7.0, got.Value.(float64))
}

func TestMinByStreamoPicksSmallest(t *testing.T) {
	ctx := context.Background()
	x := kanren.Lvar("x")
	goal := MinByStreamo(x, numbersGoal(x, 3, 7, 2))
	results, err := kanren.Run(ctx, -1, goal)
	require.NoError(t, err)
	require.Len(t, results, 1)
	got := kanren.Walk(x, results[0]).(kanren.Primitive)
	assert.Equal(t, 2.0, got.Value.(float64))
}
