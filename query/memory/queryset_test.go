package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/memory"
	"github.com/nielslerches/ddd-scaffold/query/queryset"
	"github.com/stretchr/testify/require"
)

type Item struct {
	Name     string
	Quantity int
}

type Cart struct {
	ID    int
	Items []Item
}

func carts() []Cart {
	return []Cart{
		{ID: 1, Items: []Item{{Name: "A", Quantity: 2}}},
		{ID: 2, Items: []Item{{Name: "B", Quantity: 1}}},
		{ID: 3, Items: nil},
	}
}

func TestCountEqualsZero(t *testing.T) {
	qs := memory.FromSlice(nil, carts())
	result, err := qs.Filter(ast.Count("Items").Eq(0)).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, 3, result[0].ID)
}

func TestCountWhere(t *testing.T) {
	qs := memory.FromSlice(nil, carts())
	result, err := qs.Filter(ast.Count("Items").Where(ast.Field("Quantity").Gt(0))).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, 1, result[0].ID)
	require.Equal(t, 2, result[1].ID)
}

// The last .Where wins: Quantity > 0 alone would give carts 1 and 2 one
// matching item each, but the later Quantity > 1 replaces it, so only
// cart 1 has exactly one matching item.
func TestAggregationRefinementClosure(t *testing.T) {
	qs := memory.FromSlice(nil, carts())
	agg := ast.Count("Items").Where(ast.Field("Quantity").Gt(0)).Where(ast.Field("Quantity").Gt(1))
	result, err := qs.Filter(agg.Eq(1)).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, 1, result[0].ID)
}

func TestFilterExcludeDuality(t *testing.T) {
	qs := memory.FromSlice(nil, carts())
	pred := ast.Field("ID").Gt(1)

	filtered, err := qs.Filter(pred).Slice(context.Background())
	require.NoError(t, err)
	excluded, err := qs.Exclude(pred).Slice(context.Background())
	require.NoError(t, err)

	require.Len(t, filtered, 2)
	require.Len(t, excluded, 1)
	require.Equal(t, len(carts()), len(filtered)+len(excluded))
}

func TestOrderByDescending(t *testing.T) {
	qs := memory.FromSlice(nil, carts())
	result, err := qs.OrderBy(ast.Field("ID").Neg()).Slice(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{3, 2, 1}, []int{result[0].ID, result[1].ID, result[2].ID})
}

func TestGetCardinalityErrors(t *testing.T) {
	qs := memory.FromSlice(nil, carts())

	_, err := qs.Get(context.Background(), ast.Field("ID").Eq(999))
	require.True(t, errors.Is(err, queryset.ErrObjectDoesNotExist))

	dup := append(carts(), Cart{ID: 1, Items: nil})
	qsDup := memory.FromSlice(nil, dup)
	_, err = qsDup.Get(context.Background(), ast.Field("ID").Eq(1))
	require.True(t, errors.Is(err, queryset.ErrMultipleObjectsReturned))
}

func TestAggregateSumMeanMedianCollect(t *testing.T) {
	type Line struct {
		Total float64
	}
	lines := []Line{{Total: 100}, {Total: 200}, {Total: 300}}
	qs := memory.FromSlice(nil, lines)

	sum, err := qs.Aggregate(context.Background(), ast.Sum("Total"))
	require.NoError(t, err)
	require.Equal(t, 600.0, sum)

	mean, err := qs.Aggregate(context.Background(), ast.Mean("Total"))
	require.NoError(t, err)
	require.Equal(t, 200.0, mean)

	median, err := qs.Aggregate(context.Background(), ast.Median("Total"))
	require.NoError(t, err)
	require.Equal(t, 200.0, median)

	collected, err := qs.Aggregate(context.Background(), ast.Collect("Total"))
	require.NoError(t, err)
	require.Equal(t, []interface{}{100.0, 200.0, 300.0}, collected)
}

func TestAggregateMeanOfEmptyIsUndefined(t *testing.T) {
	qs := memory.FromSlice[struct{ Total float64 }](nil, nil)
	_, err := qs.Aggregate(context.Background(), ast.Mean("Total"))
	require.Error(t, err)
}

func TestImmutabilityOfRefinements(t *testing.T) {
	base := memory.FromSlice(nil, carts())
	_ = base.Filter(ast.Field("ID").Eq(1))

	all, err := base.Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestAllIsIdempotent(t *testing.T) {
	base := memory.FromSlice(nil, carts())
	a, err := base.Slice(context.Background())
	require.NoError(t, err)
	b, err := base.All().Slice(context.Background())
	require.NoError(t, err)
	require.Equal(t, a, b)
}
