package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/queryset"
)

// Source produces the records a QuerySet iterates. It is called once per
// materialization (Slice/Get/First/Last/Aggregate), so a Source backed by
// a database or file can be re-queried rather than cached.
type Source[T any] func() ([]T, error)

// stage is one pipeline step (filter, exclude, or order_by), applied in
// the order it was appended.
type stage[T any] func([]T) ([]T, error)

// QuerySet is the in-memory backend's implementation of
// queryset.QuerySet[T]: a Source plus an immutable chain of pipeline
// stages. Filter/Exclude/OrderBy each return a new QuerySet with one more
// stage appended; none mutate the receiver.
type QuerySet[T any] struct {
	source   Source[T]
	compiler *Compiler
	pipeline []stage[T]
}

// New builds a QuerySet over source, compiling predicates with compiler
// (or DefaultAccessor if compiler is nil).
func New[T any](compiler *Compiler, source Source[T]) *QuerySet[T] {
	if compiler == nil {
		compiler = NewCompiler(nil)
	}
	return &QuerySet[T]{source: source, compiler: compiler}
}

// FromSlice builds a QuerySet over a fixed, already-materialized slice.
func FromSlice[T any](compiler *Compiler, items []T) *QuerySet[T] {
	return New(compiler, func() ([]T, error) { return items, nil })
}

func (q *QuerySet[T]) derive(s stage[T]) *QuerySet[T] {
	pipeline := make([]stage[T], len(q.pipeline)+1)
	copy(pipeline, q.pipeline)
	pipeline[len(q.pipeline)] = s
	return &QuerySet[T]{source: q.source, compiler: q.compiler, pipeline: pipeline}
}

// All returns the receiver; present for fluency, it performs no refinement.
func (q *QuerySet[T]) All() queryset.QuerySet[T] {
	return q
}

// Filter keeps only records for which every predicate holds. A predicate
// that evaluates to an integer, such as a bare Count(...).Where(...),
// holds when that integer is non-zero.
func (q *QuerySet[T]) Filter(predicates ...ast.Queryable) queryset.QuerySet[T] {
	callbacks := make([]Eval, len(predicates))
	for i, p := range predicates {
		callbacks[i] = q.compiler.Compile(p.AsNode())
	}
	return q.derive(func(items []T) ([]T, error) {
		out := make([]T, 0, len(items))
		for _, item := range items {
			keep := true
			for _, cb := range callbacks {
				result, err := cb(item)
				if err != nil {
					return nil, err
				}
				b, ok := result.(bool)
				if !ok {
					if n, isInt := toInt(result); isInt {
						b, ok = n != 0, true
					}
				}
				if !ok {
					return nil, fmt.Errorf("memory: filter predicate did not evaluate to a boolean, got %T", result)
				}
				if !b {
					keep = false
					break
				}
			}
			if keep {
				out = append(out, item)
			}
		}
		return out, nil
	})
}

// Exclude keeps only records for which at least one predicate is false —
// the De Morgan dual of Filter, not an AND-of-negations.
func (q *QuerySet[T]) Exclude(predicates ...ast.Queryable) queryset.QuerySet[T] {
	callbacks := make([]Eval, len(predicates))
	for i, p := range predicates {
		callbacks[i] = q.compiler.Compile(p.AsNode())
	}
	return q.derive(func(items []T) ([]T, error) {
		out := make([]T, 0, len(items))
		for _, item := range items {
			anyFalse := false
			for _, cb := range callbacks {
				result, err := cb(item)
				if err != nil {
					return nil, err
				}
				b, ok := result.(bool)
				if !ok {
					return nil, fmt.Errorf("memory: exclude predicate did not evaluate to a boolean, got %T", result)
				}
				if !b {
					anyFalse = true
					break
				}
			}
			if anyFalse {
				out = append(out, item)
			}
		}
		return out, nil
	})
}

// OrderBy sorts by fields, primary key first, each field wrapped in
// .Neg() sorting descending. The sort is stable and applies the later
// fields first so the earlier field's ordering wins ties.
func (q *QuerySet[T]) OrderBy(fields ...ast.Expr) queryset.QuerySet[T] {
	return q.derive(func(items []T) ([]T, error) {
		out := make([]T, len(items))
		copy(out, items)

		for i := len(fields) - 1; i >= 0; i-- {
			desc := false
			node := fields[i].AsNode()
			if un, ok := node.(*ast.UnaryNode); ok && un.Op == ast.OpNeg {
				desc = true
				node = un.Operand
			}
			cb := q.compiler.Compile(node)

			var sortErr error
			sort.SliceStable(out, func(a, b int) bool {
				if sortErr != nil {
					return false
				}
				va, err := cb(out[a])
				if err != nil {
					sortErr = err
					return false
				}
				vb, err := cb(out[b])
				if err != nil {
					sortErr = err
					return false
				}
				cmp, err := ast.Compare(va, vb)
				if err != nil {
					sortErr = err
					return false
				}
				if desc {
					return cmp > 0
				}
				return cmp < 0
			})
			if sortErr != nil {
				return nil, sortErr
			}
		}
		return out, nil
	})
}

// Get returns the single record matching predicates.
func (q *QuerySet[T]) Get(ctx context.Context, predicates ...ast.Queryable) (T, error) {
	var zero T
	items, err := q.Filter(predicates...).Slice(ctx)
	if err != nil {
		return zero, err
	}
	switch len(items) {
	case 0:
		return zero, queryset.ErrObjectDoesNotExist
	case 1:
		return items[0], nil
	default:
		return zero, queryset.ErrMultipleObjectsReturned
	}
}

// First returns the first record, or false if the queryset is empty.
func (q *QuerySet[T]) First(ctx context.Context) (T, bool, error) {
	var zero T
	items, err := q.Slice(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(items) == 0 {
		return zero, false, nil
	}
	return items[0], true, nil
}

// Last returns the last record, or false if the queryset is empty.
func (q *QuerySet[T]) Last(ctx context.Context) (T, bool, error) {
	var zero T
	items, err := q.Slice(ctx)
	if err != nil {
		return zero, false, err
	}
	if len(items) == 0 {
		return zero, false, nil
	}
	return items[len(items)-1], true, nil
}

// Aggregate materializes the queryset and reduces it by agg. Field
// projects each element via the compiler's Accessor for Sum/Mean/Median/
// Collect; Count and Has ignore it, matching reduceValues.
func (q *QuerySet[T]) Aggregate(ctx context.Context, agg ast.Agg) (interface{}, error) {
	node, ok := agg.AsNode().(*ast.AggregationNode)
	if !ok {
		return nil, fmt.Errorf("memory: not an aggregation: %T", agg.AsNode())
	}

	items, err := q.Slice(ctx)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(items))
	for i, item := range items {
		values[i] = item
	}

	if node.Query != nil {
		cb := q.compiler.Compile(node.Query)
		filtered := make([]interface{}, 0, len(values))
		for _, v := range values {
			result, err := cb(v)
			if err != nil {
				return nil, err
			}
			keep, ok := result.(bool)
			if !ok {
				return nil, fmt.Errorf("memory: aggregation filter did not evaluate to a boolean, got %T", result)
			}
			if keep {
				filtered = append(filtered, v)
			}
		}
		values = filtered
	}

	switch node.Kind {
	case ast.AggCount, ast.AggHas:
		return reduceValues(node.Kind, values)
	default:
		projected := make([]interface{}, len(values))
		for i, v := range values {
			p, err := q.compiler.Accessor(v, node.Field)
			if err != nil {
				return nil, err
			}
			projected[i] = p
		}
		return reduceValues(node.Kind, projected)
	}
}

// Slice materializes the full result set in iteration order, running the
// Source then every pipeline stage in sequence.
func (q *QuerySet[T]) Slice(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	items, err := q.source()
	if err != nil {
		return nil, err
	}
	for _, s := range q.pipeline {
		items, err = s(items)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}
