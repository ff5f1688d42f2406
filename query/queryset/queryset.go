// Package queryset defines the backend-agnostic QuerySet contract (spec
// §4.3/§6, component C6) and the two named error kinds a backend's Get
// can raise. Concrete backends (query/memory, query/relational) each
// implement this contract over their own source/session representation.
package queryset

import (
	"context"
	"errors"

	"github.com/nielslerches/ddd-scaffold/query/ast"
)

// ErrMultipleObjectsReturned is returned by Get when more than one record
// matched the given filters.
var ErrMultipleObjectsReturned = errors.New("queryset: multiple objects returned")

// ErrObjectDoesNotExist is returned by Get when no record matched the
// given filters.
var ErrObjectDoesNotExist = errors.New("queryset: object does not exist")

// QuerySet is the fluent, immutable, lazily-iterated contract every
// backend implements. Refinements (Filter, Exclude, OrderBy) return a new
// QuerySet; they never mutate the receiver. T is the record/row type the
// queryset produces.
type QuerySet[T any] interface {
	// All returns the queryset itself — present for fluency ("qs.all()");
	// it performs no refinement.
	All() QuerySet[T]

	// Filter returns a new QuerySet keeping only records for which every
	// predicate holds (logical AND across arguments).
	Filter(predicates ...ast.Queryable) QuerySet[T]

	// Exclude returns a new QuerySet keeping only records for which at
	// least one predicate is false (the De Morgan dual of Filter: an
	// OR-of-negations, not an AND-of-negations).
	Exclude(predicates ...ast.Queryable) QuerySet[T]

	// OrderBy returns a new QuerySet sorted by the given fields, primary
	// key first. A field wrapped in Neg (".Neg()") sorts descending. The
	// sort is stable.
	OrderBy(fields ...ast.Expr) QuerySet[T]

	// Get returns the single record matching predicates, or
	// ErrMultipleObjectsReturned / ErrObjectDoesNotExist.
	Get(ctx context.Context, predicates ...ast.Queryable) (T, error)

	// First returns the first record, or the zero value and false if the
	// queryset is empty.
	First(ctx context.Context) (T, bool, error)

	// Last returns the last record, or the zero value and false if the
	// queryset is empty.
	Last(ctx context.Context) (T, bool, error)

	// Aggregate evaluates an aggregation node directly over the queryset
	// and returns its reduced value.
	Aggregate(ctx context.Context, agg ast.Agg) (interface{}, error)

	// Slice materializes the full result set in iteration order.
	Slice(ctx context.Context) ([]T, error)
}
