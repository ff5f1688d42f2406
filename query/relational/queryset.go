package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nielslerches/ddd-scaffold/internal/debug"
	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/queryset"
)

// Scanner reads one row into a T, e.g. `func(r *sql.Rows) (Order, error)`.
// Generics can't derive a struct's column mapping by reflection alone, so
// callers supply this the same way they'd hand-write rows.Scan calls
// anywhere else in Go.
type Scanner[T any] func(rows *sql.Rows) (T, error)

type clause struct {
	sql  string
	args []interface{}
}

type orderTerm struct {
	sql  string
	desc bool
}

// QuerySet is the relational backend's implementation of
// queryset.QuerySet[T]. Filter/Exclude/OrderBy accumulate clauses without
// touching the database; a SQL statement is built and executed only on
// Get/First/Last/Aggregate/Slice.
type QuerySet[T any] struct {
	session *Session
	model   Model
	scan    Scanner[T]
	wheres  []clause
	order   []orderTerm
	err     error
}

// New builds a QuerySet selecting from model through session, scanning
// each row with scan.
func New[T any](session *Session, model Model, scan Scanner[T]) *QuerySet[T] {
	return &QuerySet[T]{session: session, model: model, scan: scan}
}

func (q *QuerySet[T]) fail(err error) *QuerySet[T] {
	return &QuerySet[T]{session: q.session, model: q.model, scan: q.scan, wheres: q.wheres, order: q.order, err: err}
}

func (q *QuerySet[T]) derive(extraWheres []clause, extraOrder []orderTerm) *QuerySet[T] {
	wheres := make([]clause, len(q.wheres)+len(extraWheres))
	copy(wheres, q.wheres)
	copy(wheres[len(q.wheres):], extraWheres)

	order := make([]orderTerm, len(q.order)+len(extraOrder))
	copy(order, q.order)
	copy(order[len(q.order):], extraOrder)

	return &QuerySet[T]{session: q.session, model: q.model, scan: q.scan, wheres: wheres, order: order}
}

// All returns the receiver; present for fluency, it performs no refinement.
func (q *QuerySet[T]) All() queryset.QuerySet[T] {
	return q
}

// Filter ANDs every predicate, each compiled against q.model, into the
// accumulated WHERE clause.
func (q *QuerySet[T]) Filter(predicates ...ast.Queryable) queryset.QuerySet[T] {
	if q.err != nil {
		return q
	}
	extra := make([]clause, len(predicates))
	for i, p := range predicates {
		sub, args, err := compileClause(p.AsNode(), q.model, q.session.Dialect())
		if err != nil {
			return q.fail(err)
		}
		extra[i] = clause{sql: sub, args: args}
	}
	return q.derive(extra, nil)
}

// Exclude keeps rows for which at least one predicate is false: the
// De Morgan dual of Filter, compiled as a single NOT(p1 AND p2 AND ...)
// clause rather than one clause per predicate.
func (q *QuerySet[T]) Exclude(predicates ...ast.Queryable) queryset.QuerySet[T] {
	if q.err != nil {
		return q
	}
	if len(predicates) == 0 {
		return q
	}
	parts := make([]string, len(predicates))
	var args []interface{}
	for i, p := range predicates {
		sub, subArgs, err := compileClause(p.AsNode(), q.model, q.session.Dialect())
		if err != nil {
			return q.fail(err)
		}
		parts[i] = sub
		args = append(args, subArgs...)
	}
	combined := "NOT (" + strings.Join(parts, " AND ") + ")"
	return q.derive([]clause{{sql: combined, args: args}}, nil)
}

// OrderBy sorts by fields, primary key first; a field wrapped in .Neg()
// sorts descending. Unlike the in-memory backend's reversed-application
// repeated stable sort, SQL's multi-column ORDER BY already expresses
// "earlier columns take priority" directly, so fields are appended in
// the given order rather than reversed.
func (q *QuerySet[T]) OrderBy(fields ...ast.Expr) queryset.QuerySet[T] {
	if q.err != nil {
		return q
	}
	extra := make([]orderTerm, len(fields))
	for i, f := range fields {
		node := f.AsNode()
		desc := false
		if un, ok := node.(*ast.UnaryNode); ok && un.Op == ast.OpNeg {
			desc = true
			node = un.Operand
		}
		sub, _, err := compileClause(node, q.model, q.session.Dialect())
		if err != nil {
			return q.fail(err)
		}
		extra[i] = orderTerm{sql: sub, desc: desc}
	}
	return q.derive(nil, extra)
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
// Non-goals rule out streaming, so — like First/Last over the in-memory
// backend — it materializes the whole result rather than issuing a
// LIMIT 1 query, keeping the two backends' notion of "first" identical
// regardless of whether OrderBy was used.
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

// Slice runs the accumulated SELECT and scans every row.
func (q *QuerySet[T]) Slice(ctx context.Context) ([]T, error) {
	if q.err != nil {
		return nil, q.err
	}

	sqlText, args := q.buildSelect()
	debug.Debug("relational: executing query", "sql", sqlText, "args", len(args))
	rows, err := q.session.DB().QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("relational: query failed: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := q.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("relational: scan failed: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (q *QuerySet[T]) buildSelect() (string, []interface{}) {
	dialect := q.session.Dialect()

	columns := make([]string, len(q.model.Columns()))
	for i, c := range q.model.Columns() {
		columns[i] = qualifiedColumn(dialect, q.model.Table(), c)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(dialect.Quote(q.model.Table()))

	var args []interface{}
	if len(q.wheres) > 0 {
		parts := make([]string, len(q.wheres))
		for i, w := range q.wheres {
			parts[i] = w.sql
			args = append(args, w.args...)
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(parts, " AND "))
	}

	if len(q.order) > 0 {
		parts := make([]string, len(q.order))
		for i, o := range q.order {
			dir := "ASC"
			if o.desc {
				dir = "DESC"
			}
			parts[i] = o.sql + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(parts, ", "))
	}

	return renumberPlaceholders(sb.String(), dialect), args
}

// renumberPlaceholders rewrites the dialect-neutral "?" markers compiler.go
// emits into the session's dialect's actual placeholder syntax. Clauses
// are compiled independently across however many Filter/Exclude/Aggregate
// calls produced them, so there is no single counter available while
// building; renumbering the assembled statement in one pass is the
// equivalent for an immutable, composable pipeline.
func renumberPlaceholders(sqlText string, dialect Dialect) string {
	var b strings.Builder
	n := 0
	for _, r := range sqlText {
		if r == '?' {
			n++
			b.WriteString(dialect.Placeholder(n))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Aggregate evaluates agg over the queryset's current WHERE clause (plus
// agg's own .Where(), ANDed in just for this call). Count/Has/Sum/Mean
// reduce server-side in a single-row query; Median and
// Collect have no portable server-side form across the three wired
// dialects, so their source column is fetched and reduced in Go by
// reduceProjected, which follows the in-memory backend's reduction rules.
func (q *QuerySet[T]) Aggregate(ctx context.Context, agg ast.Agg) (interface{}, error) {
	if q.err != nil {
		return nil, q.err
	}
	node, ok := agg.AsNode().(*ast.AggregationNode)
	if !ok {
		return nil, fmt.Errorf("relational: not an aggregation: %T", agg.AsNode())
	}

	wheres := q.wheres
	if node.Query != nil {
		sub, args, err := compileClause(node.Query, q.model, q.session.Dialect())
		if err != nil {
			return nil, err
		}
		wheres = append(append([]clause{}, wheres...), clause{sql: sub, args: args})
	}

	dialect := q.session.Dialect()
	whereSQL, whereArgs := renderWhere(wheres)
	debug.Debug("relational: executing aggregate", "kind", node.Kind, "field", node.Field, "args", len(whereArgs))

	switch node.Kind {
	case ast.AggCount, ast.AggHas:
		sqlText := "SELECT COUNT(*) FROM " + dialect.Quote(q.model.Table())
		if whereSQL != "" {
			sqlText += " WHERE " + whereSQL
		}
		var count int64
		err := q.session.DB().QueryRowContext(ctx, renumberPlaceholders(sqlText, dialect), whereArgs...).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("relational: aggregate query failed: %w", err)
		}
		if node.Kind == ast.AggHas {
			return count > 0, nil
		}
		return count, nil

	case ast.AggSum, ast.AggMean:
		col, ok := q.model.Column(node.Field)
		if !ok {
			return nil, fmt.Errorf("relational: unknown field %q on %s", node.Field, q.model.Table())
		}
		fn := "SUM"
		if node.Kind == ast.AggMean {
			fn = "AVG"
		}
		sqlText := fmt.Sprintf("SELECT %s(%s) FROM %s", fn, dialect.Quote(col), dialect.Quote(q.model.Table()))
		if whereSQL != "" {
			sqlText += " WHERE " + whereSQL
		}
		var result sql.NullFloat64
		err := q.session.DB().QueryRowContext(ctx, renumberPlaceholders(sqlText, dialect), whereArgs...).Scan(&result)
		if err != nil {
			return nil, fmt.Errorf("relational: aggregate query failed: %w", err)
		}
		if !result.Valid {
			if node.Kind == ast.AggMean {
				return nil, fmt.Errorf("relational: mean of an empty collection is undefined")
			}
			return 0.0, nil
		}
		return result.Float64, nil

	case ast.AggMedian, ast.AggCollect:
		col, ok := q.model.Column(node.Field)
		if !ok {
			return nil, fmt.Errorf("relational: unknown field %q on %s", node.Field, q.model.Table())
		}
		sqlText := fmt.Sprintf("SELECT %s FROM %s", dialect.Quote(col), dialect.Quote(q.model.Table()))
		if whereSQL != "" {
			sqlText += " WHERE " + whereSQL
		}
		rows, err := q.session.DB().QueryContext(ctx, renumberPlaceholders(sqlText, dialect), whereArgs...)
		if err != nil {
			return nil, fmt.Errorf("relational: aggregate query failed: %w", err)
		}
		defer rows.Close()

		var values []interface{}
		for rows.Next() {
			var v interface{}
			if err := rows.Scan(&v); err != nil {
				return nil, fmt.Errorf("relational: scan failed: %w", err)
			}
			values = append(values, normalizeDriverValue(v))
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return reduceProjected(node.Kind, values)

	default:
		return nil, fmt.Errorf("relational: unsupported aggregation kind %q", node.Kind)
	}
}

func renderWhere(wheres []clause) (string, []interface{}) {
	if len(wheres) == 0 {
		return "", nil
	}
	parts := make([]string, len(wheres))
	var args []interface{}
	for i, w := range wheres {
		parts[i] = w.sql
		args = append(args, w.args...)
	}
	return strings.Join(parts, " AND "), args
}

// normalizeDriverValue coerces a driver-returned value into a comparable
// Go scalar. database/sql drivers commonly surface numeric/decimal
// columns as []byte when scanned into interface{} (notably
// go-sql-driver/mysql); reduceProjected needs a plain float64 or string.
func normalizeDriverValue(v interface{}) interface{} {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// reduceProjected reduces an already-projected column of values — the
// relational-side counterpart to the in-memory backend's reduceValues,
// used only for the two aggregations (Median, Collect) without a
// portable server-side form.
func reduceProjected(kind ast.AggKind, values []interface{}) (interface{}, error) {
	switch kind {
	case ast.AggCollect:
		out := make([]interface{}, len(values))
		copy(out, values)
		return out, nil

	case ast.AggMedian:
		if len(values) == 0 {
			return nil, nil
		}
		sorted := make([]interface{}, len(values))
		copy(sorted, values)
		var sortErr error
		sort.SliceStable(sorted, func(i, j int) bool {
			if sortErr != nil {
				return false
			}
			cmp, err := ast.Compare(sorted[i], sorted[j])
			if err != nil {
				sortErr = err
				return false
			}
			return cmp < 0
		})
		if sortErr != nil {
			return nil, sortErr
		}
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return sorted[mid], nil
		}
		sum, err := ast.OpAdd.Reduce(sorted[mid-1], sorted[mid])
		if err != nil {
			return nil, err
		}
		return ast.OpDiv.Reduce(sum, int64(2))

	default:
		return nil, fmt.Errorf("relational: unsupported aggregation kind %q", kind)
	}
}
