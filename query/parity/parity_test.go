// Package parity checks that the in-memory and relational backends agree
// on which records match the same expression when the relational table
// mirrors the in-memory records.
package parity

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/memory"
	"github.com/nielslerches/ddd-scaffold/query/relational"
)

// order carries Items alongside UUID/Total so the in-memory backend,
// which navigates Has("items") as a struct field rather than a join, has
// the same nested data the relational backend reaches via the
// order_items table. Items are plain maps (rather than a struct with a
// LineTotal field) so the DSL's "line_total" field name resolves by
// exact map key, matching the relational side's column name precisely.
type order struct {
	UUID  string
	Total float64
	Items []map[string]interface{}
}

type orderModel struct{}

func (orderModel) Table() string     { return "orders" }
func (orderModel) Columns() []string { return []string{"uuid", "total"} }

func (orderModel) Column(field string) (string, bool) {
	switch field {
	case "uuid":
		return "uuid", true
	case "total":
		return "total", true
	default:
		return "", false
	}
}

func (orderModel) Relationship(field string) (relational.Relationship, bool) {
	if field != "items" {
		return relational.Relationship{}, false
	}
	return relational.Relationship{
		RelatedTable: "order_items",
		ForeignKey:   "order_id",
		LocalKey:     "uuid",
		RelatedModel: orderItemModel{},
	}, true
}

type orderItemModel struct{}

func (orderItemModel) Table() string     { return "order_items" }
func (orderItemModel) Columns() []string { return []string{"order_id", "line_total"} }

func (orderItemModel) Column(field string) (string, bool) {
	switch field {
	case "order_id":
		return "order_id", true
	case "line_total":
		return "line_total", true
	default:
		return "", false
	}
}

func (orderItemModel) Relationship(string) (relational.Relationship, bool) {
	return relational.Relationship{}, false
}

func scanOrder(rows *sql.Rows) (order, error) {
	var o order
	err := rows.Scan(&o.UUID, &o.Total)
	return o, err
}

// orders seeds both backends with matching rows: u1 has one item
// (499.00) and totals 499.00; u2 has no items and totals 129.00.
func orders() []order {
	return []order{
		{UUID: "u1", Total: 499.00, Items: []map[string]interface{}{{"line_total": 499.00}}},
		{UUID: "u2", Total: 129.00, Items: nil},
	}
}

func setupDB(t *testing.T) *relational.Session {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE orders (uuid TEXT PRIMARY KEY, total REAL NOT NULL);
		CREATE TABLE order_items (order_id TEXT NOT NULL, line_total REAL NOT NULL);
		INSERT INTO orders (uuid, total) VALUES ('u1', 499.00), ('u2', 129.00);
		INSERT INTO order_items (order_id, line_total) VALUES ('u1', 499.00);
	`)
	require.NoError(t, err)

	return relational.NewSession(db, relational.SQLite{})
}

func uuids(t *testing.T, records interface{}) []string {
	t.Helper()
	var result []string
	switch v := records.(type) {
	case []order:
		for _, o := range v {
			result = append(result, o.UUID)
		}
	default:
		t.Fatalf("parity: unexpected record type %T", records)
	}
	sort.Strings(result)
	return result
}

// TestFilterParity checks parity for a plain comparison predicate.
func TestFilterParity(t *testing.T) {
	ctx := context.Background()
	predicate := ast.Field("total").Ge(499.00)

	memResult, err := memory.FromSlice(memory.NewCompiler(nil), orders()).
		Filter(predicate).
		Slice(ctx)
	require.NoError(t, err)

	session := setupDB(t)
	defer session.Close()
	relResult, err := relational.New[order](session, orderModel{}, scanOrder).
		Filter(predicate).
		Slice(ctx)
	require.NoError(t, err)

	require.Equal(t, uuids(t, memResult), uuids(t, relResult))
}

// TestHasParity checks parity for a correlated Has aggregation, with and
// without a nested Where.
func TestHasParity(t *testing.T) {
	ctx := context.Background()

	memQS := memory.FromSlice(memory.NewCompiler(nil), orders())
	session := setupDB(t)
	defer session.Close()
	relQS := relational.New[order](session, orderModel{}, scanOrder)

	cases := []ast.Agg{
		ast.Has("items"),
		ast.Has("items").Where(ast.Field("line_total").Ge(1000.00)),
	}

	for _, has := range cases {
		memResult, err := memQS.Filter(has).Slice(ctx)
		require.NoError(t, err)

		relResult, err := relQS.Filter(has).Slice(ctx)
		require.NoError(t, err)

		require.Equal(t, uuids(t, memResult), uuids(t, relResult))
	}
}
