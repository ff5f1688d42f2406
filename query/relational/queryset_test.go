package relational_test

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/nielslerches/ddd-scaffold/query/queryset"
	"github.com/nielslerches/ddd-scaffold/query/relational"
)

type orderModel struct{}

func (orderModel) Table() string      { return "orders" }
func (orderModel) Columns() []string  { return []string{"uuid", "total"} }
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

type order struct {
	UUID  string
	Total float64
}

func scanOrder(rows *sql.Rows) (order, error) {
	var o order
	err := rows.Scan(&o.UUID, &o.Total)
	return o, err
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

func TestRelationalFilter(t *testing.T) {
	session := setupDB(t)
	defer session.Close()

	qs := relational.New[order](session, orderModel{}, scanOrder)
	result, err := qs.Filter(ast.Field("total").Ge(499.00)).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "u1", result[0].UUID)
}

func TestRelationalCorrelatedHas(t *testing.T) {
	session := setupDB(t)
	defer session.Close()

	qs := relational.New[order](session, orderModel{}, scanOrder)

	result, err := qs.Filter(ast.Has("items")).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 1)
	require.Equal(t, "u1", result[0].UUID)

	result, err = qs.Filter(ast.Has("items").Where(ast.Field("line_total").Ge(1000.00))).Slice(context.Background())
	require.NoError(t, err)
	require.Len(t, result, 0)
}

func TestRelationalAggregateSumAndCount(t *testing.T) {
	session := setupDB(t)
	defer session.Close()

	qs := relational.New[order](session, orderModel{}, scanOrder)

	sum, err := qs.Aggregate(context.Background(), ast.Sum("total"))
	require.NoError(t, err)
	require.InDelta(t, 628.0, sum, 0.0001)

	count, err := qs.Aggregate(context.Background(), ast.Count("total"))
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestRelationalGetCardinalityErrors(t *testing.T) {
	session := setupDB(t)
	defer session.Close()

	qs := relational.New[order](session, orderModel{}, scanOrder)

	_, err := qs.Get(context.Background(), ast.Field("uuid").Eq("missing"))
	require.ErrorIs(t, err, queryset.ErrObjectDoesNotExist)

	_, err = session.DB().Exec(`INSERT INTO orders (uuid, total) VALUES ('u3', 501.0), ('u4', 501.0)`)
	require.NoError(t, err)

	_, err = qs.Get(context.Background(), ast.Field("total").Eq(501.0))
	require.ErrorIs(t, err, queryset.ErrMultipleObjectsReturned)
}
