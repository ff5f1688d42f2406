package ast_test

import (
	"testing"

	"github.com/nielslerches/ddd-scaffold/query/ast"
	"github.com/stretchr/testify/require"
)

func TestFlatteningIsLeftAssociative(t *testing.T) {
	expr := ast.Field("a").Add(ast.Field("b")).Add(ast.Field("c"))
	bn, ok := expr.AsNode().(*ast.BinaryNode)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, bn.Op)
	require.Len(t, bn.Operands, 3)
}

func TestConstantFoldingOfAdjacentLiterals(t *testing.T) {
	expr := ast.Field("points").Add(1).Add(2)
	bn, ok := expr.AsNode().(*ast.BinaryNode)
	require.True(t, ok)
	require.Len(t, bn.Operands, 2)
	require.Equal(t, 3, bn.Operands[1])
}

func TestConstantFoldingDoesNotReorderMixedTypes(t *testing.T) {
	expr := ast.Literal(1).Add("x").Add(2)
	bn, ok := expr.AsNode().(*ast.BinaryNode)
	require.True(t, ok)
	require.Len(t, bn.Operands, 3)
	require.Equal(t, 1, bn.Operands[0])
	require.Equal(t, "x", bn.Operands[1])
	require.Equal(t, 2, bn.Operands[2])
}

func TestDoubleNegationCollapsesForBooleanOps(t *testing.T) {
	base := ast.Field("x").Eq(1)
	require.True(t, ast.Equal(base.Not().Not().AsNode(), base.AsNode()))
}

func TestDoubleNegationCollapsesForArithmeticNeg(t *testing.T) {
	base := ast.Field("x")
	require.True(t, ast.Equal(base.Neg().Neg().AsNode(), base.AsNode()))
}

func TestInversionRewritesComparisonOperators(t *testing.T) {
	cases := []struct {
		op   ast.BinaryOp
		want ast.BinaryOp
	}{
		{ast.OpEq, ast.OpNe},
		{ast.OpNe, ast.OpEq},
		{ast.OpGt, ast.OpLe},
		{ast.OpLe, ast.OpGt},
		{ast.OpGe, ast.OpLt},
		{ast.OpLt, ast.OpGe},
	}
	for _, c := range cases {
		expr := Expr(t, c.op)
		inverted, ok := expr.Not().AsNode().(*ast.BinaryNode)
		require.True(t, ok)
		require.Equal(t, c.want, inverted.Op)
	}
}

func Expr(t *testing.T, op ast.BinaryOp) ast.Expr {
	t.Helper()
	switch op {
	case ast.OpEq:
		return ast.Field("x").Eq(1)
	case ast.OpNe:
		return ast.Field("x").Ne(1)
	case ast.OpGt:
		return ast.Field("x").Gt(1)
	case ast.OpLe:
		return ast.Field("x").Le(1)
	case ast.OpGe:
		return ast.Field("x").Ge(1)
	case ast.OpLt:
		return ast.Field("x").Lt(1)
	default:
		t.Fatalf("unhandled op %s", op)
		return ast.Expr{}
	}
}

func TestLeGlyphRendersCorrectly(t *testing.T) {
	require.Equal(t, "<=", string(ast.OpLe))
}

func TestAggregationWhereReplacesRatherThanComposes(t *testing.T) {
	q1 := ast.Field("quantity").Gt(0)
	q2 := ast.Field("quantity").Gt(5)

	agg := ast.Count("items").Where(q1).Where(q2)
	node := agg.AsNode().(*ast.AggregationNode)
	require.True(t, ast.Equal(node.Query, q2.AsNode()))
	require.False(t, ast.Equal(node.Query, q1.AsNode()))
}

func TestAggregationParticipatesInComparisonAndArithmetic(t *testing.T) {
	expr := ast.Count("items").Eq(0)
	bn, ok := expr.AsNode().(*ast.BinaryNode)
	require.True(t, ok)
	require.Equal(t, ast.OpEq, bn.Op)

	sumExpr := ast.Sum("line_total").Add(10)
	sbn, ok := sumExpr.AsNode().(*ast.BinaryNode)
	require.True(t, ok)
	require.Equal(t, ast.OpAdd, sbn.Op)
}

func TestChainedFieldAccess(t *testing.T) {
	expr := ast.Field("cart").Attr("items")
	attr, ok := expr.AsNode().(*ast.GetAttrNode)
	require.True(t, ok)
	require.Equal(t, "items", attr.Name)
	field, ok := attr.Parent.(*ast.FieldNode)
	require.True(t, ok)
	require.Equal(t, "cart", field.Name)
}

func TestBinaryOpReduceArithmetic(t *testing.T) {
	result, err := ast.OpAdd.Reduce(2, 3)
	require.NoError(t, err)
	require.Equal(t, int64(5), result)

	result, err = ast.OpMod.Reduce(-7.0, 3.0)
	require.NoError(t, err)
	require.InDelta(t, 2.0, result, 0.0001)
}

func TestBinaryOpReduceTypeMismatchErrors(t *testing.T) {
	_, err := ast.OpAdd.Reduce("x", 1)
	require.Error(t, err)
}
