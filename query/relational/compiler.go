package relational

import (
	"fmt"
	"strings"

	"github.com/nielslerches/ddd-scaffold/query/ast"
)

// compileClause lowers node to a SQL boolean/arithmetic fragment against
// model, using "?" as a dialect-neutral placeholder (renumbered to the
// session's dialect once the whole statement is assembled — see
// renumberPlaceholders in queryset.go). Field access, comparisons, logic,
// portable arithmetic, and Has correlated subqueries are supported; the
// relational backend has no analogue for GetAttr/GetItem/Call (there is
// no row-local object graph to walk once a value is a SQL column) or for
// FloorDiv/Pow/Mod, whose SQL spellings don't agree across the three
// wired dialects.
func compileClause(node ast.Node, model Model, dialect Dialect) (string, []interface{}, error) {
	switch n := node.(type) {
	case *ast.FieldNode:
		col, ok := model.Column(n.Name)
		if !ok {
			return "", nil, fmt.Errorf("relational: unknown field %q on %s", n.Name, model.Table())
		}
		return qualifiedColumn(dialect, model.Table(), col), nil, nil

	case *ast.LiteralNode:
		return "?", []interface{}{n.Value}, nil

	case *ast.BinaryNode:
		return compileBinaryClause(n, model, dialect)

	case *ast.UnaryNode:
		return compileUnaryClause(n, model, dialect)

	case *ast.AggregationNode:
		if n.Kind != ast.AggHas {
			return "", nil, fmt.Errorf("relational: %s is only supported as a top-level Aggregate, not inside a filter", n.Kind)
		}
		return compileHas(n, model, dialect)

	default:
		return "", nil, fmt.Errorf("relational: unsupported node type %T", node)
	}
}

func qualifiedColumn(dialect Dialect, table, column string) string {
	return dialect.Quote(table) + "." + dialect.Quote(column)
}

// compileOperand lowers a BinaryNode operand, which is either a lazy Node
// or a raw literal value, distinguished by the type switch itself.
func compileOperand(v interface{}, model Model, dialect Dialect) (string, []interface{}, error) {
	if n, ok := ast.IsNode(v); ok {
		return compileClause(n, model, dialect)
	}
	return "?", []interface{}{v}, nil
}

type compiledOperand struct {
	sql  string
	args []interface{}
}

func compileBinaryClause(n *ast.BinaryNode, model Model, dialect Dialect) (string, []interface{}, error) {
	op := n.Op

	if op == ast.OpAnd || op == ast.OpOr {
		parts := make([]string, len(n.Operands))
		var args []interface{}
		for i, o := range n.Operands {
			sub, subArgs, err := compileOperand(o, model, dialect)
			if err != nil {
				return "", nil, err
			}
			parts[i] = sub
			args = append(args, subArgs...)
		}
		joiner := " AND "
		if op == ast.OpOr {
			joiner = " OR "
		}
		return "(" + strings.Join(parts, joiner) + ")", args, nil
	}

	operands := make([]compiledOperand, len(n.Operands))
	for i, o := range n.Operands {
		sub, subArgs, err := compileOperand(o, model, dialect)
		if err != nil {
			return "", nil, err
		}
		operands[i] = compiledOperand{sql: sub, args: subArgs}
	}

	if op.IsBoolean() {
		sqlOp, err := comparisonOperator(op)
		if err != nil {
			return "", nil, err
		}
		var parts []string
		var args []interface{}
		for i := 0; i < len(operands)-1; i++ {
			a, b := operands[i], operands[i+1]
			parts = append(parts, fmt.Sprintf("%s %s %s", a.sql, sqlOp, b.sql))
			args = append(args, a.args...)
			args = append(args, b.args...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", args, nil
	}

	sqlOp, err := arithmeticOperator(op)
	if err != nil {
		return "", nil, err
	}
	parts := make([]string, len(operands))
	var args []interface{}
	for i, o := range operands {
		parts[i] = o.sql
		args = append(args, o.args...)
	}
	return "(" + strings.Join(parts, " "+sqlOp+" ") + ")", args, nil
}

func comparisonOperator(op ast.BinaryOp) (string, error) {
	switch op {
	case ast.OpEq:
		return "=", nil
	case ast.OpNe:
		return "!=", nil
	case ast.OpGt:
		return ">", nil
	case ast.OpGe:
		return ">=", nil
	case ast.OpLt:
		return "<", nil
	case ast.OpLe:
		return "<=", nil
	default:
		return "", fmt.Errorf("relational: unsupported comparison operator %q", op)
	}
}

func arithmeticOperator(op ast.BinaryOp) (string, error) {
	switch op {
	case ast.OpAdd:
		return "+", nil
	case ast.OpSub:
		return "-", nil
	case ast.OpMul:
		return "*", nil
	case ast.OpDiv:
		return "/", nil
	default:
		return "", fmt.Errorf("relational: %q has no portable SQL spelling across the wired dialects", op)
	}
}

func compileUnaryClause(n *ast.UnaryNode, model Model, dialect Dialect) (string, []interface{}, error) {
	sub, args, err := compileClause(n.Operand, model, dialect)
	if err != nil {
		return "", nil, err
	}
	switch n.Op {
	case ast.OpNot:
		return "NOT (" + sub + ")", args, nil
	case ast.OpNeg:
		return "(-" + sub + ")", args, nil
	default:
		return "", nil, fmt.Errorf("relational: unsupported unary operator %q", n.Op)
	}
}

// compileHas lowers Has(field) to a correlated EXISTS subquery against the
// related table. A nested .Where() predicate is compiled against the
// related Model, so its field names resolve to the related table's
// columns.
func compileHas(n *ast.AggregationNode, model Model, dialect Dialect) (string, []interface{}, error) {
	rel, ok := model.Relationship(n.Field)
	if !ok {
		return "", nil, fmt.Errorf("relational: unknown relationship %q on %s", n.Field, model.Table())
	}

	condition := fmt.Sprintf(
		"%s = %s",
		qualifiedColumn(dialect, rel.RelatedTable, rel.ForeignKey),
		qualifiedColumn(dialect, model.Table(), rel.LocalKey),
	)
	var args []interface{}

	if n.Query != nil {
		sub, subArgs, err := compileClause(n.Query, rel.RelatedModel, dialect)
		if err != nil {
			return "", nil, err
		}
		condition += " AND " + sub
		args = subArgs
	}

	sqlText := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM %s WHERE %s)",
		dialect.Quote(rel.RelatedTable),
		condition,
	)
	return sqlText, args, nil
}
