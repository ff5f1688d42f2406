package ast

import "reflect"

// Queryable is satisfied by every value the fluent builder produces
// (Expr and Agg); QuerySet implementations accept it so filter/exclude/
// order_by can take either a plain expression or an aggregation.
type Queryable interface {
	AsNode() Node
}

// Expr wraps a Node and exposes the fluent operator algebra: comparisons,
// logical combinators, arithmetic, and attribute/item/call chaining. It
// is the public surface of the DSL — callers build expressions through
// Field/Literal/the aggregation constructors and these methods, never by
// constructing ast types directly.
type Expr struct {
	n Node
}

// AsNode returns the underlying AST node.
func (e Expr) AsNode() Node { return e.n }

func (e Expr) String() string { return e.n.String() }

// Field starts a field-reference chain rooted at name.
func Field(name string) Expr {
	return Expr{&FieldNode{Name: name}}
}

// Literal wraps a constant so it can be chained (e.g. .Where()'d,
// compared) like any other expression.
func Literal(v interface{}) Expr {
	return Expr{&LiteralNode{Value: v}}
}

// operand coerces a builder-facing argument (Expr, Agg, or a raw value)
// into the Node-or-raw-value shape BinaryNode/CallNode/GetItemNode store.
// A Queryable wrapping a bare literal unwraps to its raw value, so a
// literal operand looks the same whether it arrived via ast.Literal(v) or
// as a plain Go value.
func operand(v interface{}) interface{} {
	switch t := v.(type) {
	case Queryable:
		if ln, ok := t.AsNode().(*LiteralNode); ok {
			return ln.Value
		}
		return t.AsNode()
	default:
		return v
	}
}

// Attr builds a GetAttr node reading name off e.
func (e Expr) Attr(name string) Expr {
	return Expr{&GetAttrNode{Parent: e.n, Name: name}}
}

// AttrExpr builds a GetAttr node whose attribute name is itself computed
// lazily from another expression.
func (e Expr) AttrExpr(name Expr) Expr {
	return Expr{&GetAttrNode{Parent: e.n, NameNode: name.n}}
}

// Item builds a GetItem node indexing e by key.
func (e Expr) Item(key interface{}) Expr {
	if ke, ok := key.(Expr); ok {
		return Expr{&GetItemNode{Parent: e.n, KeyNode: ke.n}}
	}
	return Expr{&GetItemNode{Parent: e.n, Key: key}}
}

// Call builds a Call node invoking e with args (each coerced to
// Node-or-raw-value) and the given keyword arguments.
func (e Expr) Call(args ...interface{}) Expr {
	ops := make([]interface{}, len(args))
	for i, a := range args {
		ops[i] = operand(a)
	}
	return Expr{&CallNode{Parent: e.n, Args: ops}}
}

// CallKw is Call with keyword arguments.
func (e Expr) CallKw(kwargs map[string]interface{}, args ...interface{}) Expr {
	ops := make([]interface{}, len(args))
	for i, a := range args {
		ops[i] = operand(a)
	}
	kw := make(map[string]interface{}, len(kwargs))
	for k, v := range kwargs {
		kw[k] = operand(v)
	}
	return Expr{&CallNode{Parent: e.n, Args: ops, Kwargs: kw}}
}

// --- comparison / logical combinators ---------------------------------------

func (e Expr) Eq(other interface{}) Expr { return e.binary(OpEq, other) }
func (e Expr) Ne(other interface{}) Expr { return e.binary(OpNe, other) }
func (e Expr) Gt(other interface{}) Expr { return e.binary(OpGt, other) }
func (e Expr) Ge(other interface{}) Expr { return e.binary(OpGe, other) }
func (e Expr) Lt(other interface{}) Expr { return e.binary(OpLt, other) }
func (e Expr) Le(other interface{}) Expr { return e.binary(OpLe, other) }
func (e Expr) And(other interface{}) Expr { return e.binary(OpAnd, other) }
func (e Expr) Or(other interface{}) Expr  { return e.binary(OpOr, other) }

// --- arithmetic --------------------------------------------------------------

func (e Expr) Add(other interface{}) Expr      { return e.binary(OpAdd, other) }
func (e Expr) Sub(other interface{}) Expr      { return e.binary(OpSub, other) }
func (e Expr) Mul(other interface{}) Expr      { return e.binary(OpMul, other) }
func (e Expr) Div(other interface{}) Expr      { return e.binary(OpDiv, other) }
func (e Expr) FloorDiv(other interface{}) Expr { return e.binary(OpFloorDiv, other) }
func (e Expr) Pow(other interface{}) Expr      { return e.binary(OpPow, other) }
func (e Expr) Mod(other interface{}) Expr      { return e.binary(OpMod, other) }

// Not builds the logical negation of e, collapsing double negation and
// rewriting comparison operators directly.
func (e Expr) Not() Expr {
	if bn, ok := e.n.(*BinaryNode); ok {
		if inv, ok := bn.Op.Invert(); ok {
			return Expr{&BinaryNode{Op: inv, Operands: bn.Operands}}
		}
	}
	if un, ok := e.n.(*UnaryNode); ok && un.Op == OpNot {
		return Expr{un.Operand}
	}
	return Expr{&UnaryNode{Op: OpNot, Operand: e.n}}
}

// Neg builds the arithmetic negation of e, collapsing double negation.
func (e Expr) Neg() Expr {
	if un, ok := e.n.(*UnaryNode); ok && un.Op == OpNeg {
		return Expr{un.Operand}
	}
	return Expr{&UnaryNode{Op: OpNeg, Operand: e.n}}
}

// binary constructs a BinaryNode for op, flattening nested same-op nodes
// on both sides and folding adjacent same-typed literal operands when op
// opts into constant folding. If folding collapses every operand into a
// single value, that value is returned directly rather than as a
// single-operand BinaryNode (Operands is always >= 2 long).
func (e Expr) binary(op BinaryOp, other interface{}) Expr {
	rhs := operand(other)

	operands := make([]interface{}, 0, 2)
	operands = appendFlattened(operands, op, e.n)
	operands = appendFlattened(operands, op, rhs)

	if op.Precalc() {
		operands = foldAdjacent(op, operands)
	}

	if len(operands) == 1 {
		if n, ok := operands[0].(Node); ok {
			return Expr{n}
		}
		return Literal(operands[0])
	}

	return Expr{&BinaryNode{Op: op, Operands: operands}}
}

func appendFlattened(operands []interface{}, op BinaryOp, v interface{}) []interface{} {
	if n, ok := v.(Node); ok {
		if bn, ok := n.(*BinaryNode); ok && bn.Op == op {
			return append(operands, bn.Operands...)
		}
		// A bare literal carries no laziness of its own, so it is stored
		// as its raw value — same representation as a literal passed in
		// directly as the RHS — keeping Operands' literal entries
		// consistent regardless of which side of the chain produced them.
		if ln, ok := n.(*LiteralNode); ok {
			return append(operands, ln.Value)
		}
		return append(operands, n)
	}
	return append(operands, v)
}

func foldAdjacent(op BinaryOp, operands []interface{}) []interface{} {
	result := make([]interface{}, 0, len(operands))
	for _, v := range operands {
		if len(result) > 0 {
			last := result[len(result)-1]
			if !isLazy(last) && !isLazy(v) && sameConcreteType(last, v) {
				if folded, ok := precalcReduce(op, last, v); ok {
					result[len(result)-1] = folded
					continue
				}
			}
		}
		result = append(result, v)
	}
	return result
}

func isLazy(v interface{}) bool {
	_, ok := v.(Node)
	return ok
}

func sameConcreteType(a, b interface{}) bool {
	return reflect.TypeOf(a) == reflect.TypeOf(b)
}

// precalcReduce folds two literal operands of the same concrete type for
// the opt-in ops (Add, Mul). It never reorders operands — only ever
// merges the two values handed to it, which foldAdjacent only calls on
// truly adjacent entries.
func precalcReduce(op BinaryOp, a, b interface{}) (interface{}, bool) {
	switch av := a.(type) {
	case int:
		bv, ok := b.(int)
		if !ok {
			return nil, false
		}
		if op == OpAdd {
			return av + bv, true
		}
		return av * bv, true
	case int64:
		bv, ok := b.(int64)
		if !ok {
			return nil, false
		}
		if op == OpAdd {
			return av + bv, true
		}
		return av * bv, true
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return nil, false
		}
		if op == OpAdd {
			return av + bv, true
		}
		return av * bv, true
	case string:
		if op != OpAdd {
			return nil, false
		}
		bv, ok := b.(string)
		if !ok {
			return nil, false
		}
		return av + bv, true
	default:
		return nil, false
	}
}

// --- aggregations --------------------------------------------------------------

// Agg wraps an aggregation node. It embeds Expr so the usual comparison/
// arithmetic methods are available on it (Count('items').Eq(0)), and adds
// Where, which is only meaningful on aggregations.
type Agg struct {
	Expr
}

func newAgg(kind AggKind, field string) Agg {
	return Agg{Expr{&AggregationNode{Kind: kind, Field: field}}}
}

// Where returns a new aggregation narrowed by query. Calling Where again
// replaces, rather than composes with, any prior query — the last Where
// wins.
func (a Agg) Where(query Expr) Agg {
	node := a.n.(*AggregationNode)
	return Agg{Expr{&AggregationNode{Kind: node.Kind, Field: node.Field, Query: query.n}}}
}

// Count reduces the collection at field to its element count.
func Count(field string) Agg { return newAgg(AggCount, field) }

// Sum reduces the collection at field to the sum of its projected values.
func Sum(field string) Agg { return newAgg(AggSum, field) }

// Mean reduces the collection at field to the arithmetic mean of its
// projected values; undefined for an empty collection, where evaluating
// it returns an error.
func Mean(field string) Agg { return newAgg(AggMean, field) }

// Median reduces the collection at field to the median of its projected
// values; nil for an empty collection.
func Median(field string) Agg { return newAgg(AggMedian, field) }

// Has reduces the collection at field to whether it is non-empty (after
// any inner Where).
func Has(field string) Agg { return newAgg(AggHas, field) }

// Collect reduces the collection at field to the ordered list of its
// projected values.
func Collect(field string) Agg { return newAgg(AggCollect, field) }
