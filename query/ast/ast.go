// Package ast defines the query expression AST: a closed set of node
// variants representing field access, literals, unary/binary operators,
// and aggregations over a record-local collection.
//
// Nodes are immutable once built and form a DAG — sub-expressions may be
// shared, never cyclic. The package exposes no
// evaluation; query/memory and query/relational each compile a Node into
// a backend-specific callable.
package ast

import (
	"fmt"
	"reflect"
	"strings"
)

// Node is the sealed interface implemented by every AST variant. The
// unexported marker keeps the sum type closed to this package; compilers
// in other packages still read the exported fields via type assertion.
type Node interface {
	fmt.Stringer
	node()
}

// FieldNode reads a named value directly off the item under evaluation
// (for the in-memory backend) or denotes a column reference (for the
// relational backend). It is the root of every access chain.
type FieldNode struct {
	Name string
}

func (*FieldNode) node() {}
func (f *FieldNode) String() string {
	return f.Name
}

// GetAttrNode reads an attribute off the value produced by Parent. Name
// is used when the attribute name is a compile-time constant; NameNode is
// set instead when the name itself is a lazy expression.
type GetAttrNode struct {
	Parent   Node
	Name     string
	NameNode Node
}

func (*GetAttrNode) node() {}
func (g *GetAttrNode) String() string {
	if g.NameNode != nil {
		return fmt.Sprintf("%s.(%s)", g.Parent, g.NameNode)
	}
	return fmt.Sprintf("%s.%s", g.Parent, g.Name)
}

// GetItemNode indexes the value produced by Parent. Key is used when the
// index is a compile-time constant; KeyNode is set when the index itself
// is a lazy expression.
type GetItemNode struct {
	Parent  Node
	Key     interface{}
	KeyNode Node
}

func (*GetItemNode) node() {}
func (g *GetItemNode) String() string {
	if g.KeyNode != nil {
		return fmt.Sprintf("%s[%s]", g.Parent, g.KeyNode)
	}
	return fmt.Sprintf("%s[%v]", g.Parent, g.Key)
}

// CallNode invokes the callable produced by Parent. Each element of Args
// is either a Node (lazy argument) or a raw value.
type CallNode struct {
	Parent Node
	Args   []interface{}
	Kwargs map[string]interface{}
}

func (*CallNode) node() {}
func (c *CallNode) String() string {
	parts := make([]string, 0, len(c.Args)+len(c.Kwargs))
	for _, a := range c.Args {
		parts = append(parts, fmt.Sprintf("%v", a))
	}
	for k, v := range c.Kwargs {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return fmt.Sprintf("%s(%s)", c.Parent, strings.Join(parts, ", "))
}

// LiteralNode wraps a constant so it can participate in the node algebra
// (be compared, combined, or made .Where-able). A Literal always yields
// its Value unchanged; it is never invoked even if Value is callable —
// callers needing late binding should use a Field instead.
type LiteralNode struct {
	Value interface{}
}

func (*LiteralNode) node() {}
func (l *LiteralNode) String() string {
	return fmt.Sprintf("%#v", l.Value)
}

// UnaryNode applies Op to Operand.
type UnaryNode struct {
	Op      UnaryOp
	Operand Node
}

func (*UnaryNode) node() {}
func (u *UnaryNode) String() string {
	return fmt.Sprintf("%s%s", u.Op, u.Operand)
}

// BinaryNode applies Op across Operands, an ordered, n-ary, left-
// associative sequence of Node-or-raw-value entries. len(Operands) is
// always >= 2.
type BinaryNode struct {
	Op       BinaryOp
	Operands []interface{}
}

func (*BinaryNode) node() {}
func (b *BinaryNode) String() string {
	parts := make([]string, len(b.Operands))
	for i, o := range b.Operands {
		parts[i] = fmt.Sprintf("%v", o)
	}
	return strings.Join(parts, " "+string(b.Op)+" ")
}

// AggregationNode reduces the record-local collection reachable through
// Field to a scalar (or, for Collect, a list). Query, when non-nil, is an
// inner filter applied to the collection before reduction.
type AggregationNode struct {
	Kind  AggKind
	Field string
	Query Node
}

func (*AggregationNode) node() {}
func (a *AggregationNode) String() string {
	s := fmt.Sprintf("%s(%q)", a.Kind, a.Field)
	if a.Query != nil {
		s += fmt.Sprintf(".Where(%s)", a.Query)
	}
	return s
}

// Equal reports whether two nodes have the same variant, operator, and
// operand sequence. Used by tests to de-duplicate or assert structural
// shape; nodes are not otherwise used as map keys (literal values may not
// be hashable).
func Equal(a, b Node) bool {
	return reflect.DeepEqual(a, b)
}

// IsNode reports whether an operand (as stored in BinaryNode.Operands or
// CallNode.Args) is itself a lazy Node rather than a raw value.
func IsNode(v interface{}) (Node, bool) {
	n, ok := v.(Node)
	return n, ok
}
