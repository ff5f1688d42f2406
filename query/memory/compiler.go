// Package memory implements the in-memory query backend: a compiler
// turning an ast.Node into a plain Go closure, and a QuerySet built from a
// lazily-iterated pipeline of filter/exclude/order_by stages over a Go
// slice.
package memory

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/nielslerches/ddd-scaffold/internal/debug"
	"github.com/nielslerches/ddd-scaffold/query/ast"
)

// Eval is a compiled expression: given the record under evaluation, it
// produces the expression's value (or an error for a type mismatch or
// missing attribute).
type Eval func(item interface{}) (interface{}, error)

// Accessor reads a named value off a record. DefaultAccessor handles
// structs (by exported field, trying the name as given and then with an
// upper-cased first letter) and maps (by key); callers with other record
// shapes supply their own.
type Accessor func(item interface{}, name string) (interface{}, error)

// Compiler turns ast.Node values into Eval closures. It is immutable and
// safe for concurrent use — compiling the same node twice is cheap and
// side-effect free, so callers needn't cache beyond what's convenient.
type Compiler struct {
	Accessor Accessor
}

// NewCompiler returns a Compiler using accessor, or DefaultAccessor if
// accessor is nil.
func NewCompiler(accessor Accessor) *Compiler {
	if accessor == nil {
		accessor = DefaultAccessor
	}
	return &Compiler{Accessor: accessor}
}

// DefaultAccessor reads name off item: a map key for map values, or an
// exported struct field (tried as given, then with its first letter
// upper-cased) for everything else, following pointer and interface
// indirection down to the struct.
func DefaultAccessor(item interface{}, name string) (interface{}, error) {
	rv := reflect.ValueOf(item)
	if !rv.IsValid() {
		return nil, fmt.Errorf("memory: cannot read %q off a nil value", name)
	}

	if rv.Kind() == reflect.Map {
		val := rv.MapIndex(reflect.ValueOf(name))
		if !val.IsValid() {
			return nil, fmt.Errorf("memory: key %q not found on %T", name, item)
		}
		return val.Interface(), nil
	}

	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, fmt.Errorf("memory: cannot read %q off a nil %T", name, item)
		}
		rv = rv.Elem()
	}

	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("memory: cannot read %q off %T", name, item)
	}

	if fv := rv.FieldByName(name); fv.IsValid() {
		return fv.Interface(), nil
	}
	if fv := rv.FieldByName(exportedName(name)); fv.IsValid() {
		return fv.Interface(), nil
	}
	return nil, fmt.Errorf("memory: no field %q on %T", name, item)
}

func exportedName(name string) string {
	if name == "" || !strings.ContainsAny(name[:1], "abcdefghijklmnopqrstuvwxyz") {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Compile turns node into an Eval closure, dispatching on node type:
//
//  1. GetAttr  -> read an attribute off the compiled parent
//  2. GetItem  -> index the compiled parent
//  3. Call     -> invoke the compiled parent with compiled arguments
//  4. Field    -> the root of an access chain, read off the record itself
//  5. Literal  -> the constant itself, never invoked even if callable
//  6. Binary (boolean)    -> nwise pairwise reduction, all pairs must hold
//     (Or instead holds when any operand is true)
//  7. Binary (arithmetic) -> left-to-right fold
//  8. Unary    -> the operator's reducer applied to the compiled operand
//  9. Aggregation -> an inner collection, optionally filtered, reduced
func (c *Compiler) Compile(node ast.Node) Eval {
	switch n := node.(type) {
	case *ast.FieldNode:
		name := n.Name
		debug.Debug("memory: compiled field access", "field", name)
		return func(item interface{}) (interface{}, error) {
			return c.Accessor(item, name)
		}

	case *ast.GetAttrNode:
		return c.compileGetAttr(n)

	case *ast.GetItemNode:
		return c.compileGetItem(n)

	case *ast.CallNode:
		return c.compileCall(n)

	case *ast.LiteralNode:
		v := n.Value
		return func(interface{}) (interface{}, error) { return v, nil }

	case *ast.UnaryNode:
		return c.compileUnary(n)

	case *ast.BinaryNode:
		return c.compileBinary(n)

	case *ast.AggregationNode:
		return c.compileAggregation(n)

	default:
		return func(interface{}) (interface{}, error) {
			return nil, fmt.Errorf("memory: unsupported node type %T", node)
		}
	}
}

// compileOperand compiles v if it is a lazy ast.Node, or returns a closure
// yielding the raw value otherwise. BinaryNode.Operands, CallNode.Args,
// and GetItemNode.Key are a mix of the two.
func (c *Compiler) compileOperand(v interface{}) Eval {
	if n, ok := ast.IsNode(v); ok {
		return c.Compile(n)
	}
	return func(interface{}) (interface{}, error) { return v, nil }
}

func (c *Compiler) compileGetAttr(n *ast.GetAttrNode) Eval {
	parent := c.Compile(n.Parent)
	if n.NameNode != nil {
		nameEval := c.Compile(n.NameNode)
		return func(item interface{}) (interface{}, error) {
			p, err := parent(item)
			if err != nil {
				return nil, err
			}
			nameVal, err := nameEval(item)
			if err != nil {
				return nil, err
			}
			name, ok := nameVal.(string)
			if !ok {
				return nil, fmt.Errorf("memory: attribute name must be a string, got %T", nameVal)
			}
			return c.Accessor(p, name)
		}
	}
	name := n.Name
	return func(item interface{}) (interface{}, error) {
		p, err := parent(item)
		if err != nil {
			return nil, err
		}
		return c.Accessor(p, name)
	}
}

func (c *Compiler) compileGetItem(n *ast.GetItemNode) Eval {
	parent := c.Compile(n.Parent)
	if n.KeyNode != nil {
		keyEval := c.Compile(n.KeyNode)
		return func(item interface{}) (interface{}, error) {
			p, err := parent(item)
			if err != nil {
				return nil, err
			}
			key, err := keyEval(item)
			if err != nil {
				return nil, err
			}
			return getItem(p, key)
		}
	}
	key := n.Key
	return func(item interface{}) (interface{}, error) {
		p, err := parent(item)
		if err != nil {
			return nil, err
		}
		return getItem(p, key)
	}
}

func getItem(parent interface{}, key interface{}) (interface{}, error) {
	rv := reflect.ValueOf(parent)
	switch rv.Kind() {
	case reflect.Map:
		val := rv.MapIndex(reflect.ValueOf(key))
		if !val.IsValid() {
			return nil, fmt.Errorf("memory: key %v not found on %T", key, parent)
		}
		return val.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, ok := toInt(key)
		if !ok {
			return nil, fmt.Errorf("memory: index must be an integer, got %T", key)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, fmt.Errorf("memory: index %d out of range for %T of length %d", idx, parent, rv.Len())
		}
		return rv.Index(idx).Interface(), nil
	default:
		return nil, fmt.Errorf("memory: %T is not indexable", parent)
	}
}

func toInt(v interface{}) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	default:
		return 0, false
	}
}

func (c *Compiler) compileCall(n *ast.CallNode) Eval {
	parent := c.Compile(n.Parent)
	argEvals := make([]Eval, len(n.Args))
	for i, a := range n.Args {
		argEvals[i] = c.compileOperand(a)
	}
	hasKwargs := len(n.Kwargs) > 0
	return func(item interface{}) (interface{}, error) {
		fn, err := parent(item)
		if err != nil {
			return nil, err
		}
		if hasKwargs {
			return nil, fmt.Errorf("memory: calling %v does not support keyword arguments", n.Parent)
		}
		args := make([]interface{}, len(argEvals))
		for i, ae := range argEvals {
			v, err := ae(item)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return callFunc(fn, args)
	}
}

func callFunc(fn interface{}, args []interface{}) (interface{}, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("memory: %T is not callable", fn)
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}
	out := rv.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		last := out[len(out)-1].Interface()
		if err, ok := last.(error); ok {
			if err != nil {
				return nil, err
			}
			if len(out) == 2 {
				return out[0].Interface(), nil
			}
			vals := make([]interface{}, len(out)-1)
			for i := 0; i < len(out)-1; i++ {
				vals[i] = out[i].Interface()
			}
			return vals, nil
		}
		vals := make([]interface{}, len(out))
		for i := range out {
			vals[i] = out[i].Interface()
		}
		return vals, nil
	}
}

func (c *Compiler) compileUnary(n *ast.UnaryNode) Eval {
	operand := c.Compile(n.Operand)
	op := n.Op
	return func(item interface{}) (interface{}, error) {
		v, err := operand(item)
		if err != nil {
			return nil, err
		}
		return op.Reduce(v)
	}
}

// compileBinary splits boolean operators (pairwise: Lt(a, b, c) reads as
// a<b and b<c; Or holds when any operand is true) from arithmetic
// operators (left-to-right fold via reduce).
func (c *Compiler) compileBinary(n *ast.BinaryNode) Eval {
	evals := make([]Eval, len(n.Operands))
	for i, o := range n.Operands {
		evals[i] = c.compileOperand(o)
	}
	op := n.Op
	debug.Debug("memory: compiled binary clause", "op", op, "operands", len(evals))

	if op.IsBoolean() {
		return func(item interface{}) (interface{}, error) {
			values := make([]interface{}, len(evals))
			for i, e := range evals {
				v, err := e(item)
				if err != nil {
					return nil, err
				}
				values[i] = v
			}
			if op == ast.OpOr {
				for _, v := range values {
					b, ok := v.(bool)
					if !ok {
						return nil, fmt.Errorf("memory: %q requires boolean operands, got %T", op, v)
					}
					if b {
						return true, nil
					}
				}
				return false, nil
			}
			for i := 0; i < len(values)-1; i++ {
				result, err := op.Reduce(values[i], values[i+1])
				if err != nil {
					return nil, err
				}
				b, ok := result.(bool)
				if !ok {
					return nil, fmt.Errorf("memory: %q did not reduce to a boolean", op)
				}
				if !b {
					return false, nil
				}
			}
			return true, nil
		}
	}

	return func(item interface{}) (interface{}, error) {
		acc, err := evals[0](item)
		if err != nil {
			return nil, err
		}
		for _, e := range evals[1:] {
			v, err := e(item)
			if err != nil {
				return nil, err
			}
			acc, err = op.Reduce(acc, v)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil
	}
}

// compileAggregation builds the inner collection reachable through
// n.Field off the record under evaluation, applies n.Query if present,
// and reduces it by n.Kind. Values are reduced directly (not re-projected
// by Field) — Field here names the sub-collection to descend into; the
// top-level QuerySet.Aggregate path (queryset.go) instead uses Field to
// project each element of the queryset it is already given.
func (c *Compiler) compileAggregation(n *ast.AggregationNode) Eval {
	var queryEval Eval
	if n.Query != nil {
		queryEval = c.Compile(n.Query)
	}
	field := n.Field
	kind := n.Kind
	return func(item interface{}) (interface{}, error) {
		collection, err := c.Accessor(item, field)
		if err != nil {
			return nil, err
		}
		values, err := toSlice(collection)
		if err != nil {
			return nil, err
		}
		if queryEval != nil {
			filtered := make([]interface{}, 0, len(values))
			for _, v := range values {
				result, err := queryEval(v)
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
		return reduceValues(kind, values)
	}
}

// toSlice turns a collection-valued field into a []interface{}, the
// common currency reduceValues and the queryset pipeline operate on.
func toSlice(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	default:
		return nil, fmt.Errorf("memory: field does not reference a collection, got %T", v)
	}
}

// reduceValues applies an aggregation's reducer to an already-projected
// slice of values. Count and Has look only at the slice's length/
// emptiness; Sum, Mean, Median, and Collect operate on the values
// themselves.
func reduceValues(kind ast.AggKind, values []interface{}) (interface{}, error) {
	switch kind {
	case ast.AggCount:
		return int64(len(values)), nil

	case ast.AggHas:
		return len(values) > 0, nil

	case ast.AggSum:
		if len(values) == 0 {
			return int64(0), nil
		}
		acc := interface{}(int64(0))
		for _, v := range values {
			var err error
			acc, err = ast.OpAdd.Reduce(acc, v)
			if err != nil {
				return nil, err
			}
		}
		return acc, nil

	case ast.AggMean:
		if len(values) == 0 {
			return nil, fmt.Errorf("memory: mean of an empty collection is undefined")
		}
		sum, err := reduceValues(ast.AggSum, values)
		if err != nil {
			return nil, err
		}
		return ast.OpDiv.Reduce(sum, int64(len(values)))

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

	case ast.AggCollect:
		out := make([]interface{}, len(values))
		copy(out, values)
		return out, nil

	default:
		return nil, fmt.Errorf("memory: unsupported aggregation kind %q", kind)
	}
}
