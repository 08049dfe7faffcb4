package engine

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"

	"github.com/BDNK1/vecexpr/internal/symbol"
)

var vectorType = reflect.TypeOf(symbol.Vector{})

// Componentwise arithmetic. A scalar operand is broadcast to all three
// components.
var vectorOperators = []struct {
	operator string
	name     string
	fn       func(a, b float64) float64
}{
	{"+", "vec_add", func(a, b float64) float64 { return a + b }},
	{"-", "vec_sub", func(a, b float64) float64 { return a - b }},
	{"*", "vec_mul", func(a, b float64) float64 { return a * b }},
	{"/", "vec_div", func(a, b float64) float64 { return a / b }},
}

const vectorNegate = "vec_neg"

// ReservedNames lists the functions that vector operators are rewritten
// to. Variables must not take these names.
func ReservedNames() []string {
	names := make([]string, 0, len(vectorOperators)+1)
	for _, op := range vectorOperators {
		names = append(names, op.name)
	}
	return append(names, vectorNegate)
}

func operatorFunctions() []expr.Option {
	opts := make([]expr.Option, 0, len(vectorOperators)+2)
	for _, op := range vectorOperators {
		opts = append(opts, expr.Function(op.name, componentwise(op.name, op.fn),
			new(func(symbol.Vector, any) symbol.Vector),
			new(func(any, symbol.Vector) symbol.Vector)))
	}
	opts = append(opts, expr.Function(vectorNegate, negate, new(func(symbol.Vector) symbol.Vector)))
	return append(opts, expr.Patch(&vectorPatcher{}))
}

func componentwise(name string, fn func(a, b float64) float64) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s() expects 2 arguments, got %d", name, len(params))
		}
		a, err := broadcast(name, params[0])
		if err != nil {
			return nil, err
		}
		b, err := broadcast(name, params[1])
		if err != nil {
			return nil, err
		}
		return symbol.Vector{fn(a[0], b[0]), fn(a[1], b[1]), fn(a[2], b[2])}, nil
	}
}

func broadcast(name string, v any) (symbol.Vector, error) {
	if vec, ok := v.(symbol.Vector); ok {
		return vec, nil
	}
	x, err := toFloat(name, v)
	if err != nil {
		return symbol.Vector{}, err
	}
	return symbol.Vector{x, x, x}, nil
}

func negate(params ...any) (any, error) {
	v, err := vectorArgs(vectorNegate, 1, params)
	if err != nil {
		return nil, err
	}
	return symbol.Vector{-v[0][0], -v[0][1], -v[0][2]}, nil
}

// vectorPatcher rewrites arithmetic with a vector operand into calls of the
// vec_* functions. ast.Walk visits children first, so nested operations are
// already rewritten and typed when their parent is visited.
type vectorPatcher struct{}

func (vectorPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.BinaryNode:
		if !isVector(n.Left) && !isVector(n.Right) {
			return
		}
		for _, op := range vectorOperators {
			if op.operator == n.Operator {
				patchCall(node, op.name, n.Left, n.Right)
				return
			}
		}
	case *ast.UnaryNode:
		if !isVector(n.Node) {
			return
		}
		switch n.Operator {
		case "-":
			patchCall(node, vectorNegate, n.Node)
		case "+":
			ast.Patch(node, n.Node)
			(*node).SetType(vectorType)
		}
	}
}

func isVector(n ast.Node) bool {
	return n.Type() == vectorType
}

func patchCall(node *ast.Node, name string, args ...ast.Node) {
	ast.Patch(node, &ast.CallNode{
		Callee:    &ast.IdentifierNode{Value: name},
		Arguments: args,
	})
	(*node).SetType(vectorType)
}
