package engine

import (
	"fmt"
	"math"

	"github.com/expr-lang/expr"

	"github.com/BDNK1/vecexpr/internal/symbol"
)

var unaryMath = []struct {
	name string
	fn   func(float64) float64
}{
	{"sqrt", math.Sqrt},
	{"exp", math.Exp},
	{"log", math.Log},
	{"log2", math.Log2},
	{"log10", math.Log10},
	{"sin", math.Sin},
	{"cos", math.Cos},
	{"tan", math.Tan},
	{"asin", math.Asin},
	{"acos", math.Acos},
	{"atan", math.Atan},
	{"sinh", math.Sinh},
	{"cosh", math.Cosh},
	{"tanh", math.Tanh},
}

var binaryMath = []struct {
	name string
	fn   func(float64, float64) float64
}{
	{"atan2", math.Atan2},
	{"pow", math.Pow},
	{"hypot", math.Hypot},
}

// Builtin functions registered on every compile. Vector functions carry
// their signatures so the checker can classify vector results; the scalar
// ones are untyped because integer literals must be accepted as arguments.
// Vector arithmetic operators are added last, see operators.go.
func builtinFunctions() []expr.Option {
	opts := []expr.Option{
		expr.Function("cross", cross, new(func(symbol.Vector, symbol.Vector) symbol.Vector)),
		expr.Function("dot", dot, new(func(symbol.Vector, symbol.Vector) float64)),
		expr.Function("mag", mag, new(func(symbol.Vector) float64)),
		expr.Function("norm", norm, new(func(symbol.Vector) symbol.Vector)),
	}
	for _, f := range unaryMath {
		opts = append(opts, unary(f.name, f.fn))
	}
	for _, f := range binaryMath {
		opts = append(opts, binary(f.name, f.fn))
	}
	return append(opts, operatorFunctions()...)
}

// FunctionNames lists the builtins added on top of the engine's own.
func FunctionNames() []string {
	names := []string{"cross", "dot", "mag", "norm"}
	for _, f := range unaryMath {
		names = append(names, f.name)
	}
	for _, f := range binaryMath {
		names = append(names, f.name)
	}
	return names
}

func unary(name string, fn func(float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 1 {
			return nil, fmt.Errorf("%s() expects 1 argument, got %d", name, len(params))
		}
		x, err := toFloat(name, params[0])
		if err != nil {
			return nil, err
		}
		return fn(x), nil
	})
}

func binary(name string, fn func(float64, float64) float64) expr.Option {
	return expr.Function(name, func(params ...any) (any, error) {
		if len(params) != 2 {
			return nil, fmt.Errorf("%s() expects 2 arguments, got %d", name, len(params))
		}
		x, err := toFloat(name, params[0])
		if err != nil {
			return nil, err
		}
		y, err := toFloat(name, params[1])
		if err != nil {
			return nil, err
		}
		return fn(x, y), nil
	})
}

func toFloat(name string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s() expects a scalar argument, got %T", name, v)
	}
}

func vectorArgs(name string, want int, params []any) ([]symbol.Vector, error) {
	if len(params) != want {
		return nil, fmt.Errorf("%s() expects %d vector arguments, got %d", name, want, len(params))
	}
	out := make([]symbol.Vector, want)
	for i, p := range params {
		v, ok := p.(symbol.Vector)
		if !ok {
			return nil, fmt.Errorf("%s() expects a vector argument, got %T", name, p)
		}
		out[i] = v
	}
	return out, nil
}

func cross(params ...any) (any, error) {
	v, err := vectorArgs("cross", 2, params)
	if err != nil {
		return nil, err
	}
	a, b := v[0], v[1]
	return symbol.Vector{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}, nil
}

func dot(params ...any) (any, error) {
	v, err := vectorArgs("dot", 2, params)
	if err != nil {
		return nil, err
	}
	return v[0][0]*v[1][0] + v[0][1]*v[1][1] + v[0][2]*v[1][2], nil
}

func magnitude(v symbol.Vector) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

func mag(params ...any) (any, error) {
	v, err := vectorArgs("mag", 1, params)
	if err != nil {
		return nil, err
	}
	return magnitude(v[0]), nil
}

// norm of the zero vector yields NaN components, which the domain check
// then reports or replaces.
func norm(params ...any) (any, error) {
	v, err := vectorArgs("norm", 1, params)
	if err != nil {
		return nil, err
	}
	m := magnitude(v[0])
	return symbol.Vector{v[0][0] / m, v[0][1] / m, v[0][2] / m}, nil
}
