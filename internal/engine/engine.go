// Package engine adapts expr-lang to scalar and vector variable tables.
//
// A compile binds the current table: the program reads the slots of the
// variables it references, so later value changes only need Evaluate.
// Adding or removing variables requires a new Compile.
package engine

import (
	"fmt"
	"math"
	"reflect"

	"github.com/expr-lang/expr"
	exprparser "github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"github.com/BDNK1/vecexpr/internal/symbol"
)

// Kind is the classified result type of a compiled function.
type Kind int

const (
	Invalid Kind = iota
	Scalar
	Vector
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Vector:
		return "vector"
	default:
		return "invalid"
	}
}

// Replacement is the policy for NaN and infinite results.
type Replacement struct {
	Enabled bool
	Value   float64
}

// Result of one evaluation. Scalar results live in Value[0].
type Result struct {
	Kind     Kind
	Value    symbol.Vector
	Replaced bool
}

type Stats struct {
	Compilations       int
	CompileFailures    int
	Evaluations        int
	EvaluationFailures int
}

type scalarBinding struct {
	name string
	slot *float64
}

type vectorBinding struct {
	name string
	slot *symbol.Vector
}

type program struct {
	function string
	kind     Kind
	vm       *vm.Program
	refs     references
	env      map[string]any
	scalars  []scalarBinding
	vectors  []vectorBinding
}

// Engine owns at most one compiled program.
type Engine struct {
	functions []expr.Option
	program   *program
	stats     Stats
}

func New() *Engine {
	return &Engine{functions: builtinFunctions()}
}

// Compile builds a program for function against the variables of table.
// The previous program is discarded whether or not compiling succeeds.
func (e *Engine) Compile(function string, table *symbol.Table) (Kind, error) {
	e.program = nil

	source := QuoteNames(function, table.Lookup)

	// Pass 1: syntax and references, then classify by type-checked compiles.
	tree, err := exprparser.Parse(source)
	if err != nil {
		e.stats.CompileFailures++
		return Invalid, newError(CodeParse, function, err)
	}

	env := environment(table)
	kind, compiled, err := e.classify(source, env)
	if err != nil {
		e.stats.CompileFailures++
		return Invalid, newError(CodeParse, function, err)
	}

	p := &program{
		function: function,
		kind:     kind,
		vm:       compiled,
		refs:     collectReferences(&tree.Node),
		env:      env,
	}
	p.bind(table)

	e.program = p
	e.stats.Compilations++
	return kind, nil
}

// classify returns the program compiled for the result type. The first
// compile that type-checks is kept, so evaluation runs without generic
// result dispatch.
func (e *Engine) classify(source string, env map[string]any) (Kind, *vm.Program, error) {
	scalar, err := expr.Compile(source, e.options(env, expr.AsFloat64())...)
	if err == nil {
		return Scalar, scalar, nil
	}

	vector, vecErr := expr.Compile(source, e.options(env, expr.AsKind(reflect.Array))...)
	if vecErr == nil {
		return Vector, vector, nil
	}

	return Invalid, nil, err
}

// NOTE: expr.Env MUST come first so the environment's types are known to
// the checker.
func (e *Engine) options(env map[string]any, expect expr.Option) []expr.Option {
	opts := make([]expr.Option, 0, len(e.functions)+2)
	opts = append(opts, expr.Env(env))
	opts = append(opts, e.functions...)
	return append(opts, expect)
}

func environment(table *symbol.Table) map[string]any {
	env := make(map[string]any, table.Scalars.Len()+table.Vectors.Len())
	for i := 0; i < table.Scalars.Len(); i++ {
		v := table.Scalars.At(i)
		env[v.Used] = *v.Value
	}
	for i := 0; i < table.Vectors.Len(); i++ {
		v := table.Vectors.At(i)
		env[v.Used] = *v.Value
	}
	return env
}

func (p *program) bind(table *symbol.Table) {
	for i := 0; i < table.Scalars.Len(); i++ {
		if v := table.Scalars.At(i); p.refs.has(v.Used) {
			p.scalars = append(p.scalars, scalarBinding{name: v.Used, slot: v.Value})
		}
	}
	for i := 0; i < table.Vectors.Len(); i++ {
		if v := table.Vectors.At(i); p.refs.has(v.Used) {
			p.vectors = append(p.vectors, vectorBinding{name: v.Used, slot: v.Value})
		}
	}
}

// Evaluate runs the compiled program with the current slot values.
func (e *Engine) Evaluate(policy Replacement) (Result, error) {
	p := e.program
	if p == nil {
		return Result{}, &Error{Code: CodeEval, Message: "no compiled program"}
	}

	for _, b := range p.scalars {
		p.env[b.name] = *b.slot
	}
	for _, b := range p.vectors {
		p.env[b.name] = *b.slot
	}

	out, err := expr.Run(p.vm, p.env)
	if err != nil {
		e.stats.EvaluationFailures++
		return Result{}, newError(CodeEval, p.function, err)
	}

	result := Result{Kind: p.kind}
	components := 3
	switch p.kind {
	case Scalar:
		f, ok := out.(float64)
		if !ok {
			e.stats.EvaluationFailures++
			return Result{}, newError(CodeEval, p.function, fmt.Errorf("unexpected scalar result type %T", out))
		}
		result.Value[0] = f
		components = 1
	case Vector:
		v, ok := out.(symbol.Vector)
		if !ok {
			e.stats.EvaluationFailures++
			return Result{}, newError(CodeEval, p.function, fmt.Errorf("unexpected vector result type %T", out))
		}
		result.Value = v
	}

	for i := 0; i < components; i++ {
		x := result.Value[i]
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			continue
		}
		if !policy.Enabled {
			e.stats.EvaluationFailures++
			return Result{}, &Error{
				Code:     CodeDomain,
				Message:  fmt.Sprintf("invalid result value %v in component %d", x, i),
				Function: p.function,
			}
		}
		result.Value[i] = policy.Value
		result.Replaced = true
	}

	e.stats.Evaluations++
	return result, nil
}

// Reset drops the compiled program.
func (e *Engine) Reset() {
	e.program = nil
}

func (e *Engine) Compiled() bool {
	return e.program != nil
}

func (e *Engine) Kind() Kind {
	if e.program == nil {
		return Invalid
	}
	return e.program.kind
}

func (e *Engine) Stats() Stats {
	return e.stats
}
