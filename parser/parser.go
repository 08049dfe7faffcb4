// Package parser evaluates a mathematical function of named scalar and
// vector variables, recompiling and re-evaluating only when the function or
// the variables changed since the last query.
//
// Variable names that are not legal identifiers are sanitized, and names
// that are keywords of the language get a numeric suffix. The function text
// refers to such variables by their original name in quotes:
//
//	p := parser.New()
//	p.SetScalarVariableValue("Temperature (K)", 300)
//	p.SetFunction(`"Temperature (K)" - 273.15`)
//	celsius := p.ScalarResult()
//
// A sanitized name that collides with one already taken gets the smallest
// free integer suffix, so "a b" registered before "ab" leaves "ab" as ab1.
// In that case an unquoted ab in the function reads "a b"; write "ab" in
// quotes to reach the variable registered under that name.
//
// Besides the expr-lang language itself, functions may call cross, dot,
// mag, norm and the usual scalar math functions (sqrt, exp, log, sin, ...).
// The operators + - * / apply componentwise to vectors, broadcasting a
// scalar operand, and unary minus negates a vector.
//
// A Parser is not safe for concurrent use.
package parser

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/BDNK1/vecexpr/internal/engine"
	"github.com/BDNK1/vecexpr/internal/symbol"
)

// Vector is a 3-component vector value.
type Vector = symbol.Vector

// Stats counts the compiles and evaluations a Parser performed.
type Stats = engine.Stats

type Option func(*Parser)

// WithLogger overrides the logger built from the configuration.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.l = l
		}
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Parser) {
		if mp != nil {
			p.mp = mp
		}
	}
}

type Parser struct {
	id string
	l  *slog.Logger
	mp metric.MeterProvider

	meters     meters
	function   string
	vars       *symbol.Table
	engine     *engine.Engine
	clock      Staleness
	result     resultCache
	compileErr error
	replace    engine.Replacement
}

// New returns a Parser with the default configuration.
func New(opts ...Option) *Parser {
	return newParser(DefaultConfig(), opts)
}

// NewWithConfig validates cfg and returns a Parser using it.
func NewWithConfig(cfg Config, opts ...Option) (*Parser, error) {
	if err := InitializeConfig(&cfg, nil); err != nil {
		return nil, err
	}
	return newParser(cfg, opts), nil
}

func newParser(cfg Config, opts []Option) *Parser {
	p := &Parser{
		id:     uuid.New().String(),
		l:      newLogger(cfg.Log),
		mp:     otel.GetMeterProvider(),
		vars:   symbol.NewTable(engine.ReservedNames()...),
		engine: engine.New(),
		replace: engine.Replacement{
			Enabled: cfg.ReplaceInvalidValues,
			Value:   cfg.ReplacementValue,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.l = p.l.With("parser_id", p.id)
	p.meters = newMeters(p.mp, cfg.MeterName)
	return p
}

// ID identifies the parser in log records.
func (p *Parser) ID() string {
	return p.id
}

// SetFunction replaces the function text. Setting the current text again
// is a no-op.
func (p *Parser) SetFunction(function string) {
	if function == p.function {
		return
	}
	p.function = function
	p.vars.ResetNeeded()
	p.result.reset()
	p.clock.FunctionChanged()
}

func (p *Parser) Function() string {
	return p.function
}

// InvalidateFunction forces a recompile on the next query.
func (p *Parser) InvalidateFunction() {
	p.result.reset()
	p.clock.FunctionChanged()
}

// update brings the cached result up to date. A failed compile or
// evaluation is not retried until the function or a variable changes.
func (p *Parser) update() error {
	if p.function == "" {
		p.result.fail(ErrNoFunction)
		return ErrNoFunction
	}

	if p.clock.NeedsRecompile() {
		if err := p.compile(); err != nil {
			return err
		}
	}
	if !p.engine.Compiled() {
		if p.compileErr != nil {
			p.result.fail(p.compileErr)
		}
		return p.result.err
	}

	if p.clock.NeedsReevaluate() {
		return p.evaluate()
	}
	return p.result.err
}

func (p *Parser) compile() error {
	p.result.reset()
	kind, err := p.engine.Compile(p.function, p.vars)
	p.clock.MarkCompiled()
	p.compileErr = err

	if err != nil {
		p.vars.ResetNeeded()
		p.result.fail(err)
		p.meters.compiled(outcomeFailure)
		p.l.Warn("Function compile failed",
			"function", p.function,
			"error", err)
		return err
	}

	p.engine.MarkNeeded(p.vars)
	p.meters.compiled(outcomeSuccess)
	p.l.Debug("Function compiled",
		"function", p.function,
		"result_type", kind.String(),
		"scalars", p.vars.Scalars.Len(),
		"vectors", p.vars.Vectors.Len())
	return nil
}

func (p *Parser) evaluate() error {
	res, err := p.engine.Evaluate(p.replace)
	p.clock.MarkEvaluated()

	if err != nil {
		p.result.fail(err)
		p.meters.evaluated(outcomeFailure)
		p.l.Warn("Function evaluation failed",
			"function", p.function,
			"error", err)
		return err
	}

	switch res.Kind {
	case engine.Scalar:
		p.result.scalar(res.Value[0])
	case engine.Vector:
		p.result.vector(res.Value)
	}

	if res.Replaced {
		p.meters.evaluated(outcomeReplaced)
		p.l.Debug("Invalid result values replaced",
			"function", p.function,
			"replacement_value", p.replace.Value)
	} else {
		p.meters.evaluated(outcomeSuccess)
	}
	return nil
}

// ResultType compiles and evaluates as needed and classifies the result.
func (p *Parser) ResultType() ResultType {
	if err := p.update(); err != nil {
		return ResultError
	}
	return p.result.kind
}

func (p *Parser) IsScalarResult() bool {
	return p.ResultType() == ResultScalar
}

func (p *Parser) IsVectorResult() bool {
	return p.ResultType() == ResultVector
}

// EvalScalar returns the scalar result, or an error when the function
// fails or yields a vector.
func (p *Parser) EvalScalar() (float64, error) {
	if err := p.update(); err != nil {
		return ErrorResult, err
	}
	if p.result.kind != ResultScalar {
		return ErrorResult, ErrNotScalar
	}
	return p.result.value[0], nil
}

// ScalarResult is EvalScalar returning ErrorResult on failure.
func (p *Parser) ScalarResult() float64 {
	v, _ := p.EvalScalar()
	return v
}

func (p *Parser) EvalVector() (Vector, error) {
	if err := p.update(); err != nil {
		return errorVector(), err
	}
	if p.result.kind != ResultVector {
		return errorVector(), ErrNotVector
	}
	return p.result.value, nil
}

// VectorResult is EvalVector returning ErrorResult components on failure.
func (p *Parser) VectorResult() Vector {
	v, _ := p.EvalVector()
	return v
}

func errorVector() Vector {
	return Vector{ErrorResult, ErrorResult, ErrorResult}
}

// Err returns the error of the last compile or evaluation, without
// triggering either.
func (p *Parser) Err() error {
	return p.result.err
}

// ParseError returns the diagnostic of the last compile, or "" if it
// succeeded.
func (p *Parser) ParseError() string {
	if p.compileErr != nil {
		return p.compileErr.Error()
	}
	return ""
}

// variableSet records the outcome of a setter.
func (p *Parser) variableSet(added, changed bool) {
	if added {
		p.clock.FunctionChanged()
	}
	if changed {
		p.result.reset()
		p.clock.VariablesChanged()
	}
}

// SetScalarVariableValue sets name to value, registering it when unknown.
func (p *Parser) SetScalarVariableValue(name string, value float64) {
	p.variableSet(p.vars.Scalars.Set(name, value))
}

func (p *Parser) SetScalarVariableValueAt(i int, value float64) error {
	changed, err := p.vars.Scalars.SetAt(i, value)
	if err != nil {
		return err
	}
	p.variableSet(false, changed)
	return nil
}

func (p *Parser) ScalarVariableValue(name string) (float64, error) {
	return p.vars.Scalars.Get(name)
}

func (p *Parser) ScalarVariableValueAt(i int) (float64, error) {
	return p.vars.Scalars.GetAt(i)
}

// SetVectorVariableValue sets name to value, registering it when unknown.
func (p *Parser) SetVectorVariableValue(name string, value Vector) {
	p.variableSet(p.vars.Vectors.Set(name, value))
}

func (p *Parser) SetVectorVariableValueAt(i int, value Vector) error {
	changed, err := p.vars.Vectors.SetAt(i, value)
	if err != nil {
		return err
	}
	p.variableSet(false, changed)
	return nil
}

func (p *Parser) VectorVariableValue(name string) (Vector, error) {
	return p.vars.Vectors.Get(name)
}

func (p *Parser) VectorVariableValueAt(i int) (Vector, error) {
	return p.vars.Vectors.GetAt(i)
}

func (p *Parser) NumberOfScalarVariables() int {
	return p.vars.Scalars.Len()
}

func (p *Parser) NumberOfVectorVariables() int {
	return p.vars.Vectors.Len()
}

// ScalarVariableIndex returns the position of name, or -1.
func (p *Parser) ScalarVariableIndex(name string) int {
	if i, ok := p.vars.Scalars.IndexOf(name); ok {
		return i
	}
	return -1
}

// VectorVariableIndex returns the position of name, or -1.
func (p *Parser) VectorVariableIndex(name string) int {
	if i, ok := p.vars.Vectors.IndexOf(name); ok {
		return i
	}
	return -1
}

// ScalarVariableName returns the name the i-th scalar was registered with.
func (p *Parser) ScalarVariableName(i int) (string, error) {
	return p.vars.Scalars.NameAt(i)
}

func (p *Parser) VectorVariableName(i int) (string, error) {
	return p.vars.Vectors.NameAt(i)
}

// ScalarVariableUsedName returns the sanitized name the function sees.
func (p *Parser) ScalarVariableUsedName(i int) (string, error) {
	return p.vars.Scalars.UsedNameAt(i)
}

func (p *Parser) VectorVariableUsedName(i int) (string, error) {
	return p.vars.Vectors.UsedNameAt(i)
}

// parsed reports whether needed flags reflect the current function and
// variable set.
func (p *Parser) parsed() bool {
	return !p.clock.NeedsRecompile() && p.engine.Compiled()
}

// ScalarVariableNeeded reports whether the function reads name. It is only
// valid after a successful compile, triggered by any result query.
func (p *Parser) ScalarVariableNeeded(name string) (bool, error) {
	i, ok := p.vars.Scalars.IndexOf(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.ScalarVariableNeededAt(i)
}

func (p *Parser) ScalarVariableNeededAt(i int) (bool, error) {
	if !p.parsed() {
		return false, ErrNotYetParsed
	}
	return p.vars.Scalars.NeededAt(i)
}

func (p *Parser) VectorVariableNeeded(name string) (bool, error) {
	i, ok := p.vars.Vectors.IndexOf(name)
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.VectorVariableNeededAt(i)
}

func (p *Parser) VectorVariableNeededAt(i int) (bool, error) {
	if !p.parsed() {
		return false, ErrNotYetParsed
	}
	return p.vars.Vectors.NeededAt(i)
}

func (p *Parser) RemoveAllVariables() {
	p.vars.Reset()
	p.variablesRemoved()
}

func (p *Parser) RemoveScalarVariables() {
	p.vars.Scalars.Reset()
	p.variablesRemoved()
}

func (p *Parser) RemoveVectorVariables() {
	p.vars.Vectors.Reset()
	p.variablesRemoved()
}

// variablesRemoved drops the program, which still reads the removed slots.
func (p *Parser) variablesRemoved() {
	p.engine.Reset()
	p.result.reset()
	p.clock.FunctionChanged()
}

// SetReplaceInvalidValues controls whether NaN and infinite results are
// replaced by ReplacementValue instead of failing.
func (p *Parser) SetReplaceInvalidValues(on bool) {
	if p.replace.Enabled == on {
		return
	}
	p.replace.Enabled = on
	p.policyChanged()
}

func (p *Parser) ReplaceInvalidValues() bool {
	return p.replace.Enabled
}

func (p *Parser) SetReplacementValue(v float64) {
	if p.replace.Value == v {
		return
	}
	p.replace.Value = v
	p.policyChanged()
}

func (p *Parser) ReplacementValue() float64 {
	return p.replace.Value
}

func (p *Parser) policyChanged() {
	p.result.reset()
	p.clock.VariablesChanged()
}

// MTime is the logical time of the latest change or recompute.
func (p *Parser) MTime() uint64 {
	return p.clock.MTime()
}

func (p *Parser) Stats() Stats {
	return p.engine.Stats()
}

// SanitizeName converts an arbitrary label into the identifier a Parser
// would register it under, before any collision suffix.
func SanitizeName(name string) string {
	return symbol.SanitizeName(name)
}

// IsSanitized reports whether name can be used in a function unquoted.
func IsSanitized(name string) bool {
	return symbol.IsSanitized(name)
}
