package parser

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
)

func newTestParser() *Parser {
	return New(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestParser_ScalarSum(t *testing.T) {
	p := newTestParser()
	p.SetFunction("x+y")
	p.SetScalarVariableValue("x", 2)
	p.SetScalarVariableValue("y", 3)

	if !p.IsScalarResult() {
		t.Fatalf("IsScalarResult() = false, err: %v", p.Err())
	}
	if p.IsVectorResult() {
		t.Error("IsVectorResult() = true for a scalar function")
	}
	if got := p.ScalarResult(); got != 5 {
		t.Errorf("ScalarResult() = %v, want 5", got)
	}

	v, err := p.EvalVector()
	if !errors.Is(err, ErrNotVector) {
		t.Errorf("EvalVector() error = %v, want ErrNotVector", err)
	}
	if v != (Vector{ErrorResult, ErrorResult, ErrorResult}) {
		t.Errorf("EvalVector() = %v, want error sentinel", v)
	}
}

func TestParser_VectorCross(t *testing.T) {
	p := newTestParser()
	p.SetFunction("cross(v1,v2)")
	p.SetVectorVariableValue("v1", Vector{1, 0, 0})
	p.SetVectorVariableValue("v2", Vector{0, 1, 0})

	if !p.IsVectorResult() {
		t.Fatalf("IsVectorResult() = false, err: %v", p.Err())
	}
	if got := p.VectorResult(); got != (Vector{0, 0, 1}) {
		t.Errorf("VectorResult() = %v, want [0 0 1]", got)
	}
	if got := p.ScalarResult(); got != ErrorResult {
		t.Errorf("ScalarResult() = %v, want ErrorResult", got)
	}
}

func TestParser_CachedResultDoesNotRecompile(t *testing.T) {
	p := newTestParser()
	p.SetFunction("2 * (3 + 4)")

	first := p.ScalarResult()
	stats := p.Stats()
	second := p.ScalarResult()

	if first != 14 || second != first {
		t.Errorf("results = %v, %v; want 14, 14", first, second)
	}
	if p.Stats() != stats {
		t.Errorf("stats changed on a cached read: %+v -> %+v", stats, p.Stats())
	}
	if stats.Compilations != 1 || stats.Evaluations != 1 {
		t.Errorf("stats = %+v, want one compilation and one evaluation", stats)
	}
}

func TestParser_ValueChangeReevaluatesOnly(t *testing.T) {
	p := newTestParser()
	p.SetFunction("x * 10")
	p.SetScalarVariableValue("x", 1)
	p.SetScalarVariableValue("unused", 1)

	if got := p.ScalarResult(); got != 10 {
		t.Fatalf("ScalarResult() = %v, want 10", got)
	}

	p.SetScalarVariableValue("x", 4)
	if n := p.NumberOfScalarVariables(); n != 2 {
		t.Errorf("NumberOfScalarVariables() = %d, want 2", n)
	}
	if got := p.ScalarResult(); got != 40 {
		t.Errorf("ScalarResult() = %v, want 40", got)
	}
	if err := p.SetScalarVariableValueAt(0, 5); err != nil {
		t.Fatalf("SetScalarVariableValueAt: %v", err)
	}
	if got := p.ScalarResult(); got != 50 {
		t.Errorf("ScalarResult() = %v, want 50", got)
	}

	stats := p.Stats()
	if stats.Compilations != 1 || stats.Evaluations != 3 {
		t.Errorf("stats = %+v, want 1 compilation and 3 evaluations", stats)
	}
}

func TestParser_NewVariableRecompiles(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("x", 1)
	p.SetFunction("x + y")

	if p.IsScalarResult() {
		t.Fatal("y is unknown, compile should fail")
	}
	if !IsParseError(p.Err()) || p.ParseError() == "" {
		t.Errorf("Err() = %v, ParseError() = %q; want a parse error", p.Err(), p.ParseError())
	}

	p.SetScalarVariableValue("y", 2)
	if got := p.ScalarResult(); got != 3 {
		t.Errorf("ScalarResult() = %v, want 3", got)
	}
	if p.ParseError() != "" {
		t.Errorf("ParseError() = %q after a successful compile", p.ParseError())
	}
}

func TestParser_FailedCompileNotRetried(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("x", 1)
	p.SetFunction("x +")

	for i := 0; i < 3; i++ {
		if _, err := p.EvalScalar(); !IsParseError(err) {
			t.Fatalf("EvalScalar() error = %v, want parse error", err)
		}
	}
	p.SetScalarVariableValue("x", 2)
	if _, err := p.EvalScalar(); !IsParseError(err) {
		t.Errorf("EvalScalar() after value change error = %v, want parse error", err)
	}
	if s := p.Stats(); s.CompileFailures != 1 {
		t.Errorf("CompileFailures = %d, want 1", s.CompileFailures)
	}
}

func TestParser_InvalidValues(t *testing.T) {
	p := newTestParser()
	p.SetFunction("sqrt(-1)")

	if p.IsScalarResult() {
		t.Fatal("sqrt(-1) should fail with replacement disabled")
	}
	if _, err := p.EvalScalar(); !IsDomainError(err) {
		t.Errorf("EvalScalar() error = %v, want domain error", err)
	}
	if got := p.ScalarResult(); got != ErrorResult {
		t.Errorf("ScalarResult() = %v, want ErrorResult", got)
	}

	p.SetReplaceInvalidValues(true)
	p.SetReplacementValue(0)
	if got, err := p.EvalScalar(); err != nil || got != 0 {
		t.Errorf("EvalScalar() = %v, %v; want 0, nil", got, err)
	}

	p.SetReplacementValue(-7)
	if got := p.ScalarResult(); got != -7 {
		t.Errorf("ScalarResult() = %v, want -7", got)
	}
	if !p.ReplaceInvalidValues() || p.ReplacementValue() != -7 {
		t.Errorf("policy = %v, %v; want true, -7", p.ReplaceInvalidValues(), p.ReplacementValue())
	}
}

func TestParser_VectorReplacement(t *testing.T) {
	p := newTestParser()
	p.SetReplaceInvalidValues(true)
	p.SetReplacementValue(1)
	p.SetVectorVariableValue("v", Vector{})
	p.SetFunction("norm(v)")

	if got := p.VectorResult(); got != (Vector{1, 1, 1}) {
		t.Errorf("VectorResult() = %v, want [1 1 1]", got)
	}

	p.SetVectorVariableValue("v", Vector{0, 0, 2})
	if got := p.VectorResult(); got != (Vector{0, 0, 1}) {
		t.Errorf("VectorResult() = %v, want [0 0 1]", got)
	}
}

func TestParser_Needed(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("x", 1)
	p.SetScalarVariableValue("y", 2)
	p.SetVectorVariableValue("v", Vector{1, 0, 0})

	if _, err := p.ScalarVariableNeeded("y"); !errors.Is(err, ErrNotYetParsed) {
		t.Errorf("needed before any function error = %v, want ErrNotYetParsed", err)
	}

	p.SetFunction("x * 2")
	if _, err := p.ScalarVariableNeeded("y"); !errors.Is(err, ErrNotYetParsed) {
		t.Errorf("needed before parse error = %v, want ErrNotYetParsed", err)
	}

	if !p.IsScalarResult() {
		t.Fatalf("IsScalarResult() = false, err: %v", p.Err())
	}
	tests := []struct {
		name   string
		needed func() (bool, error)
		want   bool
	}{
		{"x", func() (bool, error) { return p.ScalarVariableNeeded("x") }, true},
		{"y", func() (bool, error) { return p.ScalarVariableNeeded("y") }, false},
		{"y by index", func() (bool, error) { return p.ScalarVariableNeededAt(1) }, false},
		{"v", func() (bool, error) { return p.VectorVariableNeeded("v") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.needed()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}

	p.SetFunction("y + mag(v)")
	if !p.IsScalarResult() {
		t.Fatalf("IsScalarResult() = false, err: %v", p.Err())
	}
	if n, _ := p.ScalarVariableNeeded("y"); !n {
		t.Error("y not needed by y + mag(v)")
	}
	if n, _ := p.VectorVariableNeededAt(0); !n {
		t.Error("v not needed by y + mag(v)")
	}

	if _, err := p.ScalarVariableNeeded("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("needed(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := p.ScalarVariableNeededAt(9); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("needed(9) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestParser_RemoveAllVariables(t *testing.T) {
	p := newTestParser()
	p.SetFunction("x + 1")
	p.SetScalarVariableValue("x", 1)

	if got := p.ScalarResult(); got != 2 {
		t.Fatalf("ScalarResult() = %v, want 2", got)
	}

	p.RemoveAllVariables()
	if p.NumberOfScalarVariables() != 0 {
		t.Errorf("NumberOfScalarVariables() = %d, want 0", p.NumberOfScalarVariables())
	}
	if _, err := p.EvalScalar(); !IsParseError(err) {
		t.Errorf("EvalScalar() after removal error = %v, want parse error", err)
	}
}

func TestParser_RemoveByKind(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("a", 1)
	p.SetVectorVariableValue("a", Vector{1, 2, 3})

	if p.NumberOfScalarVariables() != 1 || p.NumberOfVectorVariables() != 1 {
		t.Fatalf("counts = %d, %d; want 1, 1", p.NumberOfScalarVariables(), p.NumberOfVectorVariables())
	}

	p.RemoveVectorVariables()
	if p.NumberOfVectorVariables() != 0 || p.NumberOfScalarVariables() != 1 {
		t.Errorf("after RemoveVectorVariables counts = %d, %d; want 1, 0", p.NumberOfScalarVariables(), p.NumberOfVectorVariables())
	}

	p.SetFunction("a * 3")
	if got := p.ScalarResult(); got != 3 {
		t.Errorf("ScalarResult() = %v, want 3", got)
	}

	p.RemoveScalarVariables()
	if p.NumberOfScalarVariables() != 0 {
		t.Errorf("NumberOfScalarVariables() = %d, want 0", p.NumberOfScalarVariables())
	}
	if p.IsScalarResult() {
		t.Error("a * 3 still evaluates after its variable was removed")
	}
}

func TestParser_VariableAccessors(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("Temperature (K)", 300)
	p.SetScalarVariableValue("p", 1)
	p.SetVectorVariableValue("Normals", Vector{0, 0, 1})

	if i := p.ScalarVariableIndex("p"); i != 1 {
		t.Errorf("ScalarVariableIndex(p) = %d, want 1", i)
	}
	if i := p.ScalarVariableIndex("q"); i != -1 {
		t.Errorf("ScalarVariableIndex(q) = %d, want -1", i)
	}
	if i := p.VectorVariableIndex("Normals"); i != 0 {
		t.Errorf("VectorVariableIndex(Normals) = %d, want 0", i)
	}

	name, err := p.ScalarVariableName(0)
	if err != nil || name != "Temperature (K)" {
		t.Errorf("ScalarVariableName(0) = %q, %v", name, err)
	}
	used, err := p.ScalarVariableUsedName(0)
	if err != nil || used != "TemperatureK" {
		t.Errorf("ScalarVariableUsedName(0) = %q, %v; want TemperatureK", used, err)
	}
	if used, _ := p.VectorVariableUsedName(0); used != "Normals" {
		t.Errorf("VectorVariableUsedName(0) = %q, want Normals", used)
	}
	if name, _ := p.VectorVariableName(0); name != "Normals" {
		t.Errorf("VectorVariableName(0) = %q, want Normals", name)
	}

	if v, err := p.ScalarVariableValue("Temperature (K)"); err != nil || v != 300 {
		t.Errorf("ScalarVariableValue = %v, %v; want 300, nil", v, err)
	}
	if v, err := p.VectorVariableValueAt(0); err != nil || v != (Vector{0, 0, 1}) {
		t.Errorf("VectorVariableValueAt(0) = %v, %v", v, err)
	}
	if _, err := p.ScalarVariableValue("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ScalarVariableValue(nope) error = %v, want ErrNotFound", err)
	}
	if _, err := p.VectorVariableValueAt(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("VectorVariableValueAt(3) error = %v, want ErrIndexOutOfRange", err)
	}
	if err := p.SetVectorVariableValueAt(2, Vector{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("SetVectorVariableValueAt(2) error = %v, want ErrIndexOutOfRange", err)
	}
	if _, err := p.ScalarVariableName(5); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("ScalarVariableName(5) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestParser_QuotedNames(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("Temperature (K)", 300)
	p.SetFunction(`"Temperature (K)" - 273`)

	if got := p.ScalarResult(); got != 27 {
		t.Errorf("ScalarResult() = %v, want 27", got)
	}
}

func TestParser_NoFunction(t *testing.T) {
	p := newTestParser()

	if _, err := p.EvalScalar(); !errors.Is(err, ErrNoFunction) {
		t.Errorf("EvalScalar() error = %v, want ErrNoFunction", err)
	}
	if p.ResultType() != ResultError {
		t.Errorf("ResultType() = %v, want error", p.ResultType())
	}

	p.SetFunction("1")
	p.SetFunction("")
	if p.IsScalarResult() {
		t.Error("empty function evaluated")
	}
}

func TestParser_InvalidateFunction(t *testing.T) {
	p := newTestParser()
	p.SetFunction("1 + 1")
	p.ScalarResult()

	p.InvalidateFunction()
	if got := p.ScalarResult(); got != 2 {
		t.Errorf("ScalarResult() = %v, want 2", got)
	}
	if s := p.Stats(); s.Compilations != 2 {
		t.Errorf("Compilations = %d, want 2", s.Compilations)
	}
}

func TestParser_MTime(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("x", 1)
	p.SetFunction("x")
	p.ScalarResult()

	before := p.MTime()
	p.SetScalarVariableValue("x", 1)
	p.SetFunction("x")
	p.SetReplaceInvalidValues(false)
	p.ScalarResult()
	if p.MTime() != before {
		t.Errorf("MTime moved on no-op calls: %d -> %d", before, p.MTime())
	}

	p.SetScalarVariableValue("x", 2)
	if p.MTime() <= before {
		t.Errorf("MTime did not advance: %d -> %d", before, p.MTime())
	}
}

func TestParser_NewWithConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReplaceInvalidValues = true
	cfg.ReplacementValue = 42

	p, err := NewWithConfig(cfg, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		t.Fatalf("NewWithConfig: %v", err)
	}
	p.SetFunction("log(0)")
	if got := p.ScalarResult(); got != 42 {
		t.Errorf("ScalarResult() = %v, want 42", got)
	}
	if p.ID() == "" {
		t.Error("ID() is empty")
	}

	cfg.ReplacementValue = math.NaN()
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("NewWithConfig accepted a NaN replacement value")
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x", "x"},
		{"my var", "myvar"},
		{"2nd", "var_2nd"},
		{"", "var"},
	}

	for _, tt := range tests {
		got := SanitizeName(tt.input)
		if got != tt.expected {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
		if !IsSanitized(got) {
			t.Errorf("SanitizeName(%q) = %q is not legal", tt.input, got)
		}
	}
}

func TestParser_KeywordNamedVariable(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("in", 2)
	p.SetFunction("'in' + 1")

	if got, err := p.EvalScalar(); err != nil || got != 3 {
		t.Errorf("EvalScalar() = %v, %v; want 3, nil", got, err)
	}
	if used, _ := p.ScalarVariableUsedName(0); used != "in1" {
		t.Errorf("ScalarVariableUsedName(0) = %q, want in1", used)
	}
}

func TestParser_CollidingSanitizedNames(t *testing.T) {
	p := newTestParser()
	p.SetScalarVariableValue("a b", 10)
	p.SetScalarVariableValue("ab", 1)

	tests := []struct {
		function string
		expected float64
	}{
		{`ab`, 10},
		{`"a b"`, 10},
		{`"ab"`, 1},
		{`ab1`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			p.SetFunction(tt.function)
			if got := p.ScalarResult(); got != tt.expected {
				t.Errorf("ScalarResult() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParser_VectorArithmetic(t *testing.T) {
	p := newTestParser()
	p.SetVectorVariableValue("v1", Vector{1, 2, 3})
	p.SetVectorVariableValue("v2", Vector{1, 1, 1})
	p.SetScalarVariableValue("s", 2)

	tests := []struct {
		function string
		expected Vector
	}{
		{"v1 + v2", Vector{2, 3, 4}},
		{"2 * v1", Vector{2, 4, 6}},
		{"-v1", Vector{-1, -2, -3}},
		{"(v1 - v2) / s", Vector{0, 0.5, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.function, func(t *testing.T) {
			p.SetFunction(tt.function)
			got, err := p.EvalVector()
			if err != nil {
				t.Fatalf("EvalVector() error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}

	p.SetFunction("mag(v1 - v2) * s")
	if !p.IsScalarResult() {
		t.Errorf("mag(v1 - v2) * s is not scalar, err: %v", p.Err())
	}
}
