package parser

// Staleness tracks when the function, the variables, the last compile and
// the last evaluation changed. All four stamps come from one logical clock,
// so they can be compared with each other.
type Staleness struct {
	clock     uint64
	function  uint64
	variables uint64
	compiled  uint64
	evaluated uint64
}

func (s *Staleness) tick() uint64 {
	s.clock++
	return s.clock
}

// FunctionChanged records a new function text or a change of the variable set.
func (s *Staleness) FunctionChanged() {
	s.function = s.tick()
}

// VariablesChanged records a change of a variable value.
func (s *Staleness) VariablesChanged() {
	s.variables = s.tick()
}

// MarkCompiled records a compile attempt, successful or not.
func (s *Staleness) MarkCompiled() {
	s.compiled = s.tick()
}

// MarkEvaluated records an evaluation attempt, successful or not.
func (s *Staleness) MarkEvaluated() {
	s.evaluated = s.tick()
}

func (s *Staleness) NeedsRecompile() bool {
	return s.function > s.compiled
}

func (s *Staleness) NeedsReevaluate() bool {
	return s.NeedsRecompile() || s.variables > s.evaluated || s.compiled > s.evaluated
}

// MTime is the most recent stamp handed out.
func (s *Staleness) MTime() uint64 {
	return s.clock
}
