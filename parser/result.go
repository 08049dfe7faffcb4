package parser

import "github.com/BDNK1/vecexpr/internal/symbol"

// ResultType classifies the cached result.
type ResultType int

const (
	ResultError ResultType = iota
	ResultScalar
	ResultVector
)

func (t ResultType) String() string {
	switch t {
	case ResultScalar:
		return "scalar"
	case ResultVector:
		return "vector"
	default:
		return "error"
	}
}

type resultCache struct {
	kind  ResultType
	value symbol.Vector
	err   error
}

func (r *resultCache) reset() {
	*r = resultCache{}
}

func (r *resultCache) fail(err error) {
	*r = resultCache{err: err}
}

func (r *resultCache) scalar(v float64) {
	*r = resultCache{kind: ResultScalar, value: symbol.Vector{v, 0, 0}}
}

func (r *resultCache) vector(v symbol.Vector) {
	*r = resultCache{kind: ResultVector, value: v}
}
