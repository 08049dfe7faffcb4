package parser

import (
	"errors"
	"math"

	"github.com/BDNK1/vecexpr/internal/engine"
	"github.com/BDNK1/vecexpr/internal/symbol"
)

// ErrorResult is returned by ScalarResult, and in every component of
// VectorResult, when no valid result exists.
const ErrorResult = math.MaxFloat64

var (
	ErrNotFound        = symbol.ErrNotFound
	ErrIndexOutOfRange = symbol.ErrIndexOutOfRange
	ErrNotYetParsed    = errors.New("function has not been parsed successfully")
	ErrNoFunction      = errors.New("no function set")
	ErrNotScalar       = errors.New("result is not a scalar")
	ErrNotVector       = errors.New("result is not a vector")
)

// Error is the diagnostic of a failed compile or evaluation.
type Error = engine.Error

// ErrorCode identifies the stage and cause of an Error.
type ErrorCode = engine.ErrorCode

const (
	CodeParse  = engine.CodeParse
	CodeDomain = engine.CodeDomain
	CodeEval   = engine.CodeEval
)

// IsParseError reports whether err comes from a malformed or ill-typed function.
func IsParseError(err error) bool {
	return engine.HasCode(err, CodeParse)
}

// IsDomainError reports whether err comes from a NaN or infinite result.
func IsDomainError(err error) bool {
	return engine.HasCode(err, CodeDomain)
}
