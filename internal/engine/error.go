package engine

import (
	"errors"
	"fmt"
)

// ErrorCode classifies why the engine could not produce a result.
type ErrorCode string

const (
	// CodeParse covers syntax errors, unknown identifiers and results that
	// are neither scalar nor vector.
	CodeParse ErrorCode = "PARSE_ERROR"
	// CodeDomain signals a NaN or infinite result with replacement disabled.
	CodeDomain ErrorCode = "DOMAIN_ERROR"
	// CodeEval covers runtime failures of a compiled program.
	CodeEval ErrorCode = "EVAL_ERROR"
)

// Error is returned by Compile and Evaluate.
type Error struct {
	Code     ErrorCode
	Message  string
	Function string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s (function: %q)", e.Code, e.Message, e.Function)
}

// Unwrap returns the underlying engine error for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, function string, err error) *Error {
	return &Error{
		Code:     code,
		Message:  err.Error(),
		Function: function,
		Err:      err,
	}
}

// HasCode reports whether err is an *Error carrying code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
