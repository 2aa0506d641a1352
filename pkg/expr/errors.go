package expr

import "fmt"

// ParseError represents a syntax error with position information.
type ParseError struct {
	Pos     Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at column %d: %s", e.Pos.Column, e.Message)
}

// Offset returns the 0-based byte offset of the error in the source.
func (e *ParseError) Offset() int {
	return e.Pos.Offset
}

// Common error messages
const (
	ErrUnexpectedToken = "unexpected %s, expected %s"
	ErrIllegalChar     = "illegal %s"
	ErrInvalidNumber   = "invalid number literal %q"
	ErrUnknownFunction = "unknown function %q"
	ErrUnknownConstant = "unknown constant $%s"
	ErrArity           = "function %s takes %d argument(s), got %d"
	ErrTrailingInput   = "unexpected %s after end of expression"
	ErrEmptyExpression = "empty expression"
	ErrFunctionAsValue = "function %s must be called with arguments"
)

// Fault is a runtime floating-point error raised while running a program.
type Fault int

const (
	// FaultNone means the last run completed cleanly.
	FaultNone Fault = iota
	// FaultDivByZero is raised by division or modulo by zero.
	FaultDivByZero
	// FaultDomain is raised when a function is called outside its domain
	// or an operation produces NaN.
	FaultDomain
	// FaultOverflow is raised when a finite computation produces an infinity.
	FaultOverflow
)

func (f Fault) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultDivByZero:
		return "division by zero"
	case FaultDomain:
		return "domain error"
	case FaultOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("fault(%d)", int(f))
	}
}
