package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/dataviz/internal/dataset"
	"github.com/leapstack-labs/dataviz/internal/registry"
	"github.com/leapstack-labs/dataviz/pkg/expr"
)

var (
	// ErrNoAnchor is returned when an evaluation has no anchor dataset.
	ErrNoAnchor = errors.New("no anchor dataset")

	// ErrInvalidExpression is wrapped by every ValidationError.
	ErrInvalidExpression = errors.New("invalid expression")

	errAlreadyRun = errors.New("evaluation already run")
)

// ValidationError reports an expression containing non-whitelisted tokens.
type ValidationError struct {
	Expression string
	Unknown    []string
}

func (e *ValidationError) Error() string {
	if len(e.Unknown) == 0 {
		return fmt.Sprintf("%s %q", ErrInvalidExpression, e.Expression)
	}
	return fmt.Sprintf("%s %q: unknown identifier(s) %s", ErrInvalidExpression, e.Expression, strings.Join(e.Unknown, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidExpression
}

// EvalError reports a runtime fault at a sample index. No results accompany it.
type EvalError struct {
	Index int
	Code  expr.Fault
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluation failed at index %d: %s", e.Index, e.Code)
}

// LengthMismatchError reports a bound dataset whose size differs from the anchor's.
type LengthMismatchError struct {
	Dataset    string
	Size       int
	Anchor     string
	AnchorSize int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("dataset %s has %d rows but anchor %s has %d", e.Dataset, e.Size, e.Anchor, e.AnchorSize)
}

// BindError reports a variable slot that no dataset could be bound to.
type BindError struct {
	Var string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("no dataset bound to %q", e.Var)
}

// ErrorKind classifies err into one of the kinds callers present differently.
func ErrorKind(err error) string {
	var (
		ingestErr *dataset.IngestError
		indexErr  *dataset.IndexError
		validErr  *ValidationError
		parseErr  *expr.ParseError
		evalErr   *EvalError
		lengthErr *LengthMismatchError
		bindErr   *BindError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ingestErr):
		return "ingest"
	case errors.As(err, &validErr):
		return "validation"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &evalErr):
		return "eval"
	case errors.As(err, &indexErr):
		return "index"
	case errors.As(err, &lengthErr):
		return "length_mismatch"
	case errors.As(err, &bindErr):
		return "bind"
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, registry.ErrEmpty), errors.Is(err, ErrNoAnchor):
		return "not_found"
	default:
		return "internal"
	}
}
