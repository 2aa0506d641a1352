package expr

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidFunc is returned when registering a function the machine cannot call.
var ErrInvalidFunc = errors.New("invalid function")

// Func is a builtin math function.
type Func struct {
	Name  string
	Arity int
	Doc   string

	// Exactly one of Fn1 or Fn2 is set, matching Arity.
	Fn1 func(float64) float64
	Fn2 func(float64, float64) float64

	// Domain reports whether the arguments are acceptable. Nil accepts everything.
	Domain func(args ...float64) bool
}

// Builtins is a lookup table of functions and named constants.
type Builtins struct {
	funcs  map[string]*Func
	consts map[string]float64
}

// NewBuiltins returns an empty table.
func NewBuiltins() *Builtins {
	return &Builtins{
		funcs:  make(map[string]*Func),
		consts: make(map[string]float64),
	}
}

// Register adds f, replacing any function of the same name. f must take one
// or two arguments and set the implementation matching its arity.
func (b *Builtins) Register(f *Func) error {
	if f == nil || f.Name == "" {
		return fmt.Errorf("register: %w: missing name", ErrInvalidFunc)
	}
	switch {
	case f.Arity == 1 && f.Fn1 != nil && f.Fn2 == nil:
	case f.Arity == 2 && f.Fn2 != nil && f.Fn1 == nil:
	default:
		return fmt.Errorf("register %s: %w: arity %d must be 1 or 2 with only the matching Fn set", f.Name, ErrInvalidFunc, f.Arity)
	}
	b.funcs[f.Name] = f
	return nil
}

// RegisterConst adds a named constant.
func (b *Builtins) RegisterConst(name string, v float64) {
	b.consts[name] = v
}

// Func looks up a function by name.
func (b *Builtins) Func(name string) (*Func, bool) {
	f, ok := b.funcs[name]
	return f, ok
}

// Const looks up a constant by name.
func (b *Builtins) Const(name string) (float64, bool) {
	v, ok := b.consts[name]
	return v, ok
}

// Funcs returns all functions sorted by name.
func (b *Builtins) Funcs() []*Func {
	out := make([]*Func, 0, len(b.funcs))
	for _, f := range b.funcs {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ConstNames returns constant names, sorted.
func (b *Builtins) ConstNames() []string {
	out := make([]string, 0, len(b.consts))
	for name := range b.consts {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Names returns every function and constant name, for whitelisting.
func (b *Builtins) Names() Set {
	s := make(Set, len(b.funcs)+len(b.consts))
	for name := range b.funcs {
		s[name] = struct{}{}
	}
	for name := range b.consts {
		s[name] = struct{}{}
	}
	return s
}

func positive(args ...float64) bool    { return args[0] > 0 }
func nonNegative(args ...float64) bool { return args[0] >= 0 }
func unitRange(args ...float64) bool   { return args[0] >= -1 && args[0] <= 1 }

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

var defaultBuiltins = func() *Builtins {
	b := NewBuiltins()
	for _, f := range []*Func{
		{Name: "sin", Arity: 1, Fn1: math.Sin, Doc: "sine (radians)"},
		{Name: "cos", Arity: 1, Fn1: math.Cos, Doc: "cosine (radians)"},
		{Name: "tan", Arity: 1, Fn1: math.Tan, Doc: "tangent (radians)"},
		{Name: "asin", Arity: 1, Fn1: math.Asin, Domain: unitRange, Doc: "arc sine"},
		{Name: "acos", Arity: 1, Fn1: math.Acos, Domain: unitRange, Doc: "arc cosine"},
		{Name: "atan", Arity: 1, Fn1: math.Atan, Doc: "arc tangent"},
		{Name: "sinh", Arity: 1, Fn1: math.Sinh, Doc: "hyperbolic sine"},
		{Name: "cosh", Arity: 1, Fn1: math.Cosh, Doc: "hyperbolic cosine"},
		{Name: "tanh", Arity: 1, Fn1: math.Tanh, Doc: "hyperbolic tangent"},
		{Name: "exp", Arity: 1, Fn1: math.Exp, Doc: "e raised to x"},
		{Name: "log", Arity: 1, Fn1: math.Log, Domain: positive, Doc: "natural logarithm"},
		{Name: "log10", Arity: 1, Fn1: math.Log10, Domain: positive, Doc: "base-10 logarithm"},
		{Name: "log2", Arity: 1, Fn1: math.Log2, Domain: positive, Doc: "base-2 logarithm"},
		{Name: "sqrt", Arity: 1, Fn1: math.Sqrt, Domain: nonNegative, Doc: "square root"},
		{Name: "abs", Arity: 1, Fn1: math.Abs, Doc: "absolute value"},
		{Name: "floor", Arity: 1, Fn1: math.Floor, Doc: "round toward -inf"},
		{Name: "ceil", Arity: 1, Fn1: math.Ceil, Doc: "round toward +inf"},
		{Name: "round", Arity: 1, Fn1: math.Round, Doc: "round half away from zero"},
		{Name: "sgn", Arity: 1, Fn1: sign, Doc: "sign: -1, 0 or 1"},
		{Name: "pow", Arity: 2, Fn2: math.Pow, Doc: "x raised to y"},
		{Name: "atan2", Arity: 2, Fn2: math.Atan2, Doc: "arc tangent of y/x"},
		{Name: "hypot", Arity: 2, Fn2: math.Hypot, Doc: "sqrt(x*x + y*y)"},
		{Name: "min", Arity: 2, Fn2: math.Min, Doc: "smaller of two values"},
		{Name: "max", Arity: 2, Fn2: math.Max, Doc: "larger of two values"},
	} {
		if err := b.Register(f); err != nil {
			panic(err)
		}
	}
	b.RegisterConst("pi", math.Pi)
	b.RegisterConst("e", math.E)
	return b
}()

// DefaultBuiltins returns the standard function table. It must not be modified.
func DefaultBuiltins() *Builtins {
	return defaultBuiltins
}
