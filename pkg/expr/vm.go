package expr

import "math"

// Machine runs a Program. Callers fill Vars, call Run, then check Fault.
// A Machine is not safe for concurrent use; create one per goroutine.
type Machine struct {
	// Vars holds one value per Program.Vars slot.
	Vars []float64
	// Fault is reset at the start of every Run and set by the first faulting op.
	Fault Fault

	prog  *Program
	stack []float64
}

// NewMachine creates a machine with zeroed variable slots.
func (p *Program) NewMachine() *Machine {
	return &Machine{
		Vars:  make([]float64, len(p.Vars)),
		prog:  p,
		stack: make([]float64, p.maxStack),
	}
}

// Eval is a convenience wrapper: it binds vars in slot order and runs once.
func (p *Program) Eval(vars ...float64) (float64, Fault) {
	m := p.NewMachine()
	copy(m.Vars, vars)
	v := m.Run()
	return v, m.Fault
}

// Run executes the program once. On a fault it stops immediately, sets
// m.Fault and returns NaN.
func (m *Machine) Run() float64 {
	m.Fault = FaultNone
	stack := m.stack
	sp := 0
	p := m.prog

	for _, in := range p.code {
		switch in.Op {
		case OpConst:
			stack[sp] = p.consts[in.Arg]
			sp++
		case OpVar:
			stack[sp] = m.Vars[in.Arg]
			sp++
		case OpNeg:
			stack[sp-1] = -stack[sp-1]
		case OpCall1:
			f := p.funcs[in.Arg]
			x := stack[sp-1]
			if f.Domain != nil && !f.Domain(x) {
				return m.fail(FaultDomain)
			}
			r := f.Fn1(x)
			if fault := check(r, x, x); fault != FaultNone {
				return m.fail(fault)
			}
			stack[sp-1] = r
		default:
			a, b := stack[sp-2], stack[sp-1]
			sp--
			var r float64
			switch in.Op {
			case OpAdd:
				r = a + b
			case OpSub:
				r = a - b
			case OpMul:
				r = a * b
			case OpDiv:
				if b == 0 {
					return m.fail(FaultDivByZero)
				}
				r = a / b
			case OpMod:
				if b == 0 {
					return m.fail(FaultDivByZero)
				}
				r = math.Mod(a, b)
			case OpPow:
				if a == 0 && b < 0 {
					return m.fail(FaultDivByZero)
				}
				r = math.Pow(a, b)
			case OpCall2:
				f := p.funcs[in.Arg]
				if f.Domain != nil && !f.Domain(a, b) {
					return m.fail(FaultDomain)
				}
				r = f.Fn2(a, b)
			}
			if fault := check(r, a, b); fault != FaultNone {
				return m.fail(fault)
			}
			stack[sp-1] = r
		}
	}

	return stack[0]
}

func (m *Machine) fail(f Fault) float64 {
	m.Fault = f
	return math.NaN()
}

// check classifies a non-finite result produced from finite operands.
func check(r, a, b float64) Fault {
	switch {
	case math.IsNaN(r):
		if math.IsNaN(a) || math.IsNaN(b) {
			return FaultNone
		}
		return FaultDomain
	case math.IsInf(r, 0):
		if math.IsInf(a, 0) || math.IsInf(b, 0) {
			return FaultNone
		}
		return FaultOverflow
	default:
		return FaultNone
	}
}
