package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is a stack machine instruction.
type Opcode byte

const (
	OpConst Opcode = iota // push consts[Arg]
	OpVar                 // push vars[Arg]
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpCall1 // replace top with funcs[Arg](top)
	OpCall2 // replace top two with funcs[Arg](a, b)
)

var opNames = [...]string{
	OpConst: "CONST",
	OpVar:   "VAR",
	OpNeg:   "NEG",
	OpAdd:   "ADD",
	OpSub:   "SUB",
	OpMul:   "MUL",
	OpDiv:   "DIV",
	OpMod:   "MOD",
	OpPow:   "POW",
	OpCall1: "CALL1",
	OpCall2: "CALL2",
}

func (o Opcode) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("OP(%d)", int(o))
}

// Instruction is one opcode and its operand.
type Instruction struct {
	Op  Opcode
	Arg int
}

// Program is a compiled expression. It is immutable and safe to share;
// per-run state lives in a Machine.
type Program struct {
	Source string
	Vars   []string // variable slot names, in order of first appearance

	code     []Instruction
	consts   []float64
	funcs    []*Func
	maxStack int
}

// NumVars returns the number of variable slots.
func (p *Program) NumVars() int {
	return len(p.Vars)
}

// Slot returns the slot index for a variable name.
func (p *Program) Slot(name string) (int, bool) {
	for i, v := range p.Vars {
		if v == name {
			return i, true
		}
	}
	return 0, false
}

// Code returns a copy of the instruction stream.
func (p *Program) Code() []Instruction {
	out := make([]Instruction, len(p.code))
	copy(out, p.code)
	return out
}

// String disassembles the program, one instruction per line.
func (p *Program) String() string {
	var b strings.Builder
	for i, in := range p.code {
		fmt.Fprintf(&b, "%04d %-6s", i, in.Op)
		switch in.Op {
		case OpConst:
			b.WriteString(" " + strconv.FormatFloat(p.consts[in.Arg], 'g', -1, 64))
		case OpVar:
			b.WriteString(" " + p.Vars[in.Arg])
		case OpCall1, OpCall2:
			b.WriteString(" " + p.funcs[in.Arg].Name)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Compile parses src and compiles it to a Program. On a syntax error it
// returns a *ParseError and no program.
func Compile(src string, b *Builtins) (*Program, error) {
	return CompileNames(src, b, nil)
}

// CompileNames compiles src, treating names as variables as ParseNames does.
func CompileNames(src string, b *Builtins, names Set) (*Program, error) {
	if b == nil {
		b = DefaultBuiltins()
	}
	root, err := ParseNames(src, b, names)
	if err != nil {
		return nil, err
	}
	return CompileNode(src, root), nil
}

// CompileNode compiles an already parsed tree.
func CompileNode(src string, root Node) *Program {
	c := &compiler{
		prog:     &Program{Source: src, Vars: FreeVars(root)},
		constIdx: make(map[float64]int),
		funcIdx:  make(map[*Func]int),
	}
	c.emitNode(root)
	return c.prog
}

type compiler struct {
	prog     *Program
	constIdx map[float64]int
	funcIdx  map[*Func]int
	depth    int
}

func (c *compiler) emit(op Opcode, arg int, stackDelta int) {
	c.prog.code = append(c.prog.code, Instruction{Op: op, Arg: arg})
	c.depth += stackDelta
	if c.depth > c.prog.maxStack {
		c.prog.maxStack = c.depth
	}
}

func (c *compiler) constant(v float64) int {
	if i, ok := c.constIdx[v]; ok {
		return i
	}
	i := len(c.prog.consts)
	c.prog.consts = append(c.prog.consts, v)
	c.constIdx[v] = i
	return i
}

func (c *compiler) function(f *Func) int {
	if i, ok := c.funcIdx[f]; ok {
		return i
	}
	i := len(c.prog.funcs)
	c.prog.funcs = append(c.prog.funcs, f)
	c.funcIdx[f] = i
	return i
}

func (c *compiler) emitNode(n Node) {
	switch n := n.(type) {
	case *NumberLit:
		c.emit(OpConst, c.constant(n.Value), 1)
	case *ConstRef:
		c.emit(OpConst, c.constant(n.Value), 1)
	case *Ident:
		slot, _ := c.prog.Slot(n.Name)
		c.emit(OpVar, slot, 1)
	case *UnaryExpr:
		c.emitNode(n.Operand)
		if n.Op == MINUS {
			c.emit(OpNeg, 0, 0)
		}
	case *BinaryExpr:
		c.emitNode(n.Left)
		c.emitNode(n.Right)
		c.emit(binaryOp(n.Op), 0, -1)
	case *CallExpr:
		for _, a := range n.Args {
			c.emitNode(a)
		}
		if n.Func.Arity == 1 {
			c.emit(OpCall1, c.function(n.Func), 0)
		} else {
			c.emit(OpCall2, c.function(n.Func), -1)
		}
	}
}

func binaryOp(t TokenType) Opcode {
	switch t {
	case PLUS:
		return OpAdd
	case MINUS:
		return OpSub
	case STAR:
		return OpMul
	case SLASH:
		return OpDiv
	case PERCENT:
		return OpMod
	default:
		return OpPow
	}
}
