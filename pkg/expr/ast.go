package expr

import (
	"strconv"
	"strings"
)

// Node is an expression tree node.
type Node interface {
	node()
	Pos() Position
	String() string
}

// NumberLit is a numeric literal.
type NumberLit struct {
	At    Position
	Value float64
	Raw   string
}

// Ident is a free variable reference, bound to a dataset at evaluation time.
type Ident struct {
	At   Position
	Name string
}

// ConstRef is a named builtin constant such as pi.
type ConstRef struct {
	At    Position
	Name  string
	Value float64
}

// UnaryExpr is a prefix operator applied to an operand.
type UnaryExpr struct {
	At      Position
	Op      TokenType
	Operand Node
}

// BinaryExpr is an infix operator applied to two operands.
type BinaryExpr struct {
	At    Position
	Op    TokenType
	Left  Node
	Right Node
}

// CallExpr is a builtin function call.
type CallExpr struct {
	At   Position
	Func *Func
	Args []Node
}

func (*NumberLit) node()  {}
func (*Ident) node()      {}
func (*ConstRef) node()   {}
func (*UnaryExpr) node()  {}
func (*BinaryExpr) node() {}
func (*CallExpr) node()   {}

func (n *NumberLit) Pos() Position  { return n.At }
func (n *Ident) Pos() Position      { return n.At }
func (n *ConstRef) Pos() Position   { return n.At }
func (n *UnaryExpr) Pos() Position  { return n.At }
func (n *BinaryExpr) Pos() Position { return n.At }
func (n *CallExpr) Pos() Position   { return n.At }

func (n *NumberLit) String() string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n *Ident) String() string    { return n.Name }
func (n *ConstRef) String() string { return "$" + n.Name }

func (n *UnaryExpr) String() string {
	return "(" + opSymbol(n.Op) + n.Operand.String() + ")"
}

func (n *BinaryExpr) String() string {
	return "(" + n.Left.String() + " " + opSymbol(n.Op) + " " + n.Right.String() + ")"
}

func (n *CallExpr) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Func.Name + "(" + strings.Join(args, ", ") + ")"
}

func opSymbol(t TokenType) string {
	switch t {
	case PLUS:
		return "+"
	case MINUS:
		return "-"
	case STAR:
		return "*"
	case SLASH:
		return "/"
	case PERCENT:
		return "%"
	case CARET:
		return "^"
	default:
		return t.String()
	}
}

// Walk calls fn for n and every descendant, depth first, left to right.
func Walk(n Node, fn func(Node)) {
	if n == nil {
		return
	}
	fn(n)
	switch n := n.(type) {
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *CallExpr:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	}
}

// FreeVars returns identifier names in order of first appearance.
func FreeVars(n Node) []string {
	var vars []string
	seen := make(map[string]bool)
	Walk(n, func(n Node) {
		if id, ok := n.(*Ident); ok && !seen[id.Name] {
			seen[id.Name] = true
			vars = append(vars, id.Name)
		}
	})
	return vars
}
