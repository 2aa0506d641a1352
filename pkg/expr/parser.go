// Package expr validates, compiles and evaluates arithmetic expressions over
// dataset identifiers.
//
// # Usage
//
//	if !expr.Validate(src, datasetNames, expr.DefaultBuiltins().Names(), fileNames) {
//	    // reject
//	}
//	prog, err := expr.Compile(src, expr.DefaultBuiltins())
//	if err != nil {
//	    // *ParseError
//	}
//	m := prog.NewMachine()
//	m.Vars[0] = 1.5
//	v := m.Run()
//	if m.Fault != expr.FaultNone {
//	    // runtime fault
//	}
//
// # Grammar
//
//	expr    → term (('+'|'-') term)*
//	term    → unary (('*'|'/'|'%') unary)*
//	unary   → ('-'|'+') unary | power
//	power   → primary ('^' unary)?
//	primary → NUMBER | IDENT | IDENT '(' args ')' | '$' IDENT | '(' expr ')'
//	args    → expr (',' expr)*
//
// '^' is right associative and binds tighter than unary minus, so -2^2 is -4.
package expr

import (
	"fmt"
	"strconv"
)

// Precedence levels for infix operators.
const (
	precNone = iota
	precAdditive
	precMultiplicative
	precUnary
	precPower
)

// Parser builds an expression tree from source text.
type Parser struct {
	lexer    *Lexer
	token    Token // current token
	peek     Token // lookahead token
	builtins *Builtins
	names    Set // bare words that always parse as variables
	err      *ParseError
}

// NewParser creates a parser resolving functions and constants against b.
func NewParser(src string, b *Builtins) *Parser {
	if b == nil {
		b = DefaultBuiltins()
	}
	p := &Parser{
		lexer:    NewLexer(src),
		builtins: b,
	}
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses src with the default builtins.
func Parse(src string) (Node, error) {
	return ParseWith(src, DefaultBuiltins())
}

// ParseWith parses src resolving functions against b.
func ParseWith(src string, b *Builtins) (Node, error) {
	return ParseNames(src, b, nil)
}

// ParseNames parses src like ParseWith, except that a bare word or number
// spelled exactly like one of names is a variable, even where it would
// otherwise be a constant, a literal or a function name. Calls are unaffected.
func ParseNames(src string, b *Builtins, names Set) (Node, error) {
	p := NewParser(src, b)
	p.names = names
	n := p.parseTop()
	if p.err != nil {
		return nil, p.err
	}
	return n, nil
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.token = p.peek
	p.peek = p.lexer.NextToken()
}

func (p *Parser) check(t TokenType) bool {
	return p.token.Type == t
}

// errorf records the first error only; later errors are usually cascades.
func (p *Parser) errorf(pos Position, format string, args ...any) {
	if p.err == nil {
		p.err = &ParseError{Pos: pos, Message: fmt.Sprintf(format, args...)}
	}
}

func (p *Parser) expect(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.errorf(p.token.Pos, ErrUnexpectedToken, p.token, t)
	return false
}

// ---------- Grammar ----------

func (p *Parser) parseTop() Node {
	if p.check(EOF) {
		p.errorf(p.token.Pos, ErrEmptyExpression)
		return nil
	}
	n := p.parseExpression(precAdditive)
	if p.err != nil {
		return nil
	}
	if p.check(ILLEGAL) {
		p.errorf(p.token.Pos, ErrIllegalChar, p.token)
		return nil
	}
	if !p.check(EOF) {
		p.errorf(p.token.Pos, ErrTrailingInput, p.token)
		return nil
	}
	return n
}

// parseExpression implements precedence climbing over the infix operators.
func (p *Parser) parseExpression(minPrec int) Node {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token.Type)
		if prec == precNone || prec < minPrec {
			break
		}
		op := p.token
		p.nextToken()

		// '^' is right associative; everything else associates left.
		next := prec + 1
		if op.Type == CARET {
			next = prec
		}
		right := p.parseExpression(next)
		if right == nil {
			return nil
		}
		left = &BinaryExpr{At: op.Pos, Op: op.Type, Left: left, Right: right}
	}
	return left
}

func infixPrecedence(t TokenType) int {
	switch t {
	case PLUS, MINUS:
		return precAdditive
	case STAR, SLASH, PERCENT:
		return precMultiplicative
	case CARET:
		return precPower
	default:
		return precNone
	}
}

func (p *Parser) parsePrefix() Node {
	switch p.token.Type {
	case MINUS, PLUS:
		op := p.token
		p.nextToken()
		operand := p.parseExpression(precUnary)
		if operand == nil {
			return nil
		}
		return &UnaryExpr{At: op.Pos, Op: op.Type, Operand: operand}
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() Node {
	tok := p.token
	switch tok.Type {
	case NUMBER:
		p.nextToken()
		if p.names.Has(tok.Literal) {
			return &Ident{At: tok.Pos, Name: tok.Literal}
		}
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorf(tok.Pos, ErrInvalidNumber, tok.Literal)
			return nil
		}
		return &NumberLit{At: tok.Pos, Value: v, Raw: tok.Literal}

	case CONST:
		p.nextToken()
		v, ok := p.builtins.Const(tok.Literal)
		if !ok {
			p.errorf(tok.Pos, ErrUnknownConstant, tok.Literal)
			return nil
		}
		return &ConstRef{At: tok.Pos, Name: tok.Literal, Value: v}

	case IDENT:
		p.nextToken()
		if p.check(LPAREN) {
			return p.parseCall(tok)
		}
		if p.names.Has(tok.Literal) {
			return &Ident{At: tok.Pos, Name: tok.Literal}
		}
		if _, ok := p.builtins.Func(tok.Literal); ok {
			p.errorf(tok.Pos, ErrFunctionAsValue, tok.Literal)
			return nil
		}
		if v, ok := p.builtins.Const(tok.Literal); ok {
			return &ConstRef{At: tok.Pos, Name: tok.Literal, Value: v}
		}
		return &Ident{At: tok.Pos, Name: tok.Literal}

	case LPAREN:
		p.nextToken()
		inner := p.parseExpression(precAdditive)
		if inner == nil {
			return nil
		}
		if !p.expect(RPAREN) {
			return nil
		}
		return inner

	case ILLEGAL:
		p.errorf(tok.Pos, ErrIllegalChar, tok)
		return nil

	default:
		p.errorf(tok.Pos, ErrUnexpectedToken, tok, "a value")
		return nil
	}
}

// parseCall parses the argument list; the current token is '('.
func (p *Parser) parseCall(name Token) Node {
	fn, ok := p.builtins.Func(name.Literal)
	if !ok {
		p.errorf(name.Pos, ErrUnknownFunction, name.Literal)
		return nil
	}
	p.nextToken() // consume '('

	var args []Node
	if !p.check(RPAREN) {
		for {
			arg := p.parseExpression(precAdditive)
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.check(COMMA) {
				break
			}
			p.nextToken()
		}
	}
	if !p.expect(RPAREN) {
		return nil
	}
	if len(args) != fn.Arity {
		p.errorf(name.Pos, ErrArity, fn.Name, fn.Arity, len(args))
		return nil
	}
	return &CallExpr{At: name.Pos, Func: fn, Args: args}
}
