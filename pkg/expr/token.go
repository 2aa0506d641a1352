package expr

import "fmt"

// TokenType identifies a lexical token.
type TokenType int

//nolint:revive // token names mirror operator spelling
const (
	EOF TokenType = iota
	ILLEGAL

	NUMBER // 1.5, 2e10
	IDENT  // sin, D1, temp
	CONST  // $pi

	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	CARET   // ^
	LPAREN  // (
	RPAREN  // )
	COMMA   // ,
)

var tokenNames = map[TokenType]string{
	EOF:     "end of expression",
	ILLEGAL: "ILLEGAL",
	NUMBER:  "number",
	IDENT:   "identifier",
	CONST:   "constant",
	PLUS:    "'+'",
	MINUS:   "'-'",
	STAR:    "'*'",
	SLASH:   "'/'",
	PERCENT: "'%'",
	CARET:   "'^'",
	LPAREN:  "'('",
	RPAREN:  "')'",
	COMMA:   "','",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Position represents a location in the expression source.
type Position struct {
	Line   int // 1-based line number
	Column int // 1-based column number
	Offset int // 0-based byte offset
}

// IsValid returns true if the position is valid (line > 0).
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Token is a lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position
}

func (t Token) String() string {
	switch t.Type {
	case NUMBER, IDENT:
		return fmt.Sprintf("%s %q", t.Type, t.Literal)
	case CONST:
		return fmt.Sprintf("constant $%s", t.Literal)
	case ILLEGAL:
		return fmt.Sprintf("character %q", t.Literal)
	default:
		return t.Type.String()
	}
}
