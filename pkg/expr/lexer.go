package expr

import (
	"unicode"
	"unicode/utf8"
)

// Lexer tokenizes an arithmetic expression.
type Lexer struct {
	input   string
	pos     int  // byte offset of ch
	readPos int  // byte offset after ch
	ch      rune // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based, in characters)
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar advances to the next character.
func (l *Lexer) readChar() {
	l.pos = l.readPos
	if l.readPos >= len(l.input) {
		l.ch = 0 // NUL = EOF
		l.readPos++
	} else {
		r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
		l.ch = r
		l.readPos += size
	}

	if l.ch == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
}

// peekChar and peekCharAt look ahead by bytes; they are only compared
// against ASCII.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) peekCharAt(n int) byte {
	if l.readPos+n >= len(l.input) {
		return 0
	}
	return l.input[l.readPos+n]
}

func (l *Lexer) currentPos() Position {
	return Position{
		Line:   l.line,
		Column: l.col,
		Offset: l.pos,
	}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.currentPos()

	if l.pos >= len(l.input) {
		return Token{Type: EOF, Pos: pos}
	}

	switch ch := l.ch; {
	case ch == '+':
		return l.single(PLUS, pos)
	case ch == '-':
		return l.single(MINUS, pos)
	case ch == '*':
		return l.single(STAR, pos)
	case ch == '/':
		return l.single(SLASH, pos)
	case ch == '%':
		return l.single(PERCENT, pos)
	case ch == '^':
		return l.single(CARET, pos)
	case ch == '(':
		return l.single(LPAREN, pos)
	case ch == ')':
		return l.single(RPAREN, pos)
	case ch == ',':
		return l.single(COMMA, pos)
	case ch == '$':
		l.readChar()
		if !isLetter(l.ch) {
			return Token{Type: ILLEGAL, Literal: "$", Pos: pos}
		}
		return Token{Type: CONST, Literal: l.readIdent(), Pos: pos}
	case isDigit(ch) || (ch == '.' && isDigit(rune(l.peekChar()))):
		return Token{Type: NUMBER, Literal: l.readNumber(), Pos: pos}
	case isLetter(ch) || isWordDigit(ch):
		return Token{Type: IDENT, Literal: l.readIdent(), Pos: pos}
	default:
		lit := string(ch)
		l.readChar()
		return Token{Type: ILLEGAL, Literal: lit, Pos: pos}
	}
}

func (l *Lexer) single(t TokenType, pos Position) Token {
	lit := string(l.ch)
	l.readChar()
	return Token{Type: t, Literal: lit, Pos: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for isLetter(l.ch) || isWordDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// readNumber reads digits, an optional fraction and an optional exponent.
// An 'e' not followed by a digit (or sign and digit) ends the number.
func (l *Lexer) readNumber() string {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(rune(next)) || ((next == '+' || next == '-') && isDigit(rune(l.peekCharAt(1)))) {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.pos]
}

// isLetter and isWordDigit match the word characters of Tokens, so every
// whitelisted word lexes as a single identifier.
func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isWordDigit(ch rune) bool {
	return unicode.IsDigit(ch)
}

// isDigit matches the ASCII digits of a number literal.
func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
