package expr

import (
	"strings"
	"unicode"
)

// Set is a set of names.
type Set map[string]struct{}

// NewSet builds a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Tokens splits an expression on every run of non-word characters.
// Word characters are letters, digits and underscore; empty tokens are dropped.
func Tokens(expression string) []string {
	return strings.FieldsFunc(expression, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_')
	})
}

// Validate reports whether every token of expression is a known dataset name,
// function name or dataset file name. Numeric literals get no special
// treatment: "2" only passes if some whitelist contains "2".
func Validate(expression string, datasetNames, functionNames, fileNames Set) bool {
	w := Whitelist{Datasets: datasetNames, Functions: functionNames, Files: fileNames}
	return w.Validate(expression)
}

// Whitelist is the union of identifiers an expression may use.
type Whitelist struct {
	Datasets  Set
	Functions Set
	Files     Set

	// AllowNumbers additionally accepts digit-only tokens (and digit runs
	// ending in an exponent marker, such as the "1e" of "1e-3").
	AllowNumbers bool
}

// Known reports whether a single token is whitelisted.
func (w Whitelist) Known(tok string) bool {
	if w.Datasets.Has(tok) || w.Functions.Has(tok) || w.Files.Has(tok) {
		return true
	}
	return w.AllowNumbers && isNumericToken(tok)
}

// Validate reports whether every token of expression is whitelisted.
func (w Whitelist) Validate(expression string) bool {
	for _, tok := range Tokens(expression) {
		if !w.Known(tok) {
			return false
		}
	}
	return true
}

// Unknown returns the distinct tokens that are not whitelisted, in order of
// appearance. It is a diagnostic helper; Validate is the contract.
func (w Whitelist) Unknown(expression string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range Tokens(expression) {
		if !w.Known(tok) && !seen[tok] {
			seen[tok] = true
			out = append(out, tok)
		}
	}
	return out
}

func isNumericToken(tok string) bool {
	i := 0
	for i < len(tok) && isDigit(rune(tok[i])) {
		i++
	}
	if i == 0 {
		return false
	}
	if i < len(tok) && (tok[i] == 'e' || tok[i] == 'E') {
		i++
		for i < len(tok) && isDigit(rune(tok[i])) {
			i++
		}
	}
	return i == len(tok)
}
