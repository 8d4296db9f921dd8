// Package pathend resolves the terminal point of a reference stroke path.
//
// Only the subset of path commands emitted by the reference corpus is
// understood: M L H V C S Q T A Z in absolute and relative form.
package pathend

import (
	"fmt"
	"strconv"
)

// TokenKind distinguishes command letters from numbers.
type TokenKind int

const (
	TokenCommand TokenKind = iota
	TokenNumber
)

// Token is a single lexed path element.
type Token struct {
	Kind    TokenKind
	Command byte
	Value   float64
	Pos     int
}

func (t Token) String() string {
	if t.Kind == TokenCommand {
		return string(t.Command)
	}
	return strconv.FormatFloat(t.Value, 'g', -1, 64)
}

// Lex splits a path description into command and number tokens.
// Numbers may be concatenated without separators: "1-0.61" lexes as 1, -0.61
// and ".5.5" as .5, .5.
func Lex(d string) ([]Token, error) {
	var tokens []Token
	i := 0
	for i < len(d) {
		c := d[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == ',':
			i++
		case isCommand(c):
			tokens = append(tokens, Token{Kind: TokenCommand, Command: c, Pos: i})
			i++
		case c == '-' || c == '+' || c == '.' || isDigit(c):
			end := scanNumber(d, i)
			if end == i {
				return nil, fmt.Errorf("%w: bad number at position %d", ErrMalformedPath, i+1)
			}
			v, err := strconv.ParseFloat(d[i:end], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad number %q at position %d", ErrMalformedPath, d[i:end], i+1)
			}
			tokens = append(tokens, Token{Kind: TokenNumber, Value: v, Pos: i})
			i = end
		default:
			return nil, fmt.Errorf("%w: unexpected character %q at position %d", ErrMalformedPath, c, i+1)
		}
	}
	return tokens, nil
}

// scanNumber returns the end offset of the number starting at i, or i if
// there is no digit in it.
func scanNumber(d string, i int) int {
	j := i
	if j < len(d) && (d[j] == '-' || d[j] == '+') {
		j++
	}
	digits := 0
	for j < len(d) && isDigit(d[j]) {
		j++
		digits++
	}
	if j < len(d) && d[j] == '.' {
		j++
		for j < len(d) && isDigit(d[j]) {
			j++
			digits++
		}
	}
	if digits == 0 {
		return i
	}
	// Exponent only when followed by at least one digit.
	if j < len(d) && (d[j] == 'e' || d[j] == 'E') {
		k := j + 1
		if k < len(d) && (d[k] == '-' || d[k] == '+') {
			k++
		}
		if k < len(d) && isDigit(d[k]) {
			for k < len(d) && isDigit(d[k]) {
				k++
			}
			j = k
		}
	}
	return j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isCommand(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		return true
	}
	return false
}
