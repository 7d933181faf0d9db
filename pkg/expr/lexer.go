package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenString tokenKind = iota
	tokenNumber
	tokenTrue
	tokenFalse
	tokenNull
	tokenAnd
	tokenOr
	tokenNot
	tokenIn
	tokenContains
	tokenEq
	tokenNe
	tokenLt
	tokenLe
	tokenGt
	tokenGe
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	str  string
	num  float64
}

var keywords = map[string]tokenKind{
	"true":     tokenTrue,
	"false":    tokenFalse,
	"null":     tokenNull,
	"and":      tokenAnd,
	"or":       tokenOr,
	"not":      tokenNot,
	"in":       tokenIn,
	"contains": tokenContains,
}

func lex(input string) ([]token, error) {
	var tokens []token

	i := 0
	for i < len(input) {
		c := input[i]

		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '"' || c == '\'':
			end := scanString(input, i)
			if end > len(input) || input[end-1] != c || end == i+1 {
				return nil, fmt.Errorf("unterminated string literal at offset %d", i)
			}

			value, err := unquote(input[i:end])
			if err != nil {
				return nil, err
			}

			tokens = append(tokens, token{kind: tokenString, str: value})
			i = end

		case c >= '0' && c <= '9' || (c == '-' && i+1 < len(input) && input[i+1] >= '0' && input[i+1] <= '9' && startsValue(tokens)):
			j := i + 1
			for j < len(input) && (input[j] >= '0' && input[j] <= '9' || input[j] == '.') {
				j++
			}

			num, err := strconv.ParseFloat(input[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("bad number %q: %w", input[i:j], err)
			}

			tokens = append(tokens, token{kind: tokenNumber, num: num})
			i = j

		case isWordByte(c):
			j := i
			for j < len(input) && isWordByte(input[j]) {
				j++
			}

			word := input[i:j]

			kind, ok := keywords[word]
			if !ok {
				// Unknown names are refused outright; there is no namespace.
				return nil, fmt.Errorf("unknown name %q", word)
			}

			tokens = append(tokens, token{kind: kind})
			i = j

		case strings.HasPrefix(input[i:], "=="):
			tokens = append(tokens, token{kind: tokenEq})
			i += 2
		case strings.HasPrefix(input[i:], "!="):
			tokens = append(tokens, token{kind: tokenNe})
			i += 2
		case strings.HasPrefix(input[i:], "<="):
			tokens = append(tokens, token{kind: tokenLe})
			i += 2
		case strings.HasPrefix(input[i:], ">="):
			tokens = append(tokens, token{kind: tokenGe})
			i += 2
		case c == '<':
			tokens = append(tokens, token{kind: tokenLt})
			i++
		case c == '>':
			tokens = append(tokens, token{kind: tokenGt})
			i++
		case c == '(':
			tokens = append(tokens, token{kind: tokenLParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenRParen})
			i++

		default:
			// Function calls, attribute access, arithmetic and anything else
			// land here and are refused.
			return nil, fmt.Errorf("unexpected character %q at offset %d", c, i)
		}
	}

	return tokens, nil
}

// startsValue reports whether a '-' at the current position begins a negative
// number rather than a binary minus (which the grammar does not have).
func startsValue(tokens []token) bool {
	if len(tokens) == 0 {
		return true
	}

	switch tokens[len(tokens)-1].kind {
	case tokenString, tokenNumber, tokenTrue, tokenFalse, tokenNull, tokenRParen:
		return false
	default:
		return true
	}
}

// unquote decodes a single- or double-quoted literal with backslash escapes.
func unquote(raw string) (string, error) {
	body := raw[1 : len(raw)-1]
	quote := raw[0]

	var out strings.Builder

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			out.WriteByte(c)
			continue
		}

		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape in %s", raw)
		}

		switch body[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case '\\':
			out.WriteByte('\\')
		case quote:
			out.WriteByte(quote)
		default:
			out.WriteByte('\\')
			out.WriteByte(body[i])
		}
	}

	return out.String(), nil
}
