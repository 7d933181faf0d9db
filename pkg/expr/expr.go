// Package expr evaluates user-authored boolean expressions for condition nodes.
//
// Expressions arrive written in a loose JavaScript/Python mix ("===", "&&",
// "True", "a contains b"). A normalisation pass canonicalises operators
// outside string literals, then a small recursive-descent parser evaluates
// the result. The grammar admits only literals (strings, numbers, booleans,
// null), comparisons, "in"/"contains" and boolean connectives. There are no
// names, no calls and no attribute access, so nothing user-controlled can
// reach process state. Any parse or evaluation failure yields false, which
// routes the condition to its false branch.
package expr

import (
	"errors"
	"fmt"
	"strings"
)

// Evaluate runs the full pipeline on a raw expression. The boolean result is
// false whenever err is non-nil.
func Evaluate(input string) (bool, error) {
	normalised := Normalise(input)

	tokens, err := lex(normalised)
	if err != nil {
		return false, fmt.Errorf("lex %q: %w", input, err)
	}

	p := &parser{tokens: tokens}

	node, err := p.parseOr()
	if err != nil {
		return false, fmt.Errorf("parse %q: %w", input, err)
	}

	if !p.atEnd() {
		return false, fmt.Errorf("parse %q: unexpected trailing input", input)
	}

	value, err := node.eval()
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", input, err)
	}

	return truthy(value), nil
}

// Normalise canonicalises JavaScript-style operators and bare boolean
// keywords outside string literals: "===" -> "==", "!==" -> "!=",
// "&&" -> "and", "||" -> "or", case-insensitive true/false/none. Characters
// inside single- or double-quoted literals pass through untouched.
func Normalise(input string) string {
	var out strings.Builder

	i := 0
	for i < len(input) {
		c := input[i]

		// Copy quoted literals verbatim, honouring backslash escapes.
		if c == '"' || c == '\'' {
			end := scanString(input, i)
			out.WriteString(input[i:end])
			i = end

			continue
		}

		switch {
		case strings.HasPrefix(input[i:], "==="):
			out.WriteString("==")
			i += 3
		case strings.HasPrefix(input[i:], "!=="):
			out.WriteString("!=")
			i += 3
		case strings.HasPrefix(input[i:], "&&"):
			out.WriteString(" and ")
			i += 2
		case strings.HasPrefix(input[i:], "||"):
			out.WriteString(" or ")
			i += 2
		case isWordByte(c):
			j := i
			for j < len(input) && isWordByte(input[j]) {
				j++
			}

			out.WriteString(normaliseWord(input[i:j]))
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}

	return out.String()
}

func normaliseWord(word string) string {
	switch strings.ToLower(word) {
	case "true":
		return "true"
	case "false":
		return "false"
	case "none", "null":
		return "null"
	default:
		return word
	}
}

// scanString returns the index one past the closing quote, or len(input) for
// an unterminated literal.
func scanString(input string, start int) int {
	quote := input[start]

	for i := start + 1; i < len(input); i++ {
		switch input[i] {
		case '\\':
			i++
		case quote:
			return i + 1
		}
	}

	return len(input)
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// truthy applies loose truthiness so "{{x}}" expressions that resolve to a
// bare value still branch sensibly.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return false
	}
}

var errNotComparable = errors.New("operands are not comparable")
