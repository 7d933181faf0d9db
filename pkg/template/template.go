// Package template provides {{variable}} interpolation against an execution context.
//
// Two rendering modes exist: Resolve emits plain text for prompts, URLs and
// bodies; ResolveExpression emits evaluator literals (quoted strings, bare
// numbers and booleans) for use with the safe boolean evaluator. Both modes
// are single-pass (a resolved value that itself contains {{x}} is emitted
// literally and never re-expanded) and both leave unknown placeholders
// intact.
package template

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// placeholderPattern matches {{path}} where path is one or more [A-Za-z0-9_-]
// segments joined by dots. Node ids with hyphens are valid segments.
var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_-]+(?:\.[A-Za-z0-9_-]+)*)\}\}`)

// Resolve replaces every {{path}} in s with the stringified variable value.
// Missing variables leave the placeholder untouched.
func Resolve(s string, ec *models.ExecutionContext) string {
	return replace(s, ec, Stringify)
}

// ResolveExpression replaces every {{path}} with a literal rendering of the
// variable value, suitable for the safe evaluator: strings are double-quoted
// and escaped, numbers and booleans are bare, nil renders as null. A missing
// variable leaves the placeholder intact, which makes the final expression
// ill-formed and therefore evaluate to false.
func ResolveExpression(s string, ec *models.ExecutionContext) string {
	return replace(s, ec, literal)
}

func replace(s string, ec *models.ExecutionContext, render func(any) string) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		path := match[2 : len(match)-2]

		value, ok := ec.GetVariable(path)
		if !ok {
			return match
		}

		return render(value)
	})
}

// Stringify renders a variable value as display text. JSON decoding turns all
// numbers into float64, so integral floats are printed without a fraction.
func Stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return strconv.FormatInt(int64(v), 10)
		}

		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmtAny(v)
	}
}

func literal(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int, int64, float64:
		return Stringify(v)
	default:
		// Composite values have no literal form; quote their text rendering
		// so comparisons still behave predictably.
		return strconv.Quote(fmtAny(v))
	}
}

// fmtAny renders composite values (maps, slices) as compact JSON, falling
// back to the default Go formatting when marshalling fails.
func fmtAny(v any) string {
	if raw, err := json.Marshal(v); err == nil {
		return string(raw)
	}

	return fmt.Sprintf("%v", v)
}
