package safety

import (
	"fmt"
	"regexp"
	"strings"
)

// bannedImports are module roots a code node may never import, directly or
// via from-import.
var bannedImports = map[string]bool{
	"os":         true,
	"socket":     true,
	"subprocess": true,
	"importlib":  true,
	"ctypes":     true,
	"shutil":     true,
}

// bannedCalls are builtins a code node may never invoke.
var bannedCalls = map[string]bool{
	"eval":       true,
	"exec":       true,
	"compile":    true,
	"__import__": true,
	"open":       true,
	"getattr":    true,
	"setattr":    true,
	"delattr":    true,
	"globals":    true,
	"locals":     true,
	"vars":       true,
	"breakpoint": true,
}

var (
	importPattern     = regexp.MustCompile(`^\s*import\s+(.+)$`)
	fromImportPattern = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
	callPattern       = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	osAttrPattern     = regexp.MustCompile(`\bos\s*\.\s*(system|popen)\s*\(`)
)

// ValidateCode statically checks untrusted source before the sandbox runs
// it: banned module imports, banned builtin calls and the os.system/os.popen
// attribute pair are all refused. String and comment contents are blanked
// first so payload text cannot mask (or falsely trigger) a match.
//
// This is a denylist, not a proof: runtime traversal through
// __class__/__subclasses__ style gadgets is out of its reach. The second
// line of defence is the clean-environment subprocess with resource caps.
func ValidateCode(source string) error {
	sanitised := blankStrings(source)

	for _, statement := range splitStatements(sanitised) {
		if m := importPattern.FindStringSubmatch(statement); m != nil {
			for _, target := range strings.Split(m[1], ",") {
				module := strings.TrimSpace(target)
				// "import a.b as c": only the root decides.
				module = strings.SplitN(module, " ", 2)[0]
				root := strings.SplitN(module, ".", 2)[0]

				if bannedImports[root] {
					return fmt.Errorf("import of module %q is not allowed", root)
				}
			}
		}

		if m := fromImportPattern.FindStringSubmatch(statement); m != nil {
			root := strings.SplitN(m[1], ".", 2)[0]
			if bannedImports[root] {
				return fmt.Errorf("import from module %q is not allowed", root)
			}
		}

		if m := osAttrPattern.FindStringSubmatch(statement); m != nil {
			return fmt.Errorf("call to os.%s is not allowed", m[1])
		}

		for _, call := range callPattern.FindAllStringSubmatch(statement, -1) {
			if bannedCalls[call[1]] {
				return fmt.Errorf("call to %q is not allowed", call[1])
			}
		}
	}

	return nil
}

// splitStatements yields one logical statement per element: lines, further
// split on semicolons.
func splitStatements(source string) []string {
	var statements []string

	for _, line := range strings.Split(source, "\n") {
		for _, part := range strings.Split(line, ";") {
			statements = append(statements, part)
		}
	}

	return statements
}

// blankStrings replaces the contents of string literals and comments with
// spaces, preserving line structure. Triple-quoted blocks are handled before
// single-line literals.
func blankStrings(source string) string {
	out := []byte(source)

	i := 0
	for i < len(out) {
		c := out[i]

		switch {
		case c == '#':
			for i < len(out) && out[i] != '\n' {
				out[i] = ' '
				i++
			}

		case c == '"' || c == '\'':
			quote := c
			triple := i+2 < len(out) && out[i+1] == quote && out[i+2] == quote

			var end int
			if triple {
				end = findClose(out, i+3, string([]byte{quote, quote, quote}))
			} else {
				end = findClose(out, i+1, string(quote))
			}

			for j := i + 1; j < end-1; j++ {
				if out[j] != '\n' {
					out[j] = ' '
				}
			}

			i = end

		default:
			i++
		}
	}

	return string(out)
}

// findClose returns the index one past the closing delimiter, honouring
// backslash escapes; unterminated literals extend to the end of the source.
func findClose(out []byte, from int, delim string) int {
	for i := from; i < len(out); i++ {
		if out[i] == '\\' {
			i++
			continue
		}

		if strings.HasPrefix(string(out[i:]), delim) {
			return i + len(delim)
		}
	}

	return len(out)
}
