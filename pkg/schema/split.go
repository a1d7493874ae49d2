package schema

import "strings"

// SplitStatements splits a script into normalized statements.
//
// Comments ("--" to end of line, outside literals) and blank lines are
// removed, trailing whitespace is trimmed from every line and the
// terminating ';' is dropped. Single-quoted strings, double-quoted
// identifiers and $$-delimited strings are kept verbatim, doubled quotes
// included.
func SplitStatements(script string) ([]string, error) {
	var (
		statements []string
		current    strings.Builder
		// closer ends the literal being read; empty outside literals.
		closer string
	)

	runes := []rune(strings.ReplaceAll(script, "\r\n", "\n"))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case closer != "":
			if hasPrefixAt(runes, i, closer) {
				current.WriteString(closer)
				i += len(closer) - 1
				closer = ""
				continue
			}
			current.WriteRune(r)
		case r == '\'' || r == '"':
			closer = string(r)
			current.WriteRune(r)
		case r == '$' && hasPrefixAt(runes, i, "$$"):
			closer = "$$"
			current.WriteString(closer)
			i++
		case r == '-' && hasPrefixAt(runes, i, "--"):
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			if i < len(runes) {
				current.WriteRune('\n')
			}
		case r == ';':
			if stmt := normalize(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	if closer != "" {
		return nil, malformed("unterminated literal, missing %s", closer)
	}
	if rest := normalize(current.String()); rest != "" {
		return nil, malformed("statement without terminating ';': %q", firstLine(rest))
	}
	if len(statements) == 0 {
		return nil, malformed("no statements")
	}
	return statements, nil
}

func hasPrefixAt(runes []rune, i int, prefix string) bool {
	for _, p := range prefix {
		if i >= len(runes) || runes[i] != p {
			return false
		}
		i++
	}
	return true
}

func normalize(stmt string) string {
	lines := strings.Split(stmt, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
