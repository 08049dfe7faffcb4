package engine

import "strings"

// QuoteNames replaces quoted variable names with the names the engine knows
// them by. Names that are not legal identifiers are written in quotes, as in
// `"Temperature (K)" * 2`; lookup maps such an original name to its used
// name. Quoted text that is not a registered name is kept as a string
// literal. Backtick strings are never touched.
func QuoteNames(function string, lookup func(original string) (string, bool)) string {
	src := []rune(function)
	var b strings.Builder
	b.Grow(len(function))

	for i := 0; i < len(src); i++ {
		r := src[i]

		if r == '`' {
			end := closing(src, i, '`', false)
			if end < 0 {
				end = len(src)
			}
			b.WriteString(string(src[i:end]))
			i = end - 1
			continue
		}

		if r != '"' && r != '\'' {
			b.WriteRune(r)
			continue
		}

		end := closing(src, i, r, true)
		// Unterminated literals are left for the engine to report.
		if end < 0 {
			b.WriteString(string(src[i:]))
			break
		}

		literal := src[i:end]
		if used, ok := lookup(unescape(literal[1 : len(literal)-1])); ok {
			b.WriteString(used)
		} else {
			b.WriteString(string(literal))
		}
		i = end - 1
	}

	return b.String()
}

// closing returns the index just past the literal opened at src[start].
// For an unterminated literal it returns -1.
func closing(src []rune, start int, quote rune, escapes bool) int {
	for j := start + 1; j < len(src); j++ {
		if escapes && src[j] == '\\' {
			j++
			continue
		}
		if src[j] == quote {
			return j + 1
		}
	}
	return -1
}

func unescape(content []rune) string {
	var b strings.Builder
	for i := 0; i < len(content); i++ {
		if content[i] == '\\' && i+1 < len(content) {
			i++
		}
		b.WriteRune(content[i])
	}
	return b.String()
}
