package symbol

import (
	"regexp"
	"strconv"
	"strings"
)

// placeholder is used when nothing of the original name survives sanitizing.
const placeholder = "var"

var sanitizedRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func isLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// IsSanitized reports whether name is accepted by the engine grammar as is.
func IsSanitized(name string) bool {
	return sanitizedRe.MatchString(name)
}

// SanitizeName converts an arbitrary label into an identifier matching
// ^[A-Za-z][A-Za-z0-9_]*. Spaces, delimiters and any other characters
// outside [A-Za-z0-9_] are dropped. A name that does not start with a
// letter gets the "var_" prefix.
func SanitizeName(name string) string {
	if IsSanitized(name) {
		return name
	}

	var b strings.Builder
	for _, r := range name {
		if isLetter(r) || isDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if cleaned == "" {
		return placeholder
	}
	if !isLetter(rune(cleaned[0])) {
		return placeholder + "_" + cleaned
	}
	return cleaned
}

// uniqueName returns base if it is free, otherwise base followed by the
// smallest positive integer that is not taken.
func uniqueName(base string, taken map[string]struct{}) string {
	if _, ok := taken[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
