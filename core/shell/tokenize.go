package shell

import "strings"

// DefaultDelimiters separate words when IFS isn't set.
const DefaultDelimiters = " \t\n"

// Tokenize splits line on runs of any character in delims. It never returns
// empty words; a blank line yields no words at all.
func Tokenize(line, delims string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return strings.ContainsRune(delims, r)
	})
}
