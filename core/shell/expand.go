package shell

import (
	"strconv"
	"strings"
)

const (
	// HomePrefix is only expanded at the start of a word.
	HomePrefix = "~/"

	PIDMarker           = "$$"
	StatusMarker        = "$?"
	BackgroundPIDMarker = "$!"
)

// Markers holds the session values substituted into words.
type Markers struct {
	Home          string
	PID           int
	Status        int
	BackgroundPID int
	HasBackground bool
}

// Expand substitutes markers in word. Substitutions run in a fixed order,
// each over the output of the previous one:
//
//	~/  first "~" only, and only when the word starts with "~/"
//	$$  every occurrence, the shell's pid
//	$?  every occurrence, the last foreground exit status
//	$!  every occurrence, the last background pid or "" if none
func Expand(word string, m Markers) string {
	if strings.HasPrefix(word, HomePrefix) {
		word = strings.Replace(word, "~", m.Home, 1)
	}

	word = strings.ReplaceAll(word, PIDMarker, strconv.Itoa(m.PID))
	word = strings.ReplaceAll(word, StatusMarker, strconv.Itoa(m.Status))

	background := ""
	if m.HasBackground {
		background = strconv.Itoa(m.BackgroundPID)
	}
	return strings.ReplaceAll(word, BackgroundPIDMarker, background)
}

// ExpandAll expands every word in place and returns the slice.
func ExpandAll(words []string, m Markers) []string {
	for i, word := range words {
		words[i] = Expand(word, m)
	}
	return words
}
