package core

import (
	"github.com/abiosoft/readline"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/vos"
)

// LineReader reads command lines from the user.
type LineReader interface {
	SetPrompt(prompt string)
	// Readline returns io.EOF once input is closed and readline.ErrInterrupt
	// when the user abandons the line with ^C.
	Readline() (string, error)
	Close() error
}

var _ LineReader = (*readline.Instance)(nil)

// NewLineReader creates a line editor over vio. The prompt and the editor's
// echo go to stderr, keeping stdout for command output.
func NewLineReader(vio vos.VIO, cfg *config.Configuration) (*readline.Instance, error) {
	stderr := vio.Stderr()

	rlConfig := &readline.Config{
		Stdin:        readline.NewCancelableStdin(vio.Stdin()),
		Stdout:       stderr,
		Stderr:       stderr,
		HistoryLimit: cfg.HistoryLimit,
		HistoryFile:  cfg.HistoryPath(),
		FuncGetWidth: func() int {
			return vos.TerminalWidth(stderr, 80)
		},
		FuncIsTerminal: func() bool {
			return vos.IsTerminal(vio.Stdin()) && vos.IsTerminal(stderr)
		},
	}

	if err := rlConfig.Init(); err != nil {
		return nil, err
	}

	return readline.NewEx(rlConfig)
}
