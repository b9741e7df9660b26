package core

import (
	"github.com/josephlewis42/smallsh/core/jobs"
	"github.com/josephlewis42/smallsh/core/shell"
)

// Session is the state one interactive shell keeps between lines. It's
// only touched by the read-eval loop.
type Session struct {
	// Home is substituted for a leading "~/".
	Home string
	// Delimiters separate words on a command line.
	Delimiters string
	// PID is the shell's own process id.
	PID int

	Jobs *jobs.State
}

// NewSession creates the state for a fresh shell with process id pid.
func NewSession(pid int) *Session {
	return &Session{
		Delimiters: shell.DefaultDelimiters,
		PID:        pid,
		Jobs:       jobs.NewState(),
	}
}

// Markers returns the values substituted into words.
func (s *Session) Markers() shell.Markers {
	return shell.Markers{
		Home:          s.Home,
		PID:           s.PID,
		Status:        s.Jobs.ForegroundStatus,
		BackgroundPID: s.Jobs.BackgroundPID,
		HasBackground: s.Jobs.HasBackground(),
	}
}
