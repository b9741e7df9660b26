// Package jobs starts child processes and tracks the little job state the
// shell keeps: the last foreground exit status and the newest background
// pid.
package jobs

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// NoPID marks a pid that hasn't been assigned.
const NoPID = -1

// AnyChild asks Wait for any child in the shell's process group.
const AnyChild = 0

// Outcome is how a child changed state.
type Outcome int

const (
	Exited Outcome = iota
	Signaled
	Stopped
	Continued
)

func (o Outcome) String() string {
	switch o {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Stopped:
		return "stopped"
	case Continued:
		return "continued"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Status is a decoded wait status. Code is the exit code for Exited and the
// signal number for Signaled and Stopped.
type Status struct {
	Outcome Outcome
	Code    int
}

// StatusOf decodes a raw wait status.
func StatusOf(ws unix.WaitStatus) Status {
	switch {
	case ws.Exited():
		return Status{Outcome: Exited, Code: ws.ExitStatus()}
	case ws.Signaled():
		return Status{Outcome: Signaled, Code: int(ws.Signal())}
	case ws.Stopped():
		return Status{Outcome: Stopped, Code: int(ws.StopSignal())}
	default:
		return Status{Outcome: Continued}
	}
}

// State is the job state kept for the whole shell session.
type State struct {
	// ForegroundStatus is the exit code of the last foreground child that
	// exited, or the code of a failed launch.
	ForegroundStatus int
	// BackgroundPID is the newest background child, NoPID until there is one.
	BackgroundPID int
}

// NewState returns the state of a fresh session.
func NewState() *State {
	return &State{BackgroundPID: NoPID}
}

// HasBackground reports whether a background pid has been recorded.
func (s *State) HasBackground() bool {
	return s.BackgroundPID != NoPID
}
