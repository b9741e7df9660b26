package jobs

import "fmt"

// Kind is the sort of job state change an Event reports.
type Kind int

const (
	// KindSpawned is emitted right after a child starts.
	KindSpawned Kind = iota
	KindExited
	KindSignaled
	KindStopped
)

func (k Kind) String() string {
	switch k {
	case KindSpawned:
		return "spawned"
	case KindExited:
		return "exited"
	case KindSignaled:
		return "signaled"
	case KindStopped:
		return "stopped"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event describes one job state change.
type Event struct {
	Kind Kind
	PID  int
	// Code is the exit code or signal number, depending on Kind.
	Code int
	// Argv is known for children the shell just launched or waited on.
	Argv []string
	// Background is set for launches that weren't waited for.
	Background bool
	// Reaped is set for changes collected by the non-blocking sweep.
	Reaped bool
}

// Notice returns the line shown to the user for this event, if any.
// Foreground exits are silent; the status is available through $?.
func (e Event) Notice() (string, bool) {
	switch {
	case e.Kind == KindStopped:
		return fmt.Sprintf("Child process %d stopped. Continuing.", e.PID), true
	case e.Kind == KindExited && e.Reaped:
		return fmt.Sprintf("Child process %d done. Exit status %d.", e.PID, e.Code), true
	case e.Kind == KindSignaled && e.Reaped:
		return fmt.Sprintf("Child process %d done. Signaled %d.", e.PID, e.Code), true
	default:
		return "", false
	}
}
