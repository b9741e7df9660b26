package jobs

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// Spawner is the process-level surface job control runs on.
type Spawner interface {
	// Spawn starts path with argv, env and the given stdin, stdout and
	// stderr, returning the child's pid.
	Spawn(path string, argv, env []string, stdio [3]*os.File) (int, error)

	// Wait reports the next state change of pid, or of any child for
	// AnyChild. Stops are reported as well as terminations. A non-blocking
	// wait with nothing to report returns pid 0.
	Wait(pid int, block bool) (int, Status, error)

	// Signal sends sig to pid; pid 0 is the shell's whole process group.
	Signal(pid int, sig syscall.Signal) error
}

// UnixSpawner runs real processes.
type UnixSpawner struct{}

var _ Spawner = UnixSpawner{}

// Spawn implements Spawner.Spawn.
func (UnixSpawner) Spawn(path string, argv, env []string, stdio [3]*os.File) (int, error) {
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{
		Env:   env,
		Files: stdio[:],
	})
	if err != nil {
		return NoPID, err
	}

	pid := proc.Pid
	// The child is reaped with wait4 directly, not through proc.
	_ = proc.Release()
	return pid, nil
}

// Wait implements Spawner.Wait.
func (UnixSpawner) Wait(pid int, block bool) (int, Status, error) {
	options := unix.WUNTRACED
	if !block {
		options |= unix.WNOHANG
	}

	for {
		var ws unix.WaitStatus
		wpid, err := unix.Wait4(pid, &ws, options, nil)
		switch {
		case err == unix.EINTR:
			continue
		case err != nil:
			return NoPID, Status{}, err
		case wpid == 0:
			return 0, Status{}, nil
		default:
			return wpid, StatusOf(ws), nil
		}
	}
}

// Signal implements Spawner.Signal.
func (UnixSpawner) Signal(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}
