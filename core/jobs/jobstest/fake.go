// Package jobstest provides a deterministic in-memory Spawner.
package jobstest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/josephlewis42/smallsh/core/jobs"
	"github.com/josephlewis42/smallsh/core/vos"
)

// FirstPID is the pid handed to the first spawned process.
const FirstPID = 1000

// Program decides how a fake process first changes state.
type Program func(argv []string) jobs.Status

func exitWith(code int) Program {
	return func([]string) jobs.Status {
		return jobs.Status{Outcome: jobs.Exited, Code: code}
	}
}

// DefaultPrograms are available in every FakeSpawner.
func DefaultPrograms() map[string]Program {
	return map[string]Program{
		"true":  exitWith(0),
		"false": exitWith(1),
		"echo":  exitWith(0),
		"ls":    exitWith(0),
		"cat":   exitWith(0),
		"sleep": exitWith(0),
		// status exits with its first argument.
		"status": func(argv []string) jobs.Status {
			code := 0
			if len(argv) > 1 {
				code, _ = strconv.Atoi(argv[1])
			}
			return jobs.Status{Outcome: jobs.Exited, Code: code}
		},
		"stopper": func([]string) jobs.Status {
			return jobs.Status{Outcome: jobs.Stopped, Code: int(syscall.SIGTSTP)}
		},
		"killed": func([]string) jobs.Status {
			return jobs.Status{Outcome: jobs.Signaled, Code: int(syscall.SIGKILL)}
		},
	}
}

// SentSignal records a call to Signal.
type SentSignal struct {
	PID    int
	Signal syscall.Signal
}

// Spawned records a call to Spawn.
type Spawned struct {
	PID   int
	Path  string
	Argv  []string
	Env   []string
	Stdio [3]*os.File
}

type change struct {
	pid    int
	status jobs.Status
}

// FakeSpawner runs Programs instead of processes. Background children
// change state at the next sweep, stopped children exit 0 once continued.
type FakeSpawner struct {
	Programs map[string]Program
	// Log, if set, gets a "[pid] argv" line per spawned process.
	Log io.Writer

	Spawned []Spawned
	Signals []SentSignal

	nextPID int
	pending []change
	stopped map[int]bool
}

var _ jobs.Spawner = (*FakeSpawner)(nil)

// NewFakeSpawner creates a spawner with the DefaultPrograms.
func NewFakeSpawner(log io.Writer) *FakeSpawner {
	return &FakeSpawner{
		Programs: DefaultPrograms(),
		Log:      log,
		nextPID:  FirstPID,
		stopped:  make(map[int]bool),
	}
}

// LookPath resolves known programs under /fake/bin.
func (f *FakeSpawner) LookPath(name string) (string, error) {
	if _, ok := f.Programs[name]; ok {
		return filepath.Join("/fake/bin", name), nil
	}
	return "", vos.ErrNotFound
}

// Spawn implements jobs.Spawner.Spawn.
func (f *FakeSpawner) Spawn(path string, argv, env []string, stdio [3]*os.File) (int, error) {
	program, ok := f.Programs[filepath.Base(path)]
	if !ok {
		return jobs.NoPID, &os.PathError{Op: "fork/exec", Path: path, Err: syscall.ENOENT}
	}

	pid := f.nextPID
	f.nextPID++

	f.Spawned = append(f.Spawned, Spawned{PID: pid, Path: path, Argv: argv, Env: env, Stdio: stdio})
	if f.Log != nil {
		fmt.Fprintf(f.Log, "[%d] %s\n", pid, strings.Join(argv, " "))
	}

	f.pending = append(f.pending, change{pid: pid, status: program(argv)})
	return pid, nil
}

// Wait implements jobs.Spawner.Wait.
func (f *FakeSpawner) Wait(pid int, block bool) (int, jobs.Status, error) {
	if pid != jobs.AnyChild {
		for i, c := range f.pending {
			if c.pid == pid {
				f.pending = append(f.pending[:i], f.pending[i+1:]...)
				f.record(c)
				return c.pid, c.status, nil
			}
		}
		return jobs.NoPID, jobs.Status{}, syscall.ECHILD
	}

	if len(f.pending) == 0 {
		if block {
			return jobs.NoPID, jobs.Status{}, syscall.ECHILD
		}
		return 0, jobs.Status{}, nil
	}

	c := f.pending[0]
	f.pending = f.pending[1:]
	f.record(c)
	return c.pid, c.status, nil
}

func (f *FakeSpawner) record(c change) {
	if c.status.Outcome == jobs.Stopped {
		f.stopped[c.pid] = true
	}
}

// Signal implements jobs.Spawner.Signal.
func (f *FakeSpawner) Signal(pid int, sig syscall.Signal) error {
	f.Signals = append(f.Signals, SentSignal{PID: pid, Signal: sig})

	if sig == syscall.SIGCONT && f.stopped[pid] {
		delete(f.stopped, pid)
		f.pending = append(f.pending, change{pid: pid, status: jobs.Status{Outcome: jobs.Exited}})
	}
	return nil
}

// Outstanding returns the number of children not yet reaped.
func (f *FakeSpawner) Outstanding() int {
	return len(f.pending) + len(f.stopped)
}
