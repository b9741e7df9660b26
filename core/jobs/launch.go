package jobs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/josephlewis42/smallsh/core/shell"
)

// Site identifies which launch step failed. Each has its own exit code so a
// failure can be told apart from the status alone.
type Site int

const (
	SiteInput Site = iota + 1
	SiteOutput
	SiteExecAbsolute
	SiteExecPath
)

// ExitCode returns the status recorded for a failure at this site.
func (s Site) ExitCode() int {
	return int(s)
}

func (s Site) String() string {
	switch s {
	case SiteInput:
		return "open input"
	case SiteOutput:
		return "open output"
	case SiteExecAbsolute:
		return "execv"
	case SiteExecPath:
		return "execvp"
	default:
		return fmt.Sprintf("Site(%d)", int(s))
	}
}

// LaunchError is returned when a command couldn't be started.
type LaunchError struct {
	Site Site
	Path string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %q: %v", e.Site, e.Path, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// ExitCode implements the status a failed child would have exited with.
func (e *LaunchError) ExitCode() int {
	return e.Site.ExitCode()
}

// File modes used when a redirection target doesn't exist yet.
const (
	InputCreateMode  os.FileMode = 0444
	OutputCreateMode os.FileMode = 0777
)

// Controller launches commands and reaps children, keeping State current.
type Controller struct {
	State   *State
	Spawner Spawner

	// LookPath resolves program names that don't start with "/".
	LookPath func(file string) (string, error)
	// Environ supplies the environment for children.
	Environ func() []string
	// Stdio is inherited by children unless redirected.
	Stdio [3]*os.File

	// OnEvent, if set, is told about every job state change.
	OnEvent func(Event)
}

// NewController creates a controller for state.
func NewController(state *State, spawner Spawner, lookPath func(string) (string, error)) *Controller {
	return &Controller{
		State:    state,
		Spawner:  spawner,
		LookPath: lookPath,
		Environ:  os.Environ,
		Stdio:    [3]*os.File{os.Stdin, os.Stdout, os.Stderr},
	}
}

func (c *Controller) emit(ev Event) {
	if c.OnEvent != nil {
		c.OnEvent(ev)
	}
}

// Launch starts cmd. Background commands become the tracked background
// job; foreground commands are waited for until they exit, die or stop.
//
// A *LaunchError means no child ran. For a foreground command its exit
// code has already been recorded as the foreground status. A background
// command that fails to launch is reported only through the returned
// error: it gets no pid, leaves the background pid alone and is never
// reaped.
func (c *Controller) Launch(cmd *shell.Command) error {
	pid, err := c.start(cmd)
	if err != nil {
		var launchErr *LaunchError
		if errors.As(err, &launchErr) && !cmd.Background {
			c.State.ForegroundStatus = launchErr.ExitCode()
		}
		return err
	}

	c.emit(Event{Kind: KindSpawned, PID: pid, Argv: cmd.Argv, Background: cmd.Background})

	if cmd.Background {
		c.State.BackgroundPID = pid
		return nil
	}

	return c.waitForeground(pid, cmd.Argv)
}

func (c *Controller) start(cmd *shell.Command) (int, error) {
	stdio := c.Stdio

	if cmd.Input != "" {
		fd, err := os.OpenFile(cmd.Input, os.O_RDONLY|os.O_CREATE, InputCreateMode)
		if err != nil {
			return NoPID, &LaunchError{Site: SiteInput, Path: cmd.Input, Err: err}
		}
		defer fd.Close()
		stdio[0] = fd
	}

	if cmd.Output != "" {
		fd, err := os.OpenFile(cmd.Output, os.O_RDWR|os.O_CREATE|os.O_APPEND, OutputCreateMode)
		if err != nil {
			return NoPID, &LaunchError{Site: SiteOutput, Path: cmd.Output, Err: err}
		}
		defer fd.Close()
		stdio[1] = fd
	}

	name := cmd.Name()
	path, site := name, SiteExecAbsolute
	if !strings.HasPrefix(name, "/") {
		site = SiteExecPath
		resolved, err := c.LookPath(name)
		if err != nil {
			return NoPID, &LaunchError{Site: site, Path: name, Err: err}
		}
		path = resolved
	}

	var env []string
	if c.Environ != nil {
		env = c.Environ()
	}

	pid, err := c.Spawner.Spawn(path, cmd.Argv, env, stdio)
	if err != nil {
		return NoPID, &LaunchError{Site: site, Path: name, Err: err}
	}
	return pid, nil
}

func (c *Controller) waitForeground(pid int, argv []string) error {
	wpid, status, err := c.Spawner.Wait(pid, true)
	if err != nil {
		return fmt.Errorf("wait %d: %w", pid, err)
	}

	switch status.Outcome {
	case Exited:
		c.State.ForegroundStatus = status.Code
		c.emit(Event{Kind: KindExited, PID: wpid, Code: status.Code, Argv: argv})
	case Signaled:
		c.emit(Event{Kind: KindSignaled, PID: wpid, Code: status.Code, Argv: argv})
	case Stopped:
		return c.resume(wpid, argv)
	}
	return nil
}

// resume continues a stopped child in the background and makes it the
// tracked background job.
func (c *Controller) resume(pid int, argv []string) error {
	c.State.BackgroundPID = pid
	c.emit(Event{Kind: KindStopped, PID: pid, Argv: argv})

	if err := c.Spawner.Signal(pid, syscall.SIGCONT); err != nil {
		return fmt.Errorf("continue %d: %w", pid, err)
	}
	return nil
}

// Reap collects every child that has already changed state without
// blocking. Stopped children are continued in the background.
func (c *Controller) Reap() error {
	for {
		pid, status, err := c.Spawner.Wait(AnyChild, false)
		switch {
		case errors.Is(err, syscall.ECHILD):
			return nil
		case err != nil:
			return fmt.Errorf("reap: %w", err)
		case pid <= 0:
			return nil
		}

		switch status.Outcome {
		case Exited:
			c.emit(Event{Kind: KindExited, PID: pid, Code: status.Code, Reaped: true})
		case Signaled:
			c.emit(Event{Kind: KindSignaled, PID: pid, Code: status.Code, Reaped: true})
		case Stopped:
			if err := c.resume(pid, nil); err != nil {
				return err
			}
		}
	}
}

// Broadcast sends sig to every process in the shell's process group,
// including the shell.
func (c *Controller) Broadcast(sig syscall.Signal) error {
	return c.Spawner.Signal(0, sig)
}
