package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/abiosoft/readline"
	"github.com/fatih/color"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/jobs"
	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/josephlewis42/smallsh/core/shell"
	"github.com/josephlewis42/smallsh/core/sigguard"
	"github.com/josephlewis42/smallsh/core/vos"
	"github.com/spf13/afero"
)

const (
	EnvHome   = "HOME"
	EnvPWD    = "PWD"
	EnvIFS    = "IFS"
	EnvPrompt = "PS1"
)

// TerminationNotice is written to stderr when the shell exits.
const TerminationNotice = "\nexit\n"

// Options configure a Shell. Zero values are replaced with the process's
// own environment, streams and signals.
type Options struct {
	Config *config.Configuration
	Env    vos.VEnv
	IO     vos.VIO
	// PID is substituted for "$$".
	PID int

	Reader   LineReader
	Spawner  jobs.Spawner
	LookPath func(file string) (string, error)
	Signals  *sigguard.Guard
	Events   *logger.SessionLogger
}

// Shell is an interactive command interpreter with minimal job control.
type Shell struct {
	session *Session
	config  *config.Configuration
	env     vos.VEnv
	vio     vos.VIO
	reader  LineReader
	jobs    *jobs.Controller
	signals *sigguard.Guard
	events  *logger.SessionLogger
	colors  *ColorPrinter
	toClose listCloser

	quit     bool
	exitCode int
}

// NewShell creates a shell from opts.
func NewShell(opts Options) (*Shell, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Env == nil {
		opts.Env = vos.NewOSEnv()
	}
	if opts.IO == nil {
		opts.IO = vos.NewOSIO()
	}
	if opts.PID == 0 {
		opts.PID = os.Getpid()
	}
	if opts.Spawner == nil {
		opts.Spawner = jobs.UnixSpawner{}
	}
	if opts.LookPath == nil {
		opts.LookPath = vos.PathResolver(afero.NewOsFs(), opts.Env)
	}
	if opts.Events == nil {
		opts.Events = logger.Discard().Sessionless()
	}

	s := &Shell{
		session: NewSession(opts.PID),
		config:  opts.Config,
		env:     opts.Env,
		vio:     opts.IO,
		events:  opts.Events,
		colors:  NewColorPrinter(opts.Config.Color, opts.IO.Stderr()),
	}

	s.signals = opts.Signals
	if s.signals == nil {
		s.signals = sigguard.New()
		s.toClose = append(s.toClose, s.signals)
	}

	s.reader = opts.Reader
	if s.reader == nil {
		reader, err := NewLineReader(opts.IO, opts.Config)
		if err != nil {
			s.toClose.Close()
			return nil, err
		}
		s.reader = reader
		s.toClose = append(s.toClose, reader)
	}

	s.jobs = jobs.NewController(s.session.Jobs, opts.Spawner, opts.LookPath)
	s.jobs.Environ = opts.Env.Environ
	s.jobs.Stdio = vos.Files(opts.IO)
	s.jobs.OnEvent = s.onJobEvent

	s.refresh()
	s.recordEvent(logger.EventSessionStart, map[string]interface{}{
		"pid": s.session.PID,
	})

	return s, nil
}

// Session returns the shell's state.
func (s *Shell) Session() *Session {
	return s.session
}

func (s *Shell) stderr() io.Writer {
	return s.vio.Stderr()
}

// refresh re-reads the settings the environment can change between lines.
func (s *Shell) refresh() {
	s.session.Delimiters = s.config.Delimiters
	if ifs, ok := s.env.LookupEnv(EnvIFS); ok {
		s.session.Delimiters = ifs
	}

	s.session.Home = s.env.Getenv(EnvHome)

	prompt := s.config.Prompt
	if ps1, ok := s.env.LookupEnv(EnvPrompt); ok {
		prompt = ps1
	}
	s.reader.SetPrompt(prompt)
}

// Run reads and executes lines until the input ends or the exit builtin
// runs. It returns the shell's exit code.
func (s *Shell) Run() int {
	for !s.quit {
		s.refresh()

		if err := s.jobs.Reap(); err != nil {
			fmt.Fprintf(s.stderr(), "smallsh: %v\n", err)
		}

		line, interrupted, err := s.readLine()
		switch {
		case errors.Is(err, io.EOF):
			s.terminate(s.session.Jobs.ForegroundStatus)

		case errors.Is(err, readline.ErrInterrupt), interrupted:
			continue // The partial line is abandoned.

		case err != nil:
			fmt.Fprintf(s.stderr(), "smallsh: %v\n", err)
			s.terminate(s.session.Jobs.ForegroundStatus)

		default:
			s.Execute(line)
		}
	}

	return s.exitCode
}

// readLine reads one line, the only time an interrupt has any effect on
// the shell.
func (s *Shell) readLine() (string, bool, error) {
	scope := s.signals.Interruptible()
	defer scope.Release()

	line, err := s.reader.Readline()
	return line, scope.Release(), err
}

// Execute runs a single command line.
func (s *Shell) Execute(line string) {
	words := shell.Tokenize(line, s.session.Delimiters)
	if len(words) == 0 {
		return
	}

	cmd := shell.Parse(shell.ExpandAll(words, s.session.Markers()))
	if cmd == nil {
		return
	}

	if builtin, ok := AllBuiltins[cmd.Name()]; ok {
		s.recordEvent(logger.EventBuiltin, map[string]interface{}{
			"argv": cmd.Argv,
		})
		builtin.Main(s, cmd.Argv)
		return
	}

	if err := s.jobs.Launch(cmd); err != nil {
		fields := map[string]interface{}{
			"argv":       cmd.Argv,
			"background": cmd.Background,
			"error":      err,
		}

		var launchErr *jobs.LaunchError
		if errors.As(err, &launchErr) {
			fields["site"] = launchErr.Site
			fields["code"] = launchErr.ExitCode()
		}

		s.recordEvent(logger.EventLaunchError, fields)
		fmt.Fprintf(s.stderr(), "smallsh: %v\n", err)
	}
}

// terminate prints the termination notice, interrupts the rest of the
// process group and stops the loop.
func (s *Shell) terminate(code int) {
	fmt.Fprint(s.stderr(), TerminationNotice)

	s.recordEvent(logger.EventShellExit, map[string]interface{}{
		"code": code,
	})

	if err := s.jobs.Broadcast(syscall.SIGINT); err != nil {
		fmt.Fprintf(s.stderr(), "smallsh: %v\n", err)
	}

	s.exitCode = code
	s.quit = true
}

func (s *Shell) onJobEvent(ev jobs.Event) {
	if notice, ok := ev.Notice(); ok {
		s.colors.Fprintln(s.stderr(), noticeColor(ev.Kind), notice)
	}

	fields := map[string]interface{}{
		"pid": ev.PID,
	}
	if ev.Argv != nil {
		fields["argv"] = ev.Argv
	}

	var eventType logger.EventType
	switch ev.Kind {
	case jobs.KindSpawned:
		eventType = logger.EventSpawn
		fields["background"] = ev.Background
	case jobs.KindExited:
		eventType = logger.EventExit
		fields["code"] = ev.Code
		fields["reaped"] = ev.Reaped
	case jobs.KindSignaled:
		eventType = logger.EventSignal
		fields["signal"] = ev.Code
		fields["reaped"] = ev.Reaped
	case jobs.KindStopped:
		eventType = logger.EventStop
	default:
		return
	}

	s.recordEvent(eventType, fields)
}

func noticeColor(kind jobs.Kind) *color.Color {
	switch kind {
	case jobs.KindSignaled:
		return ColorBoldRed
	case jobs.KindStopped:
		return ColorBoldYellow
	default:
		return ColorBoldGreen
	}
}

// recordEvent writes to the event log, switching it off after the first
// failure.
func (s *Shell) recordEvent(event logger.EventType, fields map[string]interface{}) {
	if err := s.events.Record(event, fields); err != nil {
		fmt.Fprintf(s.stderr(), "smallsh: event log: %v\n", err)
		s.events = logger.Discard().Sessionless()
	}
}

// Close releases the line reader and signal handlers the shell created.
func (s *Shell) Close() error {
	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
