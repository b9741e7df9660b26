package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/jobs/jobstest"
	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/josephlewis42/smallsh/core/sigguard"
	"github.com/josephlewis42/smallsh/core/vos"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

const testPID = 4242

// scriptLine is one read from a scriptReader.
type scriptLine struct {
	text string
	// before runs while the read is in progress.
	before func()
	// ctrlC abandons the line the way the line editor does.
	ctrlC bool
	// sigint delivers an interrupt during the read.
	sigint bool
	err    error
}

func lines(texts ...string) []scriptLine {
	var out []scriptLine
	for _, text := range texts {
		out = append(out, scriptLine{text: text})
	}
	return out
}

// scriptReader echoes the prompt and each line to the transcript like a
// terminal would, then reports EOF.
type scriptReader struct {
	transcript io.Writer
	guard      *sigguard.Guard
	script     []scriptLine

	prompt  string
	prompts []string
}

var _ LineReader = (*scriptReader)(nil)

func (r *scriptReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

func (r *scriptReader) Readline() (string, error) {
	r.prompts = append(r.prompts, r.prompt)
	fmt.Fprint(r.transcript, r.prompt)

	if len(r.script) == 0 {
		return "", io.EOF
	}

	next := r.script[0]
	r.script = r.script[1:]

	if next.before != nil {
		next.before()
	}

	switch {
	case next.err != nil:
		fmt.Fprintln(r.transcript)
		return "", next.err
	case next.ctrlC:
		fmt.Fprintln(r.transcript, next.text+"^C")
		return next.text, readline.ErrInterrupt
	case next.sigint:
		r.guard.Deliver(syscall.SIGINT)
	}

	fmt.Fprintln(r.transcript, next.text)
	return next.text, nil
}

func (r *scriptReader) Close() error {
	return nil
}

type testShell struct {
	*Shell
	out     *bytes.Buffer
	events  *bytes.Buffer
	env     *vos.MapEnv
	reader  *scriptReader
	spawner *jobstest.FakeSpawner
}

func newTestShell(t *testing.T, script []scriptLine) *testShell {
	t.Helper()

	ts := &testShell{
		out:    &bytes.Buffer{},
		events: &bytes.Buffer{},
		env: vos.NewMapEnvFromEnvList([]string{
			"HOME=/home/tester",
			"PATH=/fake/bin",
			"PS1=: ",
		}),
	}

	guard := sigguard.NewDetached()
	t.Cleanup(func() { guard.Close() })

	ts.reader = &scriptReader{transcript: ts.out, guard: guard, script: script}
	ts.spawner = jobstest.NewFakeSpawner(ts.out)

	cfg := config.Default()
	cfg.Color = config.ColorNever

	sh, err := NewShell(Options{
		Config:   cfg,
		Env:      ts.env,
		IO:       vos.NewVIOAdapter(nil, ts.out, ts.out),
		PID:      testPID,
		Reader:   ts.reader,
		Spawner:  ts.spawner,
		LookPath: ts.spawner.LookPath,
		Signals:  guard,
		Events:   logger.NewJsonLinesLogRecorder(ts.events).NewSession(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { sh.Close() })

	ts.Shell = sh
	return ts
}

func (ts *testShell) argvs() [][]string {
	var out [][]string
	for _, spawned := range ts.spawner.Spawned {
		out = append(out, spawned.Argv)
	}
	return out
}

func (ts *testShell) eventTypes(t *testing.T) []string {
	t.Helper()

	var out []string
	require.NoError(t, logger.ReadJSONLinesLog(ts.events, func(le *structpb.Struct) {
		out = append(out, le.GetFields()[logger.FieldEvent].GetStringValue())
	}))
	return out
}

type goldenSessionSuite map[string]goldenSession

type goldenSession struct {
	Lines    []string
	ExitCode int
}

func (gss goldenSessionSuite) Run(t *testing.T) {
	t.Helper()

	// Sessions run in a scratch directory, so the fixtures need an absolute
	// path.
	fixtureDir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)

	g := goldie.New(
		t,
		goldie.WithFixtureDir(fixtureDir),
		goldie.WithDiffEngine(goldie.ColoredDiff),
		goldie.WithTestNameForDir(true),
	)

	for tn, tc := range gss {
		t.Run(tn, func(t *testing.T) {
			chdir(t, t.TempDir())

			ts := newTestShell(t, lines(tc.Lines...))
			code := ts.Run()

			assert.Equal(t, tc.ExitCode, code)
			g.Assert(t, tn, ts.out.Bytes())
		})
	}
}

func TestShellTranscripts(t *testing.T) {
	cases := goldenSessionSuite{
		"markers": {
			Lines: []string{
				"echo $$ $? x$!y",
				"status 3",
				"echo $?",
				"sleep 5 &",
				"echo $!",
			},
		},
		"stopped": {
			Lines: []string{
				"stopper",
				"echo $!",
			},
		},
		"redirection": {
			Lines: []string{
				"ls > out.txt arg",
				"cat < in.txt > out.txt &",
				"true",
			},
		},
		"comments-and-blanks": {
			Lines: []string{
				"# only a comment",
				"",
				" \t ",
				"echo before # after",
				"echo not#a comment",
			},
		},
		"launch-errors": {
			Lines: []string{
				"nope",
				"echo $?",
				"/bin/nope",
				"echo $?",
				"/bin/nope &",
				"echo $?x$!",
				"nope",
				"exit",
			},
			ExitCode: 4,
		},
		"signaled": {
			Lines: []string{
				"killed",
				"killed &",
				"echo $?",
			},
		},
	}

	cases.Run(t)
}

func TestExit(t *testing.T) {
	cases := map[string]struct {
		lines      []string
		wantCode   int
		wantOutput string
	}{
		"no args":           {lines: []string{"exit"}, wantCode: 0},
		"last status":       {lines: []string{"status 5", "exit"}, wantCode: 5},
		"explicit":          {lines: []string{"status 5", "exit 12"}, wantCode: 12},
		"negative":          {lines: []string{"exit -3"}, wantCode: -3},
		"leading digits":    {lines: []string{"exit 12abc"}, wantCode: 12},
		"garbage":           {lines: []string{"status 5", "exit abc"}, wantCode: 0},
		"eof":               {lines: []string{"status 9"}, wantCode: 9},
		"background status": {lines: []string{"status 6 &", "exit"}, wantCode: 0},
		"too many args": {
			lines:      []string{"exit 7 8", "exit 2"},
			wantCode:   2,
			wantOutput: "exit: too many arguments",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			ts := newTestShell(t, lines(tc.lines...))

			code := ts.Run()

			assert.Equal(t, tc.wantCode, code)
			assert.Contains(t, ts.out.String(), TerminationNotice)
			assert.Contains(t, ts.out.String(), tc.wantOutput)
			assert.Contains(t, ts.spawner.Signals, jobstest.SentSignal{PID: 0, Signal: syscall.SIGINT})
		})
	}
}

func TestExitStopsReading(t *testing.T) {
	ts := newTestShell(t, lines("exit", "status 1"))

	assert.Equal(t, 0, ts.Run())
	assert.Empty(t, ts.spawner.Spawned)
	assert.Len(t, ts.reader.script, 1)
	assert.Equal(t, []jobstest.SentSignal{{PID: 0, Signal: syscall.SIGINT}}, ts.spawner.Signals)
}

func TestAtoi(t *testing.T) {
	cases := map[string]int{
		"":       0,
		"0":      0,
		"42":     42,
		"+7":     7,
		"-7":     -7,
		"  13":   13,
		"9lives": 9,
		"abc":    0,
		"--1":    0,
		"- 1":    0,
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, atoi(in))
		})
	}
}

func TestCd(t *testing.T) {
	resolve := func(t *testing.T, path string) string {
		t.Helper()
		resolved, err := filepath.EvalSymlinks(path)
		require.NoError(t, err)
		return resolved
	}

	getwd := func(t *testing.T) string {
		t.Helper()
		wd, err := os.Getwd()
		require.NoError(t, err)
		return resolve(t, wd)
	}

	t.Run("home", func(t *testing.T) {
		start, home := t.TempDir(), t.TempDir()
		chdir(t, start)

		ts := newTestShell(t, lines("cd"))
		ts.env.Setenv(EnvHome, home)
		ts.Run()

		assert.Equal(t, resolve(t, home), getwd(t))
		assert.Equal(t, resolve(t, home), resolve(t, ts.env.Getenv(EnvPWD)))
	})

	t.Run("relative", func(t *testing.T) {
		start := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(start, "sub"), 0755))
		chdir(t, start)

		ts := newTestShell(t, lines("cd sub", "cd sub2"))
		ts.Run()

		assert.Equal(t, resolve(t, filepath.Join(start, "sub")), getwd(t))
		assert.Contains(t, ts.out.String(), "cd: chdir ")
	})

	t.Run("too many arguments", func(t *testing.T) {
		start := t.TempDir()
		chdir(t, start)

		ts := newTestShell(t, lines("cd a b", "true"))
		ts.Run()

		assert.Equal(t, resolve(t, start), getwd(t))
		assert.Contains(t, ts.out.String(), "cd: too many arguments\n")
		assert.Equal(t, [][]string{{"true"}}, ts.argvs(), "the shell keeps going")
	})

	t.Run("does not change status", func(t *testing.T) {
		chdir(t, t.TempDir())

		ts := newTestShell(t, lines("status 3", "cd missing", "echo $?"))
		ts.Run()

		assert.Equal(t, []string{"echo", "3"}, ts.argvs()[1])
	})
}

func TestInterrupts(t *testing.T) {
	t.Run("ctrl-c abandons line", func(t *testing.T) {
		ts := newTestShell(t, []scriptLine{
			{text: "status 3", ctrlC: true},
			{text: "echo $?"},
		})

		assert.Equal(t, 0, ts.Run())
		assert.Equal(t, [][]string{{"echo", "0"}}, ts.argvs())
	})

	t.Run("sigint abandons line", func(t *testing.T) {
		ts := newTestShell(t, []scriptLine{
			{text: "status 3", sigint: true},
			{text: "echo $?"},
		})

		assert.Equal(t, 0, ts.Run())
		assert.Equal(t, [][]string{{"echo", "0"}}, ts.argvs())
	})

	t.Run("interrupt is not eof", func(t *testing.T) {
		ts := newTestShell(t, []scriptLine{
			{ctrlC: true},
			{ctrlC: true},
			{text: "status 2"},
		})

		assert.Equal(t, 2, ts.Run())
		assert.Len(t, ts.reader.prompts, 4)
	})
}

func TestReadError(t *testing.T) {
	ts := newTestShell(t, []scriptLine{
		{text: "status 4"},
		{err: errors.New("terminal went away")},
		{text: "status 1"},
	})

	assert.Equal(t, 4, ts.Run())
	assert.Contains(t, ts.out.String(), "smallsh: terminal went away\n")
	assert.Len(t, ts.spawner.Spawned, 1)
}

func TestBlankLinesKeepState(t *testing.T) {
	ts := newTestShell(t, lines(
		"status 3",
		"sleep 1 &",
		"# hello",
		"",
		" \t ",
		"#",
	))

	assert.Equal(t, 3, ts.Run())

	assert.Equal(t, 3, ts.Session().Jobs.ForegroundStatus)
	assert.Equal(t, jobstest.FirstPID+1, ts.Session().Jobs.BackgroundPID)
	assert.Equal(t, [][]string{{"status", "3"}, {"sleep", "1"}}, ts.argvs())
	assert.Equal(t, []string{
		"session_start",
		"spawn", "exit",
		"spawn",
		"exit",
		"shell_exit",
	}, ts.eventTypes(t))

	ts = newTestShell(t, lines("status 3", "sleep 1 &", "# hello", "", " \t ", "echo $? $!"))
	ts.Run()

	assert.Equal(t, []string{"echo", "3", "1001"}, ts.argvs()[2])
}

func TestEnvironmentRefresh(t *testing.T) {
	t.Run("IFS", func(t *testing.T) {
		var ts *testShell
		// Changes made during a read apply from the next line on.
		ts = newTestShell(t, []scriptLine{
			{text: "echo a,b", before: func() { ts.env.Setenv(EnvIFS, ",") }},
			{text: "echo,a b", before: func() { ts.env.Unsetenv(EnvIFS) }},
			{text: "echo c\td", before: func() { ts.env.Setenv(EnvIFS, "") }},
			{text: "echo e"},
		})

		ts.Run()

		assert.Equal(t, [][]string{
			{"echo", "a,b"},
			{"echo", "a b"},
			{"echo", "c", "d"},
		}, ts.argvs())
		assert.Contains(t, ts.out.String(), `execvp: "echo e"`, "an empty IFS keeps the line whole")
	})

	t.Run("PS1", func(t *testing.T) {
		var ts *testShell
		ts = newTestShell(t, []scriptLine{
			{text: "true", before: func() { ts.env.Setenv(EnvPrompt, "$ ") }},
			{text: "true", before: func() { ts.env.Unsetenv(EnvPrompt) }},
		})

		ts.Run()

		assert.Equal(t, []string{": ", "$ ", ""}, ts.reader.prompts)
	})

	t.Run("HOME", func(t *testing.T) {
		var ts *testShell
		ts = newTestShell(t, []scriptLine{
			{text: "echo ~/a", before: func() { ts.env.Setenv(EnvHome, "/elsewhere") }},
			{text: "echo ~/b"},
		})

		ts.Run()

		assert.Equal(t, [][]string{
			{"echo", "/home/tester/a"},
			{"echo", "/elsewhere/b"},
		}, ts.argvs())
	})
}

func TestChildEnvironment(t *testing.T) {
	ts := newTestShell(t, lines("true"))
	ts.env.Setenv("EXTRA", "1")

	ts.Run()

	require.Len(t, ts.spawner.Spawned, 1)
	assert.Equal(t, "/fake/bin/true", ts.spawner.Spawned[0].Path)
	assert.Contains(t, ts.spawner.Spawned[0].Env, "EXTRA=1")
	assert.Contains(t, ts.spawner.Spawned[0].Env, "HOME=/home/tester")
}

func TestEventLog(t *testing.T) {
	home := t.TempDir()
	chdir(t, home)

	ts := newTestShell(t, lines("true", "sleep 1 &", "nope", "cd", "exit"))
	ts.env.Setenv(EnvHome, home)

	ts.Run()

	assert.Equal(t, []string{
		"session_start",
		"spawn", "exit",
		"spawn",
		"exit",
		"launch_error",
		"builtin",
		"builtin", "shell_exit",
	}, ts.eventTypes(t))
}

func TestBuiltinNames(t *testing.T) {
	assert.Equal(t, []string{"cd", "exit"}, BuiltinNames())
}

func TestColorPrinter(t *testing.T) {
	var buf bytes.Buffer

	NewColorPrinter(config.ColorNever, &buf).Fprintln(&buf, ColorBoldGreen, "plain")
	NewColorPrinter(config.ColorAuto, &buf).Fprintln(&buf, ColorBoldGreen, "auto")
	assert.Equal(t, "plain\nauto\n", buf.String())

	buf.Reset()
	NewColorPrinter(config.ColorAlways, &buf).Fprintln(&buf, ColorBoldGreen, "colored")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "colored")
}
