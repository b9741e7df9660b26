package core

import (
	"fmt"
	"os"
	"sort"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ShellBuiltin is a command run inside the shell process. Builtins ignore
// redirections and "&", and don't change the foreground status.
type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the names of the builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin. With no argument it goes home, otherwise
// the argument is joined onto the working directory.
func Cd(s *Shell, args []string) int {
	var dir string
	switch len(args) {
	case 1:
		dir = s.env.Getenv(EnvHome)
	case 2:
		wd, err := os.Getwd()
		if err != nil {
			fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
			return 1
		}
		dir = wd + "/" + args[1]
	default:
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}

	if err := os.Chdir(dir); err != nil {
		fmt.Fprintf(s.stderr(), "%s: %v\n", args[0], err)
		return 1
	}

	if wd, err := os.Getwd(); err == nil {
		s.env.Setenv(EnvPWD, wd)
	}
	return 0
}

// Exit quits the shell with the given status, or the last foreground
// status if none is given.
func Exit(s *Shell, args []string) int {
	code := s.session.Jobs.ForegroundStatus
	switch len(args) {
	case 1:
	case 2:
		code = atoi(args[1])
	default:
		fmt.Fprintf(s.stderr(), "%s: too many arguments\n", args[0])
		return 1
	}

	s.terminate(code)
	return code
}

// atoi parses a leading decimal integer the way C's atoi does: leading
// space and a sign are allowed, parsing stops at the first non-digit and
// garbage yields 0.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || (s[i] >= '\t' && s[i] <= '\r')) {
		i++
	}

	negative := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		negative = s[i] == '-'
		i++
	}

	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<31 {
			break
		}
	}

	if negative {
		return -n
	}
	return n
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
