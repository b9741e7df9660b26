// Package shell turns a raw input line into a command ready for dispatch.
//
// The grammar is deliberately small:
//
//  1. The line is split into words on any run of delimiter characters.
//  2. Each word has its markers expanded (~/, $$, $?, $!).
//  3. A "#" word discards itself and everything after it.
//  4. A trailing "&" requests background execution.
//  5. Trailing "< file" and "> file" pairs set redirections, in either order.
//
// Operators anywhere else are ordinary arguments.
package shell

const (
	CommentMarker      = "#"
	BackgroundOperator = "&"
	InputOperator      = "<"
	OutputOperator     = ">"
)

// Command is one parsed command line.
type Command struct {
	// Argv holds the program name followed by its arguments.
	Argv []string
	// Input is the file to use as standard input, empty if not redirected.
	Input string
	// Output is the file to append standard output to, empty if not
	// redirected.
	Output string
	// Background is set if the shell shouldn't wait for the command.
	Background bool
}

// Name returns the program name.
func (c *Command) Name() string {
	return c.Argv[0]
}

// Parse classifies expanded words positionally. It returns nil if nothing
// is left to run, e.g. for comment-only lines.
func Parse(words []string) *Command {
	args := append([]string(nil), words...)

	for i, word := range args {
		if word == CommentMarker {
			args = args[:i]
			break
		}
	}

	cmd := &Command{}
	if n := len(args); n > 0 && args[n-1] == BackgroundOperator {
		cmd.Background = true
		args = args[:n-1]
	}

	if op, ok := cmd.takeRedirect(&args, ""); ok {
		cmd.takeRedirect(&args, op)
	}

	if len(args) == 0 {
		return nil
	}
	cmd.Argv = args
	return cmd
}

// takeRedirect consumes a trailing "op file" pair, skipping the operator
// given in exclude. It returns the operator consumed.
func (c *Command) takeRedirect(args *[]string, exclude string) (string, bool) {
	n := len(*args)
	if n < 2 {
		return "", false
	}

	op, file := (*args)[n-2], (*args)[n-1]
	if op == exclude {
		return "", false
	}

	switch op {
	case InputOperator:
		c.Input = file
	case OutputOperator:
		c.Output = file
	default:
		return "", false
	}

	*args = (*args)[:n-2]
	return op, true
}
