package executor

import (
	"fmt"
	"strings"
)

// EnvVar is a single KEY=VALUE environment binding. Bindings are ordered:
// the serialized form must reproduce the order in which they were added,
// since the benchmarked process reads positional property lists from them.
type EnvVar struct {
	Key   string
	Value string
}

// Command is the structured form of a remote shell command: executable,
// arguments, environment bindings and an optional detach request.
// Serialization to the remote shell's textual form happens in exactly one
// place (String), which is also where quoting is applied.
type Command struct {
	Exec string
	Args []string
	Env  []EnvVar

	// Detach launches the command under nohup with output redirected to
	// LogFile, so the remote shell session can close without killing the
	// process.
	Detach  bool
	LogFile string
}

// NewCommand returns a Command for the given executable and arguments.
func NewCommand(exec string, args ...string) Command {
	return Command{Exec: exec, Args: args}
}

// WithEnv returns a copy of the command with an additional environment binding.
func (c Command) WithEnv(key, value string) Command {
	env := make([]EnvVar, len(c.Env), len(c.Env)+1)
	copy(env, c.Env)
	c.Env = append(env, EnvVar{Key: key, Value: value})
	return c
}

// Detached returns a copy of the command configured to run detached with
// output redirected to logFile.
func (c Command) Detached(logFile string) Command {
	c.Detach = true
	c.LogFile = logFile
	return c
}

// quote wraps a value in single quotes, escaping embedded single quotes.
// Values are passed to `sh -c` on the remote side.
func quote(value string) string {
	return "'" + strings.Replace(value, "'", `'\''`, -1) + "'"
}

// needsQuoting reports whether the value survives the remote shell unquoted.
func needsQuoting(value string) bool {
	if value == "" {
		return true
	}
	return strings.ContainsAny(value, " \t\n'\"\\$&|;<>()*?[]#~%!{}`")
}

func maybeQuote(value string) string {
	if needsQuoting(value) {
		return quote(value)
	}
	return value
}

// String serializes the command to its remote shell form.
func (c Command) String() string {
	var b strings.Builder

	for _, env := range c.Env {
		b.WriteString(env.Key)
		b.WriteString("=")
		b.WriteString(quote(env.Value))
		b.WriteString(" ")
	}

	if c.Detach {
		b.WriteString("nohup ")
	}

	b.WriteString(c.Exec)
	for _, arg := range c.Args {
		b.WriteString(" ")
		b.WriteString(maybeQuote(arg))
	}

	if c.Detach {
		logFile := c.LogFile
		if logFile == "" {
			logFile = "/dev/null"
		}
		b.WriteString(fmt.Sprintf(" > %s 2>&1 &", logFile))
	}

	return b.String()
}
