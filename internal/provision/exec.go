// Package provision holds the thin I/O collaborators that provisioning steps
// call: external commands, git clones and configuration file copies.
package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mattn/go-shellwords"
)

// Executor runs an external command and returns its combined output.
type Executor interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError reports an external command that could not start or exited
// non-zero.
type CommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *CommandError) Error() string {
	cmdline := strings.TrimSpace(e.Command + " " + strings.Join(e.Args, " "))
	msg := fmt.Sprintf("command %q", cmdline)
	if e.ExitCode > 0 {
		msg += fmt.Sprintf(" exited with status %d", e.ExitCode)
	} else if e.Err != nil {
		msg += fmt.Sprintf(" failed: %v", e.Err)
	}
	if out := lastLine(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Shell runs commands on the local machine.
type Shell struct {
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Env is appended to the inherited environment.
	Env []string
}

// Run executes name with args, capturing stdout and stderr.
func (s Shell) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = s.Dir
	if len(s.Env) > 0 {
		cmd.Env = append(cmd.Environ(), s.Env...)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	if err == nil {
		return out.Bytes(), nil
	}
	cmdErr := &CommandError{
		Command: name,
		Args:    append([]string(nil), args...),
		Output:  out.String(),
		Err:     err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return out.Bytes(), cmdErr
}

// SplitCommand parses a command line using shell quoting rules.
func SplitCommand(line string) ([]string, error) {
	words, err := shellwords.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("provision: parse command %q: %w", line, err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("provision: empty command")
	}
	return words, nil
}

// RunLine parses line and runs it through x.
func RunLine(ctx context.Context, x Executor, line string) error {
	words, err := SplitCommand(line)
	if err != nil {
		return err
	}
	_, err = x.Run(ctx, words[0], words[1:]...)
	return err
}

// Installed reports whether the check command line exits successfully.
// A command that cannot be parsed or started counts as not installed.
func Installed(ctx context.Context, x Executor, line string) bool {
	return RunLine(ctx, x, line) == nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
