package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// ExitNotFound is returned when the external tool cannot be started
const ExitNotFound = 127

// Stdio holds the streams handed to the child process
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Dir is the child's working directory, the current one when empty
	Dir string
}

// StdStreams returns the process's own streams
func StdStreams() Stdio {
	return Stdio{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

// Run executes argv and waits for it. The returned code is the child's exit
// status; err is set only when the child could not run at all. Cancelling ctx
// interrupts the child instead of killing it.
func Run(ctx context.Context, argv []string, stdio Stdio) (int, error) {
	if len(argv) == 0 {
		return 1, errors.New("empty command")
	}

	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	c.Stdin = stdio.In
	c.Stdout = stdio.Out
	c.Stderr = stdio.Err
	c.Dir = stdio.Dir
	c.Cancel = func() error {
		return c.Process.Signal(os.Interrupt)
	}
	c.WaitDelay = 5 * time.Second

	err := c.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		// terminated by a signal
		return 128 + signalNumber(exitErr), nil
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
		return ExitNotFound, fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	return 1, fmt.Errorf("failed to run %s: %w", argv[0], err)
}

// Format renders argv as one line, quoting tokens that contain spaces or quotes
func Format(argv []string) string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			arg = fmt.Sprintf("%q", arg)
		}
		out[i] = arg
	}
	return strings.Join(out, " ")
}

func signalNumber(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return int(ws.Signal())
	}
	return 0
}
