// Package execx runs external tools with an enforced timeout and classifies
// their failures. It is the only place the service shells out.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotFound reports that the executable does not exist on this host.
	ErrNotFound = errors.New("executable not found")
	// ErrTimeout reports that the command did not exit before its deadline.
	ErrTimeout = errors.New("command timed out")
)

// waitDelay bounds how long Wait blocks on output pipes after the process
// group has been killed.
const waitDelay = 2 * time.Second

// Runner executes a command and returns its captured stdout.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error)
}

// OSRunner runs commands as child processes of the current process.
// Stderr is discarded.
type OSRunner struct{}

func (OSRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = nil
	cmd.WaitDelay = waitDelay

	// Own process group so a timeout takes down anything the tool spawned.
	setProcAttr(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }

	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}
	return "", classify(ctx, name, err)
}

func classify(ctx context.Context, name string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", name, ErrTimeout)
		}
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("command %s returned non-zero exit status %d", name, exitErr.ExitCode())
	}
	return fmt.Errorf("run %s: %w", name, err)
}

// CommandLine renders name and args the way they would be typed in a shell.
// Used for logging only.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
