// Package steamcmd runs external uploader commands, streaming their merged
// stdout/stderr line-by-line as the process produces them.
package steamcmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/buildrelay/relay-worker/internal/core"
)

// Lines from steamcmd stay short; the headroom covers pathological
// progress output.
const maxLineBytes = 1024 * 1024

// Runner executes commands via os/exec. Stdout and stderr share one pipe so
// lines arrive in the order the process wrote them.
type Runner struct{}

var _ core.ProcessRunner = (*Runner)(nil)

// NewRunner creates a process runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run spawns name with args, forwards each merged output line to onLine as
// it arrives, waits for exit and returns the exit code. err reports spawn
// and stream failures; a non-zero exit is reported through the code alone.
func (r *Runner) Run(ctx context.Context, name string, args []string, onLine func(line string)) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		// Nothing is writing; release the reader side too.
		_ = pw.Close()
		_ = pr.Close()
		return 0, fmt.Errorf("start %s: %w", name, err)
	}

	scanDone := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		scanDone <- scanner.Err()
	}()

	waitErr := cmd.Wait()
	// Unblock the scanner once the process is gone.
	_ = pw.Close()
	scanErr := <-scanDone
	_ = pr.Close()

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return 0, fmt.Errorf("wait for %s: %w", name, waitErr)
	}
	if scanErr != nil {
		return 0, fmt.Errorf("stream %s output: %w", name, scanErr)
	}
	return cmd.ProcessState.ExitCode(), nil
}
