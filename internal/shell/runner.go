package shell

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Buffer limits for the line scanner. Device daemons can emit long table
// dumps (router tables, address lists) on a single line.
const (
	initialScanBuffer = 64 * 1024
	maxScanBuffer     = 1024 * 1024
)

// drainGrace bounds how long Run keeps reading after the process has exited.
// A child that daemonized keeps the write end of the pipe open; without a
// bound the drain would never finish.
const drainGrace = 2 * time.Second

// ErrSpawn is returned when the external process could not be started at all.
// This is distinct from a command that ran and timed out: a timed-out command
// still yields its partial output with a nil error.
var ErrSpawn = errors.New("shell: spawn failed")

// Logger defines the logging interface for the runner.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Runner executes shell commands with a wall-clock timeout, streaming
// combined stdout/stderr line by line into the logger while accumulating
// the full captured text.
//
// A Runner is stateless between calls and safe for concurrent use, though
// the serializer guarantees at most one in-flight call per device.
type Runner struct {
	shell  string
	logger Logger
}

// NewRunner creates a runner that executes commands under the given shell
// binary. An empty path defaults to /bin/sh.
func NewRunner(shellPath string) *Runner {
	if shellPath == "" {
		shellPath = "/bin/sh"
	}
	return &Runner{
		shell:  shellPath,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run executes the command under the shell and returns the combined
// stdout/stderr text captured before the process exited or the timeout
// elapsed.
//
// Behaviour on the three failure modes:
//   - spawn failure: returns "" and an error wrapping ErrSpawn
//   - timeout: the process group is killed and the partial output is
//     returned with a nil error; callers decide via pattern matching
//   - closed/broken stream: reading stops and what was captured is returned
//
// Every captured line is logged at debug level as it is read. The action
// label is used for logging only.
func (r *Runner) Run(action, command string, timeout time.Duration) (string, error) {
	r.logger.Debug("making system call", "action", action, "command", command)

	cmd := exec.Command(r.shell, "-c", command) //nolint:gosec // command text is the harness's own input

	// Run the child in its own process group so a timeout kill reaches
	// any grandchildren it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		r.logger.Error("failed to start subprocess", "action", action, "command", command, "error", err)
		return "", fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	// The child holds its own copy of the write end. Closing ours lets the
	// scanner observe EOF once every writer in the process group is gone.
	pw.Close()
	defer pr.Close()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, initialScanBuffer), maxScanBuffer)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	var out strings.Builder
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var drainDeadline <-chan time.Time

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				// Scanner stopped: EOF, or a single line overflowed
				// maxScanBuffer. The child may still be running, possibly
				// blocked writing to the now-unread pipe, so keep
				// selecting rather than waiting here; the timeout kill
				// must stay reachable.
				lines = nil
				if waitCh == nil {
					return out.String(), nil
				}
				continue
			}
			r.logger.Debug("[stdout] "+line, "action", action)
			out.WriteString(line)
			out.WriteByte('\n')

		case <-waitCh:
			waitCh = nil
			if lines == nil {
				// Scanner already stopped; nothing left to read.
				return out.String(), nil
			}
			// Process exited; drain whatever is still buffered, bounded
			// in case a surviving grandchild holds the pipe open.
			drainDeadline = time.After(drainGrace)

		case <-timer.C:
			r.logger.Warn("command timed out, killing process group",
				"action", action, "timeout", timeout)
			r.kill(cmd)

		case <-drainDeadline:
			return out.String(), nil
		}
	}
}

// kill terminates the child's whole process group.
func (r *Runner) kill(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// Fall back to the single process if the group is already gone.
		_ = cmd.Process.Kill()
	}
}
