package shell

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingLogger captures debug lines for assertions.
type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }

func (l *recordingLogger) contains(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

func TestRunner_CapturesOutput(t *testing.T) {
	runner := NewRunner("")

	out, err := runner.Run("echo", "echo hello", 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("Run() output = %q, want it to contain %q", out, "hello")
	}
}

func TestRunner_CombinesStderr(t *testing.T) {
	runner := NewRunner("")

	out, err := runner.Run("stderr", "echo oops 1>&2", 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !strings.Contains(out, "oops") {
		t.Errorf("Run() output = %q, want stderr text captured", out)
	}
}

func TestRunner_MultipleLinesInOrder(t *testing.T) {
	runner := NewRunner("")

	out, err := runner.Run("lines", "printf 'one\\ntwo\\nthree\\n'", 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantOrder := []string{"one", "two", "three"}
	last := -1
	for _, w := range wantOrder {
		idx := strings.Index(out, w)
		if idx < 0 {
			t.Fatalf("output %q missing line %q", out, w)
		}
		if idx < last {
			t.Errorf("line %q out of order in %q", w, out)
		}
		last = idx
	}
}

func TestRunner_SpawnFailure(t *testing.T) {
	runner := NewRunner("/nonexistent/shell-binary")

	out, err := runner.Run("spawn", "echo hello", time.Second)
	if !errors.Is(err, ErrSpawn) {
		t.Fatalf("Run() error = %v, want ErrSpawn", err)
	}
	if out != "" {
		t.Errorf("Run() output = %q, want empty on spawn failure", out)
	}
}

func TestRunner_TimeoutReturnsPartialOutput(t *testing.T) {
	runner := NewRunner("")

	start := time.Now()
	out, err := runner.Run("slow", "echo early; sleep 30; echo late", time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v, want nil on timeout", err)
	}
	if elapsed > 10*time.Second {
		t.Fatalf("Run() took %v, process was not killed on timeout", elapsed)
	}
	if !strings.Contains(out, "early") {
		t.Errorf("Run() output = %q, want partial output before timeout", out)
	}
	if strings.Contains(out, "late") {
		t.Errorf("Run() output = %q, contains text from after the kill", out)
	}
}

func TestRunner_TimeoutAfterOversizedLine(t *testing.T) {
	runner := NewRunner("")

	// One line bigger than maxScanBuffer stops the scanner mid-stream
	// while the child is still running and still writing. The timeout
	// kill must still fire.
	command := "head -c 2000000 /dev/zero | tr '\\0' 'a'; sleep 30"

	start := time.Now()
	out, err := runner.Run("bigline", command, time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v, want nil on timeout", err)
	}
	if elapsed > 10*time.Second {
		t.Fatalf("Run() took %v, process was not killed on timeout", elapsed)
	}
	if strings.Contains(out, "a") {
		t.Errorf("Run() output = %q, want the overlong line dropped", out)
	}
}

func TestRunner_TimeoutAfterChildClosesOutput(t *testing.T) {
	runner := NewRunner("")

	start := time.Now()
	out, err := runner.Run("detached", "echo hello; exec >&- 2>&-; sleep 30", time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run() error = %v, want nil on timeout", err)
	}
	if elapsed > 10*time.Second {
		t.Fatalf("Run() took %v, process was not killed on timeout", elapsed)
	}
	if !strings.Contains(out, "hello") {
		t.Errorf("Run() output = %q, want output from before the close", out)
	}
}

func TestRunner_LogsEachLine(t *testing.T) {
	logger := &recordingLogger{}
	runner := NewRunner("")
	runner.SetLogger(logger)

	if _, err := runner.Run("logged", "printf 'alpha\\nbeta\\n'", 5*time.Second); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !logger.contains("alpha") || !logger.contains("beta") {
		t.Errorf("captured lines were not forwarded to the logger: %v", logger.msgs)
	}
}

func TestRunner_NonZeroExitStillCaptures(t *testing.T) {
	runner := NewRunner("")

	out, err := runner.Run("fail", "echo before; exit 3", 5*time.Second)
	if err != nil {
		t.Fatalf("Run() error = %v, want nil for non-zero exit", err)
	}
	if !strings.Contains(out, "before") {
		t.Errorf("Run() output = %q, want output from failing command", out)
	}
}
