package harness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openthread/silk-go/internal/hardware"
	"github.com/openthread/silk-go/internal/node"
	"github.com/openthread/silk-go/internal/process"
	"github.com/openthread/silk-go/internal/results"
	"github.com/openthread/silk-go/internal/wpan"
)

// Logger is the logging surface the harness needs. Satisfied by
// logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Critical(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any)    {}
func (noopLogger) Info(string, ...any)     {}
func (noopLogger) Warn(string, ...any)     {}
func (noopLogger) Error(string, ...any)    {}
func (noopLogger) Critical(string, ...any) {}

// Options wires the harness to its collaborators. Registry and Runner
// are required; the rest are optional and disable their feature when
// nil.
type Options struct {
	// HarnessID identifies this harness instance in run records and on
	// the event stream.
	HarnessID string

	// Registry hands out claimed hardware modules.
	Registry *hardware.Registry

	// Runner executes external commands for every board.
	Runner node.CommandRunner

	// Results persists runs and per-device outcomes. Optional.
	Results results.Repository

	// Events publishes the node/run event stream. Optional.
	Events EventPublisher

	// Telemetry records durations and state transitions. Optional.
	Telemetry TelemetryWriter

	// Logger receives harness and per-board logging. Optional.
	Logger Logger

	// WaitTimeout overrides each board's WaitForCompletion bound when
	// positive.
	WaitTimeout time.Duration

	// Daemons enables wpantund supervision: each acquired board gets a
	// supervised daemon for the span of its claim. Nil leaves daemon
	// management to the operator.
	Daemons *DaemonOptions
}

// DaemonOptions configures the wpantund instance started for each
// acquired board.
type DaemonOptions struct {
	// Mode selects NCP or RCP operation. Empty defaults to NCP.
	Mode process.ThreadMode

	// WpantundPath overrides the daemon binary.
	WpantundPath string

	// PosixAppPath is the OpenThread POSIX app binary, required for
	// RCP mode.
	PosixAppPath string

	// VerboseDebug enables full syslog output from the daemon.
	VerboseDebug bool
}

// daemon is the supervised per-board process. Satisfied by
// *process.Manager; tests substitute fakes.
type daemon interface {
	Start(ctx context.Context) error
	Stop() error
}

// Harness orchestrates a set of dev boards for one test run: it claims
// hardware, builds the per-device facades, waits on all device queues
// concurrently, and fans results out to the repository, the event
// stream and telemetry.
//
// All methods are safe for concurrent use.
type Harness struct {
	id          string
	registry    *hardware.Registry
	runner      node.CommandRunner
	repo        results.Repository
	events      EventPublisher
	telemetry   TelemetryWriter
	logger      Logger
	waitTimeout time.Duration

	// newDaemon builds the supervised daemon for a claimed module, nil
	// when supervision is disabled.
	newDaemon func(module *hardware.Module) (daemon, error)

	mu      sync.Mutex
	boards  map[string]*wpan.DevBoard
	daemons map[string]daemon
	run     *results.Run
}

// New validates the options and returns a harness with no boards and no
// active run.
func New(opts Options) (*Harness, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("harness: registry is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("harness: runner is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	id := opts.HarnessID
	if id == "" {
		id = "silk"
	}

	h := &Harness{
		id:          id,
		registry:    opts.Registry,
		runner:      opts.Runner,
		repo:        opts.Results,
		events:      opts.Events,
		telemetry:   opts.Telemetry,
		logger:      logger,
		waitTimeout: opts.WaitTimeout,
		boards:      make(map[string]*wpan.DevBoard),
		daemons:     make(map[string]daemon),
	}
	if opts.Daemons != nil {
		h.newDaemon = wpantundDaemon(opts.Daemons, logger)
	}
	return h, nil
}

// wpantundDaemon builds *process.Manager factories bound to the
// harness-wide daemon options.
func wpantundDaemon(opts *DaemonOptions, logger Logger) func(*hardware.Module) (daemon, error) {
	return func(module *hardware.Module) (daemon, error) {
		cfg, err := process.WpantundConfig(process.WpantundOptions{
			Module:           module,
			Mode:             opts.Mode,
			WpantundPath:     opts.WpantundPath,
			PosixAppPath:     opts.PosixAppPath,
			VerboseDebug:     opts.VerboseDebug,
			RestartOnFailure: true,
		})
		if err != nil {
			return nil, err
		}
		mgr := process.NewManager(cfg)
		mgr.SetLogger(logger)
		return mgr, nil
	}
}

// StartRun opens a test run. With a results repository configured the
// run is persisted; without one an in-memory run is tracked so events
// still carry a run ID.
func (h *Harness) StartRun(ctx context.Context, name string) (*results.Run, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.run != nil {
		return nil, fmt.Errorf("%w: %s", ErrRunActive, h.run.ID)
	}

	var run *results.Run
	if h.repo != nil {
		r, err := h.repo.StartRun(ctx, h.id, name)
		if err != nil {
			return nil, fmt.Errorf("starting run: %w", err)
		}
		run = r
	} else {
		run = &results.Run{
			ID:        fmt.Sprintf("%s-%d", h.id, time.Now().UnixNano()),
			HarnessID: h.id,
			Name:      name,
			StartedAt: time.Now().UTC(),
			Outcome:   results.OutcomeRunning,
		}
	}
	h.run = run

	h.logger.Info("run started", "run", run.ID, "name", name)
	h.publishRunEvent(run, "started")

	return run, nil
}

// Run returns the active run, nil when none.
func (h *Harness) Run() *results.Run {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.run
}

// FinishRun closes the active run with the given outcome.
func (h *Harness) FinishRun(ctx context.Context, outcome results.Outcome) error {
	h.mu.Lock()
	run := h.run
	h.run = nil
	h.mu.Unlock()

	if run == nil {
		return ErrNoRun
	}

	if h.repo != nil {
		if err := h.repo.FinishRun(ctx, run.ID, outcome); err != nil {
			return fmt.Errorf("finishing run %s: %w", run.ID, err)
		}
	}

	run.Outcome = outcome
	h.logger.Info("run finished", "run", run.ID, "outcome", string(outcome))
	h.publishRunEvent(run, "finished")

	return nil
}

// AcquireBoard claims the first free module of the given model and
// wraps it in a dev-board facade managed by this harness.
func (h *Harness) AcquireBoard(model string) (*wpan.DevBoard, error) {
	module, err := h.registry.Claim(model)
	if err != nil {
		return nil, err
	}
	return h.adoptModule(module)
}

// AcquireBoardByName claims a specific module from the inventory.
func (h *Harness) AcquireBoardByName(name string) (*wpan.DevBoard, error) {
	module, err := h.registry.ClaimByName(name)
	if err != nil {
		return nil, err
	}
	return h.adoptModule(module)
}

func (h *Harness) adoptModule(module *hardware.Module) (*wpan.DevBoard, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.boards[module.Name]; ok {
		// Claim succeeded on a module we already wrap; undo it.
		if err := h.registry.Free(module); err != nil {
			h.logger.Error("freeing double-claimed module", "module", module.Name, "error", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrBoardExists, module.Name)
	}

	if h.newDaemon != nil {
		d, err := h.newDaemon(module)
		if err == nil {
			// The daemon outlives this call; its lifetime is the board
			// claim, ended by Stop in ReleaseBoard.
			err = d.Start(context.Background())
		}
		if err != nil {
			if ferr := h.registry.Free(module); ferr != nil {
				h.logger.Error("freeing module after daemon failure", "module", module.Name, "error", ferr)
			}
			return nil, fmt.Errorf("starting daemon for %s: %w", module.Name, err)
		}
		h.daemons[module.Name] = d
	}

	board := wpan.NewDevBoard(module, h.runner)
	board.SetLogger(h.logger)
	if h.waitTimeout > 0 {
		board.SetWaitTimeout(h.waitTimeout)
	}

	h.boards[module.Name] = board
	h.logger.Info("board acquired", "board", module.Name, "model", module.Model)

	return board, nil
}

// Board returns a managed board by name, nil when unknown.
func (h *Harness) Board(name string) *wpan.DevBoard {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.boards[name]
}

// Boards returns a snapshot of the managed boards.
func (h *Harness) Boards() []*wpan.DevBoard {
	h.mu.Lock()
	defer h.mu.Unlock()

	boards := make([]*wpan.DevBoard, 0, len(h.boards))
	for _, b := range h.boards {
		boards = append(boards, b)
	}
	return boards
}

// WaitForAll blocks until every managed board's queue drains, then
// reports the first device error. Each board's outcome is recorded to
// the repository, published on the event stream and written to
// telemetry regardless of which error is returned.
func (h *Harness) WaitForAll(ctx context.Context) error {
	boards := h.Boards()

	g := new(errgroup.Group)
	for _, board := range boards {
		b := board
		g.Go(func() error {
			start := time.Now()
			err := b.WaitForCompletion()
			h.recordWait(ctx, b, time.Since(start), err)
			if err != nil {
				return fmt.Errorf("device %s: %w", b.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ReleaseBoard queues namespace teardown for one board, waits for it,
// and frees the underlying module. The board is removed from the
// harness even when teardown reports an error.
func (h *Harness) ReleaseBoard(name string) error {
	h.mu.Lock()
	board, ok := h.boards[name]
	if ok {
		delete(h.boards, name)
	}
	d := h.daemons[name]
	delete(h.daemons, name)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBoard, name)
	}

	// Stop the daemon before the namespace it is running in goes away.
	if d != nil {
		if err := d.Stop(); err != nil {
			h.logger.Error("stopping daemon", "board", name, "error", err)
		}
	}

	board.TearDown()
	waitErr := board.WaitForCompletion()

	if err := h.registry.Free(board.Module()); err != nil {
		return fmt.Errorf("freeing module %s: %w", name, err)
	}
	if waitErr != nil {
		return fmt.Errorf("tearing down %s: %w", name, waitErr)
	}

	h.logger.Info("board released", "board", name)
	return nil
}

// ReleaseAll releases every managed board and returns the first error.
func (h *Harness) ReleaseAll() error {
	var firstErr error
	for _, b := range h.Boards() {
		if err := h.ReleaseBoard(b.Name()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
