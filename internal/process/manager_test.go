package process

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/openthread/silk-go/internal/hardware"
)

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{
		Name:   "nrf-1",
		Binary: "/usr/local/sbin/wpantund",
	})

	if m.config.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v, want %v", m.config.RestartDelay, 5*time.Second)
	}
	if m.config.GracefulTimeout != 10*time.Second {
		t.Errorf("GracefulTimeout = %v, want %v", m.config.GracefulTimeout, 10*time.Second)
	}
	if m.config.HealthCheckInterval != 30*time.Second {
		t.Errorf("HealthCheckInterval = %v, want %v", m.config.HealthCheckInterval, 30*time.Second)
	}
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(Config{Name: "nrf-1", Binary: "/bin/true"})

	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusStopped)
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true before Start()")
	}
	if m.PID() != 0 {
		t.Errorf("PID() = %d, want 0", m.PID())
	}
	if m.Uptime() != 0 {
		t.Errorf("Uptime() = %v, want 0", m.Uptime())
	}
	if m.RestartCount() != 0 {
		t.Errorf("RestartCount() = %d, want 0", m.RestartCount())
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(Config{Name: "nrf-1", Binary: "/bin/true"})

	stats := m.Stats()
	if stats.Name != "nrf-1" {
		t.Errorf("Stats().Name = %q, want nrf-1", stats.Name)
	}
	if stats.Status != StatusStopped {
		t.Errorf("Stats().Status = %q, want %q", stats.Status, StatusStopped)
	}
	if stats.PID != 0 {
		t.Errorf("Stats().PID = %d, want 0", stats.PID)
	}
}

func TestManager_StopWhenNotRunning(t *testing.T) {
	m := NewManager(Config{Name: "nrf-1", Binary: "/bin/true"})

	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on stopped daemon error = %v, want nil", err)
	}
}

func TestManager_StartAlreadyRunning(t *testing.T) {
	m := NewManager(Config{
		Name:   "nrf-1",
		Binary: "/bin/sleep",
		Args:   []string{"10"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("first Start() error: %v", err)
	}
	defer m.Stop()

	if err := m.Start(ctx); err == nil {
		t.Error("second Start() expected error, got nil")
	}
}

func TestManager_StartAndStop(t *testing.T) {
	m := NewManager(Config{
		Name:            "nrf-1",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	if !m.IsRunning() {
		t.Error("IsRunning() = false after Start()")
	}
	if m.PID() == 0 {
		t.Error("PID() = 0 after Start()")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	// Give the monitor goroutine time to observe the exit.
	time.Sleep(100 * time.Millisecond)

	if m.IsRunning() {
		t.Error("IsRunning() = true after Stop()")
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	m := NewManager(Config{
		Name:   "bad-binary",
		Binary: "/nonexistent/binary",
	})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() with invalid binary expected error, got nil")
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
}

func TestManager_OnStartCallback(t *testing.T) {
	started := make(chan struct{}, 1)

	m := NewManager(Config{
		Name:   "nrf-1",
		Binary: "/bin/true",
		OnStart: func() {
			select {
			case started <- struct{}{}:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer m.Stop()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("OnStart callback not invoked")
	}
}

func testModule() *hardware.Module {
	return &hardware.Module{
		Name:  "nrf-1",
		Model: hardware.ModelNRF52840,
		Port:  "/dev/ttyACM0",
	}
}

func TestWpantundConfig_NCP(t *testing.T) {
	cfg, err := WpantundConfig(WpantundOptions{Module: testModule()})
	if err != nil {
		t.Fatalf("WpantundConfig() error = %v", err)
	}

	if cfg.Name != "nrf-1" {
		t.Errorf("Name = %q, want nrf-1", cfg.Name)
	}
	if cfg.Binary != "sudo" {
		t.Errorf("Binary = %q, want sudo", cfg.Binary)
	}

	joined := strings.Join(cfg.Args, " ")
	want := "ip netns exec nrf-1 /usr/local/sbin/wpantund -o Config:NCP:SocketPath /dev/ttyACM0 -I nrf-1"
	if joined != want {
		t.Errorf("Args = %q, want %q", joined, want)
	}
}

func TestWpantundConfig_RCP(t *testing.T) {
	cfg, err := WpantundConfig(WpantundOptions{
		Module:       testModule(),
		Mode:         ModeRCP,
		PosixAppPath: "/usr/local/bin/ot-ncp",
	})
	if err != nil {
		t.Fatalf("WpantundConfig() error = %v", err)
	}

	// The socket path must survive as one argument, spaces included.
	found := false
	for _, arg := range cfg.Args {
		if arg == "system:/usr/local/bin/ot-ncp /dev/ttyACM0 115200" {
			found = true
		}
	}
	if !found {
		t.Errorf("Args = %v, missing RCP socket path argument", cfg.Args)
	}

	joined := strings.Join(cfg.Args, " ")
	if !strings.Contains(joined, "Config:TUN:InterfaceName nrf-1") {
		t.Errorf("Args = %q, missing TUN interface option", joined)
	}
	if !strings.Contains(joined, "Config:NCP:DriverName spinel") {
		t.Errorf("Args = %q, missing spinel driver option", joined)
	}
}

func TestWpantundConfig_RCPRequiresPosixApp(t *testing.T) {
	_, err := WpantundConfig(WpantundOptions{Module: testModule(), Mode: ModeRCP})
	if err == nil {
		t.Error("WpantundConfig() RCP without posix app should fail")
	}
}

func TestWpantundConfig_VerboseAndUnknownMode(t *testing.T) {
	cfg, err := WpantundConfig(WpantundOptions{Module: testModule(), VerboseDebug: true})
	if err != nil {
		t.Fatalf("WpantundConfig() error = %v", err)
	}
	if !strings.Contains(strings.Join(cfg.Args, " "), "SyslogMask all") {
		t.Errorf("Args = %v, missing SyslogMask option", cfg.Args)
	}

	if _, err := WpantundConfig(WpantundOptions{Module: testModule(), Mode: "FTD"}); err == nil {
		t.Error("WpantundConfig() with unknown mode should fail")
	}

	if _, err := WpantundConfig(WpantundOptions{}); err == nil {
		t.Error("WpantundConfig() without module should fail")
	}
}
