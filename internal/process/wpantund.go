package process

import (
	"fmt"
	"time"

	"github.com/openthread/silk-go/internal/hardware"
)

// ThreadMode selects how wpantund drives the network co-processor.
type ThreadMode string

const (
	// ModeNCP talks to a full NCP firmware over the serial port.
	ModeNCP ThreadMode = "NCP"

	// ModeRCP runs the OpenThread POSIX app against a radio co-processor.
	ModeRCP ThreadMode = "RCP"
)

// DefaultWpantundPath is used when the caller does not override the
// daemon binary.
const DefaultWpantundPath = "/usr/local/sbin/wpantund"

// rcpBaudRate is the serial rate for the POSIX-app socket path.
const rcpBaudRate = 115200

// WpantundOptions describes one wpantund instance bound to a claimed
// module inside its network namespace.
type WpantundOptions struct {
	// Module is the claimed dev board; its Name doubles as the
	// namespace and interface name, its Port is the NCP serial device.
	Module *hardware.Module

	// Mode selects NCP or RCP operation. Empty defaults to NCP.
	Mode ThreadMode

	// WpantundPath overrides the daemon binary.
	WpantundPath string

	// PosixAppPath is the ot-ncp POSIX app binary, required for RCP.
	PosixAppPath string

	// VerboseDebug enables full syslog output from the daemon.
	VerboseDebug bool

	// RestartOnFailure re-launches the daemon if the NCP takes it down.
	RestartOnFailure bool
}

// WpantundConfig builds a supervisor Config that runs wpantund for one
// module inside its namespace. The daemon is started through
// "sudo ip netns exec" so the tunnel interface lands in the device's
// namespace; exec avoids shell quoting, so the RCP socket path with
// embedded spaces passes through as a single argument.
func WpantundConfig(opts WpantundOptions) (Config, error) {
	if opts.Module == nil {
		return Config{}, fmt.Errorf("process: module is required")
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeNCP
	}
	wpantund := opts.WpantundPath
	if wpantund == "" {
		wpantund = DefaultWpantundPath
	}
	ns := opts.Module.Name

	args := []string{"ip", "netns", "exec", ns, wpantund}

	switch mode {
	case ModeNCP:
		args = append(args, "-o", "Config:NCP:SocketPath", opts.Module.Port)
	case ModeRCP:
		if opts.PosixAppPath == "" {
			return Config{}, fmt.Errorf("process: posix app path is required for RCP mode")
		}
		socketPath := fmt.Sprintf("system:%s %s %d", opts.PosixAppPath, opts.Module.Port, rcpBaudRate)
		args = append(args,
			"-o", "Config:NCP:SocketPath", socketPath,
			"-o", "Config:TUN:InterfaceName", ns,
			"-o", "Config:NCP:DriverName", "spinel",
		)
	default:
		return Config{}, fmt.Errorf("process: unsupported thread mode %q", mode)
	}

	if opts.VerboseDebug {
		args = append(args, "-o", "SyslogMask", "all")
	}
	args = append(args, "-I", ns)

	return Config{
		Name:             ns,
		Binary:           "sudo",
		Args:             args,
		RestartOnFailure: opts.RestartOnFailure,
		RestartDelay:     5 * time.Second,
		GracefulTimeout:  10 * time.Second,
	}, nil
}
