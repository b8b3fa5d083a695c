// Package shell runs external commands for managed devices.
//
// Each managed device is controlled through a companion daemon whose control
// binary is driven over the command line. This package owns the single place
// where the harness touches an operating-system process: run one shell
// command string with a wall-clock timeout, stream its combined
// stdout/stderr line by line into the logger, and hand the fully captured
// text back for pattern matching.
//
// # Failure Modes
//
//   - Spawn failure (the shell could not be started): ErrSpawn. The caller
//     reports a response failure and no matching is attempted.
//   - Timeout: the process group is killed and the partial output is
//     returned with a nil error. A timeout is not itself a failure; the
//     expected-pattern match decides.
//   - Closed stream: reading stops and the captured text is returned.
//
// # Usage
//
//	runner := shell.NewRunner("/bin/sh")
//	runner.SetLogger(log)
//	out, err := runner.Run("status", "wpanctl -I wpan0 status", 5*time.Second)
package shell
