// Package process supervises the wpantund daemons that back each dev
// board: one instance per claimed module, launched inside the module's
// network namespace.
//
// Features:
//   - start/stop with graceful SIGTERM-then-SIGKILL shutdown of the
//     whole process group
//   - automatic restart when the NCP takes the daemon down
//   - health-check watchdog that kills and restarts a wedged daemon
//   - daemon output captured into the harness log
//
// Example usage:
//
//	cfg, err := process.WpantundConfig(process.WpantundOptions{
//	    Module:           module,
//	    RestartOnFailure: true,
//	})
//	if err != nil {
//	    return err
//	}
//	mgr := process.NewManager(cfg)
//	if err := mgr.Start(ctx); err != nil {
//	    return err
//	}
//	defer mgr.Stop()
package process
