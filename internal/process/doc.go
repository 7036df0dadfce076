// Package process supervises child processes the controller depends on,
// chiefly a local dmxsim receiver used for rehearsal without a rig.
//
// A Supervisor starts the binary in its own process group, logs its
// output line by line, and restarts it with exponential backoff when it
// exits unexpectedly. An optional health probe kills a process that stops
// answering so the restart path can recover it.
//
// Example usage:
//
//	sup := process.NewSupervisor(process.Config{
//	    Name:             "dmxsim",
//	    Binary:           "/usr/local/bin/dmxsim",
//	    Args:             []string{"--config", "configs/config.yaml"},
//	    RestartOnFailure: true,
//	    HealthCheck:      process.HTTPProbe(nil, "http://127.0.0.1:8081/api/v1/health"),
//	})
//	if err := sup.Start(ctx); err != nil {
//	    return err
//	}
//	defer sup.Stop()
package process
