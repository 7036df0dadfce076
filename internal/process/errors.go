package process

import "errors"

var (
	// ErrAlreadyRunning is returned by Start while the process is up.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrNoBinary is returned by Start when Config.Binary is empty.
	ErrNoBinary = errors.New("process: no binary configured")

	// ErrUnhealthy wraps the last probe error when a process is killed by
	// the watchdog.
	ErrUnhealthy = errors.New("process: health check failed")
)
