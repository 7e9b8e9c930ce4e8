// Package telemetry runs a periodic, panic-safe reporter that logs a
// caller-supplied snapshot string at a fixed interval.
package telemetry

import (
	"time"

	"github.com/branchpool/branchpool/internal/safego"
)

// Snapshot renders the current state to log, e.g. aggregate branch load.
type Snapshot func() string

// StartReporter launches a background ticker that logs snapshot() through
// logger every interval, until the returned stop function is called.
func StartReporter(interval time.Duration, snapshot Snapshot, logger func(format string, args ...interface{})) (stop func()) {
	stopCh := make(chan struct{})
	safego.Go(func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger("telemetry: %s", snapshot())
			case <-stopCh:
				return
			}
		}
	}, safego.WithTag("telemetry-reporter"), safego.WithLog(logger))

	var stopped bool
	return func() {
		if !stopped {
			stopped = true
			close(stopCh)
		}
	}
}
