//go:build linux

package cmd

import (
	"runtime"

	perf "github.com/hodgesds/perf-utils"
	"github.com/notargets/gomesh/utils"
)

// countInstructions runs fn under a CPU instruction counter. Counter
// failures, usually missing perf_event permissions, only log.
func countInstructions(log *utils.Logger, fn func() error) (err error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	var ran bool
	pv, perr := perf.CPUInstructions(func() error {
		ran = true
		err = fn()
		return err
	})
	switch {
	case err != nil:
		return
	case perr != nil:
		log.Warn("perf counter unavailable", "error", perr)
		if !ran {
			err = fn()
		}
		return
	}
	log.Info("perf", "instructions", pv.Value, "enabled", pv.TimeEnabled, "running", pv.TimeRunning)
	return
}
