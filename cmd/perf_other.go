//go:build !linux

package cmd

import "github.com/notargets/gomesh/utils"

func countInstructions(log *utils.Logger, fn func() error) error {
	log.Warn("perf counters need linux")
	return fn()
}
