// Package spin picks a default spin-iteration count for MsgQueue's
// hybrid spin/wait operations. Machines with more logical cores can
// afford a longer non-blocking spin phase before a producer/consumer
// parks on a condition variable, since contention from other
// goroutines is more likely to resolve within a few scheduler quanta.
package spin

import "github.com/klauspost/cpuid"

// DefaultIterations is read once at init from the host's CPU topology.
// It is the spin bound msgqueue.MsgQueue falls back to when a caller
// passes spin <= 0.
var DefaultIterations = computeDefault()

func computeDefault() uint32 {
	cores := cpuid.CPU.LogicalCores
	if cores <= 0 {
		cores = 1
	}
	const perCore = 512
	n := cores * perCore
	const ceiling = 65535
	if n > ceiling {
		n = ceiling
	}
	return uint32(n)
}
