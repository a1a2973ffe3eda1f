package sync

import "sync/atomic"

// archAcquireSpinlock busy-waits using a compare-and-swap loop. The teacher
// implements this primitive in arch-specific assembly; RISC-V has no
// equivalent stub in this tree, so it is completed here in portable Go
// using the same atomic state word the rest of the package already shares.
func archAcquireSpinlock(state *uint32, attemptsBeforeYielding uint32) {
	var attempts uint32
	for !atomic.CompareAndSwapUint32(state, 0, 1) {
		attempts++
		if attempts >= attemptsBeforeYielding && yieldFn != nil {
			yieldFn()
			attempts = 0
		}
	}
}
