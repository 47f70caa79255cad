// Package cortexm holds the Cortex-M system peripherals the scheduler drives
// and the platform port built on them.
package cortexm

// Exception numbers.
const (
	ExceptionPendSV  = 14
	ExceptionSysTick = 15
)

// EXC_RETURN values loaded into LR on exception entry.
const (
	ExcReturnThreadMSP uint32 = 0xFFFFFFF9
	ExcReturnThreadPSP uint32 = 0xFFFFFFFD
)

// LowestPriority is the numerically largest priority value. Unimplemented low
// bits read as zero, so it is the lowest level on every core.
const LowestPriority uint8 = 0xFF

// TickPriority returns the level one step above the lowest for a core that
// implements bits priority bits.
func TickPriority(bits uint8) uint8 {
	if bits == 0 || bits > 8 {
		bits = 8
	}
	step := uint8(1) << (8 - bits)
	lowest := uint8(0xFF) << (8 - bits)
	return lowest - step
}
