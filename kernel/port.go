package kernel

import "omibyte.io/nucleus/kernel/frame"

// Timer is the periodic tick source.
type Timer interface {
	// SetReload programs the countdown reload value.
	SetReload(ticks uint32)

	// SetEnabled starts or stops both the countdown and its interrupt.
	SetEnabled(enable bool)

	// SetTickInterrupt toggles interrupt generation only.
	SetTickInterrupt(enable bool)

	// Elapsed reports whether the current tick interrupt is a genuine
	// countdown-reload event.
	Elapsed() bool
}

// Core is the processor side of a context switch.
type Core interface {
	// ConfigurePriorities places the switch interrupt at the lowest priority
	// and the tick above it.
	ConfigurePriorities()

	// PendSwitch raises the deferred switch interrupt.
	PendSwitch()

	ThreadStack() uint32
	SetThreadStack(sp uint32)

	// SaveContext reads the callee-saved registers of the interrupted task.
	SaveContext() frame.Software

	// RestoreContext loads the callee-saved registers of the incoming task.
	RestoreContext(regs frame.Software)

	DisableInterrupts() (state uint32)
	EnableInterrupts(state uint32)

	// ReturnToThread makes the current exception return to thread mode on the
	// task stack.
	ReturnToThread()
}

// Port is everything the scheduler needs from the platform.
type Port interface {
	Timer
	Core
}
