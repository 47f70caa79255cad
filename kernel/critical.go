package kernel

// CriticalSection suppresses preemption by clearing the tick interrupt enable
// bit. The countdown keeps running. Sections must not nest.
type CriticalSection struct {
	timer Timer
	held  bool
}

func (c *CriticalSection) Enter() {
	if c.held {
		panic("kernel: nested critical section")
	}
	c.timer.SetTickInterrupt(false)
	c.held = true
}

func (c *CriticalSection) Leave() {
	if !c.held {
		panic("kernel: leaving a critical section that was not entered")
	}
	c.held = false
	c.timer.SetTickInterrupt(true)
}

func (c *CriticalSection) Held() bool {
	return c.held
}
