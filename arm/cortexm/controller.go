package cortexm

import "sync/atomic"

const (
	csrTICKINT   = 0x1 << 1
	csrCOUNTFLAG = 0x1 << 16
)

// Controller implements the tick and switch-pending half of kernel.Port on
// top of a SysTick and a System Control Block.
type Controller struct {
	SYST         *SysTick
	SCS          *SystemControlSpace
	PriorityBits uint8
}

func (c *Controller) SetReload(ticks uint32) {
	c.SYST.RVR.SetRELOAD(ticks)
	c.SYST.CVR.Clear()
}

func (c *Controller) SetEnabled(enable bool) {
	if enable {
		// Count the processor clock.
		c.SYST.CSR.SetCLKSOURCE(true)
	}
	c.SYST.CSR.SetTICKINT(enable)
	c.SYST.CSR.SetENABLE(enable)
}

func (c *Controller) SetTickInterrupt(enable bool) {
	c.SYST.CSR.SetTICKINT(enable)
}

// Elapsed reads CSR exactly once: the read clears COUNTFLAG.
func (c *Controller) Elapsed() bool {
	csr := atomic.LoadUint32((*uint32)(&c.SYST.CSR))
	return csr&csrCOUNTFLAG != 0 && csr&csrTICKINT != 0
}

// ConfigurePriorities makes PendSV the lowest priority exception so a context
// switch never preempts another handler, with SysTick directly above it.
func (c *Controller) ConfigurePriorities() {
	c.SCS.SHPR3.SetPRI_14(LowestPriority)
	c.SCS.SHPR3.SetPRI_15(TickPriority(c.PriorityBits))
}

// PendSwitch sets PENDSVSET. ICSR bits are write-one, so only that bit is written.
func (c *Controller) PendSwitch() {
	atomic.StoreUint32((*uint32)(&c.SCS.ICSR), 0x1<<28)
}
