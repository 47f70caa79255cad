package sim

import (
	"omibyte.io/nucleus/arm/cortexm"
	"omibyte.io/nucleus/kernel/frame"
)

// Elapsed emulates the clear-on-read COUNTFLAG of the hardware register.
func (m *Machine) Elapsed() bool {
	elapsed := m.syst.CSR.GetCOUNTFLAG() && m.syst.CSR.GetTICKINT()
	m.syst.CSR &^= 0x1 << 16
	return elapsed
}

// PendSwitch updates the ICSR image; the write-only form used on hardware
// would clobber the other bits the simulator keeps there.
func (m *Machine) PendSwitch() {
	m.scs.ICSR.SetPENDSVSET(true)
}

func (m *Machine) ThreadStack() uint32 {
	return m.Regs.PSP
}

func (m *Machine) SetThreadStack(sp uint32) {
	m.Regs.PSP = sp
}

func (m *Machine) SaveContext() frame.Software {
	r := &m.Regs.R
	return frame.Software{R4: r[4], R5: r[5], R6: r[6], R7: r[7], R8: r[8], R9: r[9], R10: r[10], R11: r[11]}
}

func (m *Machine) RestoreContext(regs frame.Software) {
	r := &m.Regs.R
	r[4], r[5], r[6], r[7] = regs.R4, regs.R5, regs.R6, regs.R7
	r[8], r[9], r[10], r[11] = regs.R8, regs.R9, regs.R10, regs.R11
}

func (m *Machine) DisableInterrupts() uint32 {
	state := uint32(0)
	if m.primask {
		state = 1
	}
	m.primask = true
	return state
}

func (m *Machine) EnableInterrupts(state uint32) {
	m.primask = state != 0
}

func (m *Machine) ReturnToThread() {
	m.Regs.LR = cortexm.ExcReturnThreadPSP
}
