package cortexm

import "sync/atomic"

// SysTick is the system timer register block. On hardware it lives at
// 0xE000E010; the simulator keeps one in ordinary memory.
type SysTick struct {
	CSR   SYST_CSR
	RVR   SYST_RVR
	CVR   SYST_CVR
	CALIB SYST_CALIB
}

// Register accesses go through sync/atomic so the compiler can neither elide
// nor reorder them.

type SYST_CSR uint32

func (reg *SYST_CSR) SetENABLE(enable bool) {
	setBit((*uint32)(reg), 0, enable)
}

func (reg *SYST_CSR) GetENABLE() bool {
	return atomic.LoadUint32((*uint32)(reg))&0x1 != 0
}

func (reg *SYST_CSR) SetTICKINT(enable bool) {
	setBit((*uint32)(reg), 1, enable)
}

func (reg *SYST_CSR) GetTICKINT() bool {
	return atomic.LoadUint32((*uint32)(reg))&(0x1<<1) != 0
}

func (reg *SYST_CSR) SetCLKSOURCE(enable bool) {
	setBit((*uint32)(reg), 2, enable)
}

func (reg *SYST_CSR) GetCLKSOURCE() bool {
	return atomic.LoadUint32((*uint32)(reg))&(0x1<<2) != 0
}

// GetCOUNTFLAG reports whether the counter reached zero since the last read.
// Hardware clears the flag on read.
func (reg *SYST_CSR) GetCOUNTFLAG() bool {
	return atomic.LoadUint32((*uint32)(reg))&(0x1<<16) != 0
}

type SYST_RVR uint32

func (reg *SYST_RVR) SetRELOAD(value uint32) {
	atomic.StoreUint32((*uint32)(reg), value&0xFFFFFF)
}

func (reg *SYST_RVR) GetRELOAD() uint32 {
	return atomic.LoadUint32((*uint32)(reg))
}

type SYST_CVR uint32

// Clear resets the current value. Any write clears the register to zero.
func (reg *SYST_CVR) Clear() {
	atomic.StoreUint32((*uint32)(reg), 0)
}

func (reg *SYST_CVR) GetVALUE() uint32 {
	return atomic.LoadUint32((*uint32)(reg))
}

type SYST_CALIB uint32

func setBit(reg *uint32, bit uint, enable bool) {
	value := atomic.LoadUint32(reg)
	if enable {
		value |= 0x1 << bit
	} else {
		value &^= 0x1 << bit
	}
	atomic.StoreUint32(reg, value)
}
