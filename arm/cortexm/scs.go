package cortexm

import "sync/atomic"

// SystemControlSpace is the System Control Block register layout starting at
// 0xE000ED00.
type SystemControlSpace struct {
	CPUID SCS_CPUID
	ICSR  SCS_ICSR
	VTOR  SCS_VTOR
	AIRCR uint32
	SCR   uint32
	CCR   uint32
	SHPR1 uint32
	SHPR2 uint32
	SHPR3 SCS_SHPR3
	SHCSR uint32
}

type (
	SCS_CPUID uint32
	SCS_ICSR  uint32
	SCS_VTOR  uint32
	SCS_SHPR3 uint32
)

// GetPARTNO returns the processor part number, e.g. 0xC24 for a Cortex-M4.
func (reg *SCS_CPUID) GetPARTNO() uint32 {
	return (atomic.LoadUint32((*uint32)(reg)) >> 4) & 0xFFF
}

func (reg *SCS_ICSR) GetPENDSVSET() bool {
	return atomic.LoadUint32((*uint32)(reg))&(0x1<<28) != 0
}

func (reg *SCS_ICSR) SetPENDSVSET(enable bool) {
	setBit((*uint32)(reg), 28, enable)
}

// SetPENDSVCLR clears a pending PendSV. On hardware the PENDSVCLR bit is
// write-one-to-clear; here both effects are applied to the register image.
func (reg *SCS_ICSR) SetPENDSVCLR() {
	setBit((*uint32)(reg), 28, false)
}

func (reg *SCS_ICSR) GetPENDSTSET() bool {
	return atomic.LoadUint32((*uint32)(reg))&(0x1<<26) != 0
}

func (reg *SCS_ICSR) SetPENDSTSET(enable bool) {
	setBit((*uint32)(reg), 26, enable)
}

func (reg *SCS_ICSR) SetPENDSTCLR() {
	setBit((*uint32)(reg), 26, false)
}

// GetVECTACTIVE returns the exception number being serviced, 0 in thread mode.
func (reg *SCS_ICSR) GetVECTACTIVE() uint32 {
	return atomic.LoadUint32((*uint32)(reg)) & 0x1FF
}

func (reg *SCS_ICSR) SetVECTACTIVE(exception uint32) {
	value := atomic.LoadUint32((*uint32)(reg))
	value &^= 0x1FF
	value |= exception & 0x1FF
	atomic.StoreUint32((*uint32)(reg), value)
}

// PRI_14 is the PendSV priority.
func (s *SCS_SHPR3) GetPRI_14() uint8 {
	v := atomic.LoadUint32((*uint32)(s))
	return uint8((v >> 16) & 0xFF)
}

func (s *SCS_SHPR3) SetPRI_14(value uint8) {
	setField((*uint32)(s), 16, value)
}

// PRI_15 is the SysTick priority.
func (s *SCS_SHPR3) GetPRI_15() uint8 {
	v := atomic.LoadUint32((*uint32)(s))
	return uint8((v >> 24) & 0xFF)
}

func (s *SCS_SHPR3) SetPRI_15(value uint8) {
	setField((*uint32)(s), 24, value)
}

func setField(reg *uint32, shift uint, value uint8) {
	v := atomic.LoadUint32(reg)
	v &^= 0xFF << shift
	v |= uint32(value) << shift
	atomic.StoreUint32(reg, v)
}
