//go:build cortexm

package cortexm

import (
	"unsafe"

	"omibyte.io/nucleus/kernel"
	"omibyte.io/nucleus/kernel/frame"
)

var (
	SYST = (*SysTick)(unsafe.Pointer(uintptr(0xE000E010)))
	SCS  = (*SystemControlSpace)(unsafe.Pointer(uintptr(0xE000ED00)))
)

// switchFrame is shared with the PendSV trampoline in pendsv_cortexm.S. The
// trampoline stores R4-R11 into Saved before calling into Go, and loads
// Restore and branches to ExcReturn afterwards when ExcReturn is non-zero.
// The field offsets (0, 32, 64) are part of that contract.
//
//go:export _nucleus_switch_frame _nucleus_switch_frame
var switchFrame struct {
	Saved     frame.Software
	Restore   frame.Software
	ExcReturn uint32
}

//sigo:extern _nucleus_read_psp _nucleus_read_psp
func readPSP() uint32

//sigo:extern _nucleus_write_psp _nucleus_write_psp
func writePSP(sp uint32)

//sigo:extern _nucleus_disable_irq _nucleus_disable_irq
func disableIRQ() uint32

//sigo:extern _nucleus_enable_irq _nucleus_enable_irq
func enableIRQ(state uint32)

var active *kernel.Scheduler

// Port is the hardware kernel.Port.
type Port struct {
	Controller
}

func NewPort(priorityBits uint8) *Port {
	return &Port{
		Controller: Controller{
			SYST:         SYST,
			SCS:          SCS,
			PriorityBits: priorityBits,
		},
	}
}

func (p *Port) ThreadStack() uint32 {
	return readPSP()
}

func (p *Port) SetThreadStack(sp uint32) {
	writePSP(sp)
}

func (p *Port) SaveContext() frame.Software {
	return switchFrame.Saved
}

func (p *Port) RestoreContext(regs frame.Software) {
	switchFrame.Restore = regs
}

func (p *Port) DisableInterrupts() uint32 {
	return disableIRQ()
}

func (p *Port) EnableInterrupts(state uint32) {
	enableIRQ(state)
}

func (p *Port) ReturnToThread() {
	switchFrame.ExcReturn = ExcReturnThreadPSP
}

// Install routes the SysTick and PendSV exceptions to s.
func Install(s *kernel.Scheduler) {
	active = s
}

// Arena wraps a statically allocated stack array. A word array is only word
// aligned, so the first word is skipped when needed.
func Arena(words []uint32) (*kernel.Arena, error) {
	if len(words) == 0 {
		return kernel.NewArena(words, 0)
	}
	base := uint32(uintptr(unsafe.Pointer(&words[0])))
	if base%kernel.StackAlignment != 0 && len(words) > 1 {
		words, base = words[1:], base+frame.WordSize
	}
	return kernel.NewArena(words, base)
}

// EntryOf returns the Thumb code address of a task function.
func EntryOf(fn func(arg uint32)) kernel.Entry {
	fnVal := *(*uintptr)(unsafe.Pointer(&fn))
	pc := *(*uintptr)(unsafe.Pointer(fnVal))
	return kernel.Entry(uint32(pc) | 1)
}

//sigo:interrupt _SysTick_Handler SysTick_Handler
func _SysTick_Handler() {
	if active != nil {
		active.SysTickHandler()
	}
}

//go:export _nucleus_pendsv _nucleus_pendsv
func pendSV() {
	if active != nil {
		active.PendSVHandler()
	}
}
