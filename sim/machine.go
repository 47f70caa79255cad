// Package sim is a cycle-stepped model of a single-core Cortex-M processor:
// register file, banked stack pointers, SysTick, PendSV and the exception
// entry and return sequences. Task code is modelled as Go step functions
// loaded into a simulated flash.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"fortio.org/safecast"

	"omibyte.io/nucleus/arm/cortexm"
	"omibyte.io/nucleus/kernel"
	"omibyte.io/nucleus/kernel/frame"
)

var (
	ErrBadPC          = errors.New("sim: no program at pc")
	ErrBusFault       = errors.New("sim: bus fault")
	ErrInvalidState   = errors.New("sim: invalid execution state")
	ErrBadReturn      = errors.New("sim: invalid EXC_RETURN")
	ErrNoHandler      = errors.New("sim: no handlers attached")
	ErrInvalidMachine = errors.New("sim: invalid machine options")
	ErrUnknownProgram = errors.New("sim: unknown program")
)

const (
	FlashBase     uint32 = 0x08000000
	SRAMBase      uint32 = 0x20000000
	MainStackBase uint32 = 0x20100000

	DefaultMainStackWords = 256
	programStride         = 0x100
	cancelCheckInterval   = 1024
)

type Mode uint8

const (
	ModeThread Mode = iota
	ModeHandler
)

func (m Mode) String() string {
	if m == ModeHandler {
		return "handler"
	}
	return "thread"
}

// Registers is the architectural register file.
type Registers struct {
	R   [13]uint32 // R0-R12
	LR  uint32
	PC  uint32
	PSR uint32
	MSP uint32
	PSP uint32
}

// Program is one step of a task body. It may change any general purpose
// register; it changes PC only to model a return from the task entry.
type Program func(regs *Registers)

// Handlers are the exception handlers installed in the vector table.
type Handlers interface {
	SysTickHandler()
	PendSVHandler()
}

type Options struct {
	ArenaWords     int
	MainStackWords int
	PriorityBits   uint8
	Logger         *slog.Logger
}

// Machine is a simulated core. It implements kernel.Port.
type Machine struct {
	cortexm.Controller
	syst cortexm.SysTick
	scs  cortexm.SystemControlSpace

	Regs    Registers
	mode    Mode
	usePSP  bool
	primask bool

	banks []bank
	arena []uint32
	flash map[uint32]Program
	next  uint32

	handlers   Handlers
	cycles     uint64
	exceptions uint64
	logger     *slog.Logger
}

var _ kernel.Port = (*Machine)(nil)

func New(opts Options) (*Machine, error) {
	if opts.ArenaWords <= 0 {
		return nil, fmt.Errorf("%w: arena of %d words", ErrInvalidMachine, opts.ArenaWords)
	}
	if opts.MainStackWords == 0 {
		opts.MainStackWords = DefaultMainStackWords
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	mainBytes, err := safecast.Conv[uint32](opts.MainStackWords * frame.WordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMachine, err)
	}
	if _, err = safecast.Conv[uint32](opts.ArenaWords * frame.WordSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMachine, err)
	}

	m := &Machine{
		arena:  make([]uint32, opts.ArenaWords),
		flash:  make(map[uint32]Program),
		next:   FlashBase,
		logger: opts.Logger,
	}
	m.Controller = cortexm.Controller{
		SYST:         &m.syst,
		SCS:          &m.scs,
		PriorityBits: opts.PriorityBits,
	}
	m.banks = []bank{
		{name: "sram", base: SRAMBase, words: m.arena},
		{name: "main stack", base: MainStackBase, words: make([]uint32, opts.MainStackWords)},
	}

	// Reset: thread mode on the main stack.
	m.Regs.MSP = MainStackBase + mainBytes
	m.Regs.PSR = frame.DefaultPSR
	return m, nil
}

// Arena returns the task stack arena backed by the simulated SRAM.
func (m *Machine) Arena() (*kernel.Arena, error) {
	return kernel.NewArena(m.arena, SRAMBase)
}

// Attach installs the SysTick and PendSV handlers.
func (m *Machine) Attach(h Handlers) {
	m.handlers = h
}

// Load places p in flash and returns its Thumb entry address.
func (m *Machine) Load(p Program) kernel.Entry {
	addr := m.next
	m.flash[addr] = p
	m.next += programStride
	m.logger.Debug("program loaded", "addr", fmt.Sprintf("0x%08X", addr))
	return kernel.Entry(addr | 1)
}

func (m *Machine) Cycles() uint64 {
	return m.cycles
}

func (m *Machine) Exceptions() uint64 {
	return m.exceptions
}

func (m *Machine) Mode() Mode {
	return m.mode
}

// OnTaskStack reports whether thread mode is running on the process stack,
// i.e. a task rather than the boot code.
func (m *Machine) OnTaskStack() bool {
	return m.mode == ModeThread && m.usePSP
}

// Run steps the machine for the given number of cycles.
func (m *Machine) Run(ctx context.Context, cycles uint64) error {
	for i := uint64(0); i < cycles; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := m.Step(); err != nil {
			m.logger.Debug("machine halted",
				"cycle", m.cycles,
				"pc", fmt.Sprintf("0x%08X", m.Regs.PC),
				"mode", m.mode,
				"err", err)
			return err
		}
	}
	return nil
}

// Step advances the machine by one cycle: the SysTick counter moves, a pending
// exception is taken if allowed, otherwise one task step executes.
func (m *Machine) Step() error {
	m.cycles++
	m.countdown()

	if m.mode == ModeThread && !m.primask {
		if exception := m.pendingException(); exception != 0 {
			return m.takeException(exception)
		}
	}
	return m.execute()
}

func (m *Machine) countdown() {
	if !m.syst.CSR.GetENABLE() {
		return
	}

	value := m.syst.CVR.GetVALUE()
	if value == 0 {
		m.syst.CVR = cortexm.SYST_CVR(m.syst.RVR.GetRELOAD())
		return
	}

	value--
	m.syst.CVR = cortexm.SYST_CVR(value)
	if value == 0 {
		m.syst.CSR |= 0x1 << 16
		if m.syst.CSR.GetTICKINT() {
			m.scs.ICSR.SetPENDSTSET(true)
		}
	}
}

// pendingException returns the pending exception with the highest priority,
// or 0. Equal priorities resolve to the lower exception number.
func (m *Machine) pendingException() uint32 {
	pendSV := m.scs.ICSR.GetPENDSVSET()
	sysTick := m.scs.ICSR.GetPENDSTSET()

	switch {
	case pendSV && sysTick:
		if m.scs.SHPR3.GetPRI_15() < m.scs.SHPR3.GetPRI_14() {
			return cortexm.ExceptionSysTick
		}
		return cortexm.ExceptionPendSV
	case sysTick:
		return cortexm.ExceptionSysTick
	case pendSV:
		return cortexm.ExceptionPendSV
	}
	return 0
}

func (m *Machine) takeException(exception uint32) error {
	if m.handlers == nil {
		return ErrNoHandler
	}

	sp, excReturn := m.Regs.MSP, cortexm.ExcReturnThreadMSP
	if m.usePSP {
		sp, excReturn = m.Regs.PSP, cortexm.ExcReturnThreadPSP
	}

	sp, err := m.push(sp, frame.Hardware{
		R0:  m.Regs.R[0],
		R1:  m.Regs.R[1],
		R2:  m.Regs.R[2],
		R3:  m.Regs.R[3],
		R12: m.Regs.R[12],
		LR:  m.Regs.LR,
		PC:  m.Regs.PC,
		PSR: m.Regs.PSR,
	})
	if err != nil {
		return fmt.Errorf("exception %d entry: %w", exception, err)
	}
	if m.usePSP {
		m.Regs.PSP = sp
	} else {
		m.Regs.MSP = sp
	}

	m.Regs.LR = excReturn
	m.mode = ModeHandler

	// Tail-chain every exception still pending without unstacking in between.
	for exception != 0 {
		m.exceptions++
		m.scs.ICSR.SetVECTACTIVE(exception)
		switch exception {
		case cortexm.ExceptionSysTick:
			m.scs.ICSR.SetPENDSTCLR()
			m.handlers.SysTickHandler()
		case cortexm.ExceptionPendSV:
			m.scs.ICSR.SetPENDSVCLR()
			m.handlers.PendSVHandler()
		}
		exception = m.pendingException()
	}
	m.scs.ICSR.SetVECTACTIVE(0)

	return m.exceptionReturn()
}

func (m *Machine) exceptionReturn() error {
	var sp uint32
	switch m.Regs.LR {
	case cortexm.ExcReturnThreadPSP:
		m.usePSP = true
		sp = m.Regs.PSP
	case cortexm.ExcReturnThreadMSP:
		m.usePSP = false
		sp = m.Regs.MSP
	default:
		return fmt.Errorf("%w: 0x%08X", ErrBadReturn, m.Regs.LR)
	}

	hw, sp, err := m.pop(sp)
	if err != nil {
		return fmt.Errorf("exception return: %w", err)
	}
	if m.usePSP {
		m.Regs.PSP = sp
	} else {
		m.Regs.MSP = sp
	}

	m.Regs.R[0] = hw.R0
	m.Regs.R[1] = hw.R1
	m.Regs.R[2] = hw.R2
	m.Regs.R[3] = hw.R3
	m.Regs.R[12] = hw.R12
	m.Regs.LR = hw.LR
	m.Regs.PC = hw.PC
	m.Regs.PSR = hw.PSR
	m.mode = ModeThread

	if hw.PSR&frame.ThumbState == 0 {
		return fmt.Errorf("%w: T bit clear returning to 0x%08X", ErrInvalidState, hw.PC)
	}
	return nil
}

func (m *Machine) execute() error {
	// The boot code idles on the main stack until the first dispatch.
	if !m.OnTaskStack() {
		return nil
	}

	program, ok := m.flash[m.Regs.PC&^1]
	if !ok {
		return fmt.Errorf("%w: 0x%08X", ErrBadPC, m.Regs.PC)
	}
	program(&m.Regs)
	return nil
}
