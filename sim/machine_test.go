package sim

import (
	"context"
	"errors"
	"testing"

	"omibyte.io/nucleus/arm/cortexm"
	"omibyte.io/nucleus/kernel"
	"omibyte.io/nucleus/kernel/frame"
)

type switchRecorder struct {
	sequence []int
}

func (r *switchRecorder) Dispatched(index int) {
	r.sequence = append(r.sequence, index)
}

func (r *switchRecorder) Switched(from int, to int, tick uint64) {
	r.sequence = append(r.sequence, to)
}

type system struct {
	machine   *Machine
	scheduler *kernel.Scheduler
	recorder  *switchRecorder
	entries   []kernel.Entry
}

func newSystem(t *testing.T, maxTasks int, arenaWords int, tick uint32, stackSize uint32, programs ...Program) *system {
	t.Helper()

	m, err := New(Options{ArenaWords: arenaWords, PriorityBits: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec := &switchRecorder{}
	s := kernel.New(m, kernel.Options{MaxTasks: maxTasks, Observer: rec})
	m.Attach(s)

	arena, err := m.Arena()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = s.Init(arena, tick); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sys := &system{machine: m, scheduler: s, recorder: rec}
	for i, p := range programs {
		entry := m.Load(p)
		index, err := s.AddTask(kernel.NewTask(entry, uint32(i+1), stackSize, 0))
		if err != nil {
			t.Fatalf("task %d: unexpected error: %v", i, err)
		}
		if index != i {
			t.Fatalf("expected index %d, got %d", i, index)
		}
		sys.entries = append(sys.entries, entry)
	}
	return sys
}

func TestEndToEnd(t *testing.T) {
	sys := newSystem(t, 2, 256, 5000, 128, Idle(), Idle())

	sys.scheduler.Start()
	if err := sys.machine.Run(context.Background(), 10010); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []int{0, 1, 0}
	if len(sys.recorder.sequence) != len(expected) {
		t.Fatalf("expected sequence %v, got %v", expected, sys.recorder.sequence)
	}
	for i := range expected {
		if sys.recorder.sequence[i] != expected[i] {
			t.Fatalf("expected sequence %v, got %v", expected, sys.recorder.sequence)
		}
	}
	if sys.machine.Regs.PC != uint32(sys.entries[0]) {
		t.Errorf("expected task 0 to be running, pc=0x%08X", sys.machine.Regs.PC)
	}
}

func TestFirstDispatchLandsOnEntry(t *testing.T) {
	sys := newSystem(t, 2, 256, 5000, 128, Idle(), Idle())
	m := sys.machine

	tcb, _ := sys.scheduler.Task(0)
	words, err := m.Read(tcb.StackTop-frame.HardwareSize, frame.HardwareWords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hw, _ := frame.DecodeHardware(words); hw != frame.Initial(uint32(sys.entries[0]), 1) {
		t.Fatalf("unexpected initial frame %+v", hw)
	}
	if _, err = m.Read(tcb.StackTop+2, 1); !errors.Is(err, ErrBusFault) {
		t.Errorf("expected ErrBusFault for an unaligned read, got %v", err)
	}

	sys.scheduler.Start()
	if m.OnTaskStack() {
		t.Fatalf("task running before the switch interrupt was taken")
	}
	if err = m.Step(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !m.OnTaskStack() {
		t.Fatalf("expected thread mode on the process stack")
	}
	if m.Regs.PC != uint32(sys.entries[0]) {
		t.Errorf("expected pc 0x%08X, got 0x%08X", uint32(sys.entries[0]), m.Regs.PC)
	}
	if m.Regs.R[0] != 1 {
		t.Errorf("expected the task argument in R0, got %d", m.Regs.R[0])
	}
	if m.Regs.LR != frame.ReturnTrap {
		t.Errorf("expected LR 0x%08X, got 0x%08X", frame.ReturnTrap, m.Regs.LR)
	}
	if m.Regs.PSP != tcb.StackTop {
		t.Errorf("expected an empty task stack at 0x%08X, got 0x%08X", tcb.StackTop, m.Regs.PSP)
	}
	if sys.scheduler.State() != kernel.Running {
		t.Errorf("expected running, got %v", sys.scheduler.State())
	}
}

// checked wraps Counter and verifies that the registers a task sees at every
// step are exactly those it left behind at its previous step.
func checked(t *testing.T, arg uint32, steps *int) Program {
	shadow := Registers{}
	shadow.R[0], shadow.R[1], shadow.R[2], shadow.R[3], shadow.R[12] = arg, 1, 2, 3, 12
	body := Counter()

	return func(r *Registers) {
		if r.R != shadow.R {
			t.Errorf("task %d: registers changed while suspended:\nexpected %v\ngot      %v", arg, shadow.R, r.R)
		}
		body(r)
		body(&shadow)
		*steps++
	}
}

func TestContextRoundTrip(t *testing.T) {
	steps := make([]int, 3)
	m, err := New(Options{ArenaWords: 3 * 128, PriorityBits: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := &switchRecorder{}
	s := kernel.New(m, kernel.Options{MaxTasks: 3, Observer: rec})
	m.Attach(s)

	arena, err := m.Arena()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = s.Init(arena, 50); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		entry := m.Load(checked(t, uint32(i+1), &steps[i]))
		if _, err = s.AddTask(kernel.NewTask(entry, uint32(i+1), 256, 0)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	s.Start()
	if err = m.Run(context.Background(), 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(rec.sequence) < 90 {
		t.Fatalf("expected about 98 dispatches, got %d", len(rec.sequence))
	}
	for i, index := range rec.sequence {
		if index != i%3 {
			t.Fatalf("dispatch %d: expected task %d, got %d", i, i%3, index)
		}
	}
	for i, n := range steps {
		if n == 0 {
			t.Errorf("task %d never ran", i)
		}
	}
}

func TestTaskReturnFaults(t *testing.T) {
	sys := newSystem(t, 2, 256, 5000, 128, Returning(3))

	sys.scheduler.Start()
	err := sys.machine.Run(context.Background(), 100)
	if !errors.Is(err, ErrBadPC) {
		t.Fatalf("expected ErrBadPC, got %v", err)
	}
	if sys.machine.Regs.PC != frame.ReturnTrap {
		t.Errorf("expected pc at the return trap, got 0x%08X", sys.machine.Regs.PC)
	}
}

func TestStopFreezesPreemption(t *testing.T) {
	sys := newSystem(t, 2, 256, 100, 128, Counter(), Counter())
	m := sys.machine

	sys.scheduler.Start()
	if err := m.Run(context.Background(), 150); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sys.recorder.sequence) != 2 {
		t.Fatalf("expected one switch after the first dispatch, got %v", sys.recorder.sequence)
	}

	sys.scheduler.Stop()
	count := m.Regs.R[4]
	if err := m.Run(context.Background(), 1000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sys.recorder.sequence) != 2 {
		t.Errorf("switches continued after stop: %v", sys.recorder.sequence)
	}
	if m.Regs.R[4] != count+1000 {
		t.Errorf("the running task should keep running: R4 %d -> %d", count, m.Regs.R[4])
	}
	if m.Regs.PC != uint32(sys.entries[1]) {
		t.Errorf("expected task 1 to keep running")
	}
}

func TestAddTaskWhileRunning(t *testing.T) {
	sys := newSystem(t, 3, 3*128, 100, 128, Counter())
	m, s := sys.machine, sys.scheduler

	s.Start()
	if err := m.Run(context.Background(), 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, index := range sys.recorder.sequence {
		if index != 0 {
			t.Fatalf("unexpected task %d in %v", index, sys.recorder.sequence)
		}
	}

	if _, err := s.AddTask(kernel.NewTask(m.Load(Counter()), 7, 128, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.syst.CSR.GetTICKINT() {
		t.Fatalf("tick interrupt left masked after registration")
	}

	before := len(sys.recorder.sequence)
	if err := m.Run(context.Background(), 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	seen := false
	for _, index := range sys.recorder.sequence[before:] {
		seen = seen || index == 1
	}
	if !seen {
		t.Errorf("task added at runtime never ran: %v", sys.recorder.sequence)
	}
}

func TestBlockedTaskIsSkipped(t *testing.T) {
	sys := newSystem(t, 3, 3*128, 100, 128, Counter(), Counter(), Counter())

	if err := sys.scheduler.SetBlocked(1, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sys.scheduler.Start()
	if err := sys.machine.Run(context.Background(), 2000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, index := range sys.recorder.sequence {
		if index == 1 {
			t.Fatalf("blocked task dispatched: %v", sys.recorder.sequence)
		}
	}
	if len(sys.recorder.sequence) < 10 {
		t.Errorf("expected regular switches, got %v", sys.recorder.sequence)
	}
}

type tickCounter struct {
	m       *Machine
	ticks   int
	pendSVs int
	order   []uint32
}

func (c *tickCounter) SysTickHandler() {
	c.order = append(c.order, cortexm.ExceptionSysTick)
	if c.m.Elapsed() {
		c.ticks++
	}
}

func (c *tickCounter) PendSVHandler() {
	c.order = append(c.order, cortexm.ExceptionPendSV)
	c.pendSVs++
}

func TestSysTickPeriod(t *testing.T) {
	m, err := New(Options{ArenaWords: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c := &tickCounter{m: m}
	m.Attach(c)

	m.SetReload(9)
	m.SetEnabled(true)
	if err = m.Run(context.Background(), 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.ticks != 10 || m.Exceptions() != 10 {
		t.Errorf("expected 10 ticks in 100 cycles, got %d (%d exceptions)", c.ticks, m.Exceptions())
	}
	if m.Mode() != ModeThread || m.OnTaskStack() {
		t.Errorf("expected to be back on the main stack in thread mode")
	}
}

func TestExceptionPriority(t *testing.T) {
	tests := []struct {
		name      string
		configure bool
		expected  []uint32
	}{
		{"configured", true, []uint32{cortexm.ExceptionSysTick, cortexm.ExceptionPendSV}},
		{"reset priorities", false, []uint32{cortexm.ExceptionPendSV, cortexm.ExceptionSysTick}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(Options{ArenaWords: 64, PriorityBits: 4})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			c := &tickCounter{m: m}
			m.Attach(c)
			if tc.configure {
				m.ConfigurePriorities()
			}

			m.PendSwitch()
			m.scs.ICSR.SetPENDSTSET(true)
			if err = m.Step(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(c.order) != 2 || c.order[0] != tc.expected[0] || c.order[1] != tc.expected[1] {
				t.Errorf("expected %v, got %v", tc.expected, c.order)
			}
		})
	}
}

func TestNewRejectsEmptyArena(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, ErrInvalidMachine) {
		t.Errorf("expected ErrInvalidMachine, got %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	m, err := New(Options{ArenaWords: 64})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err = m.Run(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProgramByName(t *testing.T) {
	if _, err := ProgramByName("counter"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ProgramByName("missing"); !errors.Is(err, ErrUnknownProgram) {
		t.Errorf("expected ErrUnknownProgram, got %v", err)
	}
}
