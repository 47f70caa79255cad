package kernel

import (
	"testing"

	"omibyte.io/nucleus/kernel/frame"
)

const testBase uint32 = 0x20000000

// fakePort records what the scheduler asks of the platform and keeps a
// register file so that exception entry and return can be emulated.
type fakePort struct {
	reload     uint32
	enabled    bool
	tickInt    bool
	elapsed    bool
	pended     int
	priorities bool

	psp       uint32
	regs      frame.Software
	primask   bool
	excReturn bool

	tickIntLog []bool
}

func (p *fakePort) SetReload(ticks uint32) { p.reload = ticks }

func (p *fakePort) SetEnabled(enable bool) {
	p.enabled = enable
	p.tickInt = enable
}

func (p *fakePort) SetTickInterrupt(enable bool) {
	p.tickInt = enable
	p.tickIntLog = append(p.tickIntLog, enable)
}

func (p *fakePort) Elapsed() bool { return p.elapsed }

func (p *fakePort) ConfigurePriorities() { p.priorities = true }

func (p *fakePort) PendSwitch() { p.pended++ }

func (p *fakePort) ThreadStack() uint32 { return p.psp }

func (p *fakePort) SetThreadStack(sp uint32) { p.psp = sp }

func (p *fakePort) SaveContext() frame.Software { return p.regs }

func (p *fakePort) RestoreContext(regs frame.Software) { p.regs = regs }

func (p *fakePort) DisableInterrupts() uint32 {
	state := uint32(0)
	if p.primask {
		state = 1
	}
	p.primask = true
	return state
}

func (p *fakePort) EnableInterrupts(state uint32) { p.primask = state != 0 }

func (p *fakePort) ReturnToThread() { p.excReturn = true }

// enterException stacks hw on the task stack the way the processor does.
func enterException(t *testing.T, a *Arena, p *fakePort, hw frame.Hardware) {
	t.Helper()
	p.psp -= frame.HardwareSize
	words, err := a.Slice(p.psp, frame.HardwareWords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = hw.Encode(words); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.excReturn = false
}

// exitException unstacks the hardware frame from the task stack.
func exitException(t *testing.T, a *Arena, p *fakePort) frame.Hardware {
	t.Helper()
	if !p.excReturn {
		t.Fatalf("exception did not request a return to thread mode")
	}
	words, err := a.Slice(p.psp, frame.HardwareWords)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	hw, err := frame.DecodeHardware(words)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p.psp += frame.HardwareSize
	return hw
}

type switchLog struct {
	dispatched []int
	sequence   []int
}

func (l *switchLog) Dispatched(index int) {
	l.dispatched = append(l.dispatched, index)
	l.sequence = append(l.sequence, index)
}

func (l *switchLog) Switched(from int, to int, tick uint64) {
	l.sequence = append(l.sequence, to)
}

func newTestArena(t *testing.T, words int) *Arena {
	t.Helper()
	a, err := NewArena(make([]uint32, words), testBase)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func newTestScheduler(t *testing.T, maxTasks int, words int) (*Scheduler, *fakePort, *Arena) {
	t.Helper()
	port := &fakePort{}
	s := New(port, Options{MaxTasks: maxTasks})
	a := newTestArena(t, words)
	if err := s.Init(a, 5000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s, port, a
}
