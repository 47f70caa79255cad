package kernel

import (
	"fmt"

	"omibyte.io/nucleus/kernel/frame"
)

// SysTickHandler is the periodic tick interrupt entry point. It only decides
// which task runs next; the switch itself happens in PendSVHandler.
func (s *Scheduler) SysTickHandler() {
	if !s.port.Elapsed() {
		return
	}
	s.ticks++

	// A switch may still be pending from an earlier tick. The outgoing task is
	// always the live one, which only the switch itself updates.
	s.current = s.table.NextReady(s.current)

	s.pending = Switch
	s.port.PendSwitch()
}

// PendSVHandler is the deferred switch interrupt entry point. It runs at the
// lowest priority so the save and restore below is never preempted by
// another switch.
func (s *Scheduler) PendSVHandler() {
	switch s.pending {
	case FirstDispatch:
		s.firstDispatch()
	case Switch:
		s.switchContext(s.running, s.current)
	}
}

func (s *Scheduler) firstDispatch() {
	if s.table == nil || !s.table.Occupied(0) {
		return
	}

	tcb := s.table.At(0)
	s.port.RestoreContext(s.loadSoftware(tcb.StackPointer))
	s.port.SetThreadStack(tcb.StackPointer + frame.SoftwareSize)

	s.current = 0
	s.running = 0
	s.state = Running
	s.port.SetEnabled(true)

	// Unstacking the synthesized hardware frame lands on the entry point.
	s.port.ReturnToThread()
	s.observer.Dispatched(0)
}

// switchContext saves the callee-saved registers of outgoing below the
// hardware frame the processor already stacked, then restores incoming.
func (s *Scheduler) switchContext(outgoing int, incoming int) {
	state := s.port.DisableInterrupts()

	sp := s.port.ThreadStack() - frame.SoftwareSize
	s.storeSoftware(sp, s.port.SaveContext())
	s.table.At(outgoing).StackPointer = sp

	sp = s.table.At(incoming).StackPointer
	s.port.RestoreContext(s.loadSoftware(sp))
	s.port.SetThreadStack(sp + frame.SoftwareSize)
	s.port.ReturnToThread()
	s.running = incoming

	s.port.EnableInterrupts(state)
	s.observer.Switched(outgoing, incoming, s.ticks)
}

// A bad stack pointer here means the task table or a stack is corrupt. There
// is no caller to report to, so these panic.

func (s *Scheduler) loadSoftware(sp uint32) frame.Software {
	words, err := s.arena.Slice(sp, frame.SoftwareWords)
	if err != nil {
		panic(fmt.Errorf("kernel: restore context: %w", err))
	}
	regs, err := frame.DecodeSoftware(words)
	if err != nil {
		panic(fmt.Errorf("kernel: restore context: %w", err))
	}
	return regs
}

func (s *Scheduler) storeSoftware(sp uint32, regs frame.Software) {
	words, err := s.arena.Slice(sp, frame.SoftwareWords)
	if err != nil {
		panic(fmt.Errorf("kernel: save context: %w", err))
	}
	if err = regs.Encode(words); err != nil {
		panic(fmt.Errorf("kernel: save context: %w", err))
	}
}
