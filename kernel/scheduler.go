package kernel

import (
	"fmt"
	"log/slog"

	"omibyte.io/nucleus/kernel/frame"
)

type State uint8

const (
	Uninitialized State = iota
	Initialized
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Operation selects what the deferred switch interrupt does next.
type Operation uint8

const (
	FirstDispatch Operation = iota
	Switch
)

func (o Operation) String() string {
	if o == FirstDispatch {
		return "first-dispatch"
	}
	return "switch"
}

// Scheduler owns the task table and all state shared between the tick and
// switch interrupts. Both interrupt entry points are methods on it.
type Scheduler struct {
	port     Port
	opts     Options
	logger   *slog.Logger
	observer Observer

	arena    *Arena
	table    *Table
	critical CriticalSection

	current int
	running int
	pending Operation
	state   State
	ticks   uint64
}

func New(port Port, opts Options) *Scheduler {
	opts = opts.withDefaults()
	return &Scheduler{
		port:     port,
		opts:     opts,
		logger:   opts.Logger,
		observer: opts.Observer,
		critical: CriticalSection{timer: port},
	}
}

// Init takes ownership of the stack arena and programs the tick reload value.
// Nothing is modified when the arena is too small.
func (s *Scheduler) Init(arena *Arena, tick uint32) error {
	if s.state != Uninitialized {
		return ErrAlreadyInitialized
	}

	if s.opts.MinStackSize <= 0 {
		return fmt.Errorf("%w: minimum stack of %d words", ErrInsufficientStack, s.opts.MinStackSize)
	}

	if arena == nil || arena.Words() < s.opts.MaxTasks*s.opts.MinStackSize {
		words := 0
		if arena != nil {
			words = arena.Words()
		}
		return fmt.Errorf("%w: have %d words, need %d", ErrInsufficientStack, words, s.opts.MaxTasks*s.opts.MinStackSize)
	}

	table, err := NewTable(s.opts.MaxTasks)
	if err != nil {
		return err
	}

	s.arena = arena
	s.table = table
	s.port.ConfigurePriorities()
	s.port.SetReload(tick & ReloadMask)
	s.state = Initialized

	s.logger.Info("scheduler initialized",
		"arena_base", fmt.Sprintf("0x%08X", arena.Base()),
		"arena_words", arena.Words(),
		"max_tasks", s.opts.MaxTasks,
		"reload", tick&ReloadMask)
	return nil
}

// AddTask registers a task and synthesizes its initial stack frame so that the
// ordinary restore path starts it. It returns the task's table index.
func (s *Scheduler) AddTask(task Task) (int, error) {
	if s.state == Uninitialized {
		return -1, ErrNotInitialized
	}

	if s.state == Running {
		s.critical.Enter()
		defer s.critical.Leave()
	}

	if s.table.Full() {
		return -1, ErrTooManyTasks
	}

	if task.StackSize < frame.Size || task.StackSize%StackAlignment != 0 {
		return -1, fmt.Errorf("%w: %d bytes (minimum %d, multiple of %d)", ErrInvalidStackSize, task.StackSize, frame.Size, StackAlignment)
	}

	top, err := s.arena.Allocate(task.StackSize)
	if err != nil {
		return -1, err
	}

	sp := top - frame.HardwareSize
	words, err := s.arena.Slice(sp, frame.HardwareWords)
	if err != nil {
		return -1, err
	}
	if err = frame.Initial(uint32(task.Entry), task.Arg).Encode(words); err != nil {
		return -1, err
	}

	// The software frame below stays uninitialized until the first switch out.
	sp -= frame.SoftwareSize

	index, err := s.table.Append(TCB{
		Entry:        task.Entry,
		Arg:          task.Arg,
		StackPointer: sp,
		StackTop:     top,
		StackSize:    task.StackSize,
		Priority:     task.Priority,
		Flags:        Ready | InUse,
	})
	if err != nil {
		return -1, err
	}

	s.logger.Debug("task added",
		"index", index,
		"entry", fmt.Sprintf("0x%08X", uint32(task.Entry)),
		"stack_top", fmt.Sprintf("0x%08X", top),
		"stack_size", task.StackSize)
	return index, nil
}

// Start raises the deferred interrupt for the first dispatch. A stopped
// scheduler resumes preemption instead.
func (s *Scheduler) Start() {
	switch s.state {
	case Initialized:
		s.logger.Info("scheduler starting", "tasks", s.table.Len())
		s.pending = FirstDispatch
		s.port.PendSwitch()
	case Stopped:
		s.logger.Info("scheduler resuming", "current", s.current)
		s.state = Running
		s.port.SetEnabled(true)
	default:
		s.logger.Warn("start ignored", "state", s.state)
	}
}

// Stop disables the periodic tick. The task that is running keeps running.
func (s *Scheduler) Stop() {
	if s.state != Running {
		s.logger.Warn("stop ignored", "state", s.state)
		return
	}
	s.port.SetEnabled(false)
	s.state = Stopped
	s.logger.Info("scheduler stopped", "current", s.current, "ticks", s.ticks)
}

// SetBlocked moves a task between Ready and Blocked.
func (s *Scheduler) SetBlocked(index int, blocked bool) error {
	if s.state == Uninitialized {
		return ErrNotInitialized
	}

	if s.state == Running {
		s.critical.Enter()
		defer s.critical.Leave()
	}

	if !s.table.Occupied(index) {
		return fmt.Errorf("%w: %d", ErrNoSuchTask, index)
	}

	tcb := s.table.At(index)
	if blocked {
		tcb.Flags = tcb.Flags&^Ready | Blocked
	} else {
		tcb.Flags = tcb.Flags&^Blocked | Ready
	}
	return nil
}

func (s *Scheduler) State() State {
	return s.state
}

// Current is the index of the task whose context is, or is about to become, live.
func (s *Scheduler) Current() int {
	return s.current
}

// Live is the index of the task whose context the core is executing. It trails
// Current while a switch is pending.
func (s *Scheduler) Live() int {
	return s.running
}

func (s *Scheduler) Ticks() uint64 {
	return s.ticks
}

func (s *Scheduler) Len() int {
	if s.table == nil {
		return 0
	}
	return s.table.Len()
}

// Task returns a copy of the TCB at index.
func (s *Scheduler) Task(index int) (TCB, bool) {
	if s.table == nil || !s.table.Occupied(index) {
		return TCB{}, false
	}
	return *s.table.At(index), true
}
