package kernel

import "fmt"

// Status is the task status bitmask kept in each TCB.
type Status uint32

const (
	Ready   Status = 0x1
	Blocked Status = 0x2
	InUse   Status = 0x4
)

func (s Status) String() string {
	switch {
	case s == 0:
		return "unused"
	case s&Ready != 0:
		return "ready"
	case s&Blocked != 0:
		return "blocked"
	default:
		return fmt.Sprintf("status(0x%x)", uint32(s))
	}
}

// Entry is the code address of a task entry function. On Cortex-M the Thumb
// bit (bit 0) is set.
type Entry uint32

// Task describes a task to register.
type Task struct {
	Entry     Entry
	Arg       uint32
	StackSize uint32 // bytes
	Priority  uint32 // stored only; scheduling is round-robin
}

func NewTask(entry Entry, arg uint32, stackSize uint32, priority uint32) Task {
	return Task{
		Entry:     entry,
		Arg:       arg,
		StackSize: stackSize,
		Priority:  priority,
	}
}

// TCB is the task control block stored by value in the task table.
type TCB struct {
	Entry        Entry
	Arg          uint32
	StackPointer uint32
	StackTop     uint32
	StackSize    uint32
	Priority     uint32
	Flags        Status
}

// Region returns the stack region [low, high) owned by the task.
func (t *TCB) Region() (low uint32, high uint32) {
	return t.StackTop - t.StackSize, t.StackTop
}

func (t *TCB) Occupied() bool {
	return t.Flags&InUse != 0
}

func (t *TCB) Ready() bool {
	return t.Flags&Ready != 0
}
