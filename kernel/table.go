package kernel

import (
	"fmt"
	"math/bits"
)

// MaxCapacity is bounded by the width of the occupancy bitmap.
const MaxCapacity = 32

// Table is the fixed-capacity, append-only task table. Slots are allocated once
// up front; occupancy is tracked in a bitmap so that a full table is a checked
// condition rather than a scan.
type Table struct {
	slots []TCB
	used  uint32
}

func NewTable(capacity int) (*Table, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidCapacity, capacity, MaxCapacity)
	}
	return &Table{slots: make([]TCB, capacity)}, nil
}

func (t *Table) Cap() int {
	return len(t.slots)
}

func (t *Table) Len() int {
	return bits.OnesCount32(t.used)
}

func (t *Table) Full() bool {
	return t.Len() == len(t.slots)
}

func (t *Table) Occupied(i int) bool {
	if i < 0 || i >= len(t.slots) {
		return false
	}
	return t.used&(1<<uint(i)) != 0
}

// At returns the slot at index i. The slot may be unoccupied.
func (t *Table) At(i int) *TCB {
	return &t.slots[i]
}

// Append stores tcb in the next free slot and returns its index.
func (t *Table) Append(tcb TCB) (int, error) {
	if t.Full() {
		return -1, ErrTooManyTasks
	}

	// Slots fill in order, so the next free slot is the lowest clear bit.
	i := bits.TrailingZeros32(^t.used)
	t.slots[i] = tcb
	t.used |= 1 << uint(i)
	return i, nil
}
