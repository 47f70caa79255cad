package kernel

import (
	"errors"
	"testing"
)

func TestNewTableCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		err      error
	}{
		{0, ErrInvalidCapacity},
		{1, nil},
		{MaxCapacity, nil},
		{MaxCapacity + 1, ErrInvalidCapacity},
	}

	for _, tc := range tests {
		if _, err := NewTable(tc.capacity); !errors.Is(err, tc.err) {
			t.Errorf("capacity %d: expected %v, got %v", tc.capacity, tc.err, err)
		}
	}
}

func TestTableAppend(t *testing.T) {
	table, err := NewTable(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if table.Len() != 0 || table.Occupied(0) {
		t.Errorf("new table is not empty")
	}

	for i := 0; i < 3; i++ {
		index, err := table.Append(TCB{Arg: uint32(i), Flags: Ready | InUse})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if index != i {
			t.Errorf("expected index %d, got %d", i, index)
		}
		if !table.Occupied(i) {
			t.Errorf("slot %d not marked occupied", i)
		}
		if tcb := table.At(i); tcb.Arg != uint32(i) {
			t.Errorf("expected arg %d, got %d", i, tcb.Arg)
		}
	}

	if !table.Full() || table.Len() != 3 {
		t.Fatalf("expected a full table of 3, got len %d", table.Len())
	}
	if _, err = table.Append(TCB{}); !errors.Is(err, ErrTooManyTasks) {
		t.Errorf("expected ErrTooManyTasks, got %v", err)
	}
	if table.Occupied(-1) || table.Occupied(3) {
		t.Errorf("out of range slots reported occupied")
	}
}
