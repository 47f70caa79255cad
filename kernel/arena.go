package kernel

import (
	"fmt"

	"fortio.org/safecast"

	"omibyte.io/nucleus/kernel/frame"
)

// Arena carves task stacks out of one caller-owned word array. Regions are
// handed out bottom-up in registration order and are never returned.
type Arena struct {
	words []uint32
	base  uint32
	size  uint32
	used  uint32
}

// NewArena wraps words, whose first element lives at address base.
func NewArena(words []uint32, base uint32) (*Arena, error) {
	if base%8 != 0 {
		return nil, fmt.Errorf("%w: base 0x%08X is not 8-byte aligned", ErrArenaAddress, base)
	}

	size, err := safecast.Conv[uint32](len(words) * frame.WordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArenaAddress, err)
	}

	// The top of the last region must still be addressable.
	if uint64(base)+uint64(size) >= 1<<32 {
		return nil, fmt.Errorf("%w: 0x%08X+%d overflows the address space", ErrArenaAddress, base, size)
	}

	return &Arena{
		words: words,
		base:  base,
		size:  size,
	}, nil
}

func (a *Arena) Base() uint32 {
	return a.base
}

// Limit is the first address above the arena.
func (a *Arena) Limit() uint32 {
	return a.base + a.size
}

// Words is the arena length in 32-bit words.
func (a *Arena) Words() int {
	return len(a.words)
}

// Free is the number of bytes not yet allocated.
func (a *Arena) Free() uint32 {
	return a.size - a.used
}

// Allocate reserves size bytes directly above the previous allocation and
// returns the top (highest) address of the region. Stacks grow down from it.
func (a *Arena) Allocate(size uint32) (top uint32, err error) {
	if size > a.Free() {
		return 0, fmt.Errorf("%w: need %d bytes, %d left", ErrArenaExhausted, size, a.Free())
	}
	a.used += size
	return a.base + a.used, nil
}

func (a *Arena) Contains(addr uint32) bool {
	return addr >= a.base && addr < a.Limit()
}

// Slice returns a view of n words starting at addr.
func (a *Arena) Slice(addr uint32, n int) ([]uint32, error) {
	if addr%frame.WordSize != 0 || !a.Contains(addr) {
		return nil, fmt.Errorf("%w: 0x%08X", ErrOutOfArena, addr)
	}
	off := int((addr - a.base) / frame.WordSize)
	if n < 0 || off+n > len(a.words) {
		return nil, fmt.Errorf("%w: 0x%08X+%d words", ErrOutOfArena, addr, n)
	}
	return a.words[off : off+n], nil
}
