package sim

import (
	"fmt"

	"omibyte.io/nucleus/kernel/frame"
)

type bank struct {
	name  string
	base  uint32
	words []uint32
}

func (b *bank) contains(addr uint32) bool {
	return addr >= b.base && uint64(addr) < uint64(b.base)+uint64(len(b.words))*frame.WordSize
}

// slice returns n words at addr from whichever bank holds addr.
func (m *Machine) slice(addr uint32, n int) ([]uint32, error) {
	if addr%frame.WordSize != 0 {
		return nil, fmt.Errorf("%w: unaligned access at 0x%08X", ErrBusFault, addr)
	}
	for i := range m.banks {
		b := &m.banks[i]
		if !b.contains(addr) {
			continue
		}
		off := int((addr - b.base) / frame.WordSize)
		if off+n > len(b.words) {
			return nil, fmt.Errorf("%w: %d words at 0x%08X overrun %s", ErrBusFault, n, addr, b.name)
		}
		return b.words[off : off+n], nil
	}
	return nil, fmt.Errorf("%w: no memory at 0x%08X", ErrBusFault, addr)
}

// Read returns a copy of n words starting at addr.
func (m *Machine) Read(addr uint32, n int) ([]uint32, error) {
	words, err := m.slice(addr, n)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	copy(out, words)
	return out, nil
}

func (m *Machine) push(sp uint32, hw frame.Hardware) (uint32, error) {
	sp -= frame.HardwareSize
	words, err := m.slice(sp, frame.HardwareWords)
	if err != nil {
		return 0, err
	}
	return sp, hw.Encode(words)
}

func (m *Machine) pop(sp uint32) (frame.Hardware, uint32, error) {
	words, err := m.slice(sp, frame.HardwareWords)
	if err != nil {
		return frame.Hardware{}, 0, err
	}
	hw, err := frame.DecodeHardware(words)
	if err != nil {
		return frame.Hardware{}, 0, err
	}
	return hw, sp + frame.HardwareSize, nil
}
