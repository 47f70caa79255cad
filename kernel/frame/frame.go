// Package frame encodes and decodes the two register frames that make up a
// suspended task's context on its own stack.
//
// The hardware frame is what the processor stacks on exception entry and
// unstacks on exception return. The software frame holds the callee-saved
// registers the processor leaves alone; the context switch stores it directly
// below the hardware frame. In memory, from low to high address:
//
//	sp+0   R4 R5 R6 R7 R8 R9 R10 R11   software frame
//	sp+32  R0 R1 R2 R3 R12 LR PC PSR   hardware frame
package frame

import "errors"

const (
	WordSize = 4

	HardwareWords = 8
	SoftwareWords = 8
	Words         = HardwareWords + SoftwareWords

	HardwareSize = HardwareWords * WordSize
	SoftwareSize = SoftwareWords * WordSize
	Size         = HardwareSize + SoftwareSize
)

const (
	// ThumbState is the EPSR T bit. It must be set or the core faults on return.
	ThumbState uint32 = 1 << 24

	// DefaultPSR selects Thumb state with every condition flag clear.
	DefaultPSR = ThumbState

	// ReturnTrap is stored in LR of a synthesized frame. Returning from a task
	// entry function is undefined and branches here.
	ReturnTrap uint32 = 0
)

// Placeholder values for the argument registers a task entry does not use.
// They make a freshly synthesized frame easy to spot in a memory dump.
const (
	placeholderR1  uint32 = 1
	placeholderR2  uint32 = 2
	placeholderR3  uint32 = 3
	placeholderR12 uint32 = 12
)

var ErrShortBuffer = errors.New("frame: buffer too short")

// Hardware mirrors the exception stack frame pushed by the processor.
type Hardware struct {
	R0  uint32
	R1  uint32
	R2  uint32
	R3  uint32
	R12 uint32
	LR  uint32
	PC  uint32
	PSR uint32
}

// Software holds the callee-saved registers not covered by Hardware.
type Software struct {
	R4  uint32
	R5  uint32
	R6  uint32
	R7  uint32
	R8  uint32
	R9  uint32
	R10 uint32
	R11 uint32
}

// Initial returns the hardware frame that makes exception return land on
// entry with arg in R0.
func Initial(entry uint32, arg uint32) Hardware {
	return Hardware{
		R0:  arg,
		R1:  placeholderR1,
		R2:  placeholderR2,
		R3:  placeholderR3,
		R12: placeholderR12,
		LR:  ReturnTrap,
		PC:  entry,
		PSR: DefaultPSR,
	}
}

func (h Hardware) Words() [HardwareWords]uint32 {
	return [HardwareWords]uint32{h.R0, h.R1, h.R2, h.R3, h.R12, h.LR, h.PC, h.PSR}
}

func (h Hardware) Encode(dst []uint32) error {
	if len(dst) < HardwareWords {
		return ErrShortBuffer
	}
	w := h.Words()
	copy(dst, w[:])
	return nil
}

func DecodeHardware(src []uint32) (Hardware, error) {
	if len(src) < HardwareWords {
		return Hardware{}, ErrShortBuffer
	}
	return Hardware{
		R0:  src[0],
		R1:  src[1],
		R2:  src[2],
		R3:  src[3],
		R12: src[4],
		LR:  src[5],
		PC:  src[6],
		PSR: src[7],
	}, nil
}

func (s Software) Words() [SoftwareWords]uint32 {
	return [SoftwareWords]uint32{s.R4, s.R5, s.R6, s.R7, s.R8, s.R9, s.R10, s.R11}
}

func (s Software) Encode(dst []uint32) error {
	if len(dst) < SoftwareWords {
		return ErrShortBuffer
	}
	w := s.Words()
	copy(dst, w[:])
	return nil
}

func DecodeSoftware(src []uint32) (Software, error) {
	if len(src) < SoftwareWords {
		return Software{}, ErrShortBuffer
	}
	return Software{
		R4:  src[0],
		R5:  src[1],
		R6:  src[2],
		R7:  src[3],
		R8:  src[4],
		R9:  src[5],
		R10: src[6],
		R11: src[7],
	}, nil
}

// Stack is a complete suspended context as it sits in memory.
type Stack struct {
	Software Software
	Hardware Hardware
}

func (s Stack) Encode(dst []uint32) error {
	if len(dst) < Words {
		return ErrShortBuffer
	}
	if err := s.Software.Encode(dst[:SoftwareWords]); err != nil {
		return err
	}
	return s.Hardware.Encode(dst[SoftwareWords:])
}

func DecodeStack(src []uint32) (Stack, error) {
	if len(src) < Words {
		return Stack{}, ErrShortBuffer
	}
	sw, err := DecodeSoftware(src[:SoftwareWords])
	if err != nil {
		return Stack{}, err
	}
	hw, err := DecodeHardware(src[SoftwareWords:])
	if err != nil {
		return Stack{}, err
	}
	return Stack{Software: sw, Hardware: hw}, nil
}
