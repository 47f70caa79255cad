package frame

import (
	"errors"
	"testing"
)

func TestInitialLayout(t *testing.T) {
	const (
		entry uint32 = 0x08000101
		arg   uint32 = 0xCAFE
	)

	buf := make([]uint32, HardwareWords)
	if err := Initial(entry, arg).Encode(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := []uint32{arg, 1, 2, 3, 12, ReturnTrap, entry, 0x01000000}
	for i, want := range expected {
		if buf[i] != want {
			t.Errorf("word %d: expected 0x%08X, got 0x%08X", i, want, buf[i])
		}
	}
}

func TestStackLayout(t *testing.T) {
	s := Stack{
		Software: Software{R4: 4, R5: 5, R6: 6, R7: 7, R8: 8, R9: 9, R10: 10, R11: 11},
		Hardware: Hardware{R0: 100, R1: 101, R2: 102, R3: 103, R12: 112, LR: 114, PC: 115, PSR: DefaultPSR},
	}

	buf := make([]uint32, Words)
	if err := s.Encode(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The software frame sits below the hardware frame.
	if buf[0] != 4 || buf[7] != 11 {
		t.Errorf("software frame misplaced: %v", buf[:SoftwareWords])
	}
	if buf[8] != 100 || buf[14] != 115 || buf[15] != DefaultPSR {
		t.Errorf("hardware frame misplaced: %v", buf[SoftwareWords:])
	}

	decoded, err := DecodeStack(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decoded != s {
		t.Errorf("expected %+v, got %+v", s, decoded)
	}
}

func TestShortBuffer(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"hardware encode", func() error { return Hardware{}.Encode(make([]uint32, HardwareWords-1)) }},
		{"software encode", func() error { return Software{}.Encode(nil) }},
		{"stack encode", func() error { return Stack{}.Encode(make([]uint32, Words-1)) }},
		{"hardware decode", func() error { _, err := DecodeHardware(make([]uint32, 3)); return err }},
		{"software decode", func() error { _, err := DecodeSoftware(make([]uint32, 7)); return err }},
		{"stack decode", func() error { _, err := DecodeStack(make([]uint32, 15)); return err }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.fn(); !errors.Is(err, ErrShortBuffer) {
				t.Errorf("expected ErrShortBuffer, got %v", err)
			}
		})
	}
}

func TestSizes(t *testing.T) {
	if HardwareSize != 32 || SoftwareSize != 32 || Size != 64 {
		t.Errorf("unexpected frame sizes: hw=%d sw=%d total=%d", HardwareSize, SoftwareSize, Size)
	}
}
