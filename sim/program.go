package sim

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Counter returns a task body that counts its steps in R4 and folds the
// previous values of R4-R11 and its argument into R5-R11. Any register lost
// across a context switch changes every later value.
func Counter() Program {
	return func(r *Registers) {
		r.R[4]++
		for i := 5; i <= 11; i++ {
			r.R[i] = r.R[i]*31 + r.R[i-1] + r.R[0]
		}
	}
}

// Idle returns a task body that does nothing, forever.
func Idle() Program {
	return func(*Registers) {}
}

// Returning returns a task body that returns from its entry after steps steps.
func Returning(steps uint32) Program {
	return func(r *Registers) {
		r.R[4]++
		if r.R[4] >= steps {
			r.PC = r.LR
		}
	}
}

var programs = map[string]func() Program{
	"counter": Counter,
	"idle":    Idle,
}

// ProgramByName returns a fresh instance of a named task body.
func ProgramByName(name string) (Program, error) {
	fn, ok := programs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownProgram, name, ProgramNames())
	}
	return fn(), nil
}

func ProgramNames() []string {
	names := maps.Keys(programs)
	slices.Sort(names)
	return names
}
