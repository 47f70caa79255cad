// Package scenario describes a simulated boot in a TOML file: the target, the
// stack arena, the tick period and the tasks to register.
package scenario

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"omibyte.io/nucleus/kernel"
	"omibyte.io/nucleus/sim"
	"omibyte.io/nucleus/targets"
)

var ErrInvalidScenario = errors.New("invalid scenario")

const (
	DefaultArenaWords    = 256
	DefaultTick          = 5000
	DefaultCycles        = 20000
	DefaultStackSize     = 128
	DefaultProgram       = "counter"
	DefaultPriorityBits  = 3
	DefaultTraceCapacity = 4096
)

type Scenario struct {
	Name          string `toml:"name"`
	Target        string `toml:"target"`
	ArenaWords    int    `toml:"arena_words"`
	MaxTasks      int    `toml:"max_tasks"`
	MinStackWords int    `toml:"min_stack_words"`
	PriorityBits  uint8  `toml:"priority_bits"`
	Tick          uint32 `toml:"tick"`
	Cycles        uint64 `toml:"cycles"`
	TraceCapacity int    `toml:"trace_capacity"`
	Tasks         []Task `toml:"task"`
}

type Task struct {
	Name      string `toml:"name"`
	Program   string `toml:"program"`
	Arg       uint32 `toml:"arg"`
	StackSize uint32 `toml:"stack_size"`
	Priority  uint8  `toml:"priority"`
	Blocked   bool   `toml:"blocked"`
}

// Default is the reference boot: a 256 word arena, two 128 byte tasks and a
// tick reload of 5000.
func Default() Scenario {
	return Scenario{
		Name:          "default",
		ArenaWords:    DefaultArenaWords,
		MaxTasks:      kernel.DefaultMaxTasks,
		MinStackWords: kernel.DefaultMinStackSize,
		PriorityBits:  DefaultPriorityBits,
		Tick:          DefaultTick,
		Cycles:        DefaultCycles,
		TraceCapacity: DefaultTraceCapacity,
		Tasks: []Task{
			{Name: "a", Program: DefaultProgram, Arg: 1, StackSize: DefaultStackSize},
			{Name: "b", Program: DefaultProgram, Arg: 2, StackSize: DefaultStackSize},
		},
	}
}

func Load(path string) (Scenario, error) {
	var sc Scenario
	meta, err := toml.DecodeFile(path, &sc)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return finish(path, sc, meta)
}

func Parse(name string, data string) (Scenario, error) {
	var sc Scenario
	meta, err := toml.Decode(data, &sc)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	return finish(name, sc, meta)
}

func finish(source string, sc Scenario, meta toml.MetaData) (Scenario, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Scenario{}, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidScenario, source, strings.Join(keys, ", "))
	}
	if sc.Name == "" {
		sc.Name = source
	}
	if err := sc.applyDefaults(); err != nil {
		return Scenario{}, err
	}
	if err := sc.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", source, err)
	}
	return sc, nil
}

// applyDefaults fills unset fields from the target, if any, then from the
// reference boot.
func (sc *Scenario) applyDefaults() error {
	if sc.Target != "" {
		target, err := targets.All().Find(sc.Target)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
		if sc.MaxTasks == 0 {
			sc.MaxTasks = target.MaxTasks
		}
		if sc.MinStackWords == 0 {
			sc.MinStackWords = target.MinStackSize
		}
		if sc.PriorityBits == 0 {
			sc.PriorityBits = target.PriorityBits
		}
		if sc.Tick == 0 {
			sc.Tick = target.Reload()
		}
		if sc.ArenaWords == 0 {
			sc.ArenaWords = target.ArenaWords()
		}
	}

	if sc.ArenaWords == 0 {
		sc.ArenaWords = DefaultArenaWords
	}
	if sc.MaxTasks == 0 {
		sc.MaxTasks = kernel.DefaultMaxTasks
	}
	if sc.MinStackWords == 0 {
		sc.MinStackWords = kernel.DefaultMinStackSize
	}
	if sc.PriorityBits == 0 {
		sc.PriorityBits = DefaultPriorityBits
	}
	if sc.Tick == 0 {
		sc.Tick = DefaultTick
	}
	if sc.Cycles == 0 {
		sc.Cycles = DefaultCycles
	}
	if sc.TraceCapacity == 0 {
		sc.TraceCapacity = DefaultTraceCapacity
	}
	for i := range sc.Tasks {
		task := &sc.Tasks[i]
		if task.Name == "" {
			task.Name = fmt.Sprintf("task%d", i)
		}
		if task.Program == "" {
			task.Program = DefaultProgram
		}
		if task.StackSize == 0 {
			task.StackSize = DefaultStackSize
		}
	}
	return nil
}

// Validate checks what can be checked without booting. Arena sizing and
// capacity are left to the kernel so that a scenario can exercise them.
func (sc Scenario) Validate() error {
	switch {
	case sc.ArenaWords <= 0:
		return fmt.Errorf("%w: arena of %d words", ErrInvalidScenario, sc.ArenaWords)
	case sc.Tick == 0 || sc.Tick > kernel.ReloadMask:
		return fmt.Errorf("%w: tick %d outside 1..%d", ErrInvalidScenario, sc.Tick, kernel.ReloadMask)
	case sc.PriorityBits < 2 || sc.PriorityBits > 8:
		return fmt.Errorf("%w: %d priority bits", ErrInvalidScenario, sc.PriorityBits)
	}

	names := make(map[string]bool, len(sc.Tasks))
	ready := len(sc.Tasks) == 0
	for _, task := range sc.Tasks {
		ready = ready || !task.Blocked
		if names[task.Name] {
			return fmt.Errorf("%w: duplicate task %q", ErrInvalidScenario, task.Name)
		}
		names[task.Name] = true

		if _, err := sim.ProgramByName(task.Program); err != nil {
			return fmt.Errorf("%w: task %q: %v", ErrInvalidScenario, task.Name, err)
		}
	}

	// With no ready task the selector never returns.
	if !ready {
		return fmt.Errorf("%w: every task is blocked", ErrInvalidScenario)
	}
	return nil
}
