// Package targets is the catalogue of chips the scheduler has been configured
// for: clock, interrupt priority width and the default kernel sizing.
package targets

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"omibyte.io/nucleus/kernel"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

var (
	ErrTargetNotFound = errors.New("target not found")
	ErrInvalidTarget  = errors.New("invalid target")
)

func All() Targets {
	return targets
}

type Targets []TargetInfo
type TargetInfo struct {
	Series       string   `yaml:"series"`
	Chips        []string `yaml:"chips"`
	Cpu          string   `yaml:"cpu"`
	Architecture string   `yaml:"architecture"`
	ClockHz      uint32   `yaml:"clockHz"`
	PriorityBits uint8    `yaml:"priorityBits"`
	SRAMBytes    uint32   `yaml:"sramBytes"`
	TickHz       uint32   `yaml:"tickHz"`
	MaxTasks     int      `yaml:"maxTasks"`
	MinStackSize int      `yaml:"minStackSize"`
}

// Reload returns the SysTick reload value for the target's tick rate.
func (t TargetInfo) Reload() uint32 {
	if t.TickHz == 0 {
		return kernel.ReloadMask
	}
	reload := t.ClockHz/t.TickHz - 1
	if reload > kernel.ReloadMask {
		return kernel.ReloadMask
	}
	return reload
}

func (t TargetInfo) KernelOptions() kernel.Options {
	return kernel.Options{
		MaxTasks:     t.MaxTasks,
		MinStackSize: t.MinStackSize,
	}
}

// ArenaWords is the smallest arena the kernel accepts on this target.
func (t TargetInfo) ArenaWords() int {
	return t.MaxTasks * t.MinStackSize
}

func (t TargetInfo) Validate() error {
	switch {
	case t.Series == "":
		return fmt.Errorf("%w: missing series", ErrInvalidTarget)
	case t.ClockHz == 0 || t.TickHz == 0 || t.TickHz > t.ClockHz:
		return fmt.Errorf("%w: %s: clock %d Hz, tick %d Hz", ErrInvalidTarget, t.Series, t.ClockHz, t.TickHz)
	case t.PriorityBits < 2 || t.PriorityBits > 8:
		return fmt.Errorf("%w: %s: %d priority bits", ErrInvalidTarget, t.Series, t.PriorityBits)
	case t.MaxTasks < 1 || t.MaxTasks > kernel.MaxCapacity:
		return fmt.Errorf("%w: %s: %d tasks", ErrInvalidTarget, t.Series, t.MaxTasks)
	case t.ArenaWords()*4 > int(t.SRAMBytes):
		return fmt.Errorf("%w: %s: arena of %d words exceeds SRAM", ErrInvalidTarget, t.Series, t.ArenaWords())
	}
	return nil
}

func (t Targets) FindBySeries(name string) (TargetInfo, error) {
	for _, target := range t {
		if target.Series == strings.ToLower(name) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: series %q", ErrTargetNotFound, name)
}

func (t Targets) FindByChip(name string) (TargetInfo, error) {
	for _, target := range t {
		if slices.Contains(target.Chips, strings.ToLower(name)) {
			return target, nil
		}
	}
	return TargetInfo{}, fmt.Errorf("%w: chip %q", ErrTargetNotFound, name)
}

// Find looks name up as a series first, then as a chip.
func (t Targets) Find(name string) (TargetInfo, error) {
	if target, err := t.FindBySeries(name); err == nil {
		return target, nil
	}
	return t.FindByChip(name)
}

func parse(raw []byte) (Targets, error) {
	var t struct {
		Elements []TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	for _, target := range t.Elements {
		if err := target.Validate(); err != nil {
			return nil, err
		}
	}
	return t.Elements, nil
}

func init() {
	t, err := parse(rawTargets)
	if err != nil {
		panic(err)
	}
	targets = t
}
