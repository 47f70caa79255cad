// Package kernel is a preemptive round-robin task scheduler for single-core
// Cortex-M class processors.
//
// Tasks are registered once at boot with their own stack carved from an arena.
// A periodic tick selects the next ready task and raises a lowest-priority
// deferred interrupt, which performs the actual register save and restore.
// Every platform dependency goes through Port.
package kernel

import (
	"io"
	"log/slog"
)

const (
	DefaultMaxTasks     = 2
	DefaultMinStackSize = 128 // words per task

	// ReloadMask is the width of the tick reload register.
	ReloadMask uint32 = 0x00FFFFFF

	// StackAlignment is the AAPCS stack alignment in bytes.
	StackAlignment = 8
)

// Options configures a Scheduler. Zero values select the defaults.
type Options struct {
	MaxTasks     int
	MinStackSize int // words per task required of the arena
	Logger       *slog.Logger
	Observer     Observer
}

func (o Options) withDefaults() Options {
	if o.MaxTasks == 0 {
		o.MaxTasks = DefaultMaxTasks
	}
	if o.MinStackSize == 0 {
		o.MinStackSize = DefaultMinStackSize
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return o
}

// Observer is notified from interrupt context whenever a task is dispatched.
// Implementations must not block.
type Observer interface {
	Dispatched(index int)
	Switched(from int, to int, tick uint64)
}

type nopObserver struct{}

func (nopObserver) Dispatched(int)            {}
func (nopObserver) Switched(int, int, uint64) {}
