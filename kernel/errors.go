package kernel

import "errors"

var (
	ErrInsufficientStack  = errors.New("stack arena is smaller than the minimum for every task")
	ErrTooManyTasks       = errors.New("task table is full")
	ErrNotInitialized     = errors.New("scheduler is not initialized")
	ErrAlreadyInitialized = errors.New("scheduler is already initialized")
	ErrInvalidStackSize   = errors.New("invalid task stack size")
	ErrInvalidCapacity    = errors.New("invalid task table capacity")
	ErrArenaExhausted     = errors.New("stack arena exhausted")
	ErrArenaAddress       = errors.New("stack arena address out of range")
	ErrOutOfArena         = errors.New("address outside of the stack arena")
	ErrNoSuchTask         = errors.New("no such task")
)
