package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"omibyte.io/nucleus/kernel"
	"omibyte.io/nucleus/sim"
	"omibyte.io/nucleus/trace"
)

type TaskResult struct {
	Name      string
	Index     int
	StackBase uint32
	StackTop  uint32
	Blocked   bool
}

type Result struct {
	Name       string
	State      kernel.State
	Ticks      uint64
	Cycles     uint64
	Exceptions uint64
	Sequence   []int
	Tasks      []TaskResult
	Trace      trace.Trace
}

// TaskName maps a table index back to the task's name.
func (r Result) TaskName(index int) string {
	for _, task := range r.Tasks {
		if task.Index == index {
			return task.Name
		}
	}
	return fmt.Sprintf("#%d", index)
}

// Run boots the scenario on a fresh simulated core and runs it for its cycle
// budget.
func Run(ctx context.Context, sc Scenario, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger = logger.With("scenario", sc.Name)

	m, err := sim.New(sim.Options{
		ArenaWords:   sc.ArenaWords,
		PriorityBits: sc.PriorityBits,
		Logger:       logger,
	})
	if err != nil {
		return Result{}, err
	}

	rec := trace.NewRecorder(sc.TraceCapacity, m.Cycles)
	s := kernel.New(m, kernel.Options{
		MaxTasks:     sc.MaxTasks,
		MinStackSize: sc.MinStackWords,
		Logger:       logger,
		Observer:     rec,
	})
	m.Attach(s)

	arena, err := m.Arena()
	if err != nil {
		return Result{}, err
	}
	if err = s.Init(arena, sc.Tick); err != nil {
		return Result{}, err
	}

	result := Result{Name: sc.Name}
	for _, task := range sc.Tasks {
		program, err := sim.ProgramByName(task.Program)
		if err != nil {
			return Result{}, err
		}

		index, err := s.AddTask(kernel.NewTask(m.Load(program), task.Arg, task.StackSize, uint32(task.Priority)))
		if err != nil {
			return Result{}, fmt.Errorf("task %q: %w", task.Name, err)
		}
		if task.Blocked {
			if err = s.SetBlocked(index, true); err != nil {
				return Result{}, fmt.Errorf("task %q: %w", task.Name, err)
			}
		}

		tcb, _ := s.Task(index)
		base, _ := tcb.Region()
		result.Tasks = append(result.Tasks, TaskResult{
			Name:      task.Name,
			Index:     index,
			StackBase: base,
			StackTop:  tcb.StackTop,
			Blocked:   task.Blocked,
		})
	}

	s.Start()
	if err = m.Run(ctx, sc.Cycles); err != nil {
		return Result{}, fmt.Errorf("cycle %d: %w", m.Cycles(), err)
	}

	result.State = s.State()
	result.Ticks = s.Ticks()
	result.Cycles = m.Cycles()
	result.Exceptions = m.Exceptions()
	result.Sequence = rec.Sequence()
	result.Trace = rec.Trace(sc.Name, m.Cycles())

	logger.Info("scenario finished",
		"cycles", result.Cycles,
		"ticks", result.Ticks,
		"exceptions", result.Exceptions,
		"dispatches", len(result.Sequence),
		"dropped", rec.Dropped())
	return result, nil
}

// Sweep runs scenarios concurrently, at most jobs at a time. Results are in
// the order of scenarios.
func Sweep(ctx context.Context, scenarios []Scenario, jobs int, logger *slog.Logger) ([]Result, error) {
	results := make([]Result, len(scenarios))
	if len(scenarios) == 0 {
		return results, nil
	}
	if jobs < 1 {
		jobs = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(scenarios)))

	for i, sc := range scenarios {
		g.Go(func(i int, sc Scenario) func() error {
			return func() error {
				result, err := Run(gctx, sc, logger)
				if err != nil {
					return fmt.Errorf("%s: %w", sc.Name, err)
				}
				results[i] = result
				return nil
			}
		}(i, sc))
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
