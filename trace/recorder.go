package trace

import "omibyte.io/nucleus/kernel"

// Recorder is a kernel.Observer that buffers every dispatch. It is called from
// interrupt context, so a full buffer drops events instead of growing.
type Recorder struct {
	events  *Ring[Event]
	clock   func() uint64
	dropped uint64
}

var _ kernel.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder holding up to capacity events. clock stamps
// each event and may be nil.
func NewRecorder(capacity int, clock func() uint64) *Recorder {
	if clock == nil {
		clock = func() uint64 { return 0 }
	}
	return &Recorder{
		events: NewRing[Event](capacity),
		clock:  clock,
	}
}

func (r *Recorder) Dispatched(index int) {
	r.push(Event{Kind: KindDispatch, Cycle: r.clock(), From: -1, To: index})
}

func (r *Recorder) Switched(from int, to int, tick uint64) {
	r.push(Event{Kind: KindSwitch, Tick: tick, Cycle: r.clock(), From: from, To: to})
}

func (r *Recorder) push(e Event) {
	if err := r.events.Push(e); err != nil {
		r.dropped++
	}
}

func (r *Recorder) Events() []Event {
	return r.events.Items()
}

func (r *Recorder) Dropped() uint64 {
	return r.dropped
}

// Sequence returns the task index of every recorded dispatch in order.
func (r *Recorder) Sequence() []int {
	events := r.events.Items()
	seq := make([]int, len(events))
	for i, e := range events {
		seq[i] = e.To
	}
	return seq
}

// Trace snapshots the recording. cycles is the length of the run.
func (r *Recorder) Trace(name string, cycles uint64) Trace {
	return Trace{
		Version: Version,
		Name:    name,
		Cycles:  cycles,
		Dropped: r.dropped,
		Events:  r.events.Items(),
	}
}
