package trace

import (
	"errors"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/stat"
)

var ErrEmptyTrace = errors.New("trace: no events")

// Transition counts switches from one task to another.
type Transition struct {
	From  int
	To    int
	Count int
}

type Report struct {
	Events      int
	Tasks       []int
	Sequence    []int
	Transitions []Transition

	// Components are the strongly connected components of the transition
	// graph, each sorted by task index.
	Components [][]int

	// Dispatches and Shares are per task. A share is the fraction of the
	// observed cycles the task was current.
	Dispatches map[int]int
	Shares     map[int]float64

	// MeanSlice and StdDevSlice describe the cycles between consecutive
	// dispatches. The final, open ended slice is not counted.
	MeanSlice   float64
	StdDevSlice float64

	// Fair is set when every task that ran can reach every other one.
	Fair bool
}

func Analyze(t Trace) (Report, error) {
	if len(t.Events) == 0 {
		return Report{}, ErrEmptyTrace
	}
	if err := t.Validate(); err != nil {
		return Report{}, err
	}

	r := Report{
		Events:     len(t.Events),
		Sequence:   make([]int, len(t.Events)),
		Dispatches: make(map[int]int),
		Shares:     make(map[int]float64),
	}

	g := multi.NewDirectedGraph()
	counts := make(map[[2]int]int)
	current := make(map[int]uint64)
	var durations []float64

	for i, e := range t.Events {
		r.Sequence[i] = e.To
		r.Dispatches[e.To]++
		if g.Node(int64(e.To)) == nil {
			g.AddNode(multi.Node(e.To))
		}

		if i > 0 {
			prev := t.Events[i-1]
			durations = append(durations, float64(e.Cycle-prev.Cycle))
			current[prev.To] += e.Cycle - prev.Cycle

			from := prev.To
			if e.Kind == KindSwitch {
				from = e.From
			}
			g.SetLine(g.NewLine(multi.Node(from), multi.Node(e.To)))
			counts[[2]int{from, e.To}]++
		}
	}

	// The last task is current until the end of the run.
	last := t.Events[len(t.Events)-1]
	if t.Cycles > last.Cycle {
		current[last.To] += t.Cycles - last.Cycle
	}

	var total uint64
	for _, c := range current {
		total += c
	}
	for task, c := range current {
		if total > 0 {
			r.Shares[task] = float64(c) / float64(total)
		}
	}

	r.Tasks = maps.Keys(r.Dispatches)
	slices.Sort(r.Tasks)

	keys := maps.Keys(counts)
	slices.SortFunc(keys, func(a, b [2]int) bool {
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return a[1] < b[1]
	})
	for _, k := range keys {
		r.Transitions = append(r.Transitions, Transition{From: k[0], To: k[1], Count: counts[k]})
	}

	for _, component := range topo.TarjanSCC(g) {
		ids := make([]int, len(component))
		for i, n := range component {
			ids[i] = int(n.ID())
		}
		slices.Sort(ids)
		r.Components = append(r.Components, ids)
	}
	slices.SortFunc(r.Components, func(a, b []int) bool {
		return a[0] < b[0]
	})
	r.Fair = len(r.Components) == 1

	if len(durations) > 0 {
		r.MeanSlice, r.StdDevSlice = stat.MeanStdDev(durations, nil)
		if len(durations) == 1 {
			r.StdDevSlice = 0
		}
	}
	return r, nil
}
