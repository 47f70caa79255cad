// Package trace records scheduler dispatch events, persists them and derives
// fairness statistics from them.
package trace

import "fmt"

type Kind uint8

const (
	KindDispatch Kind = iota + 1
	KindSwitch
)

func (k Kind) String() string {
	switch k {
	case KindDispatch:
		return "dispatch"
	case KindSwitch:
		return "switch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is one task becoming current. From is -1 for the first dispatch.
type Event struct {
	Kind  Kind   `msgpack:"kind"`
	Tick  uint64 `msgpack:"tick"`
	Cycle uint64 `msgpack:"cycle"`
	From  int    `msgpack:"from"`
	To    int    `msgpack:"to"`
}

const Version = 1

// Trace is the persisted form of a recording.
type Trace struct {
	Version int     `msgpack:"version"`
	Name    string  `msgpack:"name,omitempty"`
	Cycles  uint64  `msgpack:"cycles"`
	Dropped uint64  `msgpack:"dropped"`
	Events  []Event `msgpack:"events"`
}
