package coordinator

import "fmt"

// State is the position of one event in the switching pipeline:
//
//	Idle -> Configuring -> TableReady -> Delegated -> Completed
//	           |
//	           +-> Rejected
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateTableReady
	StateDelegated
	StateCompleted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateTableReady:
		return "table-ready"
	case StateDelegated:
		return "delegated"
	case StateCompleted:
		return "completed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Terminal reports whether no further transition can follow.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateRejected
}
