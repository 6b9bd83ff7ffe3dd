package orderstatus

import (
	"strings"
)

type Status struct {
	Name string
}

func (s Status) Code() string {
	return s.Name
}

func (s Status) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// IsTerminal reports whether no transition leaves this status.
func (s Status) IsTerminal() bool {
	return s == Statuses.Completed || s == Statuses.Cancelled
}

type Enum struct {
	Submitted Status
	Ready     Status
	Completed Status
	Cancelled Status
}

var Statuses = Enum{
	Submitted: Status{Name: "submitted"},
	Ready:     Status{Name: "ready"},
	Completed: Status{Name: "completed"},
	Cancelled: Status{Name: "cancelled"},
}

var All = []Status{
	Statuses.Submitted,
	Statuses.Ready,
	Statuses.Completed,
	Statuses.Cancelled,
}

// transitions lists the statuses reachable from each status in one step.
var transitions = map[Status][]Status{
	Statuses.Submitted: {Statuses.Ready, Statuses.Cancelled},
	Statuses.Ready:     {Statuses.Completed},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ByName returns the status for a given name, or nil if not found
func ByName(name string) *Status {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}
