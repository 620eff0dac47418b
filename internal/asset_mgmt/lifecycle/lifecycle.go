// Package lifecycle defines the borrowing state machine and its transition events.
//
//	[Pending] --approve--> [Approved] --return--> [Returned]
//	[Pending] --reject---> [Rejected]
package lifecycle

import "time"

type State string

const (
	Pending  State = "Pending"
	Approved State = "Approved"
	Rejected State = "Rejected"
	Returned State = "Returned"
)

func (s State) Valid() bool {
	switch s {
	case Pending, Approved, Rejected, Returned:
		return true
	}
	return false
}

func (s State) Terminal() bool { return s == Rejected || s == Returned }

// Active states hold the asset.
func (s State) Active() bool { return s == Pending || s == Approved }

type Transition string

const (
	Create  Transition = "create"
	Approve Transition = "approve"
	Reject  Transition = "reject"
	Return  Transition = "return"
)

var edges = map[Transition]struct{ from, to State }{
	Approve: {Pending, Approved},
	Reject:  {Pending, Rejected},
	Return:  {Approved, Returned},
}

// Next returns the state t leads to from s, or false when t is not allowed from s.
func Next(s State, t Transition) (State, bool) {
	e, ok := edges[t]
	if !ok || e.from != s {
		return "", false
	}
	return e.to, true
}

// From is the only state t may start from.
func From(t Transition) State { return edges[t].from }

// Event is emitted after every committed transition. From is empty for creation.
type Event struct {
	BorrowingID string    `json:"borrowing_id"`
	AssetID     uint64    `json:"asset_id"`
	From        State     `json:"from"`
	To          State     `json:"to"`
	ActorID     string    `json:"actor_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}
