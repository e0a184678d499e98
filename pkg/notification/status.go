package notification

// Status is the delivery lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusRead      Status = "read"
	StatusClicked   Status = "clicked"
	StatusDismissed Status = "dismissed"
)

// statusRank orders states along the engagement progression. Transitions only
// move forward; a late event for an earlier state is a no-op for status while
// its timestamp may still be backfilled.
var statusRank = map[Status]int{
	StatusScheduled: 0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusFailed:    2,
	StatusRead:      3,
	StatusClicked:   4,
	StatusDismissed: 4,
}

// terminal states accept no further status change.
var terminal = map[Status]bool{
	StatusClicked:   true,
	StatusDismissed: true,
	StatusFailed:    true,
}

// CanTransition reports whether a delivery in state from may move to state to.
// Dismissal is allowed from any non-terminal state; everything else must move
// strictly forward along the rank order, and failed deliveries never recover.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if terminal[from] {
		return false
	}
	if to == StatusDismissed {
		return true
	}
	if from == StatusFailed {
		return false
	}
	return statusRank[to] > statusRank[from]
}

// IsTerminal reports whether no further status transition is possible.
func (s Status) IsTerminal() bool {
	return terminal[s]
}
