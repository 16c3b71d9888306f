package orders

type Status string

const (
	StatusPending          Status = "pending"
	StatusAccepted         Status = "accepted"
	StatusRejected         Status = "rejected"
	StatusProcessing       Status = "processing"
	StatusReadyForDelivery Status = "ready-for-delivery"
	StatusInTransit        Status = "in-transit"
	StatusDelivered        Status = "delivered"
	StatusCancelled        Status = "cancelled"
)

// Transitions maps a status to the statuses reachable from it. A status with
// an empty entry is terminal; a status missing from the table is unknown.
type Transitions map[Status][]Status

var (
	StandardTransitions = Transitions{
		StatusPending:   {StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:  {StatusInTransit, StatusCancelled},
		StatusInTransit: {StatusDelivered, StatusCancelled},
		StatusDelivered: {},
		StatusRejected:  {},
		StatusCancelled: {},
	}

	BulkTransitions = Transitions{
		StatusPending:          {StatusAccepted, StatusRejected, StatusCancelled},
		StatusAccepted:         {StatusProcessing, StatusCancelled},
		StatusProcessing:       {StatusReadyForDelivery},
		StatusReadyForDelivery: {StatusInTransit},
		StatusInTransit:        {StatusDelivered},
		StatusDelivered:        {},
		StatusRejected:         {},
		StatusCancelled:        {},
	}
)

// TableFor returns the transition table used for orders of the given kind.
func TableFor(k Kind) Transitions {
	if k == KindBulk {
		return BulkTransitions
	}
	return StandardTransitions
}

func (t Transitions) Allowed(from Status) []Status {
	return append([]Status(nil), t[from]...)
}

func (t Transitions) CanTransition(from, to Status) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (t Transitions) IsTerminal(s Status) bool {
	next, ok := t[s]
	return ok && len(next) == 0
}

func (t Transitions) Known(s Status) bool {
	_, ok := t[s]
	return ok
}

// Check returns a *TransitionError when to is not reachable from from.
func (t Transitions) Check(from, to Status) error {
	if t.CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to, Allowed: t.Allowed(from)}
}

// Cancellable reports whether a buyer or seller may cancel with restock.
func Cancellable(s Status) bool {
	return s == StatusPending || s == StatusAccepted
}
