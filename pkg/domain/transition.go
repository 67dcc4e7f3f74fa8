package domain

// Action is a client-requested operation on a booking.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionComplete Action = "complete"
	ActionCancel   Action = "cancel"
	ActionPay      Action = "pay"
)

// NeedsConfirmation reports whether the user must confirm before the request is sent.
func (a Action) NeedsConfirmation() bool {
	switch a {
	case ActionDecline, ActionComplete, ActionCancel:
		return true
	}
	return false
}

// Label returns the button label used in views.
func (a Action) Label() string {
	switch a {
	case ActionAccept:
		return "Accept"
	case ActionDecline:
		return "Decline"
	case ActionComplete:
		return "Mark Completed"
	case ActionCancel:
		return "Cancel Booking"
	case ActionPay:
		return "Pay Now"
	}
	return string(a)
}

// Transition is one legal edge of the booking lifecycle.
type Transition struct {
	From   Status
	Actor  Role
	Action Action
	To     Status
}

// Transitions mirrors the server-enforced lifecycle. Terminal statuses have no edges.
var Transitions = []Transition{
	{From: StatusPending, Actor: RoleProvider, Action: ActionAccept, To: StatusConfirmed},
	{From: StatusPending, Actor: RoleProvider, Action: ActionDecline, To: StatusDeclined},
	{From: StatusPending, Actor: RoleUser, Action: ActionCancel, To: StatusCancelled},
	{From: StatusConfirmed, Actor: RoleProvider, Action: ActionComplete, To: StatusCompleted},
	{From: StatusConfirmed, Actor: RoleUser, Action: ActionCancel, To: StatusCancelled},
}

// NextStatus returns the target status of action a by actor from status from.
func NextStatus(from Status, actor Role, a Action) (Status, bool) {
	for _, t := range Transitions {
		if t.From == from && t.Actor == actor && t.Action == a {
			return t.To, true
		}
	}
	return "", false
}

// Allowed reports whether actor may request a on b. Pay is checked against the
// payment overlay rather than the status table.
func Allowed(b Booking, actor Role, a Action) bool {
	if a == ActionPay {
		return actor == RoleUser && b.Payable()
	}
	_, ok := NextStatus(b.Status, actor, a)
	return ok
}

// Actions returns the actions actor may request on b, in display order.
func Actions(b Booking, actor Role) []Action {
	var out []Action
	for _, t := range Transitions {
		if t.From == b.Status && t.Actor == actor {
			out = append(out, t.Action)
		}
	}
	if Allowed(b, actor, ActionPay) {
		out = append(out, ActionPay)
	}
	return out
}

// ProviderStatusFor maps a provider action to the status sent to the status endpoint.
func ProviderStatusFor(a Action) (Status, bool) {
	switch a {
	case ActionAccept:
		return StatusConfirmed, true
	case ActionDecline:
		return StatusDeclined, true
	case ActionComplete:
		return StatusCompleted, true
	}
	return "", false
}
