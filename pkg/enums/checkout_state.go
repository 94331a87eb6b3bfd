package enums

// CheckoutState tracks a single checkout attempt.
type CheckoutState string

const (
	CheckoutIdle       CheckoutState = "idle"
	CheckoutValidating CheckoutState = "validating"
	CheckoutCommitting CheckoutState = "committing"
	CheckoutSuccess    CheckoutState = "success"
	CheckoutFailed     CheckoutState = "failed"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutIdle:       {CheckoutValidating},
	CheckoutValidating: {CheckoutCommitting, CheckoutFailed},
	CheckoutCommitting: {CheckoutSuccess, CheckoutFailed},
}

func (s CheckoutState) String() string { return string(s) }

// IsTerminal reports whether no further transition is allowed.
func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutSuccess || s == CheckoutFailed
}

// CanTransition reports whether next is a legal successor of s.
func (s CheckoutState) CanTransition(next CheckoutState) bool {
	return member(next, checkoutTransitions[s])
}
