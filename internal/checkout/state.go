package checkout

import (
	"fmt"

	"github.com/pawcircle/pawcircle-backend/pkg/enums"
	pkgerrors "github.com/pawcircle/pawcircle-backend/pkg/errors"
)

// attempt walks one checkout through Idle, Validating, Committing and a terminal state.
type attempt struct {
	state   enums.CheckoutState
	history []enums.CheckoutState
}

func newAttempt() *attempt {
	return &attempt{state: enums.CheckoutIdle, history: []enums.CheckoutState{enums.CheckoutIdle}}
}

func (a *attempt) advance(next enums.CheckoutState) error {
	if !a.state.CanTransition(next) {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("illegal checkout transition %s -> %s", a.state, next))
	}
	a.state = next
	a.history = append(a.history, next)
	return nil
}

// fail moves a non-terminal attempt to Failed.
func (a *attempt) fail() {
	if a.state.IsTerminal() || a.state == enums.CheckoutIdle {
		return
	}
	_ = a.advance(enums.CheckoutFailed)
}
