package checkout

type State string

const (
	StateIdle          State = "IDLE"
	StateKeyFetching   State = "KEY_FETCHING"
	StateOrderCreating State = "ORDER_CREATING"
	StateWidgetOpen    State = "WIDGET_OPEN"
	StateVerifying     State = "VERIFYING"
	StateSettled       State = "SETTLED"
	StateCancelled     State = "CANCELLED"
)

type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

func (s State) Terminal() bool {
	return s == StateSettled || s == StateCancelled
}

// Armed reports whether a new attempt may start from this state.
func (s State) Armed() bool {
	return s == StateIdle || s.Terminal()
}
