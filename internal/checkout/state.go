package checkout

type State string

const (
	StateStarted               State = "Started"
	StatePaymentPending        State = "PaymentPending"
	StatePaymentFailed         State = "PaymentFailed"
	StatePaymentAuthorized     State = "PaymentAuthorized"
	StateInventoryCommitted    State = "InventoryCommitted"
	StateInventoryInsufficient State = "InventoryInsufficient"
)

// validTransitions defines allowed state transitions
var validTransitions = map[State][]State{
	StateStarted:               {StatePaymentPending, StateInventoryInsufficient},
	StatePaymentPending:        {StatePaymentFailed, StatePaymentAuthorized},
	StatePaymentAuthorized:     {StateInventoryCommitted, StateInventoryInsufficient},
	StatePaymentFailed:         {}, // terminal state
	StateInventoryCommitted:    {}, // terminal state
	StateInventoryInsufficient: {}, // terminal state
}

// CanTransitionTo checks if the checkout can move from s to target
func (s State) CanTransitionTo(target State) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

func (s State) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}
