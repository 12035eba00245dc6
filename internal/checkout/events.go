package checkout

import "time"

const (
	AggregateType          = "Checkout"
	EventCheckoutCompleted = "CheckoutCompleted"
	EventCheckoutFailed    = "CheckoutFailed"
)

type CheckoutCompleted struct {
	SessionID   string     `json:"session_id"`
	Items       []LineItem `json:"items"`
	Total       int64      `json:"total"`
	CompletedAt time.Time  `json:"completed_at"`
}

type CheckoutFailed struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failed_at"`
}
