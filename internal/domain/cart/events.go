package cart

import "time"

const (
	EventCartUpdated = "CartUpdated"
	EventCartCleared = "CartCleared"
)

type CartUpdated struct {
	SessionID string    `json:"session_id"`
	ProductID int       `json:"product_id"`
	Delta     int       `json:"delta"`
	Quantity  int       `json:"quantity"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CartCleared struct {
	SessionID string    `json:"session_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
