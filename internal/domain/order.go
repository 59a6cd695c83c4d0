package domain

import "time"

// Side indicates the direction of a position or order.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Opposite returns the inverse side, used when building closing orders.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// OrderRequest asks for a simulated execution of the given notional size.
type OrderRequest struct {
	Side   Side    `json:"side"`
	Size   float64 `json:"size"`
	Symbol string  `json:"symbol"`
}

// OrderResult is the outcome of a simulated order submission. An order
// never partially fills; it is atomically accepted or rejected.
type OrderResult struct {
	Success        bool      `json:"success"`
	OrderID        string    `json:"order_id"`
	ExecutionPrice float64   `json:"execution_price"`
	FilledAt       time.Time `json:"filled_at"`
	Error          string    `json:"error,omitempty"`
}
