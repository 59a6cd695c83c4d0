package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPriceUnavailable    = errors.New("reference price unavailable")
	ErrOrderSizeOutOfRange = errors.New("order size out of range")
	ErrInvalidSide         = errors.New("invalid order side")
	ErrPositionNotFound    = errors.New("position not found")
)

// PartialCloseError reports a close-all that cleared only part of the
// ledger. Failed holds the IDs of the positions that remain open and
// likely need individual retry.
type PartialCloseError struct {
	Failed []string
}

func (e *PartialCloseError) Error() string {
	return fmt.Sprintf("failed to close %d position(s)", len(e.Failed))
}
