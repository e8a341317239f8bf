package account

import "errors"

var (
	ErrInvalidConfiguration = errors.New("invalid account configuration")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrInsufficientFunds    = errors.New("insufficient funds")
)
