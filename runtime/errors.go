package runtime

import "errors"

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrAccountExists       = errors.New("account already exists")
	ErrNoContract          = errors.New("account has no contract deployed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrExceededPrepaidGas  = errors.New("exceeded prepaid gas")
	ErrReceiptNotFound     = errors.New("receipt not found")
	ErrReceiptPending      = errors.New("receipt has not been executed yet")
	ErrMethodNotFound      = errors.New("method not found")
	ErrStateChangeInView   = errors.New("state change is not allowed in view call")
	ErrBalanceOverflow     = errors.New("balance overflows")
)
