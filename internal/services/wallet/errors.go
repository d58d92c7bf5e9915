package wallet

import "errors"

// Service errors
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrWalletExpired       = errors.New("wallet expired")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnauthorized        = errors.New("actor not authorized for wallet")
	ErrConcurrencyConflict = errors.New("concurrent update conflict")
)
