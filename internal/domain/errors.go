package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidDeadline   = errors.New("invalid deadline")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrRestrictedField   = errors.New("restricted field")
	ErrInvalidTitle      = errors.New("invalid title")
)
