package service

import (
	"errors"

	"github.com/Skotchmaster/checkout/internal/payment"
)

var (
	ErrNotFound          = errors.New("not found")           // 404
	ErrInvalidState      = errors.New("invalid state")       // 400
	ErrInsufficientStock = errors.New("insufficient stock")  // 400
	ErrConflict          = errors.New("conflict")            // 409
	ErrForbidden         = errors.New("forbidden")           // 403
	ErrInvalidSignature  = errors.New("invalid signature")   // 400, reject before processing
)

// ErrProvider is the remote payment network failure; raw detail stays
// server-side, callers get a generic failure.
var ErrProvider = payment.ErrProvider
