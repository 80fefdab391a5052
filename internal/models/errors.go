package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by storage, services and the HTTP layer.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("concurrent modification")
	ErrInvalid           = errors.New("invalid input")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrWarrantyExpired   = errors.New("warranty expired")
	ErrForbidden         = errors.New("admin access required")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// Invalidf formats a validation message that wraps ErrInvalid.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalid)...)
}
