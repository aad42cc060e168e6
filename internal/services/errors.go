package services

import (
	"errors"

	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrInsufficientFunds = errors.New("insufficient platform funds")
	ErrValidation        = errors.New("invalid input")
	ErrDuplicate         = errors.New("duplicate record")
)

// IsDomainError reports whether err is one of the service sentinel errors
func IsDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidState) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicate)
}

// translateDBError maps persistence failures onto domain errors so callers
// never see raw store internals.
func translateDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrValidation
	default:
		return err
	}
}
