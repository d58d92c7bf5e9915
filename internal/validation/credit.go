package validation

import (
	"errors"
	"fmt"

	"finwell/internal/models"
)

var ErrInvalidCreditAmount = errors.New("credit amount must be a positive integer")

// ValidateCreditAmount rejects non-positive amounts once at the API
// boundary; the services re-check before writing.
func ValidateCreditAmount(amount int64) error {
	if amount <= 0 {
		return ErrInvalidCreditAmount
	}
	return nil
}

// ValidateCreditKind rejects unknown credit kinds.
func ValidateCreditKind(kind models.CreditKind) error {
	if !models.ValidCreditKind(kind) {
		return fmt.Errorf("unknown credit kind %q", kind)
	}
	return nil
}
