package models

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidMoney = errors.New("invalid money amount")

// Money is an amount in minor currency units (cents, paise). Every price
// crossing the API boundary is parsed into this type once; nothing
// downstream handles raw floats or mixed units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// NewMoney validates and normalizes a minor-unit amount.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount <= 0 {
		return Money{}, fmt.Errorf("%w: %d", ErrInvalidMoney, amount)
	}
	currency = strings.ToLower(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, fmt.Errorf("%w: currency %q", ErrInvalidMoney, currency)
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Amount, strings.ToUpper(m.Currency))
}
