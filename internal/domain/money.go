package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Supported currency codes.
const (
	CurrencyIDR = "IDR"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencySGD = "SGD"
	CurrencyMYR = "MYR"
)

// DefaultCurrency is used when an order is created without an explicit currency.
const DefaultCurrency = CurrencyIDR

// SupportedCurrencies returns all currency codes accepted by Money.
func SupportedCurrencies() []string {
	return []string{CurrencyIDR, CurrencyUSD, CurrencyEUR, CurrencySGD, CurrencyMYR}
}

// IsSupportedCurrency checks whether the given code is in the whitelist.
func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies() {
		if c == code {
			return true
		}
	}
	return false
}

// Money is a non-negative monetary amount in a single currency.
// Amounts are rounded to 2 decimal places at construction, so every
// observable value is already normalized. The zero value is invalid;
// construct through NewMoney or ZeroMoney.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// NewMoney validates and normalizes a monetary amount.
func NewMoney(amount decimal.Decimal, currency string) (Money, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !IsSupportedCurrency(code) {
		return Money{}, fmt.Errorf("%w: unsupported currency %q", ErrInvalidMoney, currency)
	}
	if amount.IsNegative() {
		return Money{}, fmt.Errorf("%w: amount %s is negative", ErrInvalidMoney, amount)
	}
	return Money{amount: amount.Round(2), currency: code}, nil
}

// NewMoneyFromString parses a decimal string into Money.
func NewMoneyFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidMoney, amount)
	}
	return NewMoney(d, currency)
}

// ZeroMoney returns a zero amount in the given currency.
func ZeroMoney(currency string) (Money, error) {
	return NewMoney(decimal.Zero, currency)
}

// Amount returns the normalized decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO currency code.
func (m Money) Currency() string { return m.currency }

// IsValid reports whether the value was built through a constructor.
func (m Money) IsValid() bool { return m.currency != "" }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// Add returns the sum of two amounts in the same currency.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference of two amounts in the same currency.
// A result below zero is an error, not a silent negative value.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	result := m.amount.Sub(other.amount)
	if result.IsNegative() {
		return Money{}, fmt.Errorf("%w: %s %s - %s would be negative",
			ErrInvalidMoney, m.currency, m.amount, other.amount)
	}
	return Money{amount: result, currency: m.currency}, nil
}

// Multiply scales the amount by a non-negative integer quantity.
func (m Money) Multiply(quantity int) (Money, error) {
	if quantity < 0 {
		return Money{}, fmt.Errorf("%w: multiplier %d is negative", ErrInvalidMoney, quantity)
	}
	return Money{amount: m.amount.Mul(decimal.NewFromInt(int64(quantity))).Round(2), currency: m.currency}, nil
}

// Equal reports whether two values have the same currency and amount.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// GreaterThan reports whether m exceeds other. Both must share a currency.
func (m Money) GreaterThan(other Money) (bool, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return false, err
	}
	return m.amount.GreaterThan(other.amount), nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.currency, m.amount.StringFixed(2))
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return nil
}
