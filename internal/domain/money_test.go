package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction Tests
// ============================================================================

func TestNewMoney_Valid(t *testing.T) {
	m, err := NewMoney(decimal.NewFromFloat(19.99), "USD")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
	assert.Equal(t, "19.99", m.Amount().StringFixed(2))
	assert.True(t, m.IsValid())
}

func TestNewMoney_NormalizesCurrencyCase(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), " usd ")
	require.NoError(t, err)
	assert.Equal(t, "USD", m.Currency())
}

func TestNewMoney_RoundsToTwoDecimals(t *testing.T) {
	m, err := NewMoney(decimal.RequireFromString("10.005"), "IDR")
	require.NoError(t, err)
	assert.Equal(t, "10.01", m.Amount().StringFixed(2))
}

func TestNewMoney_RejectsNegative(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(-1), "USD")
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

func TestNewMoney_RejectsUnsupportedCurrency(t *testing.T) {
	_, err := NewMoney(decimal.NewFromInt(10), "XYZ")
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

func TestNewMoneyFromString_Valid(t *testing.T) {
	m, err := NewMoneyFromString("250000.50", "IDR")
	require.NoError(t, err)
	assert.Equal(t, "250000.50", m.Amount().StringFixed(2))
}

func TestNewMoneyFromString_RejectsGarbage(t *testing.T) {
	_, err := NewMoneyFromString("ten dollars", "USD")
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

func TestZeroMoney(t *testing.T) {
	m, err := ZeroMoney("EUR")
	require.NoError(t, err)
	assert.True(t, m.IsZero())
	assert.Equal(t, "EUR", m.Currency())
}

func TestMoney_ZeroValueIsInvalid(t *testing.T) {
	var m Money
	assert.False(t, m.IsValid())
}

// ============================================================================
// Arithmetic Tests
// ============================================================================

func TestMoney_Add(t *testing.T) {
	a := mustMoney(t, "10.50", "USD")
	b := mustMoney(t, "4.25", "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "14.75", sum.Amount().StringFixed(2))
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	a := mustMoney(t, "10.00", "USD")
	b := mustMoney(t, "10.00", "EUR")

	_, err := a.Add(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_Subtract(t *testing.T) {
	a := mustMoney(t, "10.00", "USD")
	b := mustMoney(t, "3.50", "USD")

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, "6.50", diff.Amount().StringFixed(2))
}

func TestMoney_Subtract_NegativeResult(t *testing.T) {
	a := mustMoney(t, "3.00", "USD")
	b := mustMoney(t, "5.00", "USD")

	_, err := a.Subtract(b)
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

func TestMoney_Multiply(t *testing.T) {
	m := mustMoney(t, "19.99", "USD")

	total, err := m.Multiply(3)
	require.NoError(t, err)
	assert.Equal(t, "59.97", total.Amount().StringFixed(2))
}

func TestMoney_Multiply_ByZero(t *testing.T) {
	m := mustMoney(t, "19.99", "USD")

	total, err := m.Multiply(0)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestMoney_Multiply_Negative(t *testing.T) {
	m := mustMoney(t, "19.99", "USD")

	_, err := m.Multiply(-2)
	assert.ErrorIs(t, err, ErrInvalidMoney)
}

// ============================================================================
// Comparison Tests
// ============================================================================

func TestMoney_Equal(t *testing.T) {
	a := mustMoney(t, "10.00", "USD")
	b := mustMoney(t, "10.00", "USD")
	c := mustMoney(t, "10.00", "EUR")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestMoney_GreaterThan(t *testing.T) {
	a := mustMoney(t, "10.00", "USD")
	b := mustMoney(t, "5.00", "USD")

	gt, err := a.GreaterThan(b)
	require.NoError(t, err)
	assert.True(t, gt)

	gt, err = b.GreaterThan(a)
	require.NoError(t, err)
	assert.False(t, gt)
}

func TestMoney_GreaterThan_CurrencyMismatch(t *testing.T) {
	a := mustMoney(t, "10.00", "USD")
	b := mustMoney(t, "5.00", "SGD")

	_, err := a.GreaterThan(b)
	assert.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestMoney_String(t *testing.T) {
	m := mustMoney(t, "19.9", "USD")
	assert.Equal(t, "USD 19.90", m.String())
}

// ============================================================================
// Currency Whitelist Tests
// ============================================================================

func TestIsSupportedCurrency(t *testing.T) {
	for _, code := range SupportedCurrencies() {
		assert.True(t, IsSupportedCurrency(code), "expected %q to be supported", code)
	}
	assert.False(t, IsSupportedCurrency("GBP"))
	assert.False(t, IsSupportedCurrency(""))
	assert.False(t, IsSupportedCurrency("usd"))
}

func TestDefaultCurrency_IsSupported(t *testing.T) {
	assert.True(t, IsSupportedCurrency(DefaultCurrency))
}

// mustMoney builds a Money or fails the test.
func mustMoney(t *testing.T, amount, currency string) Money {
	t.Helper()
	m, err := NewMoneyFromString(amount, currency)
	require.NoError(t, err)
	return m
}
