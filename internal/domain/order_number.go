package domain

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
)

// OrderNumber is the human-facing order identifier, e.g. ORD-20250131-7KQ2M.
type OrderNumber string

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[A-Z0-9]{5,}$`)

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber produces a new order number for the current date.
// Uniqueness is enforced by the repository's unique index; the 5-char suffix
// makes collisions within a day rare enough to retry on conflict.
func GenerateOrderNumber() OrderNumber {
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))] // #nosec G404 -- order numbers are not secrets
	}
	return OrderNumber(fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix))
}

// ParseOrderNumber normalizes and validates an order number string.
func ParseOrderNumber(s string) (OrderNumber, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if !orderNumberPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidOrderNumber, s)
	}
	return OrderNumber(normalized), nil
}

func (n OrderNumber) String() string { return string(n) }
