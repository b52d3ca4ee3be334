package model

import (
	"math"
	"strings"
	"time"
)

// Transaction represents a single revenue event from the payment processor
// feed. Transactions are created externally and are read-only to this engine.
type Transaction struct {
	Date           time.Time
	ID             string
	OrganizationID string
	Refcode        string // Free-text tracking token; may be empty
	Donor          string // Cleaned donor descriptor, display only
	Amount         float64
}

// NormalizedRefcode returns the refcode lower-cased and trimmed, the form
// used everywhere attribution membership is decided. Returns "" when the
// transaction carries no usable refcode.
func (t *Transaction) NormalizedRefcode() string {
	return NormalizeRefcode(t.Refcode)
}

// AmountCents returns the transaction amount in integer cents. Revenue
// summation happens in cents to avoid floating-point drift across large
// transaction sets.
func (t *Transaction) AmountCents() int64 {
	return CentsFromAmount(t.Amount)
}

// NormalizeRefcode lower-cases and trims a refcode token.
func NormalizeRefcode(refcode string) string {
	return strings.ToLower(strings.TrimSpace(refcode))
}

// CentsFromAmount converts a currency amount to integer cents, rounding to
// the nearest cent.
func CentsFromAmount(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// AmountFromCents converts integer cents back to a currency amount.
func AmountFromCents(cents int64) float64 {
	return float64(cents) / 100
}
