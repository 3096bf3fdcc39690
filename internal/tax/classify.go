package tax

import (
	"github.com/shopspring/decimal"

	money "github.com/rezonia/tax-ledger/internal/decimal"
)

// Status is the fiscal classification of a consolidated tax
type Status string

const (
	StatusGravado    Status = "GRAVADO"
	StatusExento     Status = "EXENTO"
	StatusExcluido   Status = "EXCLUIDO"
	StatusIndefinido Status = "INDEFINIDO"
)

// Statuses lists every classification in report order
var Statuses = []Status{StatusGravado, StatusExento, StatusExcluido, StatusIndefinido}

// Rule is one entry of the ordered classification table
type Rule struct {
	Name   string
	Match  func(percent, taxAmount, taxableAmount decimal.Decimal) bool
	Status Status
}

// Rules is evaluated top to bottom and the first match wins. Conditions
// overlap, so the order is part of the contract: a zero taxable base is
// EXCLUIDO whatever the percent or amount.
var Rules = []Rule{
	{
		Name: "negative input",
		Match: func(p, t, b decimal.Decimal) bool {
			return money.IsNegative(p) || money.IsNegative(t) || money.IsNegative(b)
		},
		Status: StatusIndefinido,
	},
	{
		Name:   "no taxable base",
		Match:  func(p, t, b decimal.Decimal) bool { return b.IsZero() },
		Status: StatusExcluido,
	},
	{
		Name:   "rate and tax charged",
		Match:  func(p, t, b decimal.Decimal) bool { return money.IsPositive(p) && money.IsPositive(t) },
		Status: StatusGravado,
	},
	{
		Name:   "rate without tax",
		Match:  func(p, t, b decimal.Decimal) bool { return money.IsPositive(p) && t.IsZero() },
		Status: StatusExento,
	},
	{
		Name:   "zero rate with base",
		Match:  func(p, t, b decimal.Decimal) bool { return p.IsZero() && money.IsPositive(b) },
		Status: StatusExento,
	},
}

// Classify returns the status of the first matching rule, INDEFINIDO when
// none matches.
func Classify(percent, taxAmount, taxableAmount decimal.Decimal) Status {
	status, _ := ClassifyRule(percent, taxAmount, taxableAmount)
	return status
}

// ClassifyRule is Classify that also returns the name of the deciding rule,
// or "" when the fallback applied.
func ClassifyRule(percent, taxAmount, taxableAmount decimal.Decimal) (Status, string) {
	for _, r := range Rules {
		if r.Match(percent, taxAmount, taxableAmount) {
			return r.Status, r.Name
		}
	}
	return StatusIndefinido, ""
}
