package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/tax-ledger/internal/decimal"
	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// Tolerance is the largest difference, in currency units, treated as rounding
var Tolerance = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// Inconsistency flags a consolidated tax whose amount does not match
// base × percent.
type Inconsistency struct {
	Description string          `json:"description"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
}

// Reconciliation compares the taxes found in a document with the totals it
// declares.
type Reconciliation struct {
	DocumentID string `json:"document_id"`
	// Declared is TaxInclusive minus TaxExclusive from the monetary totals
	Declared decimal.Decimal `json:"declared"`
	// Extracted sums document-level tax amounts, or line-level amounts when
	// the document has no TaxTotal of its own.
	Extracted       decimal.Decimal `json:"extracted"`
	Difference      decimal.Decimal `json:"difference"`
	Balanced        bool            `json:"balanced"`
	HasTotals       bool            `json:"has_totals"`
	Inconsistencies []Inconsistency `json:"inconsistencies,omitempty"`
}

// Reconcile checks inv against its own declared totals and checks each
// consolidated tax for rate consistency.
func Reconcile(inv *model.Invoice) Reconciliation {
	entries := SelectEntries(inv, OriginsPreferDocument)

	amounts := make([]decimal.Decimal, len(entries))
	for i, e := range entries {
		amounts[i] = e.TaxAmount
	}
	extracted := money.Sum(amounts)

	t := inv.Totals
	r := Reconciliation{
		DocumentID: inv.DocumentID,
		Declared:   t.TaxInclusive.Sub(t.TaxExclusive),
		Extracted:  extracted,
		HasTotals:  !t.TaxInclusive.IsZero() || !t.TaxExclusive.IsZero(),
	}
	r.Difference = r.Extracted.Sub(r.Declared)
	r.Balanced = !r.HasTotals || r.Difference.Abs().LessThanOrEqual(Tolerance)

	for _, c := range tax.ClassifyGroups(tax.Consolidate(entries)) {
		if !money.IsPositive(c.Percent) || !money.IsPositive(c.TotalTaxableAmount) {
			continue
		}
		expected := c.TotalTaxableAmount.Mul(c.Percent).Div(hundred)
		if expected.Sub(c.TotalTaxAmount).Abs().GreaterThan(Tolerance) {
			r.Inconsistencies = append(r.Inconsistencies, Inconsistency{
				Description: c.Description,
				Expected:    expected.Round(2),
				Actual:      c.TotalTaxAmount,
			})
		}
	}
	return r
}

func (r Reconciliation) String() string {
	if !r.HasTotals {
		return fmt.Sprintf("%s: no monetary totals declared, extracted %s", r.DocumentID, money.Fixed(r.Extracted, 2))
	}
	state := "balanced"
	if !r.Balanced {
		state = "MISMATCH"
	}
	return fmt.Sprintf("%s: declared %s, extracted %s, difference %s (%s)",
		r.DocumentID, money.Fixed(r.Declared, 2), money.Fixed(r.Extracted, 2), money.Fixed(r.Difference, 2), state)
}
