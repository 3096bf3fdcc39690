package ledger

import (
	"fmt"

	"github.com/rezonia/tax-ledger/internal/model"
)

// Validation is the outcome of checking one document before booking it
type Validation struct {
	DocumentID     string         `json:"document_id"`
	Valid          bool           `json:"valid"`
	Reconciliation Reconciliation `json:"reconciliation"`
	Errors         []string       `json:"errors,omitempty"`
	Warnings       []string       `json:"warnings,omitempty"`
}

// Validate reconciles inv and flags missing identifiers. A declared total
// that disagrees with the extracted taxes invalidates the document; rate
// inconsistencies and coercions are warnings.
func Validate(inv *model.Invoice) Validation {
	v := Validation{
		DocumentID:     inv.DocumentID,
		Reconciliation: Reconcile(inv),
	}
	r := v.Reconciliation

	if inv.DocumentID == "" {
		v.Errors = append(v.Errors, "missing document id")
	}
	if inv.IssueDate == nil {
		v.Warnings = append(v.Warnings, "missing issue date")
	}
	if inv.PartyTaxID == "" {
		v.Warnings = append(v.Warnings, "missing customer tax id")
	}
	if len(inv.RawTaxEntries) == 0 {
		v.Warnings = append(v.Warnings, "document has no tax entries")
	}

	if !r.HasTotals {
		v.Warnings = append(v.Warnings, "document declares no monetary totals")
	} else if !r.Balanced {
		v.Errors = append(v.Errors, fmt.Sprintf("declared tax %s differs from extracted tax %s",
			r.Declared.String(), r.Extracted.String()))
	}
	for _, inc := range r.Inconsistencies {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%s: expected %s, found %s",
			inc.Description, inc.Expected.String(), inc.Actual.String()))
	}
	for _, w := range inv.Warnings {
		v.Warnings = append(v.Warnings, w.String())
	}

	v.Valid = len(v.Errors) == 0
	return v
}
