package ledger

import (
	"github.com/shopspring/decimal"

	money "github.com/rezonia/tax-ledger/internal/decimal"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// Summary is derived from a batch of rows; it never alters them
type Summary struct {
	DocumentsProcessed int                            `json:"documents_processed"`
	DocumentsFailed    int                            `json:"documents_failed"`
	Archives           int                            `json:"archives"`
	DistinctDocuments  int                            `json:"distinct_documents"`
	Rows               int                            `json:"rows"`
	RowsByType         map[tax.Status]int             `json:"rows_by_type"`
	BaseByType         map[tax.Status]decimal.Decimal `json:"base_by_type"`
	ValueByType        map[tax.Status]decimal.Decimal `json:"value_by_type"`
	TotalValue         decimal.Decimal                `json:"total_value"`
	TotalBase          decimal.Decimal                `json:"total_base"`
}

// Summarize counts rows and sums amounts per fiscal type. Document and
// archive counts that rows cannot show are left for the caller.
func Summarize(rows []Row) Summary {
	s := Summary{
		Rows:        len(rows),
		RowsByType:  make(map[tax.Status]int, len(tax.Statuses)),
		BaseByType:  make(map[tax.Status]decimal.Decimal, len(tax.Statuses)),
		ValueByType: make(map[tax.Status]decimal.Decimal, len(tax.Statuses)),
		TotalValue:  money.Zero,
		TotalBase:   money.Zero,
	}
	for _, st := range tax.Statuses {
		s.RowsByType[st] = 0
		s.BaseByType[st] = money.Zero
		s.ValueByType[st] = money.Zero
	}

	documents := make(map[string]struct{})
	for _, r := range rows {
		documents[r.Document] = struct{}{}
		s.RowsByType[r.FiscalType]++
		s.BaseByType[r.FiscalType] = s.BaseByType[r.FiscalType].Add(r.Base)
		s.ValueByType[r.FiscalType] = s.ValueByType[r.FiscalType].Add(r.Value)
		s.TotalValue = s.TotalValue.Add(r.Value)
		s.TotalBase = s.TotalBase.Add(r.Base)
	}
	s.DistinctDocuments = len(documents)
	return s
}
