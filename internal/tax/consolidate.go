package tax

import (
	"sort"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/tax-ledger/internal/decimal"
	"github.com/rezonia/tax-ledger/internal/model"
)

// Group is the consolidation of every raw entry sharing scheme and percent
type Group struct {
	SchemeName         string          `json:"scheme_name"`
	SchemeCode         string          `json:"scheme_code,omitempty"`
	Percent            decimal.Decimal `json:"percent"`
	TotalTaxAmount     decimal.Decimal `json:"total_tax_amount"`
	TotalTaxableAmount decimal.Decimal `json:"total_taxable_amount"`
	MemberCount        int             `json:"member_count"`
}

type groupKey struct {
	scheme  string
	percent string
}

// Consolidate groups entries by (scheme name, numeric percent).
//
// Groups come out ordered by scheme name, ties kept in the order their
// percent first appeared. Every entry lands in exactly one group, zero
// amounts included.
func Consolidate(entries []model.RawTaxEntry) []Group {
	index := make(map[groupKey]int, len(entries))
	groups := make([]Group, 0, len(entries))

	for _, e := range entries {
		key := groupKey{scheme: e.SchemeName, percent: money.Key(e.Percent)}
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, Group{
				SchemeName:         e.SchemeName,
				SchemeCode:         e.SchemeCode,
				Percent:            e.Percent,
				TotalTaxAmount:     money.Zero,
				TotalTaxableAmount: money.Zero,
			})
			i = len(groups) - 1
		}
		g := &groups[i]
		g.TotalTaxAmount = g.TotalTaxAmount.Add(e.TaxAmount)
		g.TotalTaxableAmount = g.TotalTaxableAmount.Add(e.TaxableAmount)
		g.MemberCount++
		if g.SchemeCode == "" {
			g.SchemeCode = e.SchemeCode
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].SchemeName < groups[b].SchemeName
	})
	return groups
}
