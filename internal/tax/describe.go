package tax

import (
	"fmt"

	money "github.com/rezonia/tax-ledger/internal/decimal"
)

// Classified is a Group with its fiscal status and ledger description
type Classified struct {
	Group
	Status      Status `json:"status"`
	Description string `json:"description"`
}

// Describe renders the ledger label for a classified group
func Describe(g Group, s Status) string {
	if g.SchemeName == "" {
		return fmt.Sprintf("Sin Impuestos - %s", s)
	}
	desc := fmt.Sprintf("%s - Impuesto (%s%%) - %s", g.SchemeName, money.Fixed(g.Percent, 2), s)
	if g.MemberCount > 1 {
		desc += fmt.Sprintf(" - Consolidado (%d líneas)", g.MemberCount)
	}
	return desc
}

// ClassifyGroups classifies and describes each group, keeping order
func ClassifyGroups(groups []Group) []Classified {
	out := make([]Classified, 0, len(groups))
	for _, g := range groups {
		s := Classify(g.Percent, g.TotalTaxAmount, g.TotalTaxableAmount)
		out = append(out, Classified{
			Group:       g,
			Status:      s,
			Description: Describe(g, s),
		})
	}
	return out
}
