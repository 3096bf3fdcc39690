package ledger

import (
	"fmt"
	"strings"

	"github.com/rezonia/tax-ledger/internal/model"
)

// Party selects whose tax id fills the Nit column
type Party string

const (
	PartyCustomer Party = "customer"
	PartySupplier Party = "supplier"
)

// OriginPolicy selects which raw entries feed consolidation
type OriginPolicy string

const (
	// OriginsAll uses line and document entries together
	OriginsAll OriginPolicy = "all"
	// OriginsPreferDocument uses document totals when present, lines otherwise
	OriginsPreferDocument OriginPolicy = "prefer_document"
	OriginsLineItems      OriginPolicy = "line_items"
	OriginsDocumentTotals OriginPolicy = "document_totals"
)

// ParseParty validates a party name
func ParseParty(s string) (Party, error) {
	switch p := Party(strings.ToLower(strings.TrimSpace(s))); p {
	case "", PartyCustomer:
		return PartyCustomer, nil
	case PartySupplier:
		return p, nil
	default:
		return "", fmt.Errorf("unknown party %q (want customer or supplier)", s)
	}
}

// ParseOriginPolicy validates an origin policy name
func ParseOriginPolicy(s string) (OriginPolicy, error) {
	switch p := OriginPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", OriginsAll:
		return OriginsAll, nil
	case OriginsPreferDocument, OriginsLineItems, OriginsDocumentTotals:
		return p, nil
	default:
		return "", fmt.Errorf("unknown origin policy %q", s)
	}
}

func (p Party) taxID(inv *model.Invoice) string {
	if p == PartySupplier {
		return inv.Supplier.TaxID
	}
	return inv.PartyTaxID
}

// SelectEntries returns the raw entries of inv allowed by policy, in
// document order.
func SelectEntries(inv *model.Invoice, policy OriginPolicy) []model.RawTaxEntry {
	switch policy {
	case OriginsLineItems:
		return inv.EntriesByOrigin(model.OriginLineItem)
	case OriginsDocumentTotals:
		return inv.EntriesByOrigin(model.OriginDocumentTotal)
	case OriginsPreferDocument:
		if inv.HasOrigin(model.OriginDocumentTotal) {
			return inv.EntriesByOrigin(model.OriginDocumentTotal)
		}
		return inv.EntriesByOrigin(model.OriginLineItem)
	default:
		return inv.RawTaxEntries
	}
}

// Option configures assembly
type Option func(*options)

type options struct {
	party   Party
	origins OriginPolicy
}

func newOptions(opts []Option) *options {
	o := &options{party: PartyCustomer, origins: OriginsAll}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithParty sets whose tax id fills the Nit column
func WithParty(p Party) Option {
	return func(o *options) {
		o.party = p
	}
}

// WithOrigins sets which raw entries feed consolidation
func WithOrigins(p OriginPolicy) Option {
	return func(o *options) {
		o.origins = p
	}
}
