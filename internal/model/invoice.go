package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Origin tells where in the document a tax entry was found
type Origin string

const (
	OriginLineItem      Origin = "LINE_ITEM"
	OriginDocumentTotal Origin = "DOCUMENT_TOTAL"
)

// DocumentType is the kind of UBL document, named as the ledger reports it
type DocumentType string

const (
	DocumentTypeInvoice    DocumentType = "FACTURA"
	DocumentTypeCreditNote DocumentType = "NOTA DE CRÉDITO"
	DocumentTypeDebitNote  DocumentType = "NOTA DE DÉBITO"
	DocumentTypeUnknown    DocumentType = "DOCUMENTO DESCONOCIDO"
)

// RawTaxEntry is one tax assertion found in the source document.
// Entries are values; nothing mutates them after the parser builds them.
type RawTaxEntry struct {
	SchemeName    string          `json:"scheme_name"`
	SchemeCode    string          `json:"scheme_code,omitempty"`
	Percent       decimal.Decimal `json:"percent"`
	TaxAmount     decimal.Decimal `json:"tax_amount"`
	TaxableAmount decimal.Decimal `json:"taxable_amount"`
	Origin        Origin          `json:"origin"`
}

// Party represents the supplier or the customer of a document
type Party struct {
	Name  string `json:"name,omitempty"`
	TaxID string `json:"tax_id,omitempty"`
}

// MonetaryTotals holds the LegalMonetaryTotal section
type MonetaryTotals struct {
	LineExtension decimal.Decimal `json:"line_extension"`
	TaxExclusive  decimal.Decimal `json:"tax_exclusive"`
	TaxInclusive  decimal.Decimal `json:"tax_inclusive"`
	Payable       decimal.Decimal `json:"payable"`
}

// Invoice is one processed UBL document
type Invoice struct {
	// Header
	DocumentID           string       `json:"document_id"`
	DocumentType         DocumentType `json:"document_type"`
	IssueDate            *time.Time   `json:"issue_date,omitempty"`
	DueDate              *time.Time   `json:"due_date,omitempty"`
	ElectronicDocumentID string       `json:"electronic_document_id,omitempty"`
	Currency             string       `json:"currency,omitempty"`

	// PartyTaxID is the customer tax id (first PartyTaxScheme match)
	PartyTaxID string `json:"party_tax_id,omitempty"`
	Supplier   Party  `json:"supplier"`
	Customer   Party  `json:"customer"`

	Totals MonetaryTotals `json:"totals"`

	// RawTaxEntries holds line-level entries followed by document-level ones.
	// Empty is valid.
	RawTaxEntries []RawTaxEntry `json:"raw_tax_entries"`

	Signed   bool              `json:"signed"`
	Warnings []CoercionWarning `json:"warnings,omitempty"`

	// Metadata
	SourceArchive string `json:"source_archive"`
	SourceFile    string `json:"source_file,omitempty"`
}

// EntriesByOrigin returns the raw entries found at the given level,
// preserving document order.
func (inv *Invoice) EntriesByOrigin(origin Origin) []RawTaxEntry {
	var out []RawTaxEntry
	for _, e := range inv.RawTaxEntries {
		if e.Origin == origin {
			out = append(out, e)
		}
	}
	return out
}

// HasOrigin reports whether any raw entry was found at the given level
func (inv *Invoice) HasOrigin(origin Origin) bool {
	for _, e := range inv.RawTaxEntries {
		if e.Origin == origin {
			return true
		}
	}
	return false
}
