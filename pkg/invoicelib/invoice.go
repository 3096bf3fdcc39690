// Package invoicelib provides a public API for turning UBL e-invoices into
// classified tax ledger rows.
//
// This package exposes the core types and a Processor facade over the
// extraction, consolidation and classification engine.
//
// Example usage:
//
//	proc := invoicelib.NewDefaultProcessor()
//	result, err := proc.ProcessDocument(ctx, "facturas.zip", "fv1.xml", data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, row := range result.Rows {
//	    fmt.Println(row.Detail, row.Value)
//	}
package invoicelib

import (
	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// Re-export core types for public API
type (
	Invoice        = model.Invoice
	RawTaxEntry    = model.RawTaxEntry
	Party          = model.Party
	MonetaryTotals = model.MonetaryTotals
	Origin         = model.Origin
	DocumentType   = model.DocumentType
	TaxGroup       = tax.Group
	Classified     = tax.Classified
	Status         = tax.Status
	Row            = ledger.Row
	Summary        = ledger.Summary
	Reconciliation = ledger.Reconciliation
)

// Re-export origins
const (
	OriginLineItem      = model.OriginLineItem
	OriginDocumentTotal = model.OriginDocumentTotal
)

// Re-export fiscal statuses
const (
	StatusGravado    = tax.StatusGravado
	StatusExento     = tax.StatusExento
	StatusExcluido   = tax.StatusExcluido
	StatusIndefinido = tax.StatusIndefinido
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	ExtractionError = model.ExtractionError
	CoercionWarning = model.CoercionWarning
)

// Re-export sentinels
var (
	ErrNotFound   = model.ErrNotFound
	ErrBatchLimit = model.ErrBatchLimit
)

// Columns is the ledger header in report order
var Columns = ledger.Columns

// Classify returns the fiscal status for a percent, tax amount and taxable base
var Classify = tax.Classify

// TruncateID keeps the last five characters of a document id
var TruncateID = ledger.TruncateID
