package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/tax-ledger/internal/model"
)

func TestInvoice_Creation(t *testing.T) {
	issued := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	inv := model.Invoice{
		DocumentID:   "001-001-000000123",
		DocumentType: model.DocumentTypeInvoice,
		IssueDate:    &issued,
		PartyTaxID:   "900123456",
		Supplier:     model.Party{Name: "Proveedor XYZ", TaxID: "800111222"},
		Customer:     model.Party{Name: "Empresa ABC", TaxID: "900123456"},
		Currency:     "COP",
	}

	assert.Equal(t, "001-001-000000123", inv.DocumentID)
	assert.Equal(t, model.DocumentTypeInvoice, inv.DocumentType)
	assert.Equal(t, "900123456", inv.Customer.TaxID)
	assert.Nil(t, inv.DueDate)
	assert.Empty(t, inv.RawTaxEntries)
}

func TestInvoice_EntriesByOrigin(t *testing.T) {
	inv := model.Invoice{
		RawTaxEntries: []model.RawTaxEntry{
			{SchemeName: "IVA", Percent: decimal.NewFromInt(19), Origin: model.OriginLineItem},
			{SchemeName: "INC", Percent: decimal.NewFromInt(8), Origin: model.OriginLineItem},
			{SchemeName: "IVA", Percent: decimal.NewFromInt(19), Origin: model.OriginDocumentTotal},
		},
	}

	lines := inv.EntriesByOrigin(model.OriginLineItem)
	require.Len(t, lines, 2)
	assert.Equal(t, "IVA", lines[0].SchemeName)
	assert.Equal(t, "INC", lines[1].SchemeName)

	docs := inv.EntriesByOrigin(model.OriginDocumentTotal)
	require.Len(t, docs, 1)

	assert.True(t, inv.HasOrigin(model.OriginDocumentTotal))
	assert.False(t, (&model.Invoice{}).HasOrigin(model.OriginLineItem))
}

func TestParseError(t *testing.T) {
	err := &model.ParseError{
		Source:  "fv0001.xml",
		Field:   "root",
		Message: "no invoice root",
	}

	require.Contains(t, err.Error(), "fv0001.xml")
	require.Contains(t, err.Error(), "root")
	require.Contains(t, err.Error(), "no invoice root")
}

func TestParseError_WithCause(t *testing.T) {
	cause := assert.AnError
	err := model.NewParseError("", "xml", "malformed", cause)

	require.Contains(t, err.Error(), "[xml]")
	require.ErrorIs(t, err, cause)
}

func TestExtractionError_WrapsNotFound(t *testing.T) {
	err := model.NewExtractionError("attached.xml", "no invoice payload", model.ErrNotFound)

	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Contains(t, err.Error(), "attached.xml")

	var extractionErr *model.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
}

func TestValidationError(t *testing.T) {
	err := model.NewValidationError("processing.concurrency", -1, "min", "must be positive")

	require.Contains(t, err.Error(), "processing.concurrency")
	require.Contains(t, err.Error(), "-1")
	require.Contains(t, err.Error(), "must be positive")
}

func TestCoercionWarning_String(t *testing.T) {
	w := model.CoercionWarning{Field: "TaxAmount", Value: "abc", Reason: "not numeric, using 0"}
	assert.Equal(t, `TaxAmount: not numeric, using 0 (value="abc")`, w.String())

	missing := model.CoercionWarning{Field: "Percent", Reason: "missing, using 0"}
	assert.Equal(t, "Percent: missing, using 0", missing.String())
}
