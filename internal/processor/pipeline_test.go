package processor_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// invoiceXML builds a minimal UBL invoice with one document-level TaxTotal
// holding the given subtotals (scheme, percent, tax, taxable).
func invoiceXML(id string, subtotals ...[4]string) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<Invoice xmlns="urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">`)
	fmt.Fprintf(&sb, `<cbc:ID>%s</cbc:ID><cbc:UUID>uuid-%s</cbc:UUID><cbc:IssueDate>2024-01-15</cbc:IssueDate><cbc:DueDate>2024-02-15</cbc:DueDate>`, id, id)
	sb.WriteString(`<cac:AccountingSupplierParty><cac:Party><cac:PartyTaxScheme><cbc:CompanyID>800111222</cbc:CompanyID></cac:PartyTaxScheme></cac:Party></cac:AccountingSupplierParty>`)
	sb.WriteString(`<cac:AccountingCustomerParty><cac:Party><cac:PartyTaxScheme><cbc:CompanyID>900123456</cbc:CompanyID></cac:PartyTaxScheme></cac:Party></cac:AccountingCustomerParty>`)
	if len(subtotals) > 0 {
		sb.WriteString(`<cac:TaxTotal>`)
		for _, st := range subtotals {
			fmt.Fprintf(&sb, `<cac:TaxSubtotal><cbc:TaxableAmount>%s</cbc:TaxableAmount><cbc:TaxAmount>%s</cbc:TaxAmount><cac:TaxCategory><cbc:Percent>%s</cbc:Percent><cac:TaxScheme><cbc:Name>%s</cbc:Name></cac:TaxScheme></cac:TaxCategory></cac:TaxSubtotal>`,
				st[3], st[2], st[1], st[0])
		}
		sb.WriteString(`</cac:TaxTotal>`)
	}
	sb.WriteString(`</Invoice>`)
	return sb.String()
}

func TestNewPipeline(t *testing.T) {
	p := processor.NewPipeline()
	require.NotNil(t, p)
	assert.NotNil(t, p.Logger())
	assert.Nil(t, p.Metrics())
}

func TestNewPipeline_WithOptions(t *testing.T) {
	m := metrics.New()
	p := processor.NewPipeline(
		processor.WithLogger(zap.NewNop()),
		processor.WithMetrics(m),
		processor.WithParty(ledger.PartySupplier),
		processor.WithOrigins(ledger.OriginsPreferDocument),
	)
	require.NotNil(t, p)
	assert.Same(t, m, p.Metrics())
}

func TestProcessXML_ScenarioA(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	xmlData := invoiceXML("001-001-000000123",
		[4]string{"IVA", "12.00", "120.00", "1000.00"},
		[4]string{"IVA", "12.00", "60.00", "500.00"},
	)

	result := p.ProcessXML(ctx, strings.NewReader(xmlData), "enero.zip")
	require.Nil(t, result.Error)
	require.NotNil(t, result.Invoice)
	assert.Equal(t, "enero.zip", result.Invoice.SourceArchive)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, "00123", row.Document)
	assert.Equal(t, "enero.zip", row.DocumentRef)
	assert.Equal(t, "900123456", row.TaxID)
	assert.Equal(t, tax.StatusGravado, row.FiscalType)
	assert.Equal(t, "IVA - Impuesto (12.00%) - GRAVADO - Consolidado (2 líneas)", row.Detail)
	assert.Equal(t, "180", row.Value.String())
	assert.Equal(t, "1500", row.Base.String())
	assert.Equal(t, "uuid-001-001-000000123", row.ElectronicDocumentID)
}

func TestProcessDocument_AttachedDocument(t *testing.T) {
	inner := invoiceXML("FE-1", [4]string{"IVA", "0.00", "0.00", "1000.00"})
	wrapper := `<AttachedDocument><Attachment><ExternalReference><Description><![CDATA[` +
		inner + `]]></Description></ExternalReference></Attachment></AttachedDocument>`

	result := processor.NewPipeline().ProcessDocument(context.Background(), processor.Document{
		Archive: "b.zip", Name: "ad.xml", Data: []byte(wrapper),
	})
	require.NoError(t, result.Error)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, tax.StatusExento, result.Rows[0].FiscalType)
}

func TestProcessDocument_NoTaxes(t *testing.T) {
	result := processor.NewPipeline().ProcessDocument(context.Background(), processor.Document{
		Archive: "c.zip", Name: "empty.xml", Data: []byte(invoiceXML("FV-9")),
	})
	require.NoError(t, result.Error)
	require.NotNil(t, result.Invoice)
	assert.Empty(t, result.Rows)
}

func TestProcessXML_Invalid(t *testing.T) {
	ctx := context.Background()
	p := processor.NewPipeline()

	result := p.ProcessXML(ctx, strings.NewReader("<Invoice><ID>1</ID><TaxTotal>"), "bad.zip")
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Error(), "XML parsing failed")
	assert.Equal(t, metrics.ReasonParse, result.Reason)
}

func TestParse_RecordsNothing(t *testing.T) {
	m := metrics.New()
	p := processor.NewPipeline(processor.WithMetrics(m))

	inv, payload, err := p.Parse(context.Background(), []byte(invoiceXML("FE-5", [4]string{"IVA", "19", "19", "100"})))
	require.NoError(t, err)
	assert.Equal(t, "FE-5", inv.DocumentID)
	assert.Contains(t, string(payload), "<cbc:ID>FE-5</cbc:ID>")

	rows, err := testutil.GatherAndCount(m.Registry(), "taxledger_rows_total")
	require.NoError(t, err)
	assert.Zero(t, rows)

	_, _, err = p.Parse(context.Background(), []byte("<Catalog/>"))
	require.Error(t, err)
	failed, err := testutil.GatherAndCount(m.Registry(), "taxledger_documents_failed_total")
	require.NoError(t, err)
	assert.Zero(t, failed)
}

func TestProcessDocument_Failures(t *testing.T) {
	m := metrics.New()
	p := processor.NewPipeline(processor.WithMetrics(m))

	result := p.ProcessDocument(context.Background(), processor.Document{
		Archive: "d.zip", Name: "wrapper.xml", Data: []byte(`<AttachedDocument><ID>1</ID></AttachedDocument>`),
	})
	require.Error(t, result.Error)
	assert.Equal(t, metrics.ReasonExtraction, result.Reason)

	result = p.ProcessDocument(context.Background(), processor.Document{
		Archive: "d.zip", Name: "huge.xml", Err: fmt.Errorf("huge.xml: too large"),
	})
	require.Error(t, result.Error)
	assert.Equal(t, metrics.ReasonArchive, result.Reason)

	count, err := testutil.GatherAndCount(m.Registry(), "taxledger_documents_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestProcessDocument_LogsWarningsAndAmbiguity(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := processor.NewPipeline(processor.WithLogger(zap.New(core)))

	xmlData := invoiceXML("FV-77",
		[4]string{"IVA", "19", "abc", "100"},
		[4]string{"INC", "8", "-8", "100"},
	)
	result := p.ProcessDocument(context.Background(), processor.Document{Archive: "e.zip", Name: "fv77.xml", Data: []byte(xmlData)})
	require.NoError(t, result.Error)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, 1, logs.FilterMessage("field coerced").Len())
	assert.Equal(t, 1, logs.FilterMessage("ambiguous classification").Len())
	assert.Len(t, result.Warnings, 2)

	// INC sorts before IVA
	assert.Equal(t, tax.StatusIndefinido, result.Rows[0].FiscalType)
	assert.Equal(t, tax.StatusExento, result.Rows[1].FiscalType)
}

func TestProcessBatch(t *testing.T) {
	docs := []processor.Document{
		{Archive: "a.zip", Name: "1.xml", Data: []byte(invoiceXML("FV-00001", [4]string{"IVA", "19", "19", "100"}))},
		{Archive: "a.zip", Name: "2.xml", Data: []byte("not xml at all")},
		{Archive: "b.zip", Name: "3.xml", Data: []byte(invoiceXML("FV-00003", [4]string{"IVA", "19", "38", "200"}, [4]string{"IVA", "0", "0", "50"}))},
		{Archive: "b.zip", Name: "4.xml", Data: []byte(invoiceXML("FV-00004"))},
	}

	p := processor.NewPipeline()
	br := p.ProcessBatch(context.Background(), docs, processor.BatchOptions{Concurrency: 2})

	require.NoError(t, br.Halted)
	require.Len(t, br.Results, 4)
	require.Len(t, br.Failures, 1)
	assert.Equal(t, "2.xml", br.Failures[0].Document)
	assert.Equal(t, metrics.ReasonParse, br.Failures[0].Reason)

	// Input order is kept: document 1, then document 3's groups
	require.Len(t, br.Rows, 3)
	assert.Equal(t, "00001", br.Rows[0].Document)
	assert.Equal(t, "00003", br.Rows[1].Document)
	assert.Equal(t, "00003", br.Rows[2].Document)

	assert.Equal(t, 3, br.Summary.DocumentsProcessed)
	assert.Equal(t, 1, br.Summary.DocumentsFailed)
	assert.Equal(t, 2, br.Summary.Archives)
	assert.Equal(t, 2, br.Summary.DistinctDocuments)
	assert.Equal(t, 2, br.Summary.RowsByType[tax.StatusGravado])
	assert.Equal(t, 1, br.Summary.RowsByType[tax.StatusExento])
}

func TestProcessBatch_MaxDocuments(t *testing.T) {
	docs := make([]processor.Document, 5)
	for i := range docs {
		docs[i] = processor.Document{Archive: "z.zip", Name: fmt.Sprintf("%d.xml", i), Data: []byte(invoiceXML(fmt.Sprintf("FV-%d", i), [4]string{"IVA", "19", "19", "100"}))}
	}

	br := processor.NewPipeline().ProcessBatch(context.Background(), docs, processor.BatchOptions{MaxDocuments: 3})

	assert.Len(t, br.Rows, 3)
	require.Len(t, br.Failures, 2)
	assert.Equal(t, metrics.ReasonLimit, br.Failures[0].Reason)
	assert.Equal(t, "3.xml", br.Failures[0].Document)
	assert.Error(t, br.Halted)
	assert.False(t, br.DeadlineExceeded())
}

func TestProcessBatch_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := []processor.Document{
		{Archive: "a.zip", Name: "1.xml", Data: []byte(invoiceXML("FV-1"))},
		{Archive: "a.zip", Name: "2.xml", Data: []byte(invoiceXML("FV-2"))},
	}
	br := processor.NewPipeline().ProcessBatch(ctx, docs, processor.BatchOptions{Timeout: time.Minute})

	assert.Empty(t, br.Rows)
	require.Len(t, br.Failures, 2)
	assert.Equal(t, metrics.ReasonTimeout, br.Failures[0].Reason)
	assert.Error(t, br.Halted)
}

func TestProcessBatch_Empty(t *testing.T) {
	br := processor.NewPipeline().ProcessBatch(context.Background(), nil, processor.BatchOptions{})
	assert.Empty(t, br.Rows)
	assert.Empty(t, br.Failures)
	assert.NoError(t, br.Halted)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{"XML with declaration", []byte(`<?xml version="1.0"?><Invoice/>`), processor.FormatXML},
		{"XML without declaration", []byte(`<Invoice><ID>1</ID></Invoice>`), processor.FormatXML},
		{"ZIP", []byte("PK\x03\x04\x14\x00"), processor.FormatZIP},
		{"PDF", []byte("%PDF-1.4\n%some content"), processor.FormatUnknown},
		{"Empty data", []byte{}, processor.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processor.DetectFormat(tt.data))
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "xml", processor.FormatXML.String())
	assert.Equal(t, "zip", processor.FormatZIP.String())
	assert.Equal(t, "unknown", processor.FormatUnknown.String())
}

func BenchmarkProcessDocument(b *testing.B) {
	ctx := context.Background()
	p := processor.NewPipeline()
	doc := processor.Document{Archive: "bench.zip", Name: "fv.xml", Data: []byte(invoiceXML("FV-1",
		[4]string{"IVA", "19", "190", "1000"},
		[4]string{"IVA", "19.00", "95", "500"},
		[4]string{"INC", "8", "8", "100"},
	))}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.ProcessDocument(ctx, doc)
	}
}
