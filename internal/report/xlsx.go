package report

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/tax"
)

const (
	headerColor    = "366092"
	fontFamily     = "Arial"
	currencyFormat = "$ #,##0.0000"
	dateFormat     = "dd/mm/yyyy"
)

// column widths in ledger.Columns order
var columnWidths = []float64{15, 12, 12, 20, 35, 15, 40, 12, 15, 15, 15, 12, 12, 50}

// Column positions (1-based) that get number or date formats
const (
	colDate  = 3
	colValue = 9
	colBase  = 10
	colTerm  = 13
)

type styles struct {
	header   int
	data     int
	currency int
	date     int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Family: fontFamily, Size: 11, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}

	s.data, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: fontFamily, Size: 10},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return s, err
	}

	currency := currencyFormat
	s.currency, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Family: fontFamily, Size: 10},
		Alignment:    &excelize.Alignment{Horizontal: "right", Vertical: "center"},
		CustomNumFmt: &currency,
	})
	if err != nil {
		return s, err
	}

	date := dateFormat
	s.date, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Family: fontFamily, Size: 10},
		Alignment:    &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		CustomNumFmt: &date,
	})
	return s, err
}

// WriteXLSX writes the workbook: one data sheet with the ledger columns and,
// when enabled, a summary sheet.
func WriteXLSX(w io.Writer, rows []ledger.Row, summary ledger.Summary, opts Options) error {
	log := opts.logger()
	sheet := opts.sheetName()

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	st, err := newStyles(f)
	if err != nil {
		return fmt.Errorf("failed to create styles: %w", err)
	}

	if err := writeDataSheet(f, sheet, rows, st); err != nil {
		return err
	}

	if opts.SummarySheet {
		if err := writeSummarySheet(f, summary, st); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	log.Info("report generated",
		zap.String("format", string(FormatXLSX)),
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
		zap.Bool("summary_sheet", opts.SummarySheet))
	return nil
}

func writeDataSheet(f *excelize.File, sheet string, rows []ledger.Row, st styles) error {
	header := make([]interface{}, len(ledger.Columns))
	for i, c := range ledger.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(ledger.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", st.header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := rowValues(r)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if len(rows) > 0 {
		last := len(rows) + 1
		if err := styleColumns(f, sheet, last, st); err != nil {
			return fmt.Errorf("failed to style rows: %w", err)
		}
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func styleColumns(f *excelize.File, sheet string, last int, st styles) error {
	lastCol, err := excelize.ColumnNumberToName(len(ledger.Columns))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A2", fmt.Sprintf("%s%d", lastCol, last), st.data); err != nil {
		return err
	}

	for _, c := range []struct {
		col   int
		style int
	}{
		{colDate, st.date},
		{colValue, st.currency},
		{colBase, st.currency},
		{colTerm, st.date},
	} {
		name, err := excelize.ColumnNumberToName(c.col)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, name+"2", fmt.Sprintf("%s%d", name, last), c.style); err != nil {
			return err
		}
	}
	return nil
}

// rowValues orders a row's cells like ledger.Columns. Amounts become
// numbers so the currency format applies; absent dates stay blank.
// Amounts a float64 cannot hold exactly are written as text instead.
func rowValues(r ledger.Row) []interface{} {
	return []interface{}{
		r.Account,
		r.Voucher,
		dateCell(r.Date),
		r.Document,
		r.DocumentRef,
		r.TaxID,
		r.Detail,
		string(r.FiscalType),
		amountCell(r.Value),
		amountCell(r.Base),
		r.CostCenter,
		r.ExternalTransaction,
		dateCell(r.Term),
		r.ElectronicDocumentID,
	}
}

// amountCell returns d as a number when it survives the float64 round trip
// and as its exact decimal text otherwise.
func amountCell(d decimal.Decimal) interface{} {
	f := d.InexactFloat64()
	if decimal.NewFromFloat(f).Equal(d) {
		return f
	}
	return d.String()
}

func dateCell(t *time.Time) interface{} {
	if t == nil {
		return ""
	}
	return *t
}

// SummaryLines returns the Resumen sheet content in display order
func SummaryLines(s ledger.Summary) []SummaryLine {
	round := func(d decimal.Decimal) float64 {
		return d.Round(2).InexactFloat64()
	}
	return []SummaryLine{
		{"Total Facturas", float64(s.DistinctDocuments)},
		{"Total Líneas", float64(s.Rows)},
		{"Total Gravado", round(s.BaseByType[tax.StatusGravado])},
		{"Total Exento", round(s.BaseByType[tax.StatusExento])},
		{"Total Excluido", round(s.BaseByType[tax.StatusExcluido])},
		{"Total Impuestos", round(s.TotalValue)},
		{"Documentos Procesados", float64(s.DocumentsProcessed)},
		{"Archivos ZIP Procesados", float64(s.Archives)},
	}
}

// SummaryLine is one Concepto/Valor pair of the summary sheet
type SummaryLine struct {
	Concept string
	Value   float64
}

func writeSummarySheet(f *excelize.File, summary ledger.Summary, st styles) error {
	if _, err := f.NewSheet(SummarySheetName); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	if err := f.SetSheetRow(SummarySheetName, "A1", &[]interface{}{"Concepto", "Valor"}); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheetName, "A1", "B1", st.header); err != nil {
		return err
	}

	for i, line := range SummaryLines(summary) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SummarySheetName, cell, &[]interface{}{line.Concept, line.Value}); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SummarySheetName, "A", "A", 40); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheetName, "B", "B", 20)
}
