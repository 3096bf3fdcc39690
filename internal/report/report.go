// Package report serializes ledger rows. It only formats values; rows are
// written exactly as assembled.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/ledger"
)

// Format is an output encoding
type Format string

const (
	FormatXLSX  Format = "xlsx"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
	FormatTable Format = "table"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatXLSX, FormatCSV, FormatJSON, FormatTable:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	if f == FormatTable {
		return ".txt"
	}
	return "." + string(f)
}

// ContentType returns the MIME type used when serving the format
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

const (
	DefaultSheetName = "Facturas"
	SummarySheetName = "Resumen"
	dateLayout       = "02/01/2006"
)

// Options controls report layout
type Options struct {
	SheetName    string
	SummarySheet bool
	Logger       *zap.Logger
}

// DefaultOptions returns the standard layout
func DefaultOptions() Options {
	return Options{
		SheetName:    DefaultSheetName,
		SummarySheet: true,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) sheetName() string {
	if o.SheetName == "" {
		return DefaultSheetName
	}
	return o.SheetName
}

// Write encodes rows in format f
func Write(w io.Writer, f Format, rows []ledger.Row, summary ledger.Summary, opts Options) error {
	switch f {
	case FormatXLSX:
		return WriteXLSX(w, rows, summary, opts)
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatJSON:
		return WriteJSON(w, rows, summary)
	case FormatTable:
		return WriteTable(w, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", f)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}
