package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rezonia/tax-ledger/internal/ledger"
)

// WriteCSV writes the ledger columns as CSV. Amounts keep full precision.
func WriteCSV(w io.Writer, rows []ledger.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ledger.Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(csvRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(r ledger.Row) []string {
	return []string{
		r.Account,
		r.Voucher,
		formatDate(r.Date),
		r.Document,
		r.DocumentRef,
		r.TaxID,
		r.Detail,
		string(r.FiscalType),
		r.Value.String(),
		r.Base.String(),
		r.CostCenter,
		r.ExternalTransaction,
		formatDate(r.Term),
		r.ElectronicDocumentID,
	}
}

type jsonReport struct {
	Rows    []ledger.Row   `json:"rows"`
	Summary ledger.Summary `json:"summary"`
}

// WriteJSON writes rows and summary as one indented JSON object
func WriteJSON(w io.Writer, rows []ledger.Row, summary ledger.Summary) error {
	if rows == nil {
		rows = []ledger.Row{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(jsonReport{Rows: rows, Summary: summary})
}

// WriteTable writes a terminal-friendly subset of the columns
func WriteTable(w io.Writer, rows []ledger.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENTO\tFECHA\tNIT\tDETALLE\tTIPO\tVALOR\tBASE")
	fmt.Fprintln(tw, "---------\t-----\t---\t-------\t----\t-----\t----")

	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Document,
			formatDate(r.Date),
			r.TaxID,
			r.Detail,
			r.FiscalType,
			r.Value.StringFixed(2),
			r.Base.StringFixed(2),
		)
	}

	return tw.Flush()
}
