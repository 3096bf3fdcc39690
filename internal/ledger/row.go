package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// Columns is the ledger header, in report order
var Columns = []string{
	"Cuenta",
	"Comprobante",
	"Fecha",
	"Documento",
	"Documento Ref.",
	"Nit",
	"Detalle",
	"Tipo",
	"Valor",
	"Base",
	"Centro de Costo",
	"Trans. Ext",
	"Plazo",
	"Docto Electrónico",
}

// Row is one ledger line: one classified tax of one document
type Row struct {
	Account              string          `json:"cuenta"`
	Voucher              string          `json:"comprobante"`
	Date                 *time.Time      `json:"fecha,omitempty"`
	Document             string          `json:"documento"`
	DocumentRef          string          `json:"documento_ref"`
	TaxID                string          `json:"nit"`
	Detail               string          `json:"detalle"`
	FiscalType           tax.Status      `json:"tipo"`
	Value                decimal.Decimal `json:"valor"`
	Base                 decimal.Decimal `json:"base"`
	CostCenter           string          `json:"centro_costo"`
	ExternalTransaction  string          `json:"trans_ext"`
	Term                 *time.Time      `json:"plazo,omitempty"`
	ElectronicDocumentID string          `json:"docto_electronico"`
}

// TruncateID keeps the last five characters of a document id. Shorter ids
// are returned unchanged.
func TruncateID(id string) string {
	r := []rune(id)
	if len(r) < 5 {
		return id
	}
	return string(r[len(r)-5:])
}

// Assemble maps each classified tax of inv to one row, keeping the
// consolidation order. Amounts keep full precision.
func Assemble(inv *model.Invoice, classified []tax.Classified, opts ...Option) []Row {
	o := newOptions(opts)
	taxID := o.party.taxID(inv)
	document := TruncateID(inv.DocumentID)

	rows := make([]Row, 0, len(classified))
	for _, c := range classified {
		rows = append(rows, Row{
			Date:                 inv.IssueDate,
			Document:             document,
			DocumentRef:          inv.SourceArchive,
			TaxID:                taxID,
			Detail:               c.Description,
			FiscalType:           c.Status,
			Value:                c.TotalTaxAmount,
			Base:                 c.TotalTaxableAmount,
			Term:                 inv.DueDate,
			ElectronicDocumentID: inv.ElectronicDocumentID,
		})
	}
	return rows
}

// FromInvoice runs selection, consolidation, classification and assembly
// for one document. A document without tax entries yields no rows.
func FromInvoice(inv *model.Invoice, opts ...Option) ([]tax.Classified, []Row) {
	o := newOptions(opts)
	classified := tax.ClassifyGroups(tax.Consolidate(SelectEntries(inv, o.origins)))
	return classified, Assemble(inv, classified, opts...)
}
