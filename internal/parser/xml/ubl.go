package xml

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/tax-ledger/internal/decimal"
	"github.com/rezonia/tax-ledger/internal/model"
)

// UBLAdapter parses UBL 2.1 documents (DIAN profile). One adapter serves one
// document kind because line elements are named after the kind.
type UBLAdapter struct {
	kind     model.DocumentType
	roots    []string
	lineTag  string
	totalTag string
}

// NewInvoiceAdapter creates the adapter for <Invoice> documents
func NewInvoiceAdapter() *UBLAdapter {
	return &UBLAdapter{
		kind:     model.DocumentTypeInvoice,
		roots:    []string{"Invoice", "Factura"},
		lineTag:  "InvoiceLine",
		totalTag: "LegalMonetaryTotal",
	}
}

// NewCreditNoteAdapter creates the adapter for <CreditNote> documents
func NewCreditNoteAdapter() *UBLAdapter {
	return &UBLAdapter{
		kind:     model.DocumentTypeCreditNote,
		roots:    []string{"CreditNote", "NotaCredito"},
		lineTag:  "CreditNoteLine",
		totalTag: "LegalMonetaryTotal",
	}
}

// NewDebitNoteAdapter creates the adapter for <DebitNote> documents
func NewDebitNoteAdapter() *UBLAdapter {
	return &UBLAdapter{
		kind:     model.DocumentTypeDebitNote,
		roots:    []string{"DebitNote", "NotaDebito"},
		lineTag:  "DebitNoteLine",
		totalTag: "RequestedMonetaryTotal",
	}
}

// Kind returns the document type
func (a *UBLAdapter) Kind() model.DocumentType {
	return a.kind
}

// CanParse checks the root element of content
func (a *UBLAdapter) CanParse(content []byte) bool {
	return a.acceptsRoot(RootName(content))
}

func (a *UBLAdapter) acceptsRoot(name string) bool {
	for _, r := range a.roots {
		if r == name {
			return true
		}
	}
	return false
}

// Parse parses a UBL document into Invoice
func (a *UBLAdapter) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	doc := newDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, model.NewParseError("ubl", "xml", "failed to parse XML", err)
	}

	root := doc.Root()
	if root == nil || !a.acceptsRoot(localName(root)) {
		return nil, model.NewParseError("ubl", "root", fmt.Sprintf("expected %s root element", a.roots[0]), nil)
	}

	p := &ublParse{}
	inv := &model.Invoice{
		DocumentID:           childText(root, "ID"),
		DocumentType:         a.kind,
		ElectronicDocumentID: childText(root, "UUID"),
		Currency:             childText(root, "DocumentCurrencyCode"),
	}

	inv.IssueDate = p.date("IssueDate", childText(root, "IssueDate"))
	due := childText(root, "DueDate")
	if due == "" {
		due = text(descendant(child(root, "PaymentMeans"), "PaymentDueDate"))
	}
	inv.DueDate = p.date("DueDate", due)

	inv.Supplier = party(child(root, "AccountingSupplierParty"))
	inv.Customer = party(child(root, "AccountingCustomerParty"))
	inv.PartyTaxID = inv.Customer.TaxID

	if totals := child(root, a.totalTag); totals != nil {
		inv.Totals = model.MonetaryTotals{
			LineExtension: p.optionalAmount(a.totalTag+"/LineExtensionAmount", child(totals, "LineExtensionAmount")),
			TaxExclusive:  p.optionalAmount(a.totalTag+"/TaxExclusiveAmount", child(totals, "TaxExclusiveAmount")),
			TaxInclusive:  p.optionalAmount(a.totalTag+"/TaxInclusiveAmount", child(totals, "TaxInclusiveAmount")),
			Payable:       p.optionalAmount(a.totalTag+"/PayableAmount", child(totals, "PayableAmount")),
		}
	}

	// Line level first, then document level
	for i, line := range children(root, a.lineTag) {
		for j, tt := range children(line, "TaxTotal") {
			path := fmt.Sprintf("%s[%d]/TaxTotal[%d]", a.lineTag, i+1, j+1)
			inv.RawTaxEntries = append(inv.RawTaxEntries, p.taxEntries(path, tt, model.OriginLineItem)...)
		}
	}
	for j, tt := range children(root, "TaxTotal") {
		path := fmt.Sprintf("TaxTotal[%d]", j+1)
		inv.RawTaxEntries = append(inv.RawTaxEntries, p.taxEntries(path, tt, model.OriginDocumentTotal)...)
	}

	inv.Signed = descendant(child(root, "UBLExtensions"), "Signature") != nil
	inv.Warnings = p.warnings

	return inv, nil
}

// ublParse carries per-document state while walking one tree
type ublParse struct {
	warnings []model.CoercionWarning
}

func (p *ublParse) warn(field, value, reason string) {
	p.warnings = append(p.warnings, model.CoercionWarning{Field: field, Value: value, Reason: reason})
}

// amount coerces a required numeric element; missing or malformed is 0
func (p *ublParse) amount(field string, elem *etree.Element) decimal.Decimal {
	if elem == nil {
		p.warn(field, "", "missing, using 0")
		return money.Zero
	}
	raw := text(elem)
	d, ok := money.Coerce(raw)
	if !ok {
		p.warn(field, raw, "not numeric, using 0")
	}
	return d
}

// optionalAmount coerces a numeric element that may legitimately be absent
func (p *ublParse) optionalAmount(field string, elem *etree.Element) decimal.Decimal {
	if elem == nil {
		return money.Zero
	}
	return p.amount(field, elem)
}

func (p *ublParse) date(field, raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := parseDate(raw)
	if err != nil {
		p.warn(field, raw, "unparseable date, recorded as absent")
		return nil
	}
	return &t
}

// taxEntries turns one TaxTotal into raw entries: one per TaxSubtotal, or
// the TaxTotal itself when it has no subtotals.
func (p *ublParse) taxEntries(path string, tt *etree.Element, origin model.Origin) []model.RawTaxEntry {
	subtotals := children(tt, "TaxSubtotal")
	if len(subtotals) == 0 {
		return []model.RawTaxEntry{p.taxEntry(path, tt, origin)}
	}

	entries := make([]model.RawTaxEntry, 0, len(subtotals))
	for i, st := range subtotals {
		entries = append(entries, p.taxEntry(fmt.Sprintf("%s/TaxSubtotal[%d]", path, i+1), st, origin))
	}
	return entries
}

func (p *ublParse) taxEntry(path string, elem *etree.Element, origin model.Origin) model.RawTaxEntry {
	category := descendant(elem, "TaxCategory")

	percentElem := child(elem, "Percent")
	if percentElem == nil {
		percentElem = child(category, "Percent")
	}

	scheme := descendant(elem, "TaxScheme")
	code := childText(scheme, "ID")
	name := childText(scheme, "Name")
	if name == "" {
		name = code
	}

	return model.RawTaxEntry{
		SchemeName:    name,
		SchemeCode:    code,
		Percent:       p.amount(path+"/Percent", percentElem),
		TaxAmount:     p.amount(path+"/TaxAmount", child(elem, "TaxAmount")),
		TaxableAmount: p.amount(path+"/TaxableAmount", child(elem, "TaxableAmount")),
		Origin:        origin,
	}
}

// party reads name and tax id of an Accounting*Party element. The first
// PartyTaxScheme wins.
func party(elem *etree.Element) model.Party {
	if elem == nil {
		return model.Party{}
	}
	result := model.Party{
		TaxID: childText(descendant(elem, "PartyTaxScheme"), "CompanyID"),
	}
	if name := text(descendant(elem, "RegistrationName")); name != "" {
		result.Name = name
	} else {
		result.Name = childText(descendant(elem, "PartyName"), "Name")
	}
	return result
}

func parseDate(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02",
		"2006-01-02Z07:00",
		"02/01/2006",
		"2006-01-02T15:04:05",
		"02/01/2006 15:04:05",
		time.RFC3339,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse date: %s", s)
}
