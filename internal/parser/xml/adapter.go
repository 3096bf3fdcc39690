package xml

import (
	"bytes"
	"context"
	"io"

	"github.com/rezonia/tax-ledger/internal/model"
)

// Adapter parses one kind of UBL document into an Invoice
type Adapter interface {
	// Parse parses XML content into Invoice
	Parse(ctx context.Context, r io.Reader) (*model.Invoice, error)

	// CanParse returns true if adapter can handle this content
	CanParse(content []byte) bool

	// Kind returns the document type the adapter produces
	Kind() model.DocumentType
}

// Registry holds all registered adapters
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates registry with the invoice, credit note and debit note adapters
func NewRegistry() *Registry {
	return &Registry{
		adapters: []Adapter{
			NewInvoiceAdapter(),
			NewCreditNoteAdapter(),
			NewDebitNoteAdapter(),
		},
	}
}

// Detect picks the adapter for content
func (r *Registry) Detect(content []byte) (Adapter, error) {
	for _, a := range r.adapters {
		if a.CanParse(content) {
			return a, nil
		}
	}
	root := RootName(content)
	if root == "" {
		return nil, model.NewParseError("xml", "root", "no root element found", nil)
	}
	return nil, model.NewParseError("xml", "root", "unsupported document root <"+root+">", nil)
}

// Parse parses XML using the appropriate adapter
func (r *Registry) Parse(ctx context.Context, content []byte) (*model.Invoice, error) {
	adapter, err := r.Detect(content)
	if err != nil {
		return nil, err
	}
	return adapter.Parse(ctx, bytes.NewReader(content))
}

// RegisterAdapter adds a custom adapter to the registry
func (r *Registry) RegisterAdapter(a Adapter) {
	// Custom adapters take priority
	r.adapters = append([]Adapter{a}, r.adapters...)
}
