package invoicelib

import (
	"context"
	"time"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/processor"
)

// Engine turns documents into ledger rows
type Engine interface {
	// ProcessDocument processes one XML document
	ProcessDocument(ctx context.Context, archive, name string, data []byte) (*DocumentResult, error)

	// ProcessArchive processes every document of a ZIP or XML upload
	ProcessArchive(ctx context.Context, name string, data []byte) (*BatchResult, error)

	// ProcessBatch processes several uploads as one batch
	ProcessBatch(ctx context.Context, uploads []Upload) (*BatchResult, error)
}

// Upload is one named file handed to ProcessBatch
type Upload struct {
	Name string
	Data []byte
}

// DocumentResult is the outcome for one document
type DocumentResult struct {
	Invoice    *Invoice
	Classified []Classified
	Rows       []Row
	Warnings   []string
}

// BatchResult re-exports the batch outcome
type BatchResult = processor.BatchResult

// Failure re-exports a skipped document record
type Failure = processor.Failure

// PipelineOptions configures the engine
type PipelineOptions struct {
	// Party whose tax id fills the Nit column: "customer" or "supplier"
	Party string
	// Origins selects the raw entries consolidated: "all",
	// "prefer_document", "line_items" or "document_totals"
	Origins string

	// Batch limits
	Concurrency   int
	Timeout       time.Duration
	MaxDocuments  int
	MaxEntryBytes int64
}

// DefaultPipelineOptions returns default pipeline options
func DefaultPipelineOptions() PipelineOptions {
	return PipelineOptions{
		Party:         string(ledger.PartyCustomer),
		Origins:       string(ledger.OriginsAll),
		Concurrency:   4,
		Timeout:       300 * time.Second,
		MaxEntryBytes: 100 << 20,
	}
}
