package invoicelib

import (
	"context"

	"github.com/rezonia/tax-ledger/internal/archive"
	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/processor"
)

// Processor implements Engine using the internal pipeline
type Processor struct {
	pipeline *processor.Pipeline
	options  PipelineOptions
}

// NewProcessor creates a processor with the given options. Unknown party or
// origin names are rejected.
func NewProcessor(opts PipelineOptions) (*Processor, error) {
	party, err := ledger.ParseParty(opts.Party)
	if err != nil {
		return nil, err
	}
	origins, err := ledger.ParseOriginPolicy(opts.Origins)
	if err != nil {
		return nil, err
	}

	pipeline := processor.NewPipeline(
		processor.WithParty(party),
		processor.WithOrigins(origins),
	)

	return &Processor{
		pipeline: pipeline,
		options:  opts,
	}, nil
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	p, _ := NewProcessor(DefaultPipelineOptions())
	return p
}

// ProcessDocument processes one XML document from archive
func (p *Processor) ProcessDocument(ctx context.Context, archiveName, name string, data []byte) (*DocumentResult, error) {
	result := p.pipeline.ProcessDocument(ctx, processor.Document{Archive: archiveName, Name: name, Data: data})
	if result.Error != nil {
		return nil, result.Error
	}

	return &DocumentResult{
		Invoice:    result.Invoice,
		Classified: result.Classified,
		Rows:       result.Rows,
		Warnings:   result.Warnings,
	}, nil
}

// ProcessArchive processes every document of one upload
func (p *Processor) ProcessArchive(ctx context.Context, name string, data []byte) (*BatchResult, error) {
	return p.ProcessBatch(ctx, []Upload{{Name: name, Data: data}})
}

// ProcessBatch opens every upload and processes all documents as one batch.
// An unreadable upload is an error; unreadable documents are failures.
func (p *Processor) ProcessBatch(ctx context.Context, uploads []Upload) (*BatchResult, error) {
	var docs []processor.Document
	for _, u := range uploads {
		entries, err := archive.Open(u.Name, u.Data, p.options.MaxEntryBytes)
		if err != nil {
			return nil, err
		}
		docs = append(docs, entries...)
	}

	return p.pipeline.ProcessBatch(ctx, docs, processor.BatchOptions{
		Concurrency:  p.options.Concurrency,
		Timeout:      p.options.Timeout,
		MaxDocuments: p.options.MaxDocuments,
	}), nil
}

// Reconcile compares an invoice's extracted taxes with its declared totals
func (p *Processor) Reconcile(inv *Invoice) Reconciliation {
	return ledger.Reconcile(inv)
}
