package processor

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/archive"
	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/model"
	xmlparser "github.com/rezonia/tax-ledger/internal/parser/xml"
	"github.com/rezonia/tax-ledger/internal/tax"
)

// Format represents the detected upload format
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
	FormatZIP
)

// String returns string representation of format
func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatZIP:
		return "zip"
	default:
		return "unknown"
	}
}

// DetectFormat detects upload format from content
func DetectFormat(data []byte) Format {
	switch {
	case archive.IsZip(data):
		return FormatZIP
	case archive.IsXML(data):
		return FormatXML
	default:
		return FormatUnknown
	}
}

// Document is one XML document and the archive it came from
type Document = archive.Entry

// Result is the outcome of processing one document
type Result struct {
	Archive    string
	Document   string
	Invoice    *model.Invoice
	Classified []tax.Classified
	Rows       []ledger.Row
	Warnings   []string
	Error      error
	// Reason labels Error (see metrics.Reason*)
	Reason string
}

// Pipeline turns documents into ledger rows
type Pipeline struct {
	registry   *xmlparser.Registry
	logger     *zap.Logger
	metrics    *metrics.Metrics
	ledgerOpts []ledger.Option
}

// Option configures the pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetrics sets the metrics collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRegistry replaces the document adapter registry
func WithRegistry(r *xmlparser.Registry) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.registry = r
		}
	}
}

// WithParty sets whose tax id fills the Nit column
func WithParty(party ledger.Party) Option {
	return func(p *Pipeline) {
		p.ledgerOpts = append(p.ledgerOpts, ledger.WithParty(party))
	}
}

// WithOrigins sets which raw tax entries feed consolidation
func WithOrigins(policy ledger.OriginPolicy) Option {
	return func(p *Pipeline) {
		p.ledgerOpts = append(p.ledgerOpts, ledger.WithOrigins(policy))
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		registry: xmlparser.NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Logger returns the pipeline logger
func (p *Pipeline) Logger() *zap.Logger {
	return p.logger
}

// Metrics returns the pipeline metrics, possibly nil
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// ProcessXML processes one XML document read from r
func (p *Pipeline) ProcessXML(ctx context.Context, r io.Reader, archiveName string) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return p.fail(&Result{Archive: archiveName}, "", model.NewParseError(archiveName, "content", "failed to read content", err))
	}
	return p.ProcessDocument(ctx, Document{Archive: archiveName, Name: archiveName, Data: data})
}

// Parse isolates the invoice payload of data and parses it, without
// assembling rows or recording metrics. The payload is returned alongside.
func (p *Pipeline) Parse(ctx context.Context, data []byte) (*model.Invoice, []byte, error) {
	payload, err := xmlparser.Extract(data)
	if err != nil {
		return nil, nil, err
	}

	inv, err := p.registry.Parse(ctx, payload)
	if err != nil {
		return nil, payload, fmt.Errorf("XML parsing failed: %w", err)
	}
	return inv, payload, nil
}

// ProcessDocument extracts, parses and assembles the rows of one document.
// Failures are reported on the Result and never panic; a document without
// tax entries succeeds with zero rows.
func (p *Pipeline) ProcessDocument(ctx context.Context, doc Document) *Result {
	result := &Result{Archive: doc.Archive, Document: doc.Name}
	if doc.Err != nil {
		return p.fail(result, metrics.ReasonArchive, doc.Err)
	}
	if err := ctx.Err(); err != nil {
		return p.fail(result, "", err)
	}

	inv, _, err := p.Parse(ctx, doc.Data)
	if err != nil {
		return p.fail(result, "", err)
	}
	inv.SourceArchive = doc.Archive
	inv.SourceFile = doc.Name
	result.Invoice = inv

	log := p.logger.With(
		zap.String("archive", doc.Archive),
		zap.String("file", doc.Name),
		zap.String("document_id", inv.DocumentID),
	)
	for _, w := range inv.Warnings {
		log.Warn("field coerced",
			zap.String("field", w.Field),
			zap.String("value", w.Value),
			zap.String("reason", w.Reason),
		)
		result.Warnings = append(result.Warnings, w.String())
	}
	p.metrics.CoercionWarnings(len(inv.Warnings))

	result.Classified, result.Rows = ledger.FromInvoice(inv, p.ledgerOpts...)

	counts := make(map[tax.Status]int, len(tax.Statuses))
	for _, c := range result.Classified {
		counts[c.Status]++
		if c.Status == tax.StatusIndefinido {
			log.Warn("ambiguous classification",
				zap.String("detail", c.Description),
				zap.String("percent", c.Percent.String()),
				zap.String("tax_amount", c.TotalTaxAmount.String()),
				zap.String("taxable_amount", c.TotalTaxableAmount.String()),
			)
			result.Warnings = append(result.Warnings, "needs review: "+c.Description)
		}
	}
	for status, n := range counts {
		p.metrics.RowsEmitted(string(status), n)
	}
	if len(inv.RawTaxEntries) == 0 {
		log.Info("document has no tax entries")
	}

	p.metrics.DocumentProcessed()
	log.Debug("document processed",
		zap.String("type", string(inv.DocumentType)),
		zap.Int("raw_entries", len(inv.RawTaxEntries)),
		zap.Int("rows", len(result.Rows)),
	)
	return result
}

func (p *Pipeline) fail(result *Result, reason string, err error) *Result {
	if reason == "" {
		reason = metrics.ClassifyFailure(err)
	}
	result.Error = err
	result.Reason = reason
	p.metrics.DocumentFailed(reason)
	p.logger.Warn("document skipped",
		zap.String("archive", result.Archive),
		zap.String("file", result.Document),
		zap.String("reason", reason),
		zap.Error(err),
	)
	return result
}
