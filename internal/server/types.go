package server

import (
	"time"

	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/signature"
	"github.com/rezonia/tax-ledger/internal/store"
)

// HealthResponse is the response for the health endpoint
type HealthResponse struct {
	Status  string      `json:"status"`
	Time    string      `json:"time"`
	Version string      `json:"version"`
	Reports store.Stats `json:"reports"`
}

// ProcessStats summarizes one upload
type ProcessStats struct {
	ArchivesProcessed int       `json:"archives_processed"`
	InvoicesExtracted int       `json:"invoices_extracted"`
	TotalRows         int       `json:"total_rows"`
	DocumentsFailed   int       `json:"documents_failed"`
	ProcessedAt       time.Time `json:"processed_at"`
	DurationMillis    int64     `json:"duration_ms"`
	DeadlineExceeded  bool      `json:"deadline_exceeded,omitempty"`
	DocumentLimitHit  bool      `json:"document_limit_hit,omitempty"`
}

// ProcessResponse is the response for the process endpoint
type ProcessResponse struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	FileID      string              `json:"file_id,omitempty"`
	DownloadURL string              `json:"download_url,omitempty"`
	ExpiresAt   *time.Time          `json:"expires_at,omitempty"`
	Stats       ProcessStats        `json:"stats"`
	Summary     *ledger.Summary     `json:"summary,omitempty"`
	Failures    []processor.Failure `json:"failures,omitempty"`
}

// CleanupResponse is the response for the cleanup endpoint
type CleanupResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	FilesRemoved int    `json:"files_removed"`
}

// ValidationResponse is the response for validate endpoint
type ValidationResponse struct {
	Valid          bool                   `json:"valid"`
	DocumentID     string                 `json:"document_id,omitempty"`
	Reconciliation *ledger.Reconciliation `json:"reconciliation,omitempty"`
	Errors         []string               `json:"errors,omitempty"`
	Warnings       []string               `json:"warnings,omitempty"`
}

// InfoResponse is the response for info endpoint
type InfoResponse struct {
	Format               string                      `json:"format"`
	Size                 int                         `json:"size"`
	Entries              []string                    `json:"entries,omitempty"`
	DocumentType         model.DocumentType          `json:"document_type,omitempty"`
	DocumentID           string                      `json:"document_id,omitempty"`
	ElectronicDocumentID string                      `json:"electronic_document_id,omitempty"`
	IssueDate            *time.Time                  `json:"issue_date,omitempty"`
	Currency             string                      `json:"currency,omitempty"`
	Supplier             *model.Party                `json:"supplier,omitempty"`
	Customer             *model.Party                `json:"customer,omitempty"`
	LineTaxEntries       int                         `json:"line_tax_entries"`
	DocumentTaxEntries   int                         `json:"document_tax_entries"`
	Signature            *signature.InspectionResult `json:"signature,omitempty"`
	Warnings             []string                    `json:"warnings,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error    string   `json:"error"`
	Details  string   `json:"details,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
