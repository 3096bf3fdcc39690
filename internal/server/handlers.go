package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/archive"
	"github.com/rezonia/tax-ledger/internal/ledger"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/report"
	"github.com/rezonia/tax-ledger/internal/store"
)

const (
	formFiles       = "files"
	legacyFormFiles = "zip_files"
)

func (s *Server) handleProcess(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, ProcessResponse{Message: "failed to read upload: " + err.Error()})
		return
	}

	files := form.File[formFiles]
	if len(files) == 0 {
		files = form.File[legacyFormFiles]
	}
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, ProcessResponse{Message: "no files selected"})
		return
	}
	if len(files) > s.config.MaxFiles {
		c.JSON(http.StatusBadRequest, ProcessResponse{
			Message: fmt.Sprintf("at most %d files per upload", s.config.MaxFiles),
		})
		return
	}

	format, err := report.ParseFormat(c.DefaultQuery("format", string(report.FormatXLSX)))
	if err != nil {
		c.JSON(http.StatusBadRequest, ProcessResponse{Message: err.Error()})
		return
	}

	var docs []processor.Document
	var failures []processor.Failure
	for _, fh := range files {
		entries, err := s.openUpload(fh)
		if err != nil {
			s.metrics.DocumentFailed(metrics.ReasonArchive)
			s.logger.Warn("upload skipped", zap.String("archive", fh.Filename), zap.Error(err))
			failures = append(failures, processor.Failure{
				Archive: fh.Filename,
				Reason:  metrics.ReasonArchive,
				Message: err.Error(),
				Err:     err,
			})
			continue
		}
		docs = append(docs, entries...)
	}

	batch := s.pipeline.ProcessBatch(c.Request.Context(), docs, processor.BatchOptions{
		Concurrency:  s.config.Concurrency,
		Timeout:      s.config.ProcessTimeout,
		MaxDocuments: s.config.MaxDocuments,
	})
	failures = append(failures, batch.Failures...)

	now := time.Now()
	resp := ProcessResponse{
		Stats: ProcessStats{
			ArchivesProcessed: batch.Summary.Archives,
			InvoicesExtracted: batch.Summary.DistinctDocuments,
			TotalRows:         batch.Summary.Rows,
			DocumentsFailed:   len(failures),
			ProcessedAt:       now.UTC(),
			DurationMillis:    batch.Duration.Milliseconds(),
			DeadlineExceeded:  batch.DeadlineExceeded(),
			DocumentLimitHit:  errors.Is(batch.Halted, model.ErrBatchLimit),
		},
		Failures: failures,
	}

	if len(batch.Rows) == 0 {
		resp.Message = "no valid XML documents found in the upload"
		c.JSON(http.StatusUnprocessableEntity, resp)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, format, batch.Rows, batch.Summary, s.config.Report); err != nil {
		s.logger.Error("report generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "report generation failed", Details: err.Error()})
		return
	}

	name := fmt.Sprintf("reporte_facturas_%s%s", now.Format("20060102_150405"), format.Extension())
	entry, err := s.store.Create(buf.Bytes(), name)
	if err != nil {
		s.logger.Error("report store failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "report could not be stored", Details: err.Error()})
		return
	}

	resp.Success = true
	resp.Message = fmt.Sprintf("processing complete, %d rows", len(batch.Rows))
	resp.FileID = entry.ID
	resp.DownloadURL = "/api/v1/download/" + entry.ID
	resp.ExpiresAt = &entry.ExpiresAt
	resp.Summary = &batch.Summary
	c.JSON(http.StatusOK, resp)
}

// openUpload checks one uploaded file and returns its XML documents
func (s *Server) openUpload(fh *multipart.FileHeader) ([]processor.Document, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext != ".zip" && ext != ".xml" {
		return nil, fmt.Errorf("unsupported file type %q (want .zip or .xml)", ext)
	}
	if s.config.MaxFileBytes > 0 && fh.Size > s.config.MaxFileBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", s.config.MaxFileBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return archive.Open(fh.Filename, data, s.config.MaxFileBytes)
}

func (s *Server) handleDownload(c *gin.Context) {
	entry, err := s.store.Lookup(c.Param("id"))
	switch {
	case errors.Is(err, store.ErrExpired):
		c.JSON(http.StatusGone, ErrorResponse{Error: "report expired"})
		return
	case err != nil:
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "report not found"})
		return
	}

	c.FileAttachment(entry.Path, entry.Name)
}

func (s *Server) handleCleanup(c *gin.Context) {
	removed, err := s.store.Expire(time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, CleanupResponse{
			Message:      "cleanup failed: " + err.Error(),
			FilesRemoved: removed,
		})
		return
	}

	c.JSON(http.StatusOK, CleanupResponse{
		Success:      true,
		Message:      "cleanup complete",
		FilesRemoved: removed,
	})
}

// readBody returns the raw request body, answering 400 itself when it is
// missing.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "failed to read request body"})
		return nil, false
	}
	if len(body) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty request body"})
		return nil, false
	}
	return body, true
}

func (s *Server) handleValidate(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	if processor.DetectFormat(body) != processor.FormatXML {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "only XML validation is supported"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	inv, _, err := s.pipeline.Parse(ctx, body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, ValidationResponse{
			Valid:  false,
			Errors: []string{err.Error()},
		})
		return
	}

	v := ledger.Validate(inv)
	c.JSON(http.StatusOK, ValidationResponse{
		Valid:          v.Valid,
		DocumentID:     v.DocumentID,
		Reconciliation: &v.Reconciliation,
		Errors:         v.Errors,
		Warnings:       v.Warnings,
	})
}

func (s *Server) handleInfo(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}

	format := processor.DetectFormat(body)
	resp := InfoResponse{
		Format: format.String(),
		Size:   len(body),
	}

	switch format {
	case processor.FormatZIP:
		entries, err := archive.ReadZip("upload.zip", body, s.config.MaxFileBytes)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "unreadable archive", Details: err.Error()})
			return
		}
		for _, e := range entries {
			resp.Entries = append(resp.Entries, e.Name)
		}

	case processor.FormatXML:
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()

		inv, payload, err := s.pipeline.Parse(ctx, body)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "document could not be parsed", Details: err.Error()})
			return
		}
		describeInvoice(&resp, inv)

		sig, err := s.inspector.Inspect(ctx, payload)
		if err != nil {
			resp.Warnings = append(resp.Warnings, "signature: "+err.Error())
		} else {
			resp.Signature = sig
		}

	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported file format"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func describeInvoice(resp *InfoResponse, inv *model.Invoice) {
	resp.DocumentType = inv.DocumentType
	resp.DocumentID = inv.DocumentID
	resp.ElectronicDocumentID = inv.ElectronicDocumentID
	resp.IssueDate = inv.IssueDate
	resp.Currency = inv.Currency
	resp.Supplier = &inv.Supplier
	resp.Customer = &inv.Customer
	resp.LineTaxEntries = len(inv.EntriesByOrigin(model.OriginLineItem))
	resp.DocumentTaxEntries = len(inv.EntriesByOrigin(model.OriginDocumentTotal))
	for _, w := range inv.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
}
