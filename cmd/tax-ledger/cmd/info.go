package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/signature"
	sigxml "github.com/rezonia/tax-ledger/internal/signature/xml"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about invoice files",
	Long: `Display what each document carries without building a ledger.

Shows:
  - Document kind (FACTURA, NOTA DE CRÉDITO, NOTA DE DÉBITO)
  - Document id, CUFE/CUDE and issue date
  - Supplier and customer tax ids
  - Tax entries found at line and document level
  - Embedded signature: signer, certificate validity, signing time

Examples:
  tax-ledger info factura.xml
  tax-ledger info lote.zip -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// DocumentInfo describes one document
type DocumentInfo struct {
	Archive              string                      `json:"archive"`
	File                 string                      `json:"file"`
	DocumentType         model.DocumentType          `json:"document_type,omitempty"`
	DocumentID           string                      `json:"document_id,omitempty"`
	ElectronicDocumentID string                      `json:"electronic_document_id,omitempty"`
	IssueDate            *time.Time                  `json:"issue_date,omitempty"`
	Supplier             model.Party                 `json:"supplier"`
	Customer             model.Party                 `json:"customer"`
	LineTaxEntries       int                         `json:"line_tax_entries"`
	DocumentTaxEntries   int                         `json:"document_tax_entries"`
	Signature            *signature.InspectionResult `json:"signature,omitempty"`
	Warnings             []string                    `json:"warnings,omitempty"`
	Error                string                      `json:"error,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	docs, failures := loadDocuments(files)
	pipeline := newPipeline(nil)
	inspector := sigxml.NewInspector()
	ctx := context.Background()

	infos := make([]DocumentInfo, 0, len(docs)+len(failures))
	for _, f := range failures {
		infos = append(infos, DocumentInfo{Archive: f.Archive, Error: f.Message})
	}
	for _, doc := range docs {
		infos = append(infos, describeDocument(ctx, pipeline, inspector, doc))
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	}

	for _, info := range infos {
		printDocumentInfo(info)
		fmt.Println()
	}
	return nil
}

func describeDocument(ctx context.Context, pipeline *processor.Pipeline, inspector *sigxml.Inspector, doc processor.Document) DocumentInfo {
	info := DocumentInfo{Archive: doc.Archive, File: doc.Name}
	if doc.Err != nil {
		info.Error = doc.Err.Error()
		return info
	}

	inv, payload, err := pipeline.Parse(ctx, doc.Data)
	if err != nil {
		info.Error = err.Error()
		return info
	}

	info.DocumentType = inv.DocumentType
	info.DocumentID = inv.DocumentID
	info.ElectronicDocumentID = inv.ElectronicDocumentID
	info.IssueDate = inv.IssueDate
	info.Supplier = inv.Supplier
	info.Customer = inv.Customer
	info.LineTaxEntries = len(inv.EntriesByOrigin(model.OriginLineItem))
	info.DocumentTaxEntries = len(inv.EntriesByOrigin(model.OriginDocumentTotal))
	for _, w := range inv.Warnings {
		info.Warnings = append(info.Warnings, w.String())
	}

	sig, err := inspector.Inspect(ctx, payload)
	if err != nil {
		info.Warnings = append(info.Warnings, "signature: "+err.Error())
	} else {
		info.Signature = sig
	}
	return info
}

func printDocumentInfo(info DocumentInfo) {
	if info.File != "" {
		fmt.Printf("File: %s (%s)\n", info.File, info.Archive)
	} else {
		fmt.Printf("File: %s\n", info.Archive)
	}
	if info.Error != "" {
		fmt.Printf("  Error: %s\n", info.Error)
		return
	}

	fmt.Printf("  Type: %s\n", info.DocumentType)
	fmt.Printf("  Document: %s\n", info.DocumentID)
	if info.ElectronicDocumentID != "" {
		fmt.Printf("  CUFE: %s\n", info.ElectronicDocumentID)
	}
	if info.IssueDate != nil {
		fmt.Printf("  Issued: %s\n", info.IssueDate.Format("2006-01-02"))
	}
	fmt.Printf("  Supplier: %s %s\n", info.Supplier.TaxID, info.Supplier.Name)
	fmt.Printf("  Customer: %s %s\n", info.Customer.TaxID, info.Customer.Name)
	fmt.Printf("  Tax entries: %d line, %d document\n", info.LineTaxEntries, info.DocumentTaxEntries)

	switch sig := info.Signature; {
	case sig == nil || !sig.SignatureFound:
		fmt.Println("  Signature: none")
	case sig.Signer == nil:
		fmt.Println("  Signature: present, no certificate")
	default:
		fmt.Printf("  Signature: %s (serial %s, issued by %s)\n", sig.Signer.Name, sig.Signer.SerialNumber, sig.Signer.Issuer)
		fmt.Printf("  Certificate: %s to %s\n", sig.Signer.ValidFrom.Format("2006-01-02"), sig.Signer.ValidTo.Format("2006-01-02"))
		if sig.SignedAt != nil {
			fmt.Printf("  Signed at: %s\n", sig.SignedAt.Format(time.RFC3339))
		}
	}

	for _, w := range info.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}
	if info.Signature != nil {
		for _, w := range info.Signature.Warnings {
			fmt.Printf("  Signature warning: %s\n", w)
		}
	}
}
