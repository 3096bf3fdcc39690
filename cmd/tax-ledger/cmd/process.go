package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/model"
	"github.com/rezonia/tax-ledger/internal/processor"
	"github.com/rezonia/tax-ledger/internal/report"
)

var outputFile string

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Build a tax ledger from invoice files",
	Long: `Process UBL invoices and write one ledger row per consolidated tax.

Inputs may be .zip archives, bare .xml documents, directories (walked
recursively) or glob patterns. Documents that cannot be read are skipped
and listed; the ledger holds every document that yielded data.

The output format follows --format, or the extension of --output when
--format is not given. Excel output requires --output.

Examples:
  tax-ledger process facturas.zip -o ledger.xlsx
  tax-ledger process facturas/ -f csv > ledger.csv
  tax-ledger process *.zip --origins prefer_document -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	flags := processCmd.Flags()
	flags.StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	flags.Duration("timeout", 300*time.Second, "Wall-clock budget for the whole batch")
	flags.Int("concurrency", 4, "Documents processed in parallel")
	flags.Int("max-documents", 0, "Stop after this many documents (0 = unlimited)")
	flags.String("party", "customer", "Whose tax id fills the Nit column (customer, supplier)")
	flags.String("origins", "all", "Tax entries to consolidate (all, prefer_document, line_items, document_totals)")
	flags.String("sheet", "Facturas", "Excel data sheet name")
	flags.Bool("summary-sheet", true, "Add the Resumen sheet to Excel output")

	bindFlag("processing.timeout", flags.Lookup("timeout"))
	bindFlag("processing.concurrency", flags.Lookup("concurrency"))
	bindFlag("processing.max_documents", flags.Lookup("max-documents"))
	bindFlag("ledger.party", flags.Lookup("party"))
	bindFlag("ledger.origins", flags.Lookup("origins"))
	bindFlag("report.sheet_name", flags.Lookup("sheet"))
	bindFlag("report.summary_sheet", flags.Lookup("summary-sheet"))
}

func runProcess(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(cmd)
	if err != nil {
		return err
	}
	if format == report.FormatXLSX && outputFile == "" {
		return fmt.Errorf("xlsx output requires --output")
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .zip or .xml files found to process")
	}
	printVerbose("Found %d files to process\n", len(files))

	docs, failures := loadDocuments(files)

	ctx, stop := signalContext()
	defer stop()

	batch := newPipeline(nil).ProcessBatch(ctx, docs, batchOptions())
	failures = append(failures, batch.Failures...)

	if err := writeOutput(format, batch); err != nil {
		return err
	}

	printSummary(batch, failures)

	switch {
	case batch.DeadlineExceeded():
		return fmt.Errorf("batch stopped after %s: %w", cfg.Processing.Timeout, batch.Halted)
	case errors.Is(batch.Halted, model.ErrBatchLimit):
		fmt.Fprintf(os.Stderr, "Stopped at %d documents (--max-documents)\n", cfg.Processing.MaxDocuments)
	}
	if batch.Summary.DocumentsProcessed == 0 && len(failures) > 0 {
		return fmt.Errorf("no documents could be processed")
	}
	return nil
}

// resolveFormat prefers an explicit --format, then the output extension
func resolveFormat(cmd *cobra.Command) (report.Format, error) {
	if !cmd.Flags().Changed("format") && outputFile != "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(outputFile)), ".")
		if f, err := report.ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return report.ParseFormat(outputFormat)
}

func writeOutput(format report.Format, batch *processor.BatchResult) error {
	var w io.Writer = os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	opts := report.Options{
		SheetName:    cfg.Report.SheetName,
		SummarySheet: cfg.Report.SummarySheet,
		Logger:       log,
	}
	if err := report.Write(w, format, batch.Rows, batch.Summary, opts); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	if outputFile != "" {
		log.Info("report written", zap.String("path", outputFile), zap.Int("rows", len(batch.Rows)))
	}
	return nil
}

func printSummary(batch *processor.BatchResult, failures []processor.Failure) {
	s := batch.Summary
	fmt.Fprintf(os.Stderr, "Processed %d documents from %d archives: %d rows, %d failed (%s)\n",
		s.DocumentsProcessed, s.Archives, s.Rows, len(failures), batch.Duration.Round(time.Millisecond))

	for _, f := range failures {
		if f.Document != "" {
			fmt.Fprintf(os.Stderr, "  skipped %s/%s [%s]: %s\n", f.Archive, f.Document, f.Reason, f.Message)
		} else {
			fmt.Fprintf(os.Stderr, "  skipped %s [%s]: %s\n", f.Archive, f.Reason, f.Message)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
