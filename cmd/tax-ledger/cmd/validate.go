package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/tax-ledger/internal/ledger"
)

var strictValidation bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Reconcile invoice totals",
	Long: `Check each document's declared totals against the taxes extracted from it.

Checks performed:
  - Document id present
  - TaxInclusive - TaxExclusive equals the extracted tax (0.01 tolerance)
  - Each consolidated tax equals base x rate
  - Missing or malformed fields

Examples:
  tax-ledger validate factura.xml
  tax-ledger validate lote.zip --strict -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&strictValidation, "strict", false, "Treat warnings as failures")
}

// ValidationResult is the outcome for one document
type ValidationResult struct {
	Archive string `json:"archive"`
	File    string `json:"file,omitempty"`
	ledger.Validation
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	docs, failures := loadDocuments(files)
	pipeline := newPipeline(nil)
	ctx := context.Background()

	results := make([]ValidationResult, 0, len(docs)+len(failures))
	for _, f := range failures {
		results = append(results, ValidationResult{
			Archive:    f.Archive,
			Validation: ledger.Validation{Errors: []string{f.Message}},
		})
	}
	for _, doc := range docs {
		result := ValidationResult{Archive: doc.Archive, File: doc.Name}
		if doc.Err != nil {
			result.Errors = []string{doc.Err.Error()}
			results = append(results, result)
			continue
		}
		inv, _, err := pipeline.Parse(ctx, doc.Data)
		if err != nil {
			result.Errors = []string{err.Error()}
			results = append(results, result)
			continue
		}
		result.Validation = ledger.Validate(inv)
		if strictValidation && len(result.Warnings) > 0 {
			result.Valid = false
		}
		results = append(results, result)
	}

	invalid := 0
	for _, r := range results {
		if !r.Valid {
			invalid++
		}
	}

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return err
		}
	} else {
		printValidation(results)
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d documents failed validation", invalid, len(results))
	}
	return nil
}

func printValidation(results []ValidationResult) {
	for _, r := range results {
		name := r.Archive
		if r.File != "" && r.File != r.Archive {
			name = r.Archive + "/" + r.File
		}

		if r.Valid {
			fmt.Printf("✓ %s: VALID\n", name)
		} else {
			fmt.Printf("✗ %s: INVALID\n", name)
		}
		if r.DocumentID != "" {
			fmt.Printf("  %s\n", r.Reconciliation.String())
		}
		for _, e := range r.Errors {
			fmt.Printf("  - %s\n", e)
		}
		for _, w := range r.Warnings {
			fmt.Printf("  ! %s\n", w)
		}
	}
}
