package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/config"
	"github.com/rezonia/tax-ledger/internal/logger"
	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/processor"
)

var (
	version = "1.0.0"

	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string

	v   = config.New()
	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tax-ledger",
	Short: "Build tax ledgers from UBL e-invoices",
	Long: `Tax Ledger reads UBL electronic invoices (bare XML or ZIP bundles of
AttachedDocument envelopes) and produces an accounting ledger with one row per
tax obligation, consolidated by scheme and rate and classified as GRAVADO,
EXENTO, EXCLUIDO or INDEFINIDO.

Examples:
  # Build an Excel ledger from a folder of ZIP archives
  tax-ledger process facturas/ -o ledger.xlsx

  # Print the rows of one invoice
  tax-ledger process factura.xml -f table

  # Check declared totals against extracted taxes
  tax-ledger validate *.zip

  # Start the HTTP API
  tax-ledger serve --address :5051`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	defer func() { _ = log.Sync() }()
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "Config file (YAML, env: TAXLEDGER_*)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging)")
	flags.StringVarP(&outputFormat, "format", "f", "table", "Output format (xlsx, csv, json, table)")
	flags.String("log-level", "warn", "Log level (debug, info, warn, error)")
	flags.String("log-format", "console", "Log format (json, console)")

	bindFlag("logger.level", flags.Lookup("log-level"))
	bindFlag("logger.format", flags.Lookup("log-format"))

	// CLI runs log to the terminal; the server default stays JSON
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
}

func initConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFrom(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = loaded

	level := cfg.Logger.Level
	if verbose {
		level = "debug"
	}
	l, err := logger.New(level, cfg.Logger.Format)
	if err != nil {
		return err
	}
	log = l
	return nil
}

func newPipeline(m *metrics.Metrics) *processor.Pipeline {
	return processor.NewPipeline(
		processor.WithLogger(log),
		processor.WithMetrics(m),
		processor.WithParty(cfg.Party()),
		processor.WithOrigins(cfg.Origins()),
	)
}

func batchOptions() processor.BatchOptions {
	return processor.BatchOptions{
		Concurrency:  cfg.Processing.Concurrency,
		Timeout:      cfg.Processing.Timeout,
		MaxDocuments: cfg.Processing.MaxDocuments,
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
