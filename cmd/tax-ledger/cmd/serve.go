package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/tax-ledger/internal/metrics"
	"github.com/rezonia/tax-ledger/internal/report"
	"github.com/rezonia/tax-ledger/internal/server"
	"github.com/rezonia/tax-ledger/internal/store"
)

var serverDebug bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for building tax ledgers.

The API provides endpoints for:
  - POST /api/v1/process        - Upload .zip/.xml files (field "files"), build a report
  - GET  /api/v1/download/:id   - Download a generated report
  - POST /api/v1/cleanup        - Remove expired reports
  - POST /api/v1/validate       - Reconcile one invoice's declared totals
  - POST /api/v1/info           - Describe an invoice or archive
  - GET  /health                - Health check
  - GET  /metrics               - Prometheus metrics

Batch limits, ledger options and report storage come from the config file
or TAXLEDGER_* environment variables.

Examples:
  tax-ledger serve
  tax-ledger serve --address :8080 --store-dir /var/lib/tax-ledger
  TAXLEDGER_LEDGER_ORIGINS=prefer_document tax-ledger serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("address", ":5051", "Server listen address")
	flags.BoolVar(&serverDebug, "debug", false, "Enable gin debug mode")
	flags.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	flags.Duration("write-timeout", 330*time.Second, "HTTP write timeout")
	flags.String("store-dir", "", "Directory for generated reports (default: system temp dir)")
	flags.Duration("store-ttl", 24*time.Hour, "How long generated reports stay downloadable")

	bindFlag("server.address", flags.Lookup("address"))
	bindFlag("server.read_timeout", flags.Lookup("read-timeout"))
	bindFlag("server.write_timeout", flags.Lookup("write-timeout"))
	bindFlag("store.dir", flags.Lookup("store-dir"))
	bindFlag("store.ttl", flags.Lookup("store-ttl"))
}

func runServe(cmd *cobra.Command, args []string) error {
	m := metrics.New()

	st, err := store.New(cfg.Store.Dir, cfg.Store.TTL, store.WithLogger(log))
	if err != nil {
		return err
	}

	config := &server.Config{
		Address:        cfg.Server.Address,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Debug:          serverDebug,
		ProcessTimeout: cfg.Processing.Timeout,
		Concurrency:    cfg.Processing.Concurrency,
		MaxDocuments:   cfg.Processing.MaxDocuments,
		MaxFileBytes:   cfg.Processing.MaxFileBytes,
		Report: report.Options{
			SheetName:    cfg.Report.SheetName,
			SummarySheet: cfg.Report.SummarySheet,
		},
	}

	srv, err := server.NewServer(config,
		server.WithLogger(log),
		server.WithMetrics(m),
		server.WithStore(st),
		server.WithPipeline(newPipeline(m)),
	)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Starting server on %s (reports in %s, kept %s)\n", config.Address, cfg.Store.Dir, cfg.Store.TTL)
	log.Info("starting server",
		zap.String("address", config.Address),
		zap.String("party", string(cfg.Party())),
		zap.String("origins", string(cfg.Origins())))

	return srv.Run(ctx)
}
