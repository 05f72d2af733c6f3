package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/insightdelivered/upi-statement-extractor/internal/api"
	"github.com/insightdelivered/upi-statement-extractor/internal/batch"
	"github.com/insightdelivered/upi-statement-extractor/internal/config"
	"github.com/insightdelivered/upi-statement-extractor/internal/logger"
	"github.com/insightdelivered/upi-statement-extractor/internal/parser"
	"github.com/insightdelivered/upi-statement-extractor/internal/writer"
)

const version = "1.0.0"

func main() {
	// CLI flags
	outputFlag := flag.String("output", "", "Output CSV file path (defaults to input filename with .csv extension; single input only)")
	headerFlag := flag.Bool("header", true, "Include summary header rows in CSV")
	workersFlag := flag.Int("workers", 0, "Number of statements processed in parallel (overrides batch.workers)")
	configFlag := flag.String("config", "", "Path to a YAML config file")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of converting files")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides server.addr)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `UPI Statement Transaction Extractor
by Insight Delivered (QEA AutoLens)

Extracts income and expense transactions from PhonePe, Google Pay, Paytm
and other UPI statement exports into structured CSV files.

Usage:
  upi-statement-extractor [flags] <statement.pdf|statement.txt> [more ...]
  upi-statement-extractor -serve [-addr :8080]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Convert one statement
  upi-statement-extractor phonepe.pdf

  # Custom output path
  upi-statement-extractor --output=transactions.csv phonepe.pdf

  # Convert several statements, four at a time
  upi-statement-extractor --workers=4 jan.pdf feb.pdf mar.txt

  # Serve the API
  upi-statement-extractor --serve --addr=:9000

Environment:
  UPIQ_SERVER_ADDR, UPIQ_ENGINE_MIN_AMOUNT, UPIQ_ENGINE_MAX_AMOUNT,
  UPIQ_ENGINE_TIMEZONE, UPIQ_BATCH_WORKERS, UPIQ_LOG_LEVEL, UPIQ_LOG_PRETTY
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("upi-statement-extractor v%s\n", version)
		os.Exit(0)
	}

	if *helpFlag || (!*serveFlag && flag.NArg() == 0) {
		flag.Usage()
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	if *workersFlag > 0 {
		cfg.Batch.Workers = *workersFlag
	}
	if *addrFlag != "" {
		cfg.Server.Addr = *addrFlag
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	if err != nil {
		fatalf("Logger error: %v\n", err)
	}

	rules, err := cfg.Rules()
	if err != nil {
		fatalf("Configuration error: %v\n", err)
	}
	engine := parser.New(parser.WithRules(rules), parser.WithLogger(log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	if *serveFlag {
		if err := serve(ctx, cfg, engine); err != nil {
			fatalf("Server error: %v\n", err)
		}
		return
	}

	inputFiles := flag.Args()
	if *outputFlag != "" && len(inputFiles) > 1 {
		fatalf("--output can only be used with a single input file\n")
	}

	if failed := convert(ctx, cfg, engine, inputFiles, *outputFlag, *headerFlag); failed > 0 {
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config, engine *parser.Engine) error {
	log := logger.FromContext(ctx)
	app := api.NewApp(&api.Handler{Engine: engine, Log: log, Version: version}, cfg.Server.BodyLimitMB)

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("listening")
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}

// convert runs every input through the batch pool, writes one CSV per
// statement and returns the number of inputs that failed.
func convert(ctx context.Context, cfg *config.Config, engine *parser.Engine, inputs []string, outputPath string, includeHeader bool) int {
	log := logger.FromContext(ctx)
	pool := batch.NewPool(engine, cfg.Batch.Workers, batch.WithLogger(log))

	results, err := pool.Run(ctx, inputs)
	if err != nil {
		log.Warn().Err(err).Msg("batch interrupted")
	}

	failed := batch.Failed(results)
	for _, res := range results {
		if err := report(res, outputPath, includeHeader); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", res.Path, err)
			if res.Err == nil {
				// extracted but not written
				failed++
			}
		}
	}
	log.Info().Int("inputs", len(inputs)).Int("failed", failed).Msg("batch complete")
	return failed
}

func report(res batch.Result, outputPath string, includeHeader bool) error {
	fmt.Printf("Processing: %s\n", res.Path)
	if res.Err != nil {
		if batch.IsEmpty(res) {
			fmt.Println("  Warning: the statement contains no readable text.")
		}
		return res.Err
	}

	info := res.Info
	fmt.Printf("  Provider: %s\n", info.Provider)
	fmt.Printf("  Found %d transaction(s)\n", len(info.Transactions))

	if len(info.Transactions) == 0 {
		fmt.Println("  Warning: No transactions found. The statement format may not match expected patterns.")
	}

	// Determine output path
	outPath := outputPath
	if outPath == "" {
		outPath = strings.TrimSuffix(res.Path, filepath.Ext(res.Path)) + ".csv"
	}

	w := &writer.CSVWriter{IncludeHeader: includeHeader}
	if err := w.WriteToFile(outPath, info); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	income, expense := info.Totals()
	fmt.Printf("  Output: %s\n", outPath)
	fmt.Printf("  Income: %s  Expense: %s\n", income.StringFixed(2), expense.StringFixed(2))
	fmt.Println("  Done.")
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
