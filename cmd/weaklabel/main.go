// Package main provides the weaklabel binary: batch weak supervision
// labeling over a JSONL corpus.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kestrelml/weaklabel/internal/analysis"
	"github.com/kestrelml/weaklabel/internal/config"
	"github.com/kestrelml/weaklabel/internal/encoding"
	"github.com/kestrelml/weaklabel/internal/labelfn"
	"github.com/kestrelml/weaklabel/internal/monitoring"
)

const (
	Version = "1.0.0"
	appName = "weaklabel"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Weak supervision label aggregation",
		Long: `Weaklabel aggregates noisy labeling function votes over a document
corpus into per-document probabilistic labels, with coverage and
conflict diagnostics for the corpus as a whole.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(runCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

func runCmd() *cobra.Command {
	var (
		configPath string
		inputPath  string
		outputPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Label a JSONL corpus",
		Long: `Run reads one JSON document per line from the input file, evaluates
the built-in labeling functions, trains the label model, and writes one
weak label record per line to the output file. Corpus diagnostics go to
a .diag.json sidecar next to the output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLabeling(configPath, inputPath, outputPath, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Input corpus path (JSONL, one document per line)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "labels.jsonl", "Output path for weak label records")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runLabeling(configPath, inputPath, outputPath, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := monitoring.NewLogger(parseLevel(logLevel))
	slog.SetDefault(logger.Logger)

	docs, err := encoding.ReadDocumentsFile(inputPath)
	if err != nil {
		return err
	}
	slog.Info("Corpus loaded", "documents", len(docs), "path", inputPath)

	registry := labelfn.NewRegistry()
	for _, fn := range labelfn.DefaultFunctions() {
		if err := registry.Register(fn); err != nil {
			return err
		}
	}

	engine := analysis.NewEngineWithThreshold(registry, cfg.Engine, logger, monitoring.NopMetrics(), cfg.FailureThreshold)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := engine.Label(ctx, docs)
	if err != nil {
		return err
	}

	if err := encoding.WriteRecordsFile(outputPath, result.Records); err != nil {
		return err
	}
	diagPath := diagnosticsPath(outputPath)
	if err := encoding.WriteDiagnosticsFile(diagPath, result.Diagnostics); err != nil {
		return err
	}

	slog.Info("Labeling complete",
		"documents", result.Diagnostics.TotalDocuments,
		"state", result.Diagnostics.TerminalState,
		"iterations", result.Diagnostics.Iterations,
		"coverage", result.Diagnostics.Coverage,
		"conflict_rate", result.Diagnostics.ConflictRate,
		"output", outputPath,
		"diagnostics", diagPath)
	return nil
}

// diagnosticsPath derives the sidecar path: labels.jsonl -> labels.diag.json.
func diagnosticsPath(outputPath string) string {
	base := strings.TrimSuffix(outputPath, ".jsonl")
	return base + ".diag.json"
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
