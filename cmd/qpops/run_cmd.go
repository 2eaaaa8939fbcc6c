package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantumproof-labs/qpops/pkg/audit"
	"github.com/quantumproof-labs/qpops/pkg/config"
	"github.com/quantumproof-labs/qpops/pkg/privacy"
)

// runOnce submits a single profile and exports the verified audit bundle.
func runOnce(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	credit := fs.Int64("credit", 0, "credit score (300-850)")
	dtiBp := fs.Int64("dti-bp", 0, "debt-to-income ratio in basis points (0-10000)")
	income := fs.Float64("income", 0, "annual income")
	purpose := fs.String("purpose", "", "loan purpose")
	scenario := fs.String("scenario", "credit-risk", "decision scenario")
	fallback := fs.Bool("fallback", false, "force the plaintext fallback path")
	outputDir := fs.String("output-dir", "", "export directory (default from QPOPS_OUTPUT_DIR)")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := config.Load()
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	logger := newLogger(stderr, cfg.LogLevel)

	pipeline, _, secCtx, err := buildComponents(cfg, logger, nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "setup failed: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile := privacy.Profile{
		CreditScore:    *credit,
		DebtToIncomeBp: *dtiBp,
		AnnualIncome:   *income,
		Purpose:        *purpose,
	}

	out, err := pipeline.Submit(ctx, profile, *scenario, *fallback, secCtx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "run %s failed (%s): %s\n", out.RunID, out.Status, out.Reason)
		return 1
	}

	exporter, err := audit.NewExporter(cfg.OutputDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "export setup failed: %v\n", err)
		return 1
	}
	jsonPath, mdPath, err := exporter.Export(out.Bundle)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "export failed: %v\n", err)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "run %s: %s\n", out.RunID, out.Bundle.ComputeResult.Decision)
	_, _ = fmt.Fprintf(stdout, "  fingerprint: %s\n", out.Fingerprint)
	_, _ = fmt.Fprintf(stdout, "  proof hash:  %s\n", out.Bundle.Proof.ProofHash)
	_, _ = fmt.Fprintf(stdout, "  runtime:     %d ms\n", out.Benchmark.RuntimeMs)
	_, _ = fmt.Fprintf(stdout, "  exports:     %s, %s\n", jsonPath, mdPath)
	return 0
}
