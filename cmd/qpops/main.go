package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/quantumproof-labs/qpops/pkg/config"
	"github.com/quantumproof-labs/qpops/pkg/fhe"
	"github.com/quantumproof-labs/qpops/pkg/observability"
	"github.com/quantumproof-labs/qpops/pkg/run"
	"github.com/quantumproof-labs/qpops/pkg/security"
	"github.com/quantumproof-labs/qpops/pkg/store"
	"github.com/quantumproof-labs/qpops/pkg/zkproof"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return 2
	}

	switch args[1] {
	case "run":
		return runOnce(args[2:], stdout, stderr)
	case "serve", "server":
		return runServer(stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", args[1])
		printUsage(stderr)
		return 2
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `qpops - verification-gated private computation pipeline

Usage:
  qpops run   -credit N -dti-bp N -income N [-purpose S] [-scenario S] [-fallback] [-output-dir DIR]
  qpops serve

Commands:
  run    Submit one profile, verify the proof, and export the audit bundle
  serve  Start the HTTP API`)
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// buildComponents wires the pipeline from configuration. obs may be nil
// for uninstrumented invocations.
func buildComponents(cfg *config.Config, logger *slog.Logger, obs *observability.Provider) (*run.Pipeline, *fhe.Engine, *security.Context, error) {
	if cfg.PolicyProfilePath != "" {
		if err := fhe.LoadPolicyProfiles(cfg.PolicyProfilePath); err != nil {
			return nil, nil, nil, err
		}
	}

	var backend fhe.Backend
	if cfg.FHEEnabled {
		ckks, err := fhe.NewCKKSBackend()
		if err != nil {
			logger.Warn("CKKS backend unavailable, runs will use the plaintext fallback", "error", err)
		} else {
			backend = ckks
		}
	}
	engine := fhe.NewEngine(logger, backend)

	manager := zkproof.NewManager(logger)
	prover := zkproof.NewProver(logger, manager)
	verifier := zkproof.NewVerifier(logger, manager)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, err
	}
	sessions, err := store.NewSessionStore(db)
	if err != nil {
		return nil, nil, nil, err
	}

	secCtx := security.NewContext(logger)
	pipeline := run.NewPipeline(logger, engine, prover, verifier, sessions, obs)
	return pipeline, engine, secCtx, nil
}
