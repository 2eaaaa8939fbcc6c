// Package run orchestrates one verification-gated computation pipeline per
// submitted profile: fingerprint, encrypted (or fallback) compute, proof
// generation, verification, and audit bundle assembly. The private profile
// exists only inside the Submit call frame; everything downstream sees
// digests and derived results.
package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quantumproof-labs/qpops/pkg/audit"
	"github.com/quantumproof-labs/qpops/pkg/fhe"
	"github.com/quantumproof-labs/qpops/pkg/observability"
	"github.com/quantumproof-labs/qpops/pkg/privacy"
	"github.com/quantumproof-labs/qpops/pkg/security"
	"github.com/quantumproof-labs/qpops/pkg/store"
	"github.com/quantumproof-labs/qpops/pkg/zkproof"
)

// Status is a run's position in the state machine.
type Status string

const (
	StatusCreated            Status = "CREATED"
	StatusFingerprinted      Status = "FINGERPRINTED"
	StatusComputed           Status = "COMPUTED"
	StatusProved             Status = "PROVED"
	StatusVerified           Status = "VERIFIED"
	StatusFailedVerification Status = "FAILED_VERIFICATION"
	StatusAudited            Status = "AUDITED"
	StatusError              Status = "ERROR"
)

// Benchmark carries the timing figures of one run. RuntimeMs reflects the
// active security mode's reporting multiplier.
type Benchmark struct {
	RuntimeMs          int64 `json:"runtime_ms"`
	EncryptionTimeMs   int64 `json:"encryption_time_ms"`
	ComputationTimeMs  int64 `json:"computation_time_ms"`
	ProvingTimeMs      int64 `json:"proving_time_ms"`
	VerificationTimeMs int64 `json:"verification_time_ms"`
}

// Outcome is the single result of a run. Bundle is non-nil exactly when
// Status is AUDITED; Reason is set for failed verification and errors.
type Outcome struct {
	RunID       string
	Status      Status
	Fingerprint privacy.Digest
	Bundle      *audit.Bundle
	Reason      string
	Benchmark   Benchmark
}

// Pipeline wires the stages together. One Pipeline serves many concurrent
// runs; per-run state lives entirely in the Submit call frame.
type Pipeline struct {
	logger   *slog.Logger
	engine   *fhe.Engine
	prover   *zkproof.Prover
	verifier *zkproof.Verifier
	sessions *store.SessionStore
	obs      *observability.Provider
	clock    func() time.Time
}

// NewPipeline creates a Pipeline. sessions and obs may be nil; the metadata
// side effect and instrumentation are then skipped.
func NewPipeline(logger *slog.Logger, engine *fhe.Engine, prover *zkproof.Prover, verifier *zkproof.Verifier, sessions *store.SessionStore, obs *observability.Provider) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:   logger,
		engine:   engine,
		prover:   prover,
		verifier: verifier,
		sessions: sessions,
		obs:      obs,
		clock:    time.Now,
	}
}

// WithClock overrides clock for testing.
func (p *Pipeline) WithClock(clock func() time.Time) *Pipeline {
	p.clock = clock
	return p
}

// Submit runs the full pipeline for one profile. It returns exactly one of:
// a verified outcome with a bundle (nil error), a failed-verification
// outcome (ErrVerificationFailed), or an error outcome (any other sentinel).
// No stage is retried; a failure is terminal for this run.
func (p *Pipeline) Submit(ctx context.Context, profile privacy.Profile, scenario string, forceFallback bool, secCtx *security.Context) (Outcome, error) {
	if secCtx == nil {
		secCtx = security.NewContext(p.logger)
	}

	runID := uuid.NewString()
	start := p.clock()
	logger := p.logger.With("run_id", runID)

	out := Outcome{RunID: runID, Status: StatusCreated}

	ctx, finish := p.track(ctx, "pipeline.run")
	var finalErr error
	defer func() { finish(finalErr) }()

	fail := func(status Status, err error) (Outcome, error) {
		out.Status = status
		out.Reason = err.Error() + "; resubmit to start a new run"
		out.Bundle = nil
		finalErr = err
		logger.Error("run terminated", "status", string(status), "error", err)
		return out, err
	}

	// Stage 1: fingerprint.
	digest, err := privacy.Fingerprint(profile)
	if err != nil {
		return fail(StatusError, fmt.Errorf("%w: fingerprint: %v", ErrInternal, err))
	}
	out.Fingerprint = digest
	out.Status = StatusFingerprinted
	logger.Info("profile fingerprinted", "fingerprint", digest, "profile", profile.Redacted())

	policy, err := fhe.PolicyFor(scenario)
	if err != nil {
		return fail(StatusError, fmt.Errorf("%w: %v", ErrInvalidInput, err))
	}

	if err := ctx.Err(); err != nil {
		return fail(StatusError, fmt.Errorf("%w: %w", ErrInternal, err))
	}

	// Stage 2: compute.
	mode := p.engine.SelectMode(forceFallback)
	result, err := p.engine.Compute(ctx, profile, policy, mode)
	if err != nil {
		switch {
		case errors.Is(err, fhe.ErrInvalidInput):
			return fail(StatusError, fmt.Errorf("%w: %v", ErrInvalidInput, err))
		case errors.Is(err, fhe.ErrBackendUnavailable):
			return fail(StatusError, fmt.Errorf("%w: %v", ErrBackendUnavailable, err))
		default:
			return fail(StatusError, fmt.Errorf("%w: compute: %v", ErrInternal, err))
		}
	}
	out.Status = StatusComputed

	if err := ctx.Err(); err != nil {
		return fail(StatusError, fmt.Errorf("%w: %w", ErrInternal, err))
	}

	// Stage 3: prove.
	proof, err := p.prover.Prove(ctx, zkproof.Witness{
		CreditScore:    profile.CreditScore,
		DebtToIncomeBp: profile.DebtToIncomeBp,
	}, result.WeightedSignal)
	if err != nil {
		if errors.Is(err, zkproof.ErrConstraintViolation) {
			// The circuit disagrees with upstream validation. Integrity
			// bug, not a user error.
			return fail(StatusError, fmt.Errorf("%w: %v", ErrConstraintViolation, err))
		}
		return fail(StatusError, fmt.Errorf("%w: prove: %v", ErrBackendUnavailable, err))
	}
	out.Status = StatusProved

	if err := ctx.Err(); err != nil {
		return fail(StatusError, fmt.Errorf("%w: %w", ErrInternal, err))
	}

	// Stage 4: verify. The gate: nothing downstream happens without a
	// fresh positive result.
	verifyStart := p.clock()
	ok, err := p.verifier.Verify(ctx, proof)
	verificationMs := p.clock().Sub(verifyStart).Milliseconds()
	if err != nil {
		return fail(StatusError, fmt.Errorf("%w: verify: %v", ErrInternal, err))
	}
	if !ok {
		return fail(StatusFailedVerification,
			fmt.Errorf("%w: proof for circuit %s did not verify", ErrVerificationFailed, proof.CircuitID))
	}
	proof.VerificationResult = true
	out.Status = StatusVerified

	// Security posture is read once, here, and only annotates reporting.
	secMode := secCtx.Mode()
	effects := security.EffectsFor(secMode)
	result.PerformanceOverheadPercent += effects.OverheadBonus

	elapsed := p.clock().Sub(start)
	out.Benchmark = Benchmark{
		RuntimeMs:          int64(float64(elapsed.Milliseconds()) * effects.RuntimeMultiplier),
		EncryptionTimeMs:   result.EncryptionTimeMs,
		ComputationTimeMs:  result.ComputationTimeMs,
		ProvingTimeMs:      proof.GenerationTimeMs,
		VerificationTimeMs: verificationMs,
	}

	// Stage 5: assemble the audit bundle.
	bundle, err := audit.Assemble(audit.Input{
		RunID:            runID,
		Compute:          result,
		Proof:            proof,
		SecurityMode:     secMode.String(),
		SecurityResponse: security.Response(secMode),
		RuntimeMs:        out.Benchmark.RuntimeMs,
	})
	if err != nil {
		return fail(StatusError, fmt.Errorf("%w: assemble: %v", ErrInternal, err))
	}
	out.Bundle = bundle
	out.Status = StatusAudited

	p.appendSessionRecord(ctx, logger, out, result, proof, scenario, secMode, start)

	logger.Info("run verified and audited",
		"decision", result.Decision,
		"mode", mode.String(),
		"security_mode", secMode.String(),
		"runtime_ms", out.Benchmark.RuntimeMs)
	return out, nil
}

// appendSessionRecord persists the non-sensitive metadata row. A storage
// failure does not invalidate an already verified run.
func (p *Pipeline) appendSessionRecord(ctx context.Context, logger *slog.Logger, out Outcome, result *fhe.Result, proof *zkproof.Proof, scenario string, secMode security.Mode, start time.Time) {
	if p.sessions == nil {
		return
	}
	rec := store.SessionRecord{
		RunID:              out.RunID,
		Fingerprint:        out.Fingerprint,
		Scenario:           scenario,
		Decision:           result.Decision,
		SecurityMode:       secMode.String(),
		ProofHash:          proof.ProofHash,
		VerificationResult: proof.VerificationResult,
		UsedFallback:       result.UsedFallback,
		RuntimeMs:          out.Benchmark.RuntimeMs,
		EncryptionTimeMs:   out.Benchmark.EncryptionTimeMs,
		ComputationTimeMs:  out.Benchmark.ComputationTimeMs,
		ProvingTimeMs:      out.Benchmark.ProvingTimeMs,
		VerificationTimeMs: out.Benchmark.VerificationTimeMs,
		CreatedAt:          start.UTC(),
		CompletedAt:        p.clock().UTC(),
	}
	if err := p.sessions.Append(ctx, rec); err != nil {
		logger.Warn("session metadata not persisted", "error", err)
	}
}

func (p *Pipeline) track(ctx context.Context, name string) (context.Context, func(error)) {
	if p.obs == nil {
		return ctx, func(error) {}
	}
	return p.obs.TrackStage(ctx, name)
}
