// Package fhe performs the decision computation, either under CKKS
// homomorphic encryption or via an explicit plaintext fallback. Both paths
// evaluate the same formula and feed the same decision logic, so downstream
// behavior is equivalent modulo timing.
package fhe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quantumproof-labs/qpops/pkg/privacy"
	"github.com/quantumproof-labs/qpops/pkg/zkproof/circuits"
)

var (
	// ErrInvalidInput is returned when a profile violates the circuit's
	// input domain. Values are never clamped.
	ErrInvalidInput = errors.New("fhe: input outside valid domain")

	// ErrBackendUnavailable is returned when the encrypted path was
	// selected but the backend failed mid-run.
	ErrBackendUnavailable = errors.New("fhe: encrypted compute backend unavailable")
)

// Mode selects the compute path once per run and is threaded explicitly
// through the pipeline.
type Mode int

const (
	ModeEncrypted Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeEncrypted {
		return "encrypted"
	}
	return "fallback"
}

// Evaluation is a backend's raw output: the weighted signal plus timing.
type Evaluation struct {
	Signal          int64
	EncryptionTime  time.Duration
	ComputationTime time.Duration
}

// Backend evaluates the weighted signal over encrypted inputs. Ciphertexts
// never escape the implementation.
type Backend interface {
	EvaluateSignal(ctx context.Context, creditScore, debtToIncomeBp int64) (Evaluation, error)
	Scheme() string
	Available() bool
}

// Result is the outcome of one compute stage. Produced once per run and
// never mutated afterwards.
type Result struct {
	Decision                   string `json:"decision"`
	DecisionReason             string `json:"decision_reason"`
	WeightedSignal             int64  `json:"weighted_signal"`
	RiskReductionPercent       int    `json:"risk_reduction_percent"`
	FHEEnabled                 bool   `json:"fhe_enabled"`
	FHEScheme                  string `json:"fhe_scheme"`
	UsedFallback               bool   `json:"used_fallback"`
	PerformanceOverheadPercent int    `json:"performance_overhead_percent"`
	EncryptionTimeMs           int64  `json:"encryption_time_ms"`
	ComputationTimeMs          int64  `json:"computation_time_ms"`
}

// Engine runs the decision computation.
type Engine struct {
	logger  *slog.Logger
	backend Backend
}

// NewEngine creates an Engine. backend may be nil, in which case every run
// uses the fallback path.
func NewEngine(logger *slog.Logger, backend Backend) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, backend: backend}
}

// Status reports backend availability and its scheme label, for the health
// probe.
func (e *Engine) Status() (available bool, backendLabel string) {
	if e.backend == nil || !e.backend.Available() {
		return false, "none"
	}
	return true, e.backend.Scheme()
}

// SelectMode picks the compute path for one run. Fallback is used when
// explicitly requested or when no encrypted backend is available.
func (e *Engine) SelectMode(forceFallback bool) Mode {
	if forceFallback || e.backend == nil || !e.backend.Available() {
		return ModeFallback
	}
	return ModeEncrypted
}

// ValidateProfile checks the profile against the same numeric domain the
// proof circuit enforces. Violations fail fast with ErrInvalidInput.
func ValidateProfile(p privacy.Profile) error {
	if p.CreditScore < circuits.CreditScoreMin || p.CreditScore > circuits.CreditScoreMax {
		return fmt.Errorf("%w: credit score must be in [%d, %d]",
			ErrInvalidInput, circuits.CreditScoreMin, circuits.CreditScoreMax)
	}
	if p.DebtToIncomeBp < 0 || p.DebtToIncomeBp > circuits.DebtToIncomeBpMax {
		return fmt.Errorf("%w: debt-to-income must be in [0, %d] basis points",
			ErrInvalidInput, circuits.DebtToIncomeBpMax)
	}
	if p.AnnualIncome <= 0 {
		return fmt.Errorf("%w: annual income must be greater than 0", ErrInvalidInput)
	}
	return nil
}

// Compute validates the profile and evaluates the weighted signal on the
// selected path. Mode is fixed for the whole run; an encrypted-path failure
// is surfaced, never silently downgraded.
func (e *Engine) Compute(ctx context.Context, p privacy.Profile, policy Policy, mode Mode) (*Result, error) {
	if err := ValidateProfile(p); err != nil {
		return nil, err
	}

	plainStart := time.Now()
	plainSignal := circuits.WeightedSignal(p.CreditScore, p.DebtToIncomeBp)
	plainElapsed := time.Since(plainStart)

	var (
		eval   Evaluation
		scheme string
	)
	switch mode {
	case ModeEncrypted:
		if e.backend == nil || !e.backend.Available() {
			return nil, ErrBackendUnavailable
		}
		var err error
		eval, err = e.backend.EvaluateSignal(ctx, p.CreditScore, p.DebtToIncomeBp)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		scheme = e.backend.Scheme()
	case ModeFallback:
		eval = Evaluation{Signal: plainSignal, ComputationTime: plainElapsed}
		scheme = "plaintext-fallback"
	default:
		return nil, fmt.Errorf("fhe: unknown compute mode %d", mode)
	}

	decision, reason := policy.Decide(eval.Signal)

	result := &Result{
		Decision:                   decision,
		DecisionReason:             reason,
		WeightedSignal:             eval.Signal,
		RiskReductionPercent:       riskReductionPercent(eval.Signal),
		FHEEnabled:                 mode == ModeEncrypted,
		FHEScheme:                  scheme,
		UsedFallback:               mode == ModeFallback,
		PerformanceOverheadPercent: overheadPercent(eval, plainElapsed),
		EncryptionTimeMs:           eval.EncryptionTime.Milliseconds(),
		ComputationTimeMs:          eval.ComputationTime.Milliseconds(),
	}

	e.logger.Debug("compute stage done",
		"mode", mode.String(),
		"scheme", scheme,
		"decision", decision,
		"overhead_percent", result.PerformanceOverheadPercent)
	return result, nil
}

// riskReductionPercent maps the signal onto [0, 100] across the reachable
// signal domain. Derived from the decrypted scalar only.
func riskReductionPercent(signal int64) int {
	const (
		minSignal = circuits.CreditScoreMin*circuits.CreditWeight - circuits.DebtToIncomeBpMax*circuits.DebtWeight
		maxSignal = circuits.CreditScoreMax * circuits.CreditWeight
	)
	if signal <= minSignal {
		return 0
	}
	if signal >= maxSignal {
		return 100
	}
	return int((signal - minSignal) * 100 / (maxSignal - minSignal))
}

// overheadPercent compares the selected path against the plaintext baseline.
// The fallback path is its own baseline (100%).
func overheadPercent(eval Evaluation, plainElapsed time.Duration) int {
	total := eval.EncryptionTime + eval.ComputationTime
	if total == 0 {
		return 100
	}
	baseline := plainElapsed
	if baseline <= 0 {
		baseline = time.Nanosecond
	}
	percent := total.Nanoseconds() * 100 / baseline.Nanoseconds()
	if percent < 100 {
		percent = 100
	}
	return int(percent)
}
