package zkproof

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/quantumproof-labs/qpops/pkg/canonicalize"
	"github.com/quantumproof-labs/qpops/pkg/zkproof/circuits"
)

// proofHashDomain separates proof digests from other SHA3-256 uses.
const proofHashDomain = "qpops.proof.v1"

// Witness carries the private inputs of one proof. It is consumed inside
// Prove and never serialized.
type Witness struct {
	CreditScore    int64
	DebtToIncomeBp int64
}

// Proof is the output of a single proving run. VerificationResult is left
// false until the orchestrator verifies the proof; it is never assumed.
type Proof struct {
	CircuitID          string   `json:"circuit_id"`
	CircuitVersion     string   `json:"circuit_version"`
	ProofBytes         []byte   `json:"-"`
	ProofHash          string   `json:"proof_hash"`
	PublicSignal       int64    `json:"public_signal"`
	ConstraintCount    uint64   `json:"constraint_count"`
	GenerationTimeMs   int64    `json:"generation_time_ms"`
	VerificationResult bool     `json:"verification_result"`
	Primitives         []string `json:"crypto_primitives_used"`
}

// Prover generates Groth16 proofs against the managed trusted setup.
type Prover struct {
	logger  *slog.Logger
	manager *Manager
}

// NewProver creates a Prover bound to the given setup manager.
func NewProver(logger *slog.Logger, manager *Manager) *Prover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prover{logger: logger, manager: manager}
}

// Prove generates a proof that w is in the circuit's input domain and that
// publicSignal is the weighted signal derived from it. A witness outside the
// domain, or a publicSignal that does not match the witness, fails with
// ErrConstraintViolation.
func (p *Prover) Prove(ctx context.Context, w Witness, publicSignal int64) (*Proof, error) {
	start := time.Now()

	ccs, pk, _, err := p.manager.artifacts()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	restore := silenceGnark()
	defer restore()

	field := ecc.BN254.ScalarField()
	assignment := &circuits.LoanSignalCircuit{
		CreditScore:    w.CreditScore,
		DebtToIncomeBp: w.DebtToIncomeBp,
		WeightedSignal: circuits.SignalToField(publicSignal, field),
	}

	fullWitness, err := frontend.NewWitness(assignment, field)
	if err != nil {
		return nil, fmt.Errorf("build witness: %w", err)
	}

	proof, err := groth16.Prove(ccs, pk, fullWitness)
	if err != nil {
		// The solver only fails here when a constraint is unsatisfiable,
		// i.e. out-of-range inputs or a mismatched public claim.
		return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof: %w", err)
	}
	proofBytes := buf.Bytes()

	elapsed := time.Since(start)
	result := &Proof{
		CircuitID:        p.manager.CircuitID(),
		CircuitVersion:   p.manager.CircuitVersion(),
		ProofBytes:       proofBytes,
		ProofHash:        hashProof(proofBytes, publicSignal),
		PublicSignal:     publicSignal,
		ConstraintCount:  uint64(ccs.GetNbConstraints()),
		GenerationTimeMs: elapsed.Milliseconds(),
		Primitives: []string{
			"Groth16 (gnark, BN254)",
			"SHA3-256 (proof digest)",
		},
	}

	p.logger.Debug("proof generated",
		"circuit", result.CircuitID,
		"proof_bytes", len(proofBytes),
		"constraints", result.ConstraintCount,
		"elapsed", elapsed)
	return result, nil
}

// hashProof computes the content-addressed digest of the proof bytes bound
// to the claimed public output.
func hashProof(proofBytes []byte, publicSignal int64) string {
	field := ecc.BN254.ScalarField()
	var buf bytes.Buffer
	buf.WriteString(proofHashDomain)
	buf.WriteByte(0)
	buf.Write(proofBytes)
	buf.WriteByte(0)
	buf.Write(circuits.SignalToField(publicSignal, field).Bytes())
	return canonicalize.HashBytes(buf.Bytes())
}
