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

	"github.com/quantumproof-labs/qpops/pkg/zkproof/circuits"
)

// Verifier checks Groth16 proofs against the fixed verifying key. Verify is
// a pure function of (proof bytes, claimed public output, verifying key); it
// never consults a cached or caller-supplied result.
type Verifier struct {
	logger  *slog.Logger
	manager *Manager
}

// NewVerifier creates a Verifier bound to the given setup manager.
func NewVerifier(logger *slog.Logger, manager *Manager) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger, manager: manager}
}

// Verify recomputes validity of the proof for the claimed public signal.
// Malformed or tampered proof bytes and mismatched claims return false; an
// error is returned only for system-level failures (missing setup).
func (v *Verifier) Verify(ctx context.Context, proof *Proof) (bool, error) {
	if proof == nil || len(proof.ProofBytes) == 0 {
		return false, nil
	}
	if !v.manager.CompatibleVersion(proof.CircuitVersion) {
		return false, fmt.Errorf("%w: %q", ErrIncompatibleCircuit, proof.CircuitVersion)
	}

	_, _, vk, err := v.manager.artifacts()
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	restore := silenceGnark()
	defer restore()

	start := time.Now()

	proofObj := groth16.NewProof(ecc.BN254)
	if _, err := proofObj.ReadFrom(bytes.NewReader(proof.ProofBytes)); err != nil {
		v.logger.Debug("proof deserialization failed", "err", err)
		return false, nil
	}

	// Recomputing the digest catches tampering with ProofHash or with the
	// claimed signal after proof generation.
	if hashProof(proof.ProofBytes, proof.PublicSignal) != proof.ProofHash {
		v.logger.Debug("proof digest mismatch")
		return false, nil
	}

	field := ecc.BN254.ScalarField()
	assignment := &circuits.LoanSignalCircuit{
		WeightedSignal: circuits.SignalToField(proof.PublicSignal, field),
	}
	publicWitness, err := frontend.NewWitness(assignment, field, frontend.PublicOnly())
	if err != nil {
		return false, fmt.Errorf("build public witness: %w", err)
	}

	if err := groth16.Verify(proofObj, vk, publicWitness); err != nil {
		v.logger.Debug("verification failed", "err", err, "elapsed", time.Since(start))
		return false, nil
	}

	v.logger.Debug("verification succeeded", "elapsed", time.Since(start))
	return true, nil
}
