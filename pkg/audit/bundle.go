// Package audit assembles the tamper-evident export for a verified run.
// A Bundle is only ever built from a run that passed proof verification,
// and never contains raw profile attributes.
package audit

import (
	"errors"
	"fmt"

	"github.com/quantumproof-labs/qpops/pkg/canonicalize"
	"github.com/quantumproof-labs/qpops/pkg/fhe"
	"github.com/quantumproof-labs/qpops/pkg/zkproof"
)

var (
	// ErrNotVerified is returned when assembly is attempted for a run
	// whose proof did not verify, or that has no proof at all.
	ErrNotVerified = errors.New("audit: run is not verified, no bundle produced")

	// ErrSchemaViolation is returned when an assembled record does not
	// match the export schema. Indicates a bug, not bad user input.
	ErrSchemaViolation = errors.New("audit: export record violates schema")
)

// ComputeRecord is the compute section of the export.
type ComputeRecord struct {
	Decision                   string `json:"decision"`
	DecisionReason             string `json:"decisionReason"`
	FHEEnabled                 bool   `json:"fheEnabled"`
	FHEScheme                  string `json:"fheScheme"`
	RiskReductionPercent       int    `json:"riskReductionPercent"`
	PerformanceOverheadPercent int    `json:"performanceOverheadPercent"`
	SecurityMode               string `json:"securityMode"`
	SecurityResponse           string `json:"securityResponse"`
}

// ProofRecord is the proof section of the export.
type ProofRecord struct {
	VerificationResult   bool     `json:"verificationResult"`
	ProofHash            string   `json:"proofHash"`
	CircuitID            string   `json:"circuitId"`
	CryptoPrimitivesUsed []string `json:"cryptoPrimitivesUsed"`
}

// BenchmarkRecord is the timing section of the export.
type BenchmarkRecord struct {
	RuntimeMs         int64 `json:"runtimeMs"`
	EncryptionTimeMs  int64 `json:"encryptionTimeMs"`
	ComputationTimeMs int64 `json:"computationTimeMs"`
}

// Bundle is the machine-readable export record for one verified run.
type Bundle struct {
	RunID         string          `json:"runId"`
	ComputeResult ComputeRecord   `json:"computeResult"`
	Proof         ProofRecord     `json:"proof"`
	Benchmark     BenchmarkRecord `json:"benchmark"`
}

// Input carries the verified run state the assembler works from. Only
// derived, non-identifying values appear here.
type Input struct {
	RunID            string
	Compute          *fhe.Result
	Proof            *zkproof.Proof
	SecurityMode     string
	SecurityResponse string
	RuntimeMs        int64
}

// Assemble builds and schema-validates the bundle for a verified run.
// Deterministic: the same input always yields the same bundle.
func Assemble(in Input) (*Bundle, error) {
	if in.Proof == nil || !in.Proof.VerificationResult {
		return nil, ErrNotVerified
	}
	if in.Compute == nil {
		return nil, fmt.Errorf("audit: missing compute result for run %s", in.RunID)
	}

	b := &Bundle{
		RunID: in.RunID,
		ComputeResult: ComputeRecord{
			Decision:                   in.Compute.Decision,
			DecisionReason:             in.Compute.DecisionReason,
			FHEEnabled:                 in.Compute.FHEEnabled,
			FHEScheme:                  in.Compute.FHEScheme,
			RiskReductionPercent:       in.Compute.RiskReductionPercent,
			PerformanceOverheadPercent: in.Compute.PerformanceOverheadPercent,
			SecurityMode:               in.SecurityMode,
			SecurityResponse:           in.SecurityResponse,
		},
		Proof: ProofRecord{
			VerificationResult:   in.Proof.VerificationResult,
			ProofHash:            in.Proof.ProofHash,
			CircuitID:            in.Proof.CircuitID,
			CryptoPrimitivesUsed: append([]string(nil), in.Proof.Primitives...),
		},
		Benchmark: BenchmarkRecord{
			RuntimeMs:         in.RuntimeMs,
			EncryptionTimeMs:  in.Compute.EncryptionTimeMs,
			ComputationTimeMs: in.Compute.ComputationTimeMs,
		},
	}

	if err := validateBundle(b); err != nil {
		return nil, err
	}
	return b, nil
}

// JSON returns the bundle as canonical (RFC 8785) JSON.
func (b *Bundle) JSON() ([]byte, error) {
	return canonicalize.JCS(b)
}
