// Package zkproof generates and verifies Groth16 proofs for the loan signal
// circuit. The trusted setup is performed once per process and its artifacts
// (compiled circuit, proving key, verifying key) are immutable afterwards.
package zkproof

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"

	"github.com/quantumproof-labs/qpops/pkg/canonicalize"
	"github.com/quantumproof-labs/qpops/pkg/zkproof/circuits"
)

// circuitVersion is the current loan signal circuit release. Proofs carry it
// so verifiers can refuse artifacts from incompatible constraint sets.
var circuitVersion = semver.MustParse("1.0.0")

// circuitCompatRange accepts proofs from any circuit release with the same
// major version.
var circuitCompatRange = mustConstraint("^1.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Manager owns the one-time trusted setup for the loan signal circuit.
// Setup is lazy and happens exactly once; every later call reuses the same
// immutable artifacts.
type Manager struct {
	logger *slog.Logger

	once     sync.Once
	setupErr error

	ccs    constraint.ConstraintSystem
	pk     groth16.ProvingKey
	vk     groth16.VerifyingKey
	vkHash string
}

// NewManager creates a Manager. No keys are generated until Setup (or the
// first Prove/Verify) runs.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// CircuitID returns the stable circuit identifier used in exports.
func (m *Manager) CircuitID() string {
	return fmt.Sprintf("%s-groth16-v%s", circuits.LoanSignalCircuitID, circuitVersion)
}

// CircuitVersion returns the semantic version of the active circuit.
func (m *Manager) CircuitVersion() string { return circuitVersion.String() }

// CompatibleVersion reports whether a proof produced against the given
// circuit version can be verified by this manager.
func (m *Manager) CompatibleVersion(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return circuitCompatRange.Check(v)
}

// Setup compiles the circuit and runs the Groth16 setup, once. Safe for
// concurrent use; after the first success the artifacts never change.
func (m *Manager) Setup() error {
	m.once.Do(func() {
		restore := silenceGnark()
		defer restore()

		var circuit circuits.LoanSignalCircuit
		ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
		if err != nil {
			m.setupErr = fmt.Errorf("compile circuit: %w", err)
			return
		}

		pk, vk, err := groth16.Setup(ccs)
		if err != nil {
			m.setupErr = fmt.Errorf("groth16 setup: %w", err)
			return
		}

		var buf bytes.Buffer
		if _, err := vk.WriteTo(&buf); err != nil {
			m.setupErr = fmt.Errorf("serialize verifying key: %w", err)
			return
		}

		m.ccs = ccs
		m.pk = pk
		m.vk = vk
		m.vkHash = canonicalize.HashBytes(buf.Bytes())

		m.logger.Info("trusted setup ready",
			"circuit", m.CircuitID(),
			"constraints", ccs.GetNbConstraints(),
			"vk_hash", m.vkHash)
	})
	return m.setupErr
}

// VerifyingKeyHash returns the SHA3-256 hex digest of the verifying key.
func (m *Manager) VerifyingKeyHash() (string, error) {
	if err := m.Setup(); err != nil {
		return "", err
	}
	return m.vkHash, nil
}

// artifacts returns the immutable setup outputs, running Setup if needed.
func (m *Manager) artifacts() (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey, error) {
	if err := m.Setup(); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", ErrSetupNotReady, err)
	}
	return m.ccs, m.pk, m.vk, nil
}

// silenceGnark swaps gnark's internal zerolog logger for a discard logger
// so circuit compilation noise stays out of the application logs. The
// returned func restores the previous logger.
func silenceGnark() func() {
	old := gnarklogger.Logger()
	gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	return func() { gnarklogger.Set(old) }
}
