package zkproof

import "errors"

var (
	// ErrConstraintViolation is returned when the circuit rejects the
	// witness. Upstream validation should make this unreachable; seeing it
	// means the compute-stage domain check was bypassed, so callers treat
	// it as fatal rather than recoverable.
	ErrConstraintViolation = errors.New("zkproof: circuit constraints not satisfied")

	// ErrSetupNotReady is returned when proving or verifying is attempted
	// before the one-time trusted setup completed.
	ErrSetupNotReady = errors.New("zkproof: trusted setup not ready")

	// ErrIncompatibleCircuit is returned when a proof references a circuit
	// version outside the supported compatibility range.
	ErrIncompatibleCircuit = errors.New("zkproof: incompatible circuit version")
)
