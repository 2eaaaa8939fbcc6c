package run

import "errors"

// Pipeline error taxonomy. Every stage failure is wrapped in exactly one of
// these sentinels before crossing the pipeline boundary.
var (
	// ErrInvalidInput covers profile domain violations and unknown
	// scenarios. The run never reaches the compute stage.
	ErrInvalidInput = errors.New("run: invalid input")

	// ErrBackendUnavailable is an encrypted-compute or proving backend
	// failing mid-run without a permitted fallback.
	ErrBackendUnavailable = errors.New("run: backend unavailable")

	// ErrConstraintViolation means the circuit rejected values that passed
	// upstream validation. Treated as an integrity bug, never recoverable.
	ErrConstraintViolation = errors.New("run: circuit constraint violation")

	// ErrVerificationFailed means a proof was produced but did not verify.
	// The audit bundle is withheld; resubmitting corrected inputs starts a
	// fresh run.
	ErrVerificationFailed = errors.New("run: proof verification failed")

	// ErrInternal is any unexpected failure. The run terminates with no
	// partial bundle.
	ErrInternal = errors.New("run: internal error")
)
