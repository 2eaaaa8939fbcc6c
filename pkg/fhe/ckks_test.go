package fhe

import (
	"context"
	"testing"

	"github.com/quantumproof-labs/qpops/pkg/privacy"
	"github.com/quantumproof-labs/qpops/pkg/zkproof/circuits"
)

func newTestBackend(t *testing.T) *CKKSBackend {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping CKKS key generation in short mode")
	}
	backend, err := NewCKKSBackend()
	if err != nil {
		t.Fatalf("NewCKKSBackend failed: %v", err)
	}
	return backend
}

func TestCKKSMatchesPlaintext(t *testing.T) {
	backend := newTestBackend(t)

	cases := []struct {
		credit, dtiBp int64
	}{
		{750, 3000},
		{800, 2000},
		{300, 10000},
		{850, 0},
		{640, 4500},
	}
	for _, tc := range cases {
		eval, err := backend.EvaluateSignal(context.Background(), tc.credit, tc.dtiBp)
		if err != nil {
			t.Fatalf("EvaluateSignal(%d, %d) failed: %v", tc.credit, tc.dtiBp, err)
		}
		want := circuits.WeightedSignal(tc.credit, tc.dtiBp)
		if eval.Signal != want {
			t.Fatalf("EvaluateSignal(%d, %d) = %d, want %d", tc.credit, tc.dtiBp, eval.Signal, want)
		}
		if eval.EncryptionTime <= 0 || eval.ComputationTime < 0 {
			t.Fatalf("implausible timings: %+v", eval)
		}
	}
}

func TestCKKSHonorsCancellation(t *testing.T) {
	backend := newTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := backend.EvaluateSignal(ctx, 750, 3000); err == nil {
		t.Fatal("cancelled context must abort evaluation")
	}
}

func TestEngineEncryptedAndFallbackAgree(t *testing.T) {
	backend := newTestBackend(t)
	engine := NewEngine(nil, backend)
	policy := defaultPolicy(t)
	p := privacy.Profile{CreditScore: 750, DebtToIncomeBp: 3000, AnnualIncome: 90000}

	encrypted, err := engine.Compute(context.Background(), p, policy, ModeEncrypted)
	if err != nil {
		t.Fatalf("encrypted compute failed: %v", err)
	}
	fallback, err := engine.Compute(context.Background(), p, policy, ModeFallback)
	if err != nil {
		t.Fatalf("fallback compute failed: %v", err)
	}

	if encrypted.WeightedSignal != fallback.WeightedSignal {
		t.Fatalf("signals diverge: encrypted %d, fallback %d",
			encrypted.WeightedSignal, fallback.WeightedSignal)
	}
	if encrypted.Decision != fallback.Decision {
		t.Fatalf("decisions diverge: encrypted %q, fallback %q",
			encrypted.Decision, fallback.Decision)
	}
	if encrypted.RiskReductionPercent != fallback.RiskReductionPercent {
		t.Fatal("risk reduction must be mode-independent")
	}
}
