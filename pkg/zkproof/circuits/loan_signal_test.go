package circuits

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/test"
)

func TestLoanSignalCircuitCompiles(t *testing.T) {
	var circuit LoanSignalCircuit
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if ccs.GetNbConstraints() == 0 {
		t.Fatal("expected a non-empty constraint system")
	}
}

func TestLoanSignalSatisfiedInRange(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	cases := []struct {
		name   string
		credit int64
		dtiBp  int64
	}{
		{"spec example", 800, 2000},
		{"review band", 750, 3000},
		{"lower bounds", 300, 0},
		{"upper bounds", 850, 10000},
	}

	for _, tc := range cases {
		witness := &LoanSignalCircuit{
			CreditScore:    tc.credit,
			DebtToIncomeBp: tc.dtiBp,
			WeightedSignal: SignalToField(WeightedSignal(tc.credit, tc.dtiBp), field),
		}
		assert.ProverSucceeded(&LoanSignalCircuit{}, witness,
			test.WithCurves(ecc.BN254), test.NoFuzzing())
	}
}

func TestLoanSignalRejectsOutOfRange(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	cases := []struct {
		name   string
		credit int64
		dtiBp  int64
	}{
		{"credit below floor", 299, 2000},
		{"credit above ceiling", 851, 2000},
		{"dti above ceiling", 700, 10001},
	}

	for _, tc := range cases {
		witness := &LoanSignalCircuit{
			CreditScore:    tc.credit,
			DebtToIncomeBp: tc.dtiBp,
			WeightedSignal: SignalToField(WeightedSignal(tc.credit, tc.dtiBp), field),
		}
		assert.ProverFailed(&LoanSignalCircuit{}, witness,
			test.WithCurves(ecc.BN254), test.NoFuzzing())
	}
}

func TestLoanSignalRejectsWrongClaimedOutput(t *testing.T) {
	assert := test.NewAssert(t)
	field := ecc.BN254.ScalarField()

	witness := &LoanSignalCircuit{
		CreditScore:    800,
		DebtToIncomeBp: 2000,
		WeightedSignal: SignalToField(WeightedSignal(800, 2000)+1, field),
	}
	assert.ProverFailed(&LoanSignalCircuit{}, witness,
		test.WithCurves(ecc.BN254), test.NoFuzzing())
}

func TestWeightedSignalSpecVectors(t *testing.T) {
	if got := WeightedSignal(750, 3000); got != -285000 {
		t.Fatalf("WeightedSignal(750,3000) = %d, want -285000", got)
	}
	if got := WeightedSignal(800, 2000); got != -160000 {
		t.Fatalf("WeightedSignal(800,2000) = %d, want -160000", got)
	}
}

func TestSignalToFieldNegativeCanonical(t *testing.T) {
	field := ecc.BN254.ScalarField()
	v := SignalToField(-285000, field)
	if v.Sign() < 0 {
		t.Fatal("field representative must be non-negative")
	}
	// -285000 mod p == p - 285000
	want := new(big.Int).Sub(field, big.NewInt(285000))
	if v.Cmp(want) != 0 {
		t.Fatalf("got %s, want %s", v, want)
	}
	if SignalToField(85000, field).Cmp(big.NewInt(85000)) != 0 {
		t.Fatal("non-negative signals must map to themselves")
	}
}
