// Package circuits defines the fixed arithmetic circuits proved with Groth16.
package circuits

import (
	"math/big"

	"github.com/consensys/gnark/frontend"
)

// Input domain enforced by the loan signal circuit. These bounds are the
// source of truth; the compute engine validates against the same values
// before any encryption happens.
const (
	CreditScoreMin    = 300
	CreditScoreMax    = 850
	DebtToIncomeBpMax = 10000

	// Weight constants of the public output.
	CreditWeight = 100
	DebtWeight   = 120
)

// LoanSignalCircuitID identifies the circuit; version is managed separately.
const LoanSignalCircuitID = "loan_signal"

// LoanSignalCircuit proves that two private financial attributes are in
// range and that the public weighted signal was derived from them:
//
//	300 <= CreditScore <= 850
//	0 <= DebtToIncomeBp <= 10000
//	WeightedSignal = CreditScore*100 - DebtToIncomeBp*120
//
// The signal is frequently negative; it lives in the scalar field, so both
// prover and verifier reduce it with SignalToField before assignment.
type LoanSignalCircuit struct {
	CreditScore    frontend.Variable `gnark:",secret"`
	DebtToIncomeBp frontend.Variable `gnark:",secret"`

	WeightedSignal frontend.Variable `gnark:",public"`
}

// Define establishes the constraint system.
func (c *LoanSignalCircuit) Define(api frontend.API) error {
	api.AssertIsLessOrEqual(CreditScoreMin, c.CreditScore)
	api.AssertIsLessOrEqual(c.CreditScore, CreditScoreMax)
	api.AssertIsLessOrEqual(c.DebtToIncomeBp, DebtToIncomeBpMax)

	signal := api.Sub(
		api.Mul(c.CreditScore, CreditWeight),
		api.Mul(c.DebtToIncomeBp, DebtWeight),
	)
	api.AssertIsEqual(signal, c.WeightedSignal)
	return nil
}

// WeightedSignal computes the circuit's public output in plain integers.
// Both compute paths and the proof subsystem must agree with this bit for bit.
func WeightedSignal(creditScore, debtToIncomeBp int64) int64 {
	return creditScore*CreditWeight - debtToIncomeBp*DebtWeight
}

// SignalToField maps a possibly negative signal onto the given scalar field,
// producing the canonical non-negative representative. Prover and verifier
// must use the same mapping or verification fails.
func SignalToField(signal int64, field *big.Int) *big.Int {
	v := big.NewInt(signal)
	return v.Mod(v, field)
}
