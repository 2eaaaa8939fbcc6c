package privacy

import (
	"fmt"
	"math"

	"github.com/quantumproof-labs/qpops/pkg/canonicalize"
)

// fingerprintDomain separates fingerprint digests from other SHA3-256 uses.
const fingerprintDomain = "qpops.fingerprint.v1"

// canonicalProfile pins the serialization used for fingerprinting: stable
// field order via JCS and stable numeric formatting (income fixed to cents,
// so float formatting can never produce two digests for equal inputs).
type canonicalProfile struct {
	Domain         string `json:"domain"`
	CreditScore    int64  `json:"credit_score"`
	DebtToIncomeBp int64  `json:"debt_to_income_bp"`
	IncomeCents    int64  `json:"income_cents"`
	Purpose        string `json:"purpose"`
}

// Fingerprint derives the deterministic one-way digest of a profile.
// Identical inputs always yield identical digests; the digest reveals
// nothing about individual field values.
func Fingerprint(p Profile) (Digest, error) {
	c := canonicalProfile{
		Domain:         fingerprintDomain,
		CreditScore:    p.CreditScore,
		DebtToIncomeBp: p.DebtToIncomeBp,
		IncomeCents:    int64(math.Round(p.AnnualIncome * 100)),
		Purpose:        p.Purpose,
	}

	hash, err := canonicalize.CanonicalHash(c)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return Digest(hash), nil
}
