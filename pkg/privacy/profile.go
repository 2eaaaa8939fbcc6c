// Package privacy holds the private input profile and its one-way
// fingerprint. The Profile type must never cross the persistence boundary:
// downstream packages (store, audit) accept only the Digest and derived
// non-identifying results.
package privacy

// Profile is the sensitive financial input for one run. It lives in the
// orchestrator's working memory for the duration of the run and is discarded
// when the run reaches a terminal state.
//
// The struct carries no json tags on purpose: a Profile must not be
// marshaled outside this package. Fingerprint works from a canonical copy.
type Profile struct {
	CreditScore    int64
	DebtToIncomeBp int64
	AnnualIncome   float64
	Purpose        string
}

// Redacted returns a log-safe description of the profile.
func (p Profile) Redacted() string {
	return "profile(redacted)"
}

// Digest is the one-way fingerprint of a Profile. It is the only
// profile-derived identifier allowed past the persistence boundary.
type Digest string

// String returns the hex digest.
func (d Digest) String() string { return string(d) }
