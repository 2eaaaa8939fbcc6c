package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Markdown renders the human-readable narrative from the exact field values
// of the machine-readable record. The two formats are built from the same
// struct, so the proof hash and every figure match bit for bit.
func (b *Bundle) Markdown() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Verified Computation Report\n\n")
	fmt.Fprintf(&sb, "Run `%s` completed with a verified zero-knowledge proof.\n\n", b.RunID)

	fmt.Fprintf(&sb, "## Decision\n\n")
	fmt.Fprintf(&sb, "The computation reached the decision **%s**: %s.\n\n",
		b.ComputeResult.Decision, b.ComputeResult.DecisionReason)

	fmt.Fprintf(&sb, "## Privacy & Encryption\n\n")
	if b.ComputeResult.FHEEnabled {
		fmt.Fprintf(&sb, "Inputs were processed under homomorphic encryption using %s; ", b.ComputeResult.FHEScheme)
		fmt.Fprintf(&sb, "raw attributes were never visible to the compute stage.\n")
	} else {
		fmt.Fprintf(&sb, "Computation ran on the plaintext fallback path (%s); ", b.ComputeResult.FHEScheme)
		fmt.Fprintf(&sb, "the formula and decision logic are identical to the encrypted path.\n")
	}
	fmt.Fprintf(&sb, "Estimated risk-exposure reduction: %d%%. Performance overhead versus plaintext: %d%%.\n\n",
		b.ComputeResult.RiskReductionPercent, b.ComputeResult.PerformanceOverheadPercent)

	fmt.Fprintf(&sb, "## Security Posture\n\n")
	fmt.Fprintf(&sb, "Security mode at completion: **%s**. %s.\n\n",
		b.ComputeResult.SecurityMode, b.ComputeResult.SecurityResponse)

	fmt.Fprintf(&sb, "## Proof of Correct Computation\n\n")
	fmt.Fprintf(&sb, "- Verification result: %t\n", b.Proof.VerificationResult)
	fmt.Fprintf(&sb, "- Circuit: `%s`\n", b.Proof.CircuitID)
	fmt.Fprintf(&sb, "- Proof hash: `%s`\n", b.Proof.ProofHash)
	fmt.Fprintf(&sb, "- Primitives: %s\n\n", strings.Join(b.Proof.CryptoPrimitivesUsed, ", "))

	fmt.Fprintf(&sb, "## Benchmark\n\n")
	fmt.Fprintf(&sb, "| Stage | Time (ms) |\n|---|---|\n")
	fmt.Fprintf(&sb, "| End-to-end runtime | %d |\n", b.Benchmark.RuntimeMs)
	fmt.Fprintf(&sb, "| Input encryption | %d |\n", b.Benchmark.EncryptionTimeMs)
	fmt.Fprintf(&sb, "| Encrypted computation | %d |\n", b.Benchmark.ComputationTimeMs)

	return sb.String()
}

// Exporter writes verified bundles to disk, one JSON record and one
// Markdown report per run.
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir, creating it if needed.
func NewExporter(dir string) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create export dir: %w", err)
	}
	return &Exporter{dir: dir}, nil
}

// Export writes both formats and returns their paths.
func (e *Exporter) Export(b *Bundle) (jsonPath, mdPath string, err error) {
	record, err := b.JSON()
	if err != nil {
		return "", "", fmt.Errorf("audit: render record: %w", err)
	}

	jsonPath = filepath.Join(e.dir, b.RunID+".json")
	if err := os.WriteFile(jsonPath, record, 0o644); err != nil {
		return "", "", fmt.Errorf("audit: write record: %w", err)
	}

	mdPath = filepath.Join(e.dir, b.RunID+".md")
	if err := os.WriteFile(mdPath, []byte(b.Markdown()), 0o644); err != nil {
		return "", "", fmt.Errorf("audit: write report: %w", err)
	}
	return jsonPath, mdPath, nil
}
