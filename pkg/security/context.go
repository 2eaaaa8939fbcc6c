// Package security tracks the session's cryptographic posture. A Context
// escalates through NORMAL, HYBRID and POST_QUANTUM in response to simulated
// quantum attack events and never de-escalates.
package security

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrUnknownAttack is returned for attack types outside the simulated set.
var ErrUnknownAttack = errors.New("security: unknown attack type")

// Mode is the session's cryptographic posture. Ordering is meaningful:
// a Context only ever moves to a strictly higher mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeHybrid
	ModePostQuantum
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeHybrid:
		return "HYBRID"
	case ModePostQuantum:
		return "POST_QUANTUM"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// AttackType names a simulated quantum attack.
type AttackType string

const (
	AttackGrover AttackType = "grover"
	AttackShor   AttackType = "shor"
)

// Effects describes how a mode annotates reported figures. The computation
// itself is unchanged; only runtime and overhead reporting are scaled.
type Effects struct {
	RuntimeMultiplier float64
	OverheadBonus     int
}

// EffectsFor returns the reporting effects of a mode.
func EffectsFor(m Mode) Effects {
	switch m {
	case ModeHybrid:
		return Effects{RuntimeMultiplier: 1.12, OverheadBonus: 300}
	case ModePostQuantum:
		return Effects{RuntimeMultiplier: 1.35, OverheadBonus: 800}
	default:
		return Effects{RuntimeMultiplier: 1.0, OverheadBonus: 0}
	}
}

// RecommendedPrimitives lists the primitives appropriate under a mode.
func RecommendedPrimitives(m Mode) []string {
	switch m {
	case ModeHybrid:
		return []string{"X25519+Kyber-768 hybrid KEM", "Dilithium3", "SHA3-256"}
	case ModePostQuantum:
		return []string{"Kyber-1024", "Dilithium5", "SHA3-256"}
	default:
		return []string{"X25519", "Ed25519", "SHA3-256"}
	}
}

// Response is the posture statement recorded in exports for a mode.
func Response(m Mode) string {
	switch m {
	case ModeHybrid:
		return "Hybrid classical/post-quantum key exchange activated"
	case ModePostQuantum:
		return "Fully post-quantum primitives enforced for all new material"
	default:
		return "Classical primitives in effect; no quantum threat detected"
	}
}

// Transition records one attack event and its outcome.
type Transition struct {
	Attack                AttackType `json:"attack"`
	Previous              string     `json:"previous_mode"`
	New                   string     `json:"new_mode"`
	DetectorSummary       string     `json:"detector_summary"`
	AutoResponse          string     `json:"auto_response"`
	RecommendedPrimitives []string   `json:"recommended_primitives"`
	At                    time.Time  `json:"at"`
}

// Context is the session's security state machine. Safe for concurrent use;
// intended to be owned by the process-wide session, one per process.
type Context struct {
	mu     sync.RWMutex
	mode   Mode
	events []Transition

	logger *slog.Logger
	clock  func() time.Time
}

// NewContext starts a Context in NORMAL mode.
func NewContext(logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		mode:   ModeNormal,
		logger: logger,
		clock:  time.Now,
	}
}

// WithClock overrides clock for testing.
func (c *Context) WithClock(clock func() time.Time) *Context {
	c.clock = clock
	return c
}

// Mode returns the current posture.
func (c *Context) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// Transitions returns a copy of the event log in order of occurrence.
func (c *Context) Transitions() []Transition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Transition, len(c.events))
	copy(out, c.events)
	return out
}

// SimulateAttack escalates the posture by one step and records the event.
// POST_QUANTUM is terminal: further attacks are logged but change nothing.
func (c *Context) SimulateAttack(attack AttackType) (Transition, error) {
	var summary string
	switch attack {
	case AttackGrover:
		summary = "Grover-class search detected: quadratic speedup halves effective symmetric security"
	case AttackShor:
		summary = "Shor-class factoring detected: total break of RSA/ECC key exchange projected"
	default:
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownAttack, attack)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	previous := c.mode
	next := previous
	if next < ModePostQuantum {
		next++
	}
	c.mode = next

	tr := Transition{
		Attack:                attack,
		Previous:              previous.String(),
		New:                   next.String(),
		DetectorSummary:       summary,
		AutoResponse:          Response(next),
		RecommendedPrimitives: RecommendedPrimitives(next),
		At:                    c.clock().UTC(),
	}
	c.events = append(c.events, tr)

	c.logger.Warn("security posture escalated",
		"attack", string(attack),
		"previous_mode", tr.Previous,
		"new_mode", tr.New)
	return tr, nil
}
