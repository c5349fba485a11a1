package services

import (
	"time"
)

// DefaultSnapshotCooldown is the minimum time between re-pricing passes of a bank
const DefaultSnapshotCooldown = 12 * time.Hour

// CooldownDecision is the outcome of a snapshot request
type CooldownDecision struct {
	Admitted      bool          `json:"admitted"`
	RemainingWait time.Duration `json:"remaining_wait,omitempty"`
}

// CooldownGate limits how often a bank may be re-priced. Its state for a bank is
// the time of the bank's most recent snapshot, which the caller reads from
// storage. A zero window admits every request.
type CooldownGate struct {
	window time.Duration
}

func NewCooldownGate(window time.Duration) *CooldownGate {
	if window < 0 {
		window = 0
	}
	return &CooldownGate{window: window}
}

// Window returns the configured cooldown window
func (g *CooldownGate) Window() time.Duration {
	return g.window
}

// Evaluate decides whether a snapshot may be taken at now. A zero last means the
// bank has never been priced.
func (g *CooldownGate) Evaluate(last, now time.Time) CooldownDecision {
	if last.IsZero() {
		return CooldownDecision{Admitted: true}
	}

	elapsed := now.Sub(last)
	if elapsed >= g.window {
		return CooldownDecision{Admitted: true}
	}

	return CooldownDecision{
		Admitted:      false,
		RemainingWait: g.window - elapsed,
	}
}

// NextAllowed returns when the next snapshot will be admitted, or the zero time
// if one would be admitted already
func (g *CooldownGate) NextAllowed(last, now time.Time) time.Time {
	d := g.Evaluate(last, now)
	if d.Admitted {
		return time.Time{}
	}
	return now.Add(d.RemainingWait)
}
