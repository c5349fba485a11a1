package services

import (
	"testing"
	"time"
)

func TestCooldownGateEvaluate(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		window        time.Duration
		last          time.Time
		now           time.Time
		wantAdmitted  bool
		wantRemaining time.Duration
	}{
		{"never priced", 12 * time.Hour, time.Time{}, base, true, 0},
		{"one hour after last", 12 * time.Hour, base, base.Add(time.Hour), false, 11 * time.Hour},
		{"exactly at window", 12 * time.Hour, base, base.Add(12 * time.Hour), true, 0},
		{"past window", 12 * time.Hour, base, base.Add(13 * time.Hour), true, 0},
		{"one second short", 12 * time.Hour, base, base.Add(12*time.Hour - time.Second), false, time.Second},
		{"zero window", 0, base, base, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewCooldownGate(tt.window).Evaluate(tt.last, tt.now)
			if got.Admitted != tt.wantAdmitted {
				t.Errorf("Evaluate() admitted = %v, want %v", got.Admitted, tt.wantAdmitted)
			}
			if got.RemainingWait != tt.wantRemaining {
				t.Errorf("Evaluate() remaining = %v, want %v", got.RemainingWait, tt.wantRemaining)
			}
		})
	}
}

// Consecutive requests where each admitted request records its instant as the
// bank's latest snapshot.
func TestCooldownGateSequence(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window time.Duration
		second time.Duration
		want   []bool
	}{
		{"within window", 12 * time.Hour, time.Hour, []bool{true, false}},
		{"window elapsed", 12 * time.Hour, 12 * time.Hour, []bool{true, true}},
		{"disabled", 0, 0, []bool{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewCooldownGate(tt.window)
			var last time.Time

			for i, now := range []time.Time{base, base.Add(tt.second)} {
				d := gate.Evaluate(last, now)
				if d.Admitted != tt.want[i] {
					t.Errorf("request %d admitted = %v, want %v", i+1, d.Admitted, tt.want[i])
				}
				if d.Admitted {
					last = now
				}
			}
		})
	}
}

func TestCooldownGateNextAllowed(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gate := NewCooldownGate(12 * time.Hour)

	if got := gate.NextAllowed(base, base.Add(time.Hour)); !got.Equal(base.Add(12 * time.Hour)) {
		t.Errorf("NextAllowed() = %v, want %v", got, base.Add(12*time.Hour))
	}
	if got := gate.NextAllowed(base, base.Add(13*time.Hour)); !got.IsZero() {
		t.Errorf("NextAllowed() after window = %v, want zero", got)
	}
}

func TestNewCooldownGateClampsNegative(t *testing.T) {
	if got := NewCooldownGate(-time.Hour).Window(); got != 0 {
		t.Errorf("Window() = %v, want 0", got)
	}
}
