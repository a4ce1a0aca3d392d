package service

import (
	"testing"
	"time"

	"github.com/lshigami/quizengine/config"
)

func TestRemainingSeconds(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		name        string
		limit       *int
		now         time.Time
		wantLeft    int64
		wantBounded bool
		wantExpired bool
	}{
		{name: "untimed never expires", limit: nil, now: start.Add(72 * time.Hour), wantLeft: 0, wantBounded: false},
		{name: "just started", limit: intPtr(30), now: start, wantLeft: 1800, wantBounded: true},
		{name: "midway", limit: intPtr(30), now: start.Add(10*time.Minute + 500*time.Millisecond), wantLeft: 1200, wantBounded: true},
		{name: "exactly at deadline", limit: intPtr(30), now: start.Add(30 * time.Minute), wantLeft: 0, wantBounded: true, wantExpired: true},
		{name: "long past deadline stays zero", limit: intPtr(30), now: start.Add(5 * time.Hour), wantLeft: 0, wantBounded: true, wantExpired: true},
		{name: "clock behind start", limit: intPtr(1), now: start.Add(-time.Minute), wantLeft: 60, wantBounded: true},
		{name: "zero minute limit is expired at once", limit: intPtr(0), now: start, wantLeft: 0, wantBounded: true, wantExpired: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, bounded := RemainingSeconds(start, tt.limit, tt.now)
			if left != tt.wantLeft || bounded != tt.wantBounded {
				t.Errorf("RemainingSeconds() = (%d, %v), want (%d, %v)", left, bounded, tt.wantLeft, tt.wantBounded)
			}
			if got := Expired(start, tt.limit, tt.now); got != tt.wantExpired {
				t.Errorf("Expired() = %v, want %v", got, tt.wantExpired)
			}
		})
	}
}

func TestRemainingSecondsIsMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	prev := int64(1 << 62)
	for i := 0; i <= 130; i++ {
		left, _ := RemainingSeconds(start, intPtr(2), start.Add(time.Duration(i)*time.Second))
		if left > prev {
			t.Fatalf("remaining went up at %ds: %d > %d", i, left, prev)
		}
		prev = left
	}
}

func TestDeadline(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if _, ok := Deadline(start, nil); ok {
		t.Error("untimed attempt should have no deadline")
	}
	got, ok := Deadline(start, intPtr(45))
	if !ok || !got.Equal(start.Add(45*time.Minute)) {
		t.Errorf("Deadline() = %v, %v", got, ok)
	}
}

func TestExpiryPolicyAcceptsAnswers(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	deadline := start.Add(10 * time.Minute)
	tests := []struct {
		name  string
		grace time.Duration
		limit *int
		now   time.Time
		want  bool
	}{
		{name: "untimed", limit: nil, now: start.Add(48 * time.Hour), want: true},
		{name: "before deadline", limit: intPtr(10), now: deadline.Add(-time.Second), want: true},
		{name: "at deadline without grace", limit: intPtr(10), now: deadline, want: false},
		{name: "inside grace", grace: 5 * time.Second, limit: intPtr(10), now: deadline.Add(4 * time.Second), want: true},
		{name: "grace used up", grace: 5 * time.Second, limit: intPtr(10), now: deadline.Add(5 * time.Second), want: false},
		{name: "hours late", grace: 5 * time.Second, limit: intPtr(10), now: deadline.Add(3 * time.Hour), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ExpiryPolicy{Grace: tt.grace}
			if got := p.AcceptsAnswers(start, tt.limit, tt.now); got != tt.want {
				t.Errorf("AcceptsAnswers() = %v, want %v", got, tt.want)
			}
		})
	}

	if p := NewExpiryPolicy(&config.Config{AnswerGrace: -time.Second}); p.Grace != 0 {
		t.Errorf("negative grace = %s", p.Grace)
	}
}
