package service

import (
	"time"

	"github.com/lshigami/quizengine/config"
)

// RemainingSeconds derives the time left on an attempt from its persisted
// start. bounded is false for untimed attempts, which never expire.
func RemainingSeconds(startedAt time.Time, limitMinutes *int, now time.Time) (remaining int64, bounded bool) {
	if limitMinutes == nil {
		return 0, false
	}
	total := int64(*limitMinutes) * 60
	elapsed := int64(now.Sub(startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining = total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Expired is level-triggered: it stays true once the limit has passed.
func Expired(startedAt time.Time, limitMinutes *int, now time.Time) bool {
	remaining, bounded := RemainingSeconds(startedAt, limitMinutes, now)
	return bounded && remaining == 0
}

func Deadline(startedAt time.Time, limitMinutes *int) (time.Time, bool) {
	if limitMinutes == nil {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(*limitMinutes) * time.Minute), true
}

// ExpiryPolicy decides whether answers that reach the server still count.
type ExpiryPolicy struct {
	Grace time.Duration
}

func NewExpiryPolicy(cfg *config.Config) ExpiryPolicy {
	if cfg.AnswerGrace < 0 {
		return ExpiryPolicy{}
	}
	return ExpiryPolicy{Grace: cfg.AnswerGrace}
}

// AcceptsAnswers is true for untimed attempts and until Grace has passed
// after the deadline of a timed one.
func (p ExpiryPolicy) AcceptsAnswers(startedAt time.Time, limitMinutes *int, now time.Time) bool {
	deadline, bounded := Deadline(startedAt, limitMinutes)
	return !bounded || now.Before(deadline.Add(p.Grace))
}
