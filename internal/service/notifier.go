package service

import (
	"github.com/lshigami/quizengine/internal/model"
	"github.com/rs/zerolog/log"
)

// Notifier dispatches attempt lifecycle notifications. Dispatch is
// fire-and-forget: it never blocks or fails a transition.
type Notifier interface {
	AttemptCompleted(attempt model.Attempt)
	AttemptGraded(attempt model.Attempt)
}

// ActivityTracker records informational activity events.
type ActivityTracker interface {
	Track(actorID, action string, fields map[string]string)
}

type logNotifier struct{}

// NewNotifier returns a notifier that publishes events to the structured log.
func NewNotifier() Notifier {
	return &logNotifier{}
}

func (n *logNotifier) dispatch(event string, attempt model.Attempt) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("event", event).Str("attemptID", attempt.ID).Msg("Notification dispatch panicked")
			}
		}()
		ev := log.Info().
			Str("event", event).
			Str("attemptID", attempt.ID).
			Uint("quizID", attempt.QuizID).
			Str("studentID", attempt.StudentID).
			Str("status", string(attempt.Status))
		if attempt.Score != nil {
			ev = ev.Int("score", *attempt.Score)
		}
		ev.Msg("notification")
	}()
}

func (n *logNotifier) AttemptCompleted(attempt model.Attempt) {
	n.dispatch("attempt.completed", attempt)
}
func (n *logNotifier) AttemptGraded(attempt model.Attempt) { n.dispatch("attempt.graded", attempt) }

type logActivityTracker struct{}

func NewActivityTracker() ActivityTracker {
	return logActivityTracker{}
}

func (logActivityTracker) Track(actorID, action string, fields map[string]string) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("action", action).Msg("Activity tracking panicked")
			}
		}()
		ev := log.Debug().Str("actorID", actorID).Str("action", action)
		for k, v := range fields {
			ev = ev.Str(k, v)
		}
		ev.Msg("activity")
	}()
}
