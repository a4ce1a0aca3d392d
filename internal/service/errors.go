package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidGrade         = errors.New("invalid grade")
	ErrIllegalTransition    = errors.New("illegal attempt transition")
	ErrGradingIncomplete    = errors.New("manual grading is incomplete")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrForbidden            = errors.New("forbidden")

	ErrQuizNotFound       = errors.New("quiz not found")
	ErrQuizNotPublished   = errors.New("quiz is not open for attempts")
	ErrQuizClosed         = errors.New("quiz is closed")
	ErrQuizPastDue        = errors.New("quiz is past its due date")
	ErrMaxAttemptsReached = errors.New("maximum number of attempts reached")

	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrAttemptNotInProgress = errors.New("attempt is no longer in progress")
	ErrAttemptNotSubmitted  = errors.New("attempt has not been submitted")
	ErrAttemptFinalized     = errors.New("attempt is already graded")

	// ErrDegraded marks a persistence call that kept failing until its retry budget ran out.
	ErrDegraded = errors.New("persistence degraded")
	// ErrSubmissionNotPersisted is the loud failure of the final submit path.
	ErrSubmissionNotPersisted = errors.New("submission could not be persisted")
)

type DegradedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *DegradedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *DegradedError) Unwrap() error { return e.Err }

func (e *DegradedError) Is(target error) bool { return target == ErrDegraded }

// PendingGradesError is returned when an early finalize would zero questions
// and the caller has not confirmed it.
type PendingGradesError struct {
	QuestionIDs []uint
}

func (e *PendingGradesError) Error() string {
	ids := make([]string, len(e.QuestionIDs))
	for i, id := range e.QuestionIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	return fmt.Sprintf("finalizing now scores ungraded questions [%s] as 0; resend with confirm=true", strings.Join(ids, ", "))
}

func (e *PendingGradesError) Is(target error) bool { return target == ErrConfirmationRequired }

// domainErrors never succeed on retry.
var domainErrors = []error{
	ErrValidation, ErrInvalidGrade, ErrIllegalTransition, ErrGradingIncomplete,
	ErrConfirmationRequired, ErrForbidden,
	ErrQuizNotFound, ErrQuizNotPublished, ErrQuizClosed, ErrQuizPastDue, ErrMaxAttemptsReached,
	ErrAttemptNotFound, ErrAttemptNotInProgress, ErrAttemptNotSubmitted, ErrAttemptFinalized,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var ErrAssistantUnavailable = errors.New("grading assistant is unavailable")
