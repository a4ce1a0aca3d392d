package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/service"
	"github.com/rs/zerolog/log"
)

// statusFor maps service errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidGrade):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrAttemptNotFound), errors.Is(err, service.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrGradingIncomplete),
		errors.Is(err, service.ErrAttemptNotInProgress),
		errors.Is(err, service.ErrAttemptNotSubmitted),
		errors.Is(err, service.ErrAttemptFinalized),
		errors.Is(err, service.ErrQuizClosed),
		errors.Is(err, service.ErrQuizNotPublished),
		errors.Is(err, service.ErrQuizPastDue),
		errors.Is(err, service.ErrMaxAttemptsReached):
		return http.StatusConflict
	case errors.Is(err, service.ErrSubmissionNotPersisted),
		errors.Is(err, service.ErrDegraded),
		errors.Is(err, service.ErrAssistantUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError writes err as a dto.ErrorResponse with the mapped status.
func RespondError(ctx *gin.Context, op string, err error) {
	status := statusFor(err)
	resp := dto.ErrorResponse{Message: err.Error()}
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Message = "Validation failed"
		resp.Details = verr.Details
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("op", op).Int("status", status).Msg("Request failed")
		if status == http.StatusInternalServerError {
			resp = dto.ErrorResponse{Message: "Internal server error", Details: []string{err.Error()}}
		}
	} else {
		log.Warn().Err(err).Str("op", op).Int("status", status).Msg("Request rejected")
	}
	ctx.JSON(status, resp)
}

// StateStatus is 202 when the request was accepted but not durably applied.
func StateStatus(state *dto.AttemptStateDTO) int {
	if state.Degraded {
		return http.StatusAccepted
	}
	return http.StatusOK
}

// ParseUintParam reads a positive integer path parameter.
func ParseUintParam(ctx *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(ctx.Param(name), 10, 32)
	if err != nil || v == 0 {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid " + name + " format"})
		return 0, false
	}
	return uint(v), true
}

// BindJSON decodes the request body, replying 400 on failure.
func BindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return false
	}
	return true
}
