package user

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/controller"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/middleware"
	"github.com/lshigami/quizengine/internal/service"
	"github.com/rs/zerolog/log"
)

type AttemptController struct {
	attemptService service.AttemptService
}

func NewAttemptController(as service.AttemptService) *AttemptController {
	return &AttemptController{attemptService: as}
}

// StartAttempt godoc
// @Summary Start (or resume) an attempt
// @Description Opens a new attempt on a published quiz, or returns the caller's attempt that is still in progress.
// @Tags Attempts
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param X-User-ID header string true "Student ID"
// @Success 201 {object} dto.AttemptStateDTO
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Quiz closed, not published, past due, or attempts exhausted"
// @Router /quizzes/{quiz_id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	quizID, ok := controller.ParseUintParam(ctx, "quiz_id")
	if !ok {
		return
	}
	state, err := c.attemptService.StartAttempt(ctx.Request.Context(), quizID, middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "StartAttempt", err)
		return
	}
	ctx.JSON(http.StatusCreated, state)
}

// ListMyAttempts godoc
// @Summary List the caller's attempts on a quiz
// @Tags Attempts
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param X-User-ID header string true "Student ID"
// @Success 200 {array} dto.AttemptSummaryDTO
// @Router /quizzes/{quiz_id}/my-attempts [get]
func (c *AttemptController) ListMyAttempts(ctx *gin.Context) {
	quizID, ok := controller.ParseUintParam(ctx, "quiz_id")
	if !ok {
		return
	}
	attempts, err := c.attemptService.ListMyAttempts(ctx.Request.Context(), quizID, middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "ListMyAttempts", err)
		return
	}
	ctx.JSON(http.StatusOK, attempts)
}

// GetAttempt godoc
// @Summary Get an attempt with its live timer
// @Description remaining_seconds is derived from the persisted start time. An expired open attempt is submitted by this call.
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Caller ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	state, err := c.attemptService.GetAttempt(ctx.Request.Context(), ctx.Param("attempt_id"), middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "GetAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SaveAnswers godoc
// @Summary Merge-write answers
// @Description Merges the given answers into the attempt. Blank values never erase saved answers. Writes after submission, or after the time limit and its grace period, are rejected with 409. A 202 means the write could not be persisted in time and should be resent.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Student ID"
// @Param body body dto.SaveAnswersRequest true "Answers keyed by question ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Success 202 {object} dto.AttemptStateDTO "Degraded: answers not yet saved"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.AttemptStateDTO "Attempt no longer in progress; current state with a warning"
// @Router /attempts/{attempt_id}/answers [post]
func (c *AttemptController) SaveAnswers(ctx *gin.Context) {
	var req dto.SaveAnswersRequest
	if !controller.BindJSON(ctx, &req) {
		return
	}
	attemptID, actor := ctx.Param("attempt_id"), middleware.ActorFrom(ctx)
	state, err := c.attemptService.SaveAnswers(ctx.Request.Context(), attemptID, actor, req)
	if errors.Is(err, service.ErrAttemptNotInProgress) {
		if current, gerr := c.attemptService.GetAttempt(ctx.Request.Context(), attemptID, actor); gerr == nil {
			current.Warning = "This attempt was already submitted; the answers in this request were not saved."
			ctx.JSON(http.StatusConflict, current)
			return
		}
	}
	if err != nil {
		controller.RespondError(ctx, "SaveAnswers", err)
		return
	}
	ctx.JSON(controller.StateStatus(state), state)
}

// SubmitAttempt godoc
// @Summary Submit an attempt
// @Description Idempotent. Every answer source still held by the client is merged first. Repeated or concurrent submits return the current state with 200.
// @Tags Attempts
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Student ID"
// @Param body body dto.SubmitAttemptRequest false "Final answers"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 403 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Submission could not be persisted; retry"
// @Router /attempts/{attempt_id}/submit [post]
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	var req dto.SubmitAttemptRequest
	if ctx.Request.ContentLength != 0 && !controller.BindJSON(ctx, &req) {
		return
	}
	attemptID := ctx.Param("attempt_id")
	log.Info().Str("attemptID", attemptID).Str("source", req.Source).Int("answerCount", len(req.Answers)).Msg("Received submit request")
	state, err := c.attemptService.SubmitAttempt(ctx.Request.Context(), attemptID, middleware.ActorFrom(ctx), req)
	if err != nil {
		controller.RespondError(ctx, "SubmitAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// GetScore godoc
// @Summary Get the current score breakdown
// @Tags Attempts
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Caller ID"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /attempts/{attempt_id}/score [get]
func (c *AttemptController) GetScore(ctx *gin.Context) {
	state, err := c.attemptService.GetScore(ctx.Request.Context(), ctx.Param("attempt_id"), middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "GetScore", err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}
