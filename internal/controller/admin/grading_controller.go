package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/controller"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/middleware"
	"github.com/lshigami/quizengine/internal/service"
)

type GradingController struct {
	gradingService service.GradingService
}

func NewGradingController(gs service.GradingService) *GradingController {
	return &GradingController{gradingService: gs}
}

// RecordGrade godoc
// @Summary (Instructor) Record a manual grade
// @Description Upserts the grade for one short-answer or essay question. The attempt becomes graded once every such question has a grade.
// @Tags Grading
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Param body body dto.RecordGradeRequest true "Grade"
// @Success 200 {object} dto.AttemptStateDTO
// @Success 202 {object} dto.AttemptStateDTO "Grade saved, score refresh pending"
// @Failure 400 {object} dto.ErrorResponse "Points out of range or question not gradable"
// @Failure 409 {object} dto.ErrorResponse "Attempt not submitted or already graded"
// @Router /attempts/{attempt_id}/grades [post]
func (c *GradingController) RecordGrade(ctx *gin.Context) {
	var req dto.RecordGradeRequest
	if !controller.BindJSON(ctx, &req) {
		return
	}
	state, err := c.gradingService.RecordGrade(ctx.Request.Context(), ctx.Param("attempt_id"), middleware.ActorFrom(ctx), req)
	if err != nil {
		controller.RespondError(ctx, "RecordGrade", err)
		return
	}
	ctx.JSON(controller.StateStatus(state), state)
}

// ListGrades godoc
// @Summary (Instructor) List manual grades of an attempt
// @Tags Grading
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Success 200 {array} dto.ManualGradeDTO
// @Router /admin/attempts/{attempt_id}/grades [get]
func (c *GradingController) ListGrades(ctx *gin.Context) {
	grades, err := c.gradingService.ListGrades(ctx.Request.Context(), ctx.Param("attempt_id"), middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "ListGrades", err)
		return
	}
	ctx.JSON(http.StatusOK, grades)
}

// FinalizeAttempt godoc
// @Summary (Instructor) Finalize an attempt early
// @Description Moves a completed attempt to graded. Ungraded manual questions score 0; when there are any, the request must carry confirm=true or it fails with 428 listing them.
// @Tags Grading
// @Accept json
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Param body body dto.FinalizeAttemptRequest false "Confirmation"
// @Success 200 {object} dto.AttemptStateDTO
// @Failure 409 {object} dto.ErrorResponse "Attempt still in progress"
// @Failure 428 {object} dto.ErrorResponse "Confirmation required"
// @Router /admin/attempts/{attempt_id}/finalize [post]
func (c *GradingController) FinalizeAttempt(ctx *gin.Context) {
	var req dto.FinalizeAttemptRequest
	if ctx.Request.ContentLength != 0 && !controller.BindJSON(ctx, &req) {
		return
	}
	state, err := c.gradingService.FinalizeEarly(ctx.Request.Context(), ctx.Param("attempt_id"), middleware.ActorFrom(ctx), req)
	if err != nil {
		controller.RespondError(ctx, "FinalizeAttempt", err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

// SuggestGrade godoc
// @Summary (Instructor) AI grading suggestion
// @Description Returns an advisory score and feedback for a free-response answer. Nothing is recorded.
// @Tags Grading
// @Produce json
// @Param attempt_id path string true "Attempt ID"
// @Param question_id path int true "Question ID"
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Success 200 {object} dto.GradeSuggestionDTO
// @Failure 503 {object} dto.ErrorResponse "Assistant unavailable"
// @Router /admin/attempts/{attempt_id}/questions/{question_id}/suggestion [post]
func (c *GradingController) SuggestGrade(ctx *gin.Context) {
	questionID, ok := controller.ParseUintParam(ctx, "question_id")
	if !ok {
		return
	}
	suggestion, err := c.gradingService.SuggestGrade(ctx.Request.Context(), ctx.Param("attempt_id"), questionID, middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "SuggestGrade", err)
		return
	}
	ctx.JSON(http.StatusOK, suggestion)
}
