package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/controller"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/middleware"
	"github.com/lshigami/quizengine/internal/service"
)

type QuizController struct {
	quizService service.QuizService
}

func NewQuizController(qs service.QuizService) *QuizController {
	return &QuizController{quizService: qs}
}

// CreateQuiz godoc
// @Summary (Instructor) Create a quiz
// @Description Creates a draft quiz with its questions. Multiple-choice answer keys must match one of the options.
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Param quiz_data body dto.CreateQuizRequest true "Quiz and questions"
// @Success 201 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /admin/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	var req dto.CreateQuizRequest
	if !controller.BindJSON(ctx, &req) {
		return
	}
	quiz, err := c.quizService.CreateQuiz(ctx.Request.Context(), middleware.ActorFrom(ctx), req)
	if err != nil {
		controller.RespondError(ctx, "CreateQuiz", err)
		return
	}
	ctx.JSON(http.StatusCreated, quiz)
}

// UpdateQuizStatus godoc
// @Summary (Instructor) Publish or close a quiz
// @Tags Admin - Quizzes
// @Accept json
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param X-User-ID header string true "Instructor ID"
// @Param X-User-Role header string true "instructor"
// @Param body body dto.UpdateQuizStatusRequest true "Target status"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /admin/quizzes/{quiz_id}/status [patch]
func (c *QuizController) UpdateQuizStatus(ctx *gin.Context) {
	quizID, ok := controller.ParseUintParam(ctx, "quiz_id")
	if !ok {
		return
	}
	var req dto.UpdateQuizStatusRequest
	if !controller.BindJSON(ctx, &req) {
		return
	}
	quiz, err := c.quizService.UpdateStatus(ctx.Request.Context(), middleware.ActorFrom(ctx), quizID, req)
	if err != nil {
		controller.RespondError(ctx, "UpdateQuizStatus", err)
		return
	}
	ctx.JSON(http.StatusOK, quiz)
}
