package user

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/internal/controller"
	"github.com/lshigami/quizengine/internal/middleware"
	"github.com/lshigami/quizengine/internal/service"
)

type QuizController struct {
	quizService service.QuizService
}

func NewQuizController(qs service.QuizService) *QuizController {
	return &QuizController{quizService: qs}
}

// ListQuizzes godoc
// @Summary List quizzes
// @Description Students see published and closed quizzes; instructors also see drafts.
// @Tags Quizzes
// @Produce json
// @Param X-User-ID header string true "Caller ID"
// @Param X-User-Role header string false "student or instructor"
// @Success 200 {array} dto.QuizSummaryDTO
// @Failure 500 {object} dto.ErrorResponse
// @Router /quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	quizzes, err := c.quizService.ListQuizzes(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		controller.RespondError(ctx, "ListQuizzes", err)
		return
	}
	ctx.JSON(http.StatusOK, quizzes)
}

// GetQuiz godoc
// @Summary Get a quiz with its questions
// @Description Answer keys are only included for instructors.
// @Tags Quizzes
// @Produce json
// @Param quiz_id path int true "Quiz ID"
// @Param X-User-ID header string true "Caller ID"
// @Param X-User-Role header string false "student or instructor"
// @Success 200 {object} dto.QuizResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /quizzes/{quiz_id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	quizID, ok := controller.ParseUintParam(ctx, "quiz_id")
	if !ok {
		return
	}
	quiz, err := c.quizService.GetQuiz(ctx.Request.Context(), middleware.ActorFrom(ctx), quizID)
	if err != nil {
		controller.RespondError(ctx, "GetQuiz", err)
		return
	}
	ctx.JSON(http.StatusOK, quiz)
}
