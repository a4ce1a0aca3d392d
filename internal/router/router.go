package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/config"
	adminctrl "github.com/lshigami/quizengine/internal/controller/admin"
	userctrl "github.com/lshigami/quizengine/internal/controller/user"
	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/middleware"
	"github.com/lshigami/quizengine/internal/tracing"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func NewGinEngine(cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode == gin.ReleaseMode || cfg.Server.Mode == gin.TestMode {
		gin.SetMode(cfg.Server.Mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		log.Info().
			Str("client_ip", param.ClientIP).
			Str("method", param.Method).
			Str("path", param.Path).
			Int("status_code", param.StatusCode).
			Dur("latency", param.Latency).
			Str("user_agent", param.Request.UserAgent()).
			Str("error_message", param.ErrorMessage).
			Msg("gin_request")
		return ""
	}))
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware())
	r.Use(metrics.MetricsMiddleware())

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderUserRole},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(origins) != 1 || origins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	// URL: http://localhost:PORT/swagger/index.html
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/metrics", metrics.PrometheusHandler())

	return r
}

// RegisterRoutes mounts the API under /api/v1.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	quizCtrl *userctrl.QuizController,
	attemptCtrl *userctrl.AttemptController,
	adminQuizCtrl *adminctrl.QuizController,
	gradingCtrl *adminctrl.GradingController,
) {
	api := r.Group("/api/v1", middleware.Identity())
	{
		api.GET("/quizzes", quizCtrl.ListQuizzes)
		api.GET("/quizzes/:quiz_id", quizCtrl.GetQuiz)
		api.POST("/quizzes/:quiz_id/attempts", attemptCtrl.StartAttempt)
		api.GET("/quizzes/:quiz_id/my-attempts", attemptCtrl.ListMyAttempts)

		attempts := api.Group("/attempts/:attempt_id")
		attempts.GET("", attemptCtrl.GetAttempt)
		attempts.POST("/answers", middleware.RateLimiter(cfg.AnswerWritesPerMinute), attemptCtrl.SaveAnswers)
		attempts.POST("/submit", attemptCtrl.SubmitAttempt)
		attempts.GET("/score", attemptCtrl.GetScore)
		attempts.POST("/grades", middleware.RequireInstructor(), gradingCtrl.RecordGrade)
	}

	admin := api.Group("/admin", middleware.RequireInstructor())
	{
		admin.POST("/quizzes", adminQuizCtrl.CreateQuiz)
		admin.PATCH("/quizzes/:quiz_id/status", adminQuizCtrl.UpdateQuizStatus)
		admin.GET("/attempts/:attempt_id/grades", gradingCtrl.ListGrades)
		admin.POST("/attempts/:attempt_id/finalize", gradingCtrl.FinalizeAttempt)
		admin.POST("/attempts/:attempt_id/questions/:question_id/suggestion", gradingCtrl.SuggestGrade)
	}
}
