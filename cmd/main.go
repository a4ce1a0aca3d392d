package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/quizengine/config"
	"github.com/lshigami/quizengine/database"
	_ "github.com/lshigami/quizengine/docs" // Swagger docs
	"github.com/lshigami/quizengine/internal/cache"
	adminctrl "github.com/lshigami/quizengine/internal/controller/admin"
	userctrl "github.com/lshigami/quizengine/internal/controller/user"
	"github.com/lshigami/quizengine/internal/logger"
	"github.com/lshigami/quizengine/internal/metrics"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/lshigami/quizengine/internal/repository"
	"github.com/lshigami/quizengine/internal/router"
	"github.com/lshigami/quizengine/internal/service"
	"github.com/lshigami/quizengine/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// @title Quiz Engine API
// @version 1.0
// @description Quiz attempts with a persistent timer, merge-safe answer capture, idempotent submission, and blended auto/manual scoring.
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
func main() {
	logger.Init()

	app := fx.New(
		fx.Provide(
			config.NewConfig,
			database.NewDatabase,
			router.NewGinEngine,
			cache.NewScoreCache,
		),

		// Repositories
		fx.Provide(
			repository.NewQuizRepository,
			repository.NewQuestionRepository,
			repository.NewAttemptRepository,
			repository.NewManualGradeRepository,
		),

		// Attempt core
		fx.Provide(
			service.NewRetryPolicies,
			service.NewExpiryPolicy,
			service.NewAnswerStore,
			service.NewManualGradeLedger,
			service.NewAttemptStateMachine,
			service.NewNotifier,
			service.NewActivityTracker,
			service.NewSubmissionCoordinator,
			service.NewExpirySweeper,
		),

		// Services
		fx.Provide(
			service.NewQuizService,
			service.NewAttemptService,
			service.NewGradingService,
			service.NewGradingAssistant,
		),

		// Controllers
		fx.Provide(
			userctrl.NewQuizController,
			userctrl.NewAttemptController,
			adminctrl.NewQuizController,
			adminctrl.NewGradingController,
		),

		fx.Invoke(ConfigureObservability),
		fx.Invoke(AutoMigrateDB),
		fx.Invoke(router.RegisterRoutes),
		fx.Invoke(StartServer),
		fx.Invoke(StartExpirySweeper),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	<-app.Done()
	log.Info().Msg("Application shutting down gracefully...")
	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

func ConfigureObservability(lc fx.Lifecycle, cfg *config.Config) error {
	logger.Configure(cfg)
	metrics.Init()
	shutdown, err := tracing.Init(cfg)
	if err != nil {
		return err
	}
	lc.Append(fx.Hook{OnStop: shutdown})
	return nil
}

func StartServer(lc fx.Lifecycle, r *gin.Engine, cfg *config.Config) {
	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info().Msgf("Quiz engine API starting on port %s", cfg.Server.Port)
			log.Info().Msgf("Swagger UI available at http://localhost:%s/swagger/index.html", cfg.Server.Port)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal().Err(err).Msg("Server ListenAndServe failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("Server shutting down...")
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	})
}

func StartExpirySweeper(lc fx.Lifecycle, sweeper *service.ExpirySweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error { return sweeper.Start() },
		OnStop:  sweeper.Stop,
	})
}

func AutoMigrateDB(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")
	err := db.AutoMigrate(
		&model.Quiz{},
		&model.Question{},
		&model.Attempt{},
		&model.ManualGrade{},
	)
	if err != nil {
		log.Error().Err(err).Msg("Database migration failed")
		return err
	}
	log.Info().Msg("Database migration completed successfully.")
	return nil
}
