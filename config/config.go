package config

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	Redis        Redis
	Log          Log
	Tracing      Tracing
	Retry        Retry
	GeminiApiKey string
	GeminiModel  string
	// ExpirySweepSpec is a cron spec for the server-side auto-submit backstop.
	ExpirySweepSpec string
	// AnswerGrace is how long after a timed attempt's deadline answers are
	// still accepted, to absorb the client's expiry poll and request latency.
	AnswerGrace           time.Duration
	AnswerWritesPerMinute int
}

type Server struct {
	Port           string
	Mode           string
	AllowedOrigins []string
}

type Database struct {
	Driver   string // postgres | mysql | sqlite
	DSN      string // overrides the individual fields when set
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
	ScoreTTL time.Duration
}

type Log struct {
	Level string
	File  string
}

type Tracing struct {
	Enabled           bool
	ServiceName       string
	CollectorEndpoint string
}

type Retry struct {
	AutosaveAttempts int
	AutosaveBudget   time.Duration
	SubmitAttempts   int
	SubmitBudget     time.Duration
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DATABASE_DRIVER", "postgres")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCORE_CACHE_TTL", "10m")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_SERVICE_NAME", "quizengine")
	viper.SetDefault("TRACING_COLLECTOR_ENDPOINT", "http://localhost:14268/api/traces")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("EXPIRY_SWEEP_SPEC", "@every 15s")
	viper.SetDefault("ANSWER_GRACE_PERIOD", "5s")
	viper.SetDefault("AUTOSAVE_RETRY_ATTEMPTS", 4)
	viper.SetDefault("AUTOSAVE_RETRY_BUDGET", "3s")
	viper.SetDefault("SUBMIT_RETRY_ATTEMPTS", 8)
	viper.SetDefault("SUBMIT_RETRY_BUDGET", "10s")
	viper.SetDefault("RATE_LIMIT_ANSWERS_PER_MINUTE", 120)
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Server.Mode = viper.GetString("GIN_MODE")
	config.Server.AllowedOrigins = splitList(viper.GetString("CORS_ALLOWED_ORIGINS"))

	config.Database.Driver = strings.ToLower(viper.GetString("DATABASE_DRIVER"))
	config.Database.DSN = viper.GetString("DATABASE_DSN")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")
	config.Redis.ScoreTTL = viper.GetDuration("SCORE_CACHE_TTL")

	config.Log.Level = viper.GetString("LOG_LEVEL")
	config.Log.File = viper.GetString("LOG_FILE")

	config.Tracing.Enabled = viper.GetBool("TRACING_ENABLED")
	config.Tracing.ServiceName = viper.GetString("TRACING_SERVICE_NAME")
	config.Tracing.CollectorEndpoint = viper.GetString("TRACING_COLLECTOR_ENDPOINT")

	config.Retry.AutosaveAttempts = viper.GetInt("AUTOSAVE_RETRY_ATTEMPTS")
	config.Retry.AutosaveBudget = viper.GetDuration("AUTOSAVE_RETRY_BUDGET")
	config.Retry.SubmitAttempts = viper.GetInt("SUBMIT_RETRY_ATTEMPTS")
	config.Retry.SubmitBudget = viper.GetDuration("SUBMIT_RETRY_BUDGET")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")
	config.GeminiModel = viper.GetString("GEMINI_MODEL")
	config.ExpirySweepSpec = viper.GetString("EXPIRY_SWEEP_SPEC")
	config.AnswerGrace = viper.GetDuration("ANSWER_GRACE_PERIOD")
	config.AnswerWritesPerMinute = viper.GetInt("RATE_LIMIT_ANSWERS_PER_MINUTE")

	log.Info().
		Str("port", config.Server.Port).
		Str("db_driver", config.Database.Driver).
		Bool("redis", config.Redis.Addr != "").
		Bool("tracing", config.Tracing.Enabled).
		Msg("Config loaded")
	return &config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
