package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/quizengine/config"
	"github.com/lshigami/quizengine/internal/model"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

type GradeSuggestion struct {
	Points   int
	Feedback string
}

// GradingAssistant proposes points and feedback for a free-response answer.
// Suggestions are advisory and never recorded as grades.
type GradingAssistant interface {
	SuggestGrade(ctx context.Context, question model.QuestionSnapshot, answer string) (*GradeSuggestion, error)
}

type textGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type geminiGradingAssistant struct {
	model textGenerator
}

func NewGradingAssistant(cfg *config.Config) (GradingAssistant, error) {
	if cfg.GeminiApiKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Grading suggestions are disabled.")
		return &geminiGradingAssistant{}, nil
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.GeminiApiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	gm := client.GenerativeModel(cfg.GeminiModel)
	gm.SetTemperature(0.2)
	return &geminiGradingAssistant{model: gm}, nil
}

func buildGradingPrompt(q model.QuestionSnapshot, answer string) string {
	var b strings.Builder
	b.WriteString("You are an experienced instructor grading one answer from a quiz.\n\n")
	if q.Type == model.QuestionEssay {
		b.WriteString("The question is an essay. Judge relevance, accuracy, structure and depth.\n\n")
	} else {
		b.WriteString("The question expects a short answer. Judge correctness and completeness; ignore spelling unless it changes meaning.\n\n")
	}
	b.WriteString("Question:\n---\n")
	b.WriteString(q.Prompt)
	b.WriteString("\n---\n\n")
	if q.CorrectAnswer != nil && strings.TrimSpace(*q.CorrectAnswer) != "" {
		b.WriteString("Reference answer (guidance only):\n---\n")
		b.WriteString(*q.CorrectAnswer)
		b.WriteString("\n---\n\n")
	}
	b.WriteString("Student's answer:\n---\n")
	b.WriteString(answer)
	b.WriteString("\n---\n\n")
	fmt.Fprintf(&b, `Format your response strictly as:
Score: [a whole number from 0 to %d]
Feedback:
[Two to five sentences of constructive feedback addressed to the student]
`, q.Points)
	return b.String()
}

// parseScoreAndFeedback reads the "Score:" and "Feedback:" sections of a model reply.
func parseScoreAndFeedback(raw string) (scoreStr string, feedback string, err error) {
	const scorePrefix, feedbackPrefix = "Score:", "Feedback:"

	scoreIndex := strings.Index(raw, scorePrefix)
	if scoreIndex == -1 {
		return "", raw, fmt.Errorf("response does not contain %q", scorePrefix)
	}
	rest := raw[scoreIndex+len(scorePrefix):]
	line := rest
	if nl := strings.Index(rest, "\n"); nl != -1 {
		line = rest[:nl]
	}
	if fields := strings.Fields(line); len(fields) > 0 {
		scoreStr = strings.TrimSuffix(fields[0], ",")
	}

	if fi := strings.Index(rest, feedbackPrefix); fi != -1 {
		feedback = strings.TrimSpace(rest[fi+len(feedbackPrefix):])
	} else if nl := strings.Index(rest, "\n"); nl != -1 {
		feedback = strings.TrimSpace(rest[nl+1:])
	}
	return scoreStr, feedback, nil
}

func (a *geminiGradingAssistant) SuggestGrade(ctx context.Context, q model.QuestionSnapshot, answer string) (*GradeSuggestion, error) {
	if a.model == nil {
		return nil, ErrAssistantUnavailable
	}
	resp, err := a.model.GenerateContent(ctx, genai.Text(buildGradingPrompt(q, answer)))
	if err != nil {
		log.Error().Err(err).Uint("questionID", q.ID).Msg("Gemini API error during grading suggestion")
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: empty response", ErrAssistantUnavailable)
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	scoreStr, feedback, err := parseScoreAndFeedback(text.String())
	if err != nil {
		log.Warn().Err(err).Str("rawResponse", text.String()).Msg("Failed to parse grading suggestion")
		return nil, fmt.Errorf("%w: %v", ErrAssistantUnavailable, err)
	}
	score, err := strconv.ParseFloat(scoreStr, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable score %q", ErrAssistantUnavailable, scoreStr)
	}
	return &GradeSuggestion{
		Points:   clamp(int(math.Round(score)), q.Points),
		Feedback: feedback,
	}, nil
}
