package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lshigami/quizengine/internal/dto"
	"github.com/lshigami/quizengine/internal/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(questionRules, dto.QuestionRequest{})
	return v
}

// questionRules checks the answer key against the question type.
func questionRules(sl validator.StructLevel) {
	q := sl.Current().Interface().(dto.QuestionRequest)
	typ := model.QuestionType(q.Type)
	hasKey := q.CorrectAnswer != nil && strings.TrimSpace(*q.CorrectAnswer) != ""

	switch typ {
	case model.QuestionMultipleChoice:
		if len(q.Options) < 2 {
			sl.ReportError(q.Options, "Options", "options", "min_options", "2")
		}
		if !hasKey {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correct_answer", "required_for_type", q.Type)
			return
		}
		found := false
		for _, opt := range q.Options {
			if normalizeAnswer(opt) == normalizeAnswer(*q.CorrectAnswer) {
				found = true
				break
			}
		}
		if !found {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correct_answer", "in_options", "")
		}
	case model.QuestionTrueFalse:
		if !hasKey {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correct_answer", "required_for_type", q.Type)
			return
		}
		if k := normalizeAnswer(*q.CorrectAnswer); k != "true" && k != "false" {
			sl.ReportError(q.CorrectAnswer, "CorrectAnswer", "correct_answer", "true_or_false", "")
		}
		if len(q.Options) > 0 {
			sl.ReportError(q.Options, "Options", "options", "not_allowed_for_type", q.Type)
		}
	case model.QuestionShortAnswer, model.QuestionEssay:
		if len(q.Options) > 0 {
			sl.ReportError(q.Options, "Options", "options", "not_allowed_for_type", q.Type)
		}
	}
}

// validateStruct converts validator failures into a *ValidationError.
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		details = append(details, msg)
	}
	return &ValidationError{Details: details}
}
