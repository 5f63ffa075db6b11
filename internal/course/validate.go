package course

import (
	"fmt"
	"strings"
)

const (
	MinAnswers = 2
	MaxAnswers = 6
)

// ValidateTitle rejects blank titles.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return Invalid("title", "must not be blank")
	}
	return nil
}

// ValidateQuestion checks the shape learners can see: an id and 2..6 answers
// with at most one marked correct.
func ValidateQuestion(q Question) error {
	field := "question"
	if q.ID != "" {
		field = "question " + q.ID
	}
	if n := len(q.Answers); n < MinAnswers || n > MaxAnswers {
		return Invalid(field, fmt.Sprintf("needs %d-%d answers, got %d", MinAnswers, MaxAnswers, n))
	}
	seen := make(map[string]struct{}, len(q.Answers))
	correct := 0
	for _, a := range q.Answers {
		if a.ID != "" {
			if _, dup := seen[a.ID]; dup {
				return Invalid(field, "duplicate answer id "+a.ID)
			}
			seen[a.ID] = struct{}{}
		}
		if a.IsCorrect {
			correct++
		}
	}
	if correct > 1 {
		return Invalid(field, "more than one correct answer")
	}
	return nil
}

// ValidateAuthoredQuestion additionally requires exactly one correct answer.
func ValidateAuthoredQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return Invalid("question", "text must not be blank")
	}
	if err := ValidateQuestion(q); err != nil {
		return err
	}
	for _, a := range q.Answers {
		if a.IsCorrect {
			return nil
		}
	}
	return Invalid("question", "exactly one answer must be correct")
}

// ValidateEvaluation validates a full authored evaluation.
func ValidateEvaluation(e Evaluation) error {
	if err := ValidateTitle(e.Title); err != nil {
		return err
	}
	if len(e.Questions) == 0 {
		return Invalid("questions", "at least one question required")
	}
	for _, q := range e.Questions {
		if err := ValidateAuthoredQuestion(q); err != nil {
			return err
		}
	}
	return nil
}

// ValidateMaterial checks a new material before it is sent anywhere.
func ValidateMaterial(item ContentItem) error {
	if err := ValidateTitle(item.Title); err != nil {
		return err
	}
	mt := ParseMediaType(string(item.MediaType))
	if !mt.Known() {
		return Invalid("mediaType", "unknown media type "+string(item.MediaType))
	}
	if (mt == MediaVideo || mt == MediaPDF) && strings.TrimSpace(item.Content) == "" {
		return Invalid("content", "url required for "+string(mt))
	}
	return nil
}
