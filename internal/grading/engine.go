package grading

import (
	"context"
	"fmt"
	"math"

	"github.com/mind-engage/mindengage-courseware/internal/course"
)

// TypeSingleChoice is the only question type authored today; questions
// without a type are graded as single choice.
const (
	TypeSingleChoice = "single_choice"
	TypeTrueFalse    = "true_false"
)

// Outcome is the result of grading one question.
type Outcome struct {
	QuestionID string
	Correct    bool
	Answered   bool
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q course.Question, chosenAnswerID string) (Outcome, error)
}

// Report is a graded evaluation. Score is a percentage rounded to a whole
// number; Reinforcement lists material ids from missed questions, first
// occurrence wins.
type Report struct {
	Score         float64
	Correct       int
	Total         int
	Missed        []string
	Reinforcement []string
	Outcomes      []Outcome
}

func (r Report) Passed() bool { return r.Score >= course.PassingScore }

// Feedback is the sentence shown under the score.
func (r Report) Feedback() string {
	if r.Passed() {
		return fmt.Sprintf("Passed: %d of %d correct.", r.Correct, r.Total)
	}
	return fmt.Sprintf("Not passed: %d of %d correct. Review the suggested materials and try again.", r.Correct, r.Total)
}

// Grader grades a full submission against an evaluation with its key.
type Grader interface {
	Grade(ctx context.Context, ev course.Evaluation, sub course.Submission) (Report, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
	typeOf     func(course.Question) string
}

type Option func(*defaultGrader)

// WithStrategy installs or overrides the strategy for a question type.
func WithStrategy(typ string, s Strategy) Option {
	return func(g *defaultGrader) { g.strategies[typ] = s }
}

// WithTypeFunc tells the grader how to read a question's type.
func WithTypeFunc(f func(course.Question) string) Option {
	return func(g *defaultGrader) { g.typeOf = f }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	g := &defaultGrader{
		strategies: map[string]Strategy{
			TypeSingleChoice: singleChoiceStrategy{},
			TypeTrueFalse:    singleChoiceStrategy{},
		},
		typeOf: func(course.Question) string { return TypeSingleChoice },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *defaultGrader) Grade(ctx context.Context, ev course.Evaluation, sub course.Submission) (Report, error) {
	chosen := make(map[string]string, len(sub.Answers))
	for _, a := range sub.Answers {
		chosen[a.QuestionID] = a.ChosenAnswerID
	}
	for qid := range chosen {
		if !hasQuestion(ev, qid) {
			return Report{}, course.NotFound("question", qid)
		}
	}

	rep := Report{Total: len(ev.Questions)}
	seen := map[string]struct{}{}
	for _, q := range ev.Questions {
		s, ok := g.strategies[g.typeOf(q)]
		if !ok {
			return Report{}, fmt.Errorf("no strategy for question type %q", g.typeOf(q))
		}
		out, err := s.Grade(ctx, q, chosen[q.ID])
		if err != nil {
			return Report{}, fmt.Errorf("grade question %s: %w", q.ID, err)
		}
		rep.Outcomes = append(rep.Outcomes, out)
		if out.Correct {
			rep.Correct++
			continue
		}
		rep.Missed = append(rep.Missed, q.ID)
		for _, id := range q.ReinforcementIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			rep.Reinforcement = append(rep.Reinforcement, id)
		}
	}
	if rep.Total > 0 {
		rep.Score = math.Round(float64(rep.Correct) / float64(rep.Total) * 100)
	}
	return rep, nil
}

func hasQuestion(ev course.Evaluation, id string) bool {
	for _, q := range ev.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(_ context.Context, q course.Question, chosen string) (Outcome, error) {
	out := Outcome{QuestionID: q.ID, Answered: chosen != ""}
	if !out.Answered {
		return out, nil
	}
	found := false
	for _, a := range q.Answers {
		if a.ID != chosen {
			continue
		}
		found = true
		out.Correct = a.IsCorrect
	}
	if !found {
		return out, course.Invalid("answer", fmt.Sprintf("%s is not an answer of question %s", chosen, q.ID))
	}
	return out, nil
}
