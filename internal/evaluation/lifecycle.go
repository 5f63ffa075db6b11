// Package evaluation gates an assessment view through
// NotStarted -> InProgress -> Graded.
package evaluation

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/course"
)

type State string

const (
	NotStarted State = "not_started"
	InProgress State = "in_progress"
	Graded     State = "graded"
)

// Fetcher loads an evaluation's questions (answer key stripped).
type Fetcher interface {
	GetEvaluation(ctx context.Context, moduleID, evaluationID string) (course.Evaluation, error)
}

// Submitter grades a complete answer set.
type Submitter interface {
	SubmitEvaluation(ctx context.Context, moduleID, evaluationID string, sub course.Submission) (course.Result, error)
}

// Lifecycle is the per-visit state of one evaluation. Attempts live only in
// memory; Reset and Retry discard them.
type Lifecycle struct {
	mu sync.Mutex

	moduleID     string
	evaluationID string

	eval       *course.Evaluation
	state      State
	attempt    map[string]string // questionID -> answerID
	result     *course.Result
	submitting bool
	gen        uint64
}

func New(moduleID, evaluationID string) *Lifecycle {
	return &Lifecycle{moduleID: moduleID, evaluationID: evaluationID, state: NotStarted}
}

func (l *Lifecycle) ModuleID() string     { return l.moduleID }
func (l *Lifecycle) EvaluationID() string { return l.evaluationID }

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Load fetches the question list unless it is already present. A Reset
// during the fetch makes the response stale and it is dropped.
func (l *Lifecycle) Load(ctx context.Context, f Fetcher) error {
	l.mu.Lock()
	if l.eval != nil {
		l.mu.Unlock()
		return nil
	}
	gen := l.gen
	l.mu.Unlock()

	ev, err := f.GetEvaluation(ctx, l.moduleID, l.evaluationID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return course.ErrStale
	}
	if err != nil {
		return fmt.Errorf("load evaluation %s: %w", l.evaluationID, err)
	}
	return l.setLocked(ev)
}

// SetEvaluation installs an already fetched evaluation.
func (l *Lifecycle) SetEvaluation(ev course.Evaluation) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.setLocked(ev)
}

func (l *Lifecycle) setLocked(ev course.Evaluation) error {
	if len(ev.Questions) == 0 {
		return course.Invalid("questions", "evaluation has no questions")
	}
	for _, q := range ev.Questions {
		if err := course.ValidateQuestion(q); err != nil {
			return err
		}
	}
	l.eval = &ev
	return nil
}

// Evaluation returns the loaded evaluation, if any.
func (l *Lifecycle) Evaluation() (course.Evaluation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.eval == nil {
		return course.Evaluation{}, false
	}
	return *l.eval, true
}

// Begin moves NotStarted -> InProgress once questions are loaded.
func (l *Lifecycle) Begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != NotStarted {
		return course.Invalid("state", fmt.Sprintf("cannot begin from %s", l.state))
	}
	if l.eval == nil {
		return course.Invalid("questions", "not loaded")
	}
	l.state = InProgress
	l.attempt = map[string]string{}
	return nil
}

// Choose records one answer, replacing any earlier choice for the question.
func (l *Lifecycle) Choose(questionID, answerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != InProgress {
		return course.Invalid("state", fmt.Sprintf("cannot answer in %s", l.state))
	}
	q, ok := l.questionLocked(questionID)
	if !ok {
		return course.NotFound("question", questionID)
	}
	for _, a := range q.Answers {
		if a.ID == answerID {
			l.attempt[questionID] = answerID
			return nil
		}
	}
	return course.Invalid("answer", fmt.Sprintf("%s is not an answer of question %s", answerID, questionID))
}

// Answers returns a copy of the current attempt.
func (l *Lifecycle) Answers() map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]string, len(l.attempt))
	for k, v := range l.attempt {
		out[k] = v
	}
	return out
}

// Unanswered lists question ids without a recorded answer, in question order.
func (l *Lifecycle) Unanswered() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unansweredLocked()
}

func (l *Lifecycle) unansweredLocked() []string {
	if l.eval == nil {
		return nil
	}
	var out []string
	for _, q := range l.eval.Questions {
		if _, ok := l.attempt[q.ID]; !ok {
			out = append(out, q.ID)
		}
	}
	return out
}

// Submit sends the attempt once every question is answered. Validation and
// transport failures leave the state and the attempt untouched. A reset
// during the call makes the response stale and it is dropped.
func (l *Lifecycle) Submit(ctx context.Context, s Submitter) (course.Result, error) {
	l.mu.Lock()
	if l.state != InProgress {
		st := l.state
		l.mu.Unlock()
		return course.Result{}, course.Invalid("state", fmt.Sprintf("cannot submit in %s", st))
	}
	if l.submitting {
		l.mu.Unlock()
		return course.Result{}, course.Invalid("state", "submission already in flight")
	}
	if missing := l.unansweredLocked(); len(missing) > 0 {
		l.mu.Unlock()
		return course.Result{}, course.Invalid("answers", fmt.Sprintf("%d unanswered question(s)", len(missing)))
	}
	sub := l.submissionLocked()
	gen := l.gen
	l.submitting = true
	l.mu.Unlock()

	res, err := s.SubmitEvaluation(ctx, l.moduleID, l.evaluationID, sub)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen != gen {
		return course.Result{}, course.ErrStale
	}
	l.submitting = false
	if err != nil {
		return course.Result{}, err
	}
	l.result = &res
	l.state = Graded
	return res, nil
}

// Result is only available in Graded.
func (l *Lifecycle) Result() (course.Result, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.result == nil {
		return course.Result{}, false
	}
	return *l.result, true
}

// Retry leaves Graded for NotStarted, discarding the attempt and result.
func (l *Lifecycle) Retry() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Graded {
		return course.Invalid("state", fmt.Sprintf("cannot retry from %s", l.state))
	}
	l.resetLocked()
	return nil
}

// Reset returns to NotStarted from any state. Loaded questions are kept; an
// in-flight submission's response will be ignored.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetLocked()
}

func (l *Lifecycle) resetLocked() {
	l.gen++
	l.state = NotStarted
	l.attempt = nil
	l.result = nil
	l.submitting = false
}

func (l *Lifecycle) questionLocked(id string) (course.Question, bool) {
	if l.eval == nil {
		return course.Question{}, false
	}
	for _, q := range l.eval.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return course.Question{}, false
}

func (l *Lifecycle) submissionLocked() course.Submission {
	ids := make([]string, 0, len(l.attempt))
	for q := range l.attempt {
		ids = append(ids, q)
	}
	sort.Strings(ids)
	sub := course.Submission{Answers: make([]course.AnswerChoice, 0, len(ids))}
	for _, q := range ids {
		sub.Answers = append(sub.Answers, course.AnswerChoice{QuestionID: q, ChosenAnswerID: l.attempt[q]})
	}
	return sub
}
