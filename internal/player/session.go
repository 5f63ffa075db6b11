// Package player drives a learner through one course: it flattens the
// hierarchy, resolves the entry point, navigates linearly and owns the
// lifecycle of whichever evaluation is active.
package player

import (
	"context"
	"errors"
	"sync"

	"github.com/mind-engage/mindengage-courseware/internal/course"
	"github.com/mind-engage/mindengage-courseware/internal/evaluation"
	"github.com/mind-engage/mindengage-courseware/internal/logger"
	"github.com/mind-engage/mindengage-courseware/internal/position"
	"github.com/mind-engage/mindengage-courseware/internal/render"
	"github.com/mind-engage/mindengage-courseware/internal/sequence"
)

// Source is the backing API a session reads from.
type Source interface {
	GetCourse(ctx context.Context, courseID string) (course.Course, error)
	evaluation.Fetcher
	evaluation.Submitter
}

type Option func(*Session)

func WithLogger(l *logger.Logger) Option { return func(s *Session) { s.log = logger.OrNop(l) } }

func WithDispatcher(d *render.Dispatcher) Option { return func(s *Session) { s.dispatcher = d } }

type Session struct {
	key        position.Key
	src        Source
	resolver   *position.Resolver
	dispatcher *render.Dispatcher
	log        *logger.Logger
	unsub      func()

	// navMu orders accepting a resolution with committing it, so the saved
	// position and the lifecycle always follow the last accepted navigation.
	navMu sync.Mutex

	mu     sync.Mutex
	title  string
	seq    sequence.Sequence
	active string
	gen    uint64
	closed bool

	// evalMu is separate from mu: the resolver calls back into the session
	// while navigation holds no lock, and the callback only touches eval.
	evalMu sync.Mutex
	eval   *evaluation.Lifecycle
}

// NewSession subscribes to resolver; call Close to detach.
func NewSession(learnerID, courseID string, src Source, resolver *position.Resolver, opts ...Option) *Session {
	s := &Session{
		key:      position.Key{LearnerID: learnerID, CourseID: courseID},
		src:      src,
		resolver: resolver,
		log:      logger.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.resolver == nil {
		s.resolver = position.NewResolver(nil, s.log)
	}
	if s.dispatcher == nil {
		s.dispatcher = render.NewDispatcher()
	}
	s.log = s.log.With("service", "PlayerSession", "learner_id", learnerID, "course_id", courseID)
	s.unsub = s.resolver.Subscribe(position.ListenerFunc(s.activated))
	return s
}

// activated swaps in a fresh lifecycle whenever this session's key resolves.
// Any attempt on the previous item is discarded.
func (s *Session) activated(key position.Key, e sequence.Entry) {
	if key != s.key {
		return
	}
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	if s.eval != nil {
		s.eval.Reset()
	}
	s.eval = nil
	if e.Item.IsEvaluation() {
		s.eval = evaluation.New(e.ModuleID, e.Item.ID)
	}
}

// Open fetches the course and resolves the entry item. requestedID is the
// optional deep link. A fetch failure leaves an empty course and returns
// the error; an empty course resolves to SourceNone without error.
func (s *Session) Open(ctx context.Context, requestedID string) (position.Resolution, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return position.Resolution{}, course.ErrClosed
	}
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	c, err := s.src.GetCourse(ctx, s.key.CourseID)
	if err != nil {
		s.mu.Lock()
		if gen == s.gen && !s.closed {
			s.seq, s.active, s.title = sequence.Sequence{}, "", ""
		}
		s.mu.Unlock()
		s.log.Warn("load course", "error", err)
		return position.Resolution{Source: position.SourceNone}, err
	}

	seq := sequence.Flatten(c.Modules)
	if err := s.current(gen); err != nil {
		return position.Resolution{}, err
	}
	res := s.resolver.Choose(ctx, s.key, seq, requestedID)

	s.navMu.Lock()
	defer s.navMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return position.Resolution{}, course.ErrClosed
	}
	if gen != s.gen {
		s.mu.Unlock()
		return position.Resolution{}, course.ErrStale
	}
	s.title = c.Title
	s.seq = seq
	s.active = res.Entry.Item.ID
	s.mu.Unlock()

	if err := s.resolver.Commit(ctx, s.key, res); err != nil {
		s.log.Warn("position not saved", "error", err)
	}
	return res, nil
}

func (s *Session) current(gen uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	if gen != s.gen {
		return course.ErrStale
	}
	return nil
}

// Next moves forward one entry. ok is false at the last entry.
func (s *Session) Next(ctx context.Context) (sequence.Entry, bool, error) {
	return s.step(ctx, sequence.Sequence.Next)
}

// Previous moves back one entry. ok is false at the first entry.
func (s *Session) Previous(ctx context.Context) (sequence.Entry, bool, error) {
	return s.step(ctx, sequence.Sequence.Previous)
}

func (s *Session) step(ctx context.Context, move func(sequence.Sequence, string) (sequence.Entry, bool)) (sequence.Entry, bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sequence.Entry{}, false, course.ErrClosed
	}
	e, ok := move(s.seq, s.active)
	s.mu.Unlock()
	if !ok {
		return sequence.Entry{}, false, nil
	}
	res, err := s.activate(ctx, e.Item.ID)
	if err != nil {
		return sequence.Entry{}, false, err
	}
	return res.Entry, true, nil
}

// Select jumps to an item, e.g. a reinforcement material linked from a
// result. Unknown ids are a NotFoundError and leave the position alone.
func (s *Session) Select(ctx context.Context, itemID string) (sequence.Entry, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return sequence.Entry{}, course.ErrClosed
	}
	_, ok := s.seq.Lookup(itemID)
	s.mu.Unlock()
	if !ok {
		return sequence.Entry{}, course.NotFound("content item", itemID)
	}
	res, err := s.activate(ctx, itemID)
	return res.Entry, err
}

func (s *Session) activate(ctx context.Context, itemID string) (position.Resolution, error) {
	s.mu.Lock()
	seq, gen := s.seq, s.gen
	s.mu.Unlock()

	res := s.resolver.Choose(ctx, s.key, seq, itemID)

	s.navMu.Lock()
	defer s.navMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return position.Resolution{}, course.ErrClosed
	}
	if gen != s.gen {
		s.mu.Unlock()
		return position.Resolution{}, course.ErrStale
	}
	s.active = res.Entry.Item.ID
	s.mu.Unlock()

	if err := s.resolver.Commit(ctx, s.key, res); err != nil {
		s.log.Warn("position not saved", "item_id", itemID, "error", err)
	}
	return res, nil
}

// Active is the current entry; ok is false for an empty or unloaded course.
func (s *Session) Active() (sequence.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Lookup(s.active)
}

func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// Entries is the flattened course.
func (s *Session) Entries() []sequence.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Entries()
}

func (s *Session) Progress() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.ProgressPercent(s.active)
}

// Step is the 1-based position of the active entry, 0 when nothing is active.
func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.IndexOf(s.active) + 1
}

func (s *Session) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq.Len()
}

// Plan describes how to present the active entry.
func (s *Session) Plan() (render.Plan, bool) {
	e, ok := s.Active()
	if !ok {
		return render.Plan{}, false
	}
	return s.dispatcher.Dispatch(e.Item), true
}

// Evaluation is the lifecycle of the active evaluation, nil when the active
// item is not one.
func (s *Session) Evaluation() *evaluation.Lifecycle {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()
	return s.eval
}

var errNoEvaluation = course.Invalid("item", "active item is not an evaluation")

func (s *Session) lifecycle() (*evaluation.Lifecycle, error) {
	if err := s.alive(); err != nil {
		return nil, err
	}
	lc := s.Evaluation()
	if lc == nil {
		return nil, errNoEvaluation
	}
	return lc, nil
}

// BeginEvaluation loads the questions if needed and starts an attempt.
func (s *Session) BeginEvaluation(ctx context.Context) (course.Evaluation, error) {
	lc, err := s.lifecycle()
	if err != nil {
		return course.Evaluation{}, err
	}
	if err := lc.Load(ctx, s.src); err != nil {
		s.log.Warn("load evaluation", "evaluation_id", lc.EvaluationID(), "error", err)
		return course.Evaluation{}, err
	}
	if err := lc.Begin(); err != nil {
		return course.Evaluation{}, err
	}
	ev, _ := lc.Evaluation()
	return ev, nil
}

func (s *Session) Choose(questionID, answerID string) error {
	lc, err := s.lifecycle()
	if err != nil {
		return err
	}
	return lc.Choose(questionID, answerID)
}

// SubmitEvaluation grades the attempt. On failure the answers stay put.
func (s *Session) SubmitEvaluation(ctx context.Context) (course.Result, error) {
	lc, err := s.lifecycle()
	if err != nil {
		return course.Result{}, err
	}
	res, err := lc.Submit(ctx, s.src)
	if err != nil {
		if !course.IsValidation(err) && !errors.Is(err, course.ErrStale) {
			s.log.Warn("submit evaluation", "evaluation_id", lc.EvaluationID(), "error", err)
		}
		return course.Result{}, err
	}
	s.log.Info("evaluation graded", "evaluation_id", lc.EvaluationID(), "score", res.Score, "passed", res.Passed())
	return res, nil
}

func (s *Session) RetryEvaluation() error {
	lc, err := s.lifecycle()
	if err != nil {
		return err
	}
	return lc.Retry()
}

// Close detaches from the resolver. In-flight responses are dropped.
func (s *Session) Close() {
	s.navMu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.navMu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.navMu.Unlock()
	s.unsub()

	s.evalMu.Lock()
	if s.eval != nil {
		s.eval.Reset()
	}
	s.evalMu.Unlock()
}

func (s *Session) alive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return course.ErrClosed
	}
	return nil
}
