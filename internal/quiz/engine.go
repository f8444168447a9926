// Package quiz runs multiple-choice quiz sessions.
//
// An Engine owns at most one live Session. Starting a quiz samples the
// questions once; each answer is scored and revealed, and after a fixed delay
// the engine moves on by itself until the last question, when it publishes
// the graded summary. Every session carries a generation number, and the
// delayed move-on only applies to the generation that scheduled it, so a
// timer left over from a replaced session can never touch the new one.
package quiz

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/events"
	"github.com/pavelanni/kinderquiz/internal/grader"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/sampler"
)

// State is the lifecycle position of a session.
type State string

const (
	StateAwaitingStart State = "awaiting_start"
	StatePresenting    State = "presenting_question"
	StateAnswered      State = "answered"
	StateCompleted     State = "completed"
)

// Session is a quiz in progress. Values returned by the Engine are
// snapshots; changing them has no effect on the engine.
type Session struct {
	ID         string
	Generation uint64
	Subject    model.Subject
	Questions  []model.TestQuestion
	Index      int
	Score      int
	State      State
}

// Total is the number of questions in the session.
func (s Session) Total() int { return len(s.Questions) }

// Current returns the question at Index, if any.
func (s Session) Current() (model.TestQuestion, bool) {
	if s.Index < 0 || s.Index >= len(s.Questions) {
		return model.TestQuestion{}, false
	}
	return s.Questions[s.Index], true
}

// Pronouncer is the pronunciation channel a session may use and cancel.
type Pronouncer interface {
	Pronounce(text, localeTag string)
	Cancel()
}

// Engine drives quiz sessions. It is safe for concurrent use; events are
// emitted with the engine locked, so handlers must not call back into it.
type Engine struct {
	repo    content.Repository
	sampler *sampler.Sampler
	sched   Scheduler
	emitter events.Emitter
	voice   Pronouncer
	cfg     model.QuizConfig
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cur     *Session
	pending Timer
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler replaces the runtime clock used for auto-advance.
func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

// WithEmitter sets where session events are published.
func WithEmitter(em events.Emitter) Option { return func(e *Engine) { e.emitter = em } }

// WithPronouncer attaches the pronunciation gateway.
func WithPronouncer(p Pronouncer) Option { return func(e *Engine) { e.voice = p } }

// WithSampler sets the random source for question selection.
func WithSampler(s *sampler.Sampler) Option { return func(e *Engine) { e.sampler = s } }

// WithConfig sets quiz size and timing.
func WithConfig(cfg model.QuizConfig) Option { return func(e *Engine) { e.cfg = cfg } }

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// NewEngine creates an Engine reading questions from repo.
func NewEngine(repo content.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:    repo,
		sched:   Clock{},
		emitter: events.Discard,
		cfg:     model.DefaultQuizConfig(),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.sampler == nil {
		e.sampler = sampler.New()
	}
	if e.cfg.QuestionsPerTest <= 0 {
		e.cfg.QuestionsPerTest = model.DefaultQuizConfig().QuestionsPerTest
	}
	if e.cfg.AdvanceDelay < 0 {
		e.cfg.AdvanceDelay = 0
	}
	e.logger = e.logger.With("component", "quiz")
	return e
}

// StartTest discards any live session and starts a new one for subject with
// up to QuestionsPerTest questions drawn from its pool. On failure the
// previous session, if any, is left as it was.
func (e *Engine) StartTest(subject model.Subject) error {
	if _, err := model.TraitsOf(subject); err != nil {
		return fmt.Errorf("start test: %w", err)
	}
	pool, err := e.repo.Pool(subject)
	if err != nil {
		return fmt.Errorf("start test %s: %w", subject, err)
	}
	if len(pool.Tests) == 0 {
		return fmt.Errorf("start test %s: %w", subject, model.ErrEmptyContentPool)
	}
	questions := sampler.Sample(e.sampler, pool.Tests, e.cfg.QuestionsPerTest)
	if err := content.Validate(subject, model.ContentPool{Tests: questions}); err != nil {
		return fmt.Errorf("start test %s: %w", subject, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.discardLocked()
	e.gen++
	e.cur = &Session{
		ID:         uuid.NewString(),
		Generation: e.gen,
		Subject:    subject,
		Questions:  questions,
		State:      StatePresenting,
	}
	e.logger.Info("quiz started",
		"session_id", e.cur.ID,
		"subject", subject,
		"questions", len(questions),
		"pool", len(pool.Tests))
	e.presentLocked()
	return nil
}

// Restart begins an independent new session for subject; nothing carries
// over from the previous one.
func (e *Engine) Restart(subject model.Subject) error {
	return e.StartTest(subject)
}

// SubmitAnswer scores selected against the current question and publishes
// the reveal. It is only valid while a question is presented; the session
// is left unchanged when it fails.
func (e *Engine) SubmitAnswer(selected int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil {
		return fmt.Errorf("submit answer: no active session: %w", model.ErrIllegalSessionState)
	}
	if s.State != StatePresenting {
		return fmt.Errorf("submit answer in state %s: %w", s.State, model.ErrIllegalSessionState)
	}
	q := s.Questions[s.Index]
	if selected < 0 || selected >= len(q.Options) {
		return fmt.Errorf("submit answer %d of %d options: %w", selected, len(q.Options), model.ErrOptionOutOfRange)
	}

	marks := make([]model.OptionMark, len(q.Options))
	marks[q.CorrectIndex] = model.MarkCorrect
	correct := selected == q.CorrectIndex
	if correct {
		s.Score++
	} else {
		marks[selected] = model.MarkWrong
	}
	s.State = StateAnswered

	e.logger.Debug("answer submitted",
		"session_id", s.ID,
		"index", s.Index,
		"selected", selected,
		"correct", correct)
	e.emitter.Emit(events.AnswerRevealed{
		SessionID:     s.ID,
		CorrectIndex:  q.CorrectIndex,
		SelectedIndex: selected,
		IsCorrect:     correct,
		Marks:         marks,
	})

	gen := s.Generation
	e.pending = e.sched.AfterFunc(e.cfg.AdvanceDelay, func() { e.advance(gen) })
	return nil
}

// advance moves the session of generation gen past its answered question.
func (e *Engine) advance(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.cur
	if s == nil || s.Generation != gen || s.State != StateAnswered {
		e.logger.Debug("stale advance ignored", "generation", gen)
		return
	}
	e.pending = nil

	s.Index++
	if s.Index < len(s.Questions) {
		s.State = StatePresenting
		e.presentLocked()
		return
	}

	s.State = StateCompleted
	res, err := grader.Grade(s.Score, len(s.Questions))
	if err != nil {
		// Sessions always hold at least one question.
		e.logger.Error("grading failed", "session_id", s.ID, "error", err)
		return
	}
	e.logger.Info("quiz completed",
		"session_id", s.ID,
		"subject", s.Subject,
		"score", res.Score,
		"total", res.Total,
		"percentage", res.Percentage,
		"tier", res.Tier)
	e.emitter.Emit(events.SessionCompleted{SessionID: s.ID, Subject: s.Subject, Result: res})
}

// Leave discards the live session, its pending advance and any pronunciation
// in flight.
func (e *Engine) Leave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discardLocked()
	e.cur = nil
}

func (e *Engine) discardLocked() {
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	if e.voice != nil {
		e.voice.Cancel()
	}
}

func (e *Engine) presentLocked() {
	s := e.cur
	q := s.Questions[s.Index]
	ev := events.QuestionPresented{
		SessionID: s.ID,
		Subject:   s.Subject,
		Question:  q,
		Index:     s.Index,
		Total:     len(s.Questions),
	}
	traits, _ := model.TraitsOf(s.Subject)
	ev.PronunciationTarget = PronunciationTarget(traits, q)
	if traits.OptionTarget != nil {
		ev.OptionTargets = make([]string, len(q.Options))
		for i, opt := range q.Options {
			if traits.OptionTarget(opt) {
				ev.OptionTargets[i] = opt
			}
		}
	}
	e.emitter.Emit(ev)
}

// PronunciationTarget returns the word of q's prompt that may be spoken, or "".
func PronunciationTarget(traits model.SubjectTraits, q model.TestQuestion) string {
	if traits.PromptTarget == nil {
		return ""
	}
	return traits.PromptTarget(q.Prompt)
}

// Session returns a snapshot of the live session.
func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil {
		return Session{State: StateAwaitingStart}, false
	}
	snap := *e.cur
	snap.Questions = append([]model.TestQuestion(nil), e.cur.Questions...)
	return snap, true
}

// Result returns the graded summary of a completed session.
func (e *Engine) Result() (grader.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cur == nil || e.cur.State != StateCompleted {
		return grader.Result{}, fmt.Errorf("result: session not completed: %w", model.ErrIllegalSessionState)
	}
	return grader.Grade(e.cur.Score, len(e.cur.Questions))
}

// PronounceCurrent speaks the current question's pronunciation target. It
// reports false when there is nothing to speak.
func (e *Engine) PronounceCurrent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, traits, ok := e.currentLocked()
	if !ok {
		return false
	}
	target := PronunciationTarget(traits, q)
	if target == "" {
		return false
	}
	e.voice.Pronounce(target, traits.Locale)
	return true
}

// PronounceOption speaks option i of the current question when the subject
// allows it.
func (e *Engine) PronounceOption(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	q, traits, ok := e.currentLocked()
	if !ok || traits.OptionTarget == nil || i < 0 || i >= len(q.Options) {
		return false
	}
	if !traits.OptionTarget(q.Options[i]) {
		return false
	}
	e.voice.Pronounce(q.Options[i], traits.Locale)
	return true
}

func (e *Engine) currentLocked() (model.TestQuestion, model.SubjectTraits, bool) {
	s := e.cur
	if e.voice == nil || s == nil || (s.State != StatePresenting && s.State != StateAnswered) {
		return model.TestQuestion{}, model.SubjectTraits{}, false
	}
	traits, err := model.TraitsOf(s.Subject)
	if err != nil {
		return model.TestQuestion{}, model.SubjectTraits{}, false
	}
	return s.Questions[s.Index], traits, true
}
