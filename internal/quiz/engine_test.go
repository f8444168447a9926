package quiz

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/events"
	"github.com/pavelanni/kinderquiz/internal/grader"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/sampler"
)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// manualScheduler never fires on its own; tests drive it.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// Fire runs every live timer, oldest first.
func (m *manualScheduler) Fire() int {
	m.mu.Lock()
	var due []*fakeTimer
	for _, t := range m.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	m.mu.Unlock()
	for _, t := range due {
		t.f()
	}
	return len(due)
}

// FireStopped runs callbacks of timers that were stopped too late to matter,
// as happens when a runtime timer has already started its goroutine.
func (m *manualScheduler) FireStopped() {
	m.mu.Lock()
	timers := append([]*fakeTimer(nil), m.timers...)
	m.mu.Unlock()
	for _, t := range timers {
		t.f()
	}
}

type recordingVoice struct {
	mu      sync.Mutex
	spoken  []string
	locales []string
	cancels int
}

func (v *recordingVoice) Pronounce(text, locale string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.spoken = append(v.spoken, text)
	v.locales = append(v.locales, locale)
}

func (v *recordingVoice) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cancels++
}

func arithmeticQuestions(n int) []model.TestQuestion {
	qs := make([]model.TestQuestion, n)
	for i := range qs {
		qs[i] = model.TestQuestion{
			Prompt:       fmt.Sprintf("%d + 1 = ?", i),
			Options:      []string{fmt.Sprint(i), fmt.Sprint(i + 1), fmt.Sprint(i + 2)},
			CorrectIndex: 1,
		}
	}
	return qs
}

type fixture struct {
	engine *Engine
	sched  *manualScheduler
	rec    *events.Recorder
	voice  *recordingVoice
}

func newFixture(t *testing.T, pools map[model.Subject]model.ContentPool) fixture {
	t.Helper()
	repo, err := content.NewStatic(pools)
	require.NoError(t, err)
	f := fixture{
		sched: &manualScheduler{},
		rec:   &events.Recorder{},
		voice: &recordingVoice{},
	}
	f.engine = NewEngine(repo,
		WithScheduler(f.sched),
		WithEmitter(f.rec),
		WithPronouncer(f.voice),
		WithSampler(sampler.NewSeeded(7)),
	)
	return f
}

func (f fixture) lastQuestion(t *testing.T) events.QuestionPresented {
	t.Helper()
	ev := f.rec.Last(events.KindQuestionPresented)
	require.NotNil(t, ev, "no question presented")
	return ev.(events.QuestionPresented)
}

// answerAll answers every question, correctly for the first `correct` ones.
func (f fixture) answerAll(t *testing.T, correct int) {
	t.Helper()
	for i := 0; ; i++ {
		s, ok := f.engine.Session()
		require.True(t, ok)
		if s.State == StateCompleted {
			return
		}
		require.Equal(t, StatePresenting, s.State)
		q, _ := s.Current()
		choice := q.CorrectIndex
		if i >= correct {
			choice = (q.CorrectIndex + 1) % len(q.Options)
		}
		require.NoError(t, f.engine.SubmitAnswer(choice))
		require.Equal(t, 1, f.sched.Fire())
	}
}

func TestStartTest_SamplesDistinctQuestions(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(25)},
	})

	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	s, ok := f.engine.Session()
	require.True(t, ok)
	assert.Equal(t, StatePresenting, s.State)
	assert.Equal(t, 10, s.Total())
	assert.Zero(t, s.Index)
	assert.Zero(t, s.Score)
	assert.NotEmpty(t, s.ID)

	seen := map[string]bool{}
	for _, q := range s.Questions {
		assert.False(t, seen[q.Prompt], "duplicate %q", q.Prompt)
		seen[q.Prompt] = true
	}

	ev := f.lastQuestion(t)
	assert.Equal(t, s.ID, ev.SessionID)
	assert.Equal(t, 0, ev.Index)
	assert.Equal(t, 10, ev.Total)
	assert.Equal(t, s.Questions[0], ev.Question)
}

func TestStartTest_SmallPool(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(3)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	s, _ := f.engine.Session()
	assert.Equal(t, 3, s.Total())

	f.answerAll(t, 3)
	res, err := f.engine.Result()
	require.NoError(t, err)
	assert.Equal(t, grader.Result{Score: 3, Total: 3, Percentage: 100, Tier: model.TierExcellent}, res)
}

func TestStartTest_EmptyPool(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(4)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	before, _ := f.engine.Session()
	presented := f.rec.Count(events.KindQuestionPresented)

	err := f.engine.StartTest(model.SubjectCharacters)
	assert.True(t, errors.Is(err, model.ErrEmptyContentPool), "got %v", err)

	after, ok := f.engine.Session()
	require.True(t, ok)
	assert.Equal(t, before, after)
	assert.Equal(t, presented, f.rec.Count(events.KindQuestionPresented))
}

func TestStartTest_UnknownSubject(t *testing.T) {
	f := newFixture(t, nil)
	err := f.engine.StartTest("music")
	assert.True(t, errors.Is(err, model.ErrUnknownSubject))

	_, ok := f.engine.Session()
	assert.False(t, ok)
}

func TestSubmitAnswer_Correct(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	require.NoError(t, f.engine.SubmitAnswer(1))

	ev := f.rec.Last(events.KindAnswerRevealed)
	require.NotNil(t, ev)
	rev := ev.(events.AnswerRevealed)
	assert.True(t, rev.IsCorrect)
	assert.Equal(t, 1, rev.CorrectIndex)
	assert.Equal(t, []model.OptionMark{model.MarkNone, model.MarkCorrect, model.MarkNone}, rev.Marks)

	s, _ := f.engine.Session()
	assert.Equal(t, StateAnswered, s.State)
	assert.Equal(t, 1, s.Score)
	assert.Equal(t, 0, s.Index)
	require.Len(t, f.sched.timers, 1)
	assert.Equal(t, 1500*time.Millisecond, f.sched.timers[0].delay)
}

func TestSubmitAnswer_Wrong(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	require.NoError(t, f.engine.SubmitAnswer(2))

	ev := f.rec.Last(events.KindAnswerRevealed)
	require.NotNil(t, ev)
	rev := ev.(events.AnswerRevealed)
	assert.False(t, rev.IsCorrect)
	assert.Equal(t, 2, rev.SelectedIndex)
	assert.Equal(t, []model.OptionMark{model.MarkNone, model.MarkCorrect, model.MarkWrong}, rev.Marks)

	s, _ := f.engine.Session()
	assert.Zero(t, s.Score)
}

func TestSubmitAnswer_TwiceBeforeAdvance(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	require.NoError(t, f.engine.SubmitAnswer(1))

	err := f.engine.SubmitAnswer(1)
	assert.True(t, errors.Is(err, model.ErrIllegalSessionState))

	s, _ := f.engine.Session()
	assert.Equal(t, 1, s.Score)
	assert.Equal(t, 0, s.Index)
	assert.Equal(t, StateAnswered, s.State)
	assert.Equal(t, 1, f.rec.Count(events.KindAnswerRevealed))
	assert.Len(t, f.sched.timers, 1)
}

func TestSubmitAnswer_OutOfRange(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	for _, idx := range []int{-1, 3} {
		err := f.engine.SubmitAnswer(idx)
		assert.True(t, errors.Is(err, model.ErrOptionOutOfRange), "index %d: %v", idx, err)
	}
	s, _ := f.engine.Session()
	assert.Equal(t, StatePresenting, s.State)
	assert.Zero(t, f.rec.Count(events.KindAnswerRevealed))
}

func TestSubmitAnswer_NoSession(t *testing.T) {
	f := newFixture(t, nil)
	err := f.engine.SubmitAnswer(0)
	assert.True(t, errors.Is(err, model.ErrIllegalSessionState))
}

func TestAdvance_PresentsNextQuestion(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	require.NoError(t, f.engine.SubmitAnswer(0))
	require.Equal(t, 1, f.sched.Fire())

	s, _ := f.engine.Session()
	assert.Equal(t, StatePresenting, s.State)
	assert.Equal(t, 1, s.Index)

	ev := f.lastQuestion(t)
	assert.Equal(t, 1, ev.Index)
	assert.Equal(t, s.Questions[1], ev.Question)
	assert.Equal(t, 2, f.rec.Count(events.KindQuestionPresented))
}

func TestCompletion_Tiers(t *testing.T) {
	tests := []struct {
		name    string
		pool    int
		correct int
		want    grader.Result
	}{
		{"all correct", 10, 10, grader.Result{Score: 10, Total: 10, Percentage: 100, Tier: model.TierExcellent}},
		{"six of ten", 10, 6, grader.Result{Score: 6, Total: 10, Percentage: 60, Tier: model.TierGood}},
		{"five of ten", 10, 5, grader.Result{Score: 5, Total: 10, Percentage: 50, Tier: model.TierEncourage}},
		{"none correct", 4, 0, grader.Result{Score: 0, Total: 4, Percentage: 0, Tier: model.TierEncourage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, map[model.Subject]model.ContentPool{
				model.SubjectArithmetic: {Tests: arithmeticQuestions(tt.pool)},
			})
			require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
			f.answerAll(t, tt.correct)

			ev := f.rec.Last(events.KindSessionCompleted)
			require.NotNil(t, ev)
			done := ev.(events.SessionCompleted)
			assert.Equal(t, tt.want, done.Result)
			assert.Equal(t, model.SubjectArithmetic, done.Subject)
			assert.Equal(t, 1, f.rec.Count(events.KindSessionCompleted))

			res, err := f.engine.Result()
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)

			err = f.engine.SubmitAnswer(0)
			assert.True(t, errors.Is(err, model.ErrIllegalSessionState))
		})
	}
}

func TestResult_BeforeCompletion(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(2)},
	})
	_, err := f.engine.Result()
	assert.True(t, errors.Is(err, model.ErrIllegalSessionState))

	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	_, err = f.engine.Result()
	assert.True(t, errors.Is(err, model.ErrIllegalSessionState))
}

func TestStaleAdvanceIsIgnored(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
		model.SubjectVocabulary: {Tests: []model.TestQuestion{
			{Prompt: "Apple 的中文意思是？", Options: []string{"苹果", "香蕉"}, CorrectIndex: 0},
			{Prompt: "Dog 的中文意思是？", Options: []string{"猫", "狗"}, CorrectIndex: 1},
		}},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	old, _ := f.engine.Session()
	require.NoError(t, f.engine.SubmitAnswer(1))

	require.NoError(t, f.engine.StartTest(model.SubjectVocabulary))
	assert.True(t, f.sched.timers[0].stopped)

	fresh, _ := f.engine.Session()
	assert.NotEqual(t, old.ID, fresh.ID)
	assert.Greater(t, fresh.Generation, old.Generation)

	// The old callback runs anyway; it must not touch the new session.
	presented := f.rec.Count(events.KindQuestionPresented)
	f.sched.FireStopped()

	s, _ := f.engine.Session()
	assert.Equal(t, fresh, s)
	assert.Equal(t, presented, f.rec.Count(events.KindQuestionPresented))
}

func TestStaleAdvanceAfterNewAnswer(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(5)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	require.NoError(t, f.engine.SubmitAnswer(1))
	require.NoError(t, f.engine.Restart(model.SubjectArithmetic))
	require.NoError(t, f.engine.SubmitAnswer(1))

	// Both callbacks run: only the second session's one may advance.
	f.sched.FireStopped()

	s, _ := f.engine.Session()
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, StatePresenting, s.State)
	assert.Equal(t, 1, s.Score)
}

func TestRestart_IsIndependent(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(3)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	f.answerAll(t, 2)
	first, _ := f.engine.Session()
	require.Equal(t, StateCompleted, first.State)

	require.NoError(t, f.engine.Restart(model.SubjectArithmetic))

	s, _ := f.engine.Session()
	assert.NotEqual(t, first.ID, s.ID)
	assert.Equal(t, StatePresenting, s.State)
	assert.Zero(t, s.Score)
	assert.Zero(t, s.Index)
	assert.Equal(t, 3, s.Total())
}

func TestLeave(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(3)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))
	require.NoError(t, f.engine.SubmitAnswer(1))
	cancels := f.voice.cancels

	f.engine.Leave()

	s, ok := f.engine.Session()
	assert.False(t, ok)
	assert.Equal(t, StateAwaitingStart, s.State)
	assert.True(t, f.sched.timers[0].stopped)
	assert.Equal(t, cancels+1, f.voice.cancels)

	f.sched.FireStopped()
	_, ok = f.engine.Session()
	assert.False(t, ok)
	assert.Equal(t, 1, f.rec.Count(events.KindQuestionPresented))
}

func TestScoreNeverExceedsAnswered(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(12)},
	})
	require.NoError(t, f.engine.StartTest(model.SubjectArithmetic))

	for answered := 1; answered <= 10; answered++ {
		choice := answered % 3
		require.NoError(t, f.engine.SubmitAnswer(choice))
		// A second click is rejected and does not score.
		assert.Error(t, f.engine.SubmitAnswer(1))

		s, _ := f.engine.Session()
		assert.LessOrEqual(t, s.Score, answered)
		assert.LessOrEqual(t, s.Score, s.Total())
		f.sched.Fire()
	}
	s, _ := f.engine.Session()
	assert.Equal(t, StateCompleted, s.State)
	assert.Equal(t, 4, s.Score)
}

func TestQuestionPresented_PronunciationTargets(t *testing.T) {
	f := newFixture(t, map[model.Subject]model.ContentPool{
		model.SubjectVocabulary: {Tests: []model.TestQuestion{
			{Prompt: "Apple 的中文意思是？", Options: []string{"苹果", "Banana"}, CorrectIndex: 0},
		}},
		model.SubjectCharacters: {Tests: []model.TestQuestion{
			{Prompt: "\"一\" 的拼音是？", Options: []string{"yī", "èr"}, CorrectIndex: 0},
		}},
	})

	require.NoError(t, f.engine.StartTest(model.SubjectVocabulary))
	ev := f.lastQuestion(t)
	assert.Equal(t, "Apple", ev.PronunciationTarget)
	assert.Equal(t, []string{"", "Banana"}, ev.OptionTargets)

	require.True(t, f.engine.PronounceCurrent())
	require.True(t, f.engine.PronounceOption(1))
	assert.False(t, f.engine.PronounceOption(0))
	assert.Equal(t, []string{"Apple", "Banana"}, f.voice.spoken)
	assert.Equal(t, []string{model.LocaleEnglish, model.LocaleEnglish}, f.voice.locales)

	require.NoError(t, f.engine.StartTest(model.SubjectCharacters))
	ev = f.lastQuestion(t)
	assert.Empty(t, ev.PronunciationTarget)
	assert.Nil(t, ev.OptionTargets)
	assert.False(t, f.engine.PronounceCurrent())
}

func TestPronounceCurrent_NoSession(t *testing.T) {
	f := newFixture(t, nil)
	assert.False(t, f.engine.PronounceCurrent())
	assert.Empty(t, f.voice.spoken)
}

func TestWithRealClock(t *testing.T) {
	repo, err := content.NewStatic(map[model.Subject]model.ContentPool{
		model.SubjectArithmetic: {Tests: arithmeticQuestions(1)},
	})
	require.NoError(t, err)

	done := make(chan events.SessionCompleted, 1)
	bus := events.NewBus(nil)
	bus.Subscribe(events.HandlerFunc(func(ev events.Event) error {
		if c, ok := ev.(events.SessionCompleted); ok {
			done <- c
		}
		return nil
	}))
	cfg := model.DefaultQuizConfig()
	cfg.AdvanceDelay = 5 * time.Millisecond
	e := NewEngine(repo, WithConfig(cfg), WithEmitter(bus))

	require.NoError(t, e.StartTest(model.SubjectArithmetic))
	require.NoError(t, e.SubmitAnswer(1))

	select {
	case c := <-done:
		assert.Equal(t, 100, c.Percentage)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not complete")
	}
}

type poolFunc func(model.Subject) (model.ContentPool, error)

func (f poolFunc) Pool(s model.Subject) (model.ContentPool, error) { return f(s) }

func TestStartTest_RejectsInvalidQuestions(t *testing.T) {
	repo := poolFunc(func(model.Subject) (model.ContentPool, error) {
		return model.ContentPool{Tests: []model.TestQuestion{
			{Prompt: "1 + 1 = ?", Options: []string{"1", "2"}, CorrectIndex: 5},
		}}, nil
	})
	rec := &events.Recorder{}
	e := NewEngine(repo, WithScheduler(&manualScheduler{}), WithEmitter(rec))

	err := e.StartTest(model.SubjectArithmetic)
	assert.True(t, errors.Is(err, model.ErrInvalidContent), "got %v", err)

	_, live := e.Session()
	assert.False(t, live)
	assert.Empty(t, rec.Events())
}
