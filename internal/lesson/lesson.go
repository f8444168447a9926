// Package lesson serves the "learn" view: a fresh random page of lesson
// cards for a subject, grouped for display.
package lesson

import (
	"fmt"
	"log/slog"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/events"
	"github.com/pavelanni/kinderquiz/internal/feed"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/sampler"
)

// Pronouncer speaks a lesson card.
type Pronouncer interface {
	Pronounce(text, localeTag string)
}

// Service builds lesson feeds.
type Service struct {
	repo    content.Repository
	sampler *sampler.Sampler
	emitter events.Emitter
	voice   Pronouncer
	perPage int
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithSampler(s *sampler.Sampler) Option { return func(l *Service) { l.sampler = s } }
func WithEmitter(em events.Emitter) Option  { return func(l *Service) { l.emitter = em } }
func WithPronouncer(p Pronouncer) Option    { return func(l *Service) { l.voice = p } }
func WithLogger(lg *slog.Logger) Option     { return func(l *Service) { l.logger = lg } }
func WithPageSize(n int) Option             { return func(l *Service) { l.perPage = n } }

// NewService creates a Service reading lesson items from repo.
func NewService(repo content.Repository, opts ...Option) *Service {
	l := &Service{
		repo:    repo,
		emitter: events.Discard,
		perPage: model.DefaultQuizConfig().LessonsPerPage,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	if l.sampler == nil {
		l.sampler = sampler.New()
	}
	if l.perPage <= 0 {
		l.perPage = model.DefaultQuizConfig().LessonsPerPage
	}
	l.logger = l.logger.With("component", "lesson")
	return l
}

// Start samples a page of lesson cards for subject, builds its feed and
// publishes it. Every call draws a new sample.
func (l *Service) Start(subject model.Subject) (model.LessonFeed, error) {
	if _, err := model.TraitsOf(subject); err != nil {
		return model.LessonFeed{}, fmt.Errorf("start lesson: %w", err)
	}
	pool, err := l.repo.Pool(subject)
	if err != nil {
		return model.LessonFeed{}, fmt.Errorf("start lesson %s: %w", subject, err)
	}
	if len(pool.Lessons) == 0 {
		return model.LessonFeed{}, fmt.Errorf("start lesson %s: %w", subject, model.ErrEmptyContentPool)
	}

	sample := sampler.Sample(l.sampler, pool.Lessons, l.perPage)
	f, err := feed.Build(subject, sample, len(pool.Lessons))
	if err != nil {
		return model.LessonFeed{}, err
	}

	l.logger.Info("lesson started", "subject", subject, "shown", f.Shown, "pool", f.PoolSize)
	l.emitter.Emit(events.LessonFeedRendered{Subject: subject, Feed: f})
	return f, nil
}

// Pronounce speaks item the way its subject is read aloud. It reports false
// when the subject has no spoken form or nothing is attached.
func (l *Service) Pronounce(subject model.Subject, item model.LessonItem) bool {
	traits, err := model.TraitsOf(subject)
	if err != nil || traits.ItemSpeech == nil || l.voice == nil {
		return false
	}
	text := traits.ItemSpeech(item)
	if text == "" {
		return false
	}
	l.voice.Pronounce(text, traits.Locale)
	return true
}
