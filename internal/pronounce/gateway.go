// Package pronounce mediates fire-and-forget pronunciation requests.
//
// A Gateway keeps at most one request active: a new request cancels the one
// in flight and waits for it to wind down before the Speaker is invoked
// again. Speaker failures are logged and swallowed; callers never see them.
package pronounce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/pavelanni/kinderquiz/internal/events"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// Speaker produces speech for text in the given locale. Implementations must
// return promptly once ctx is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string, locale language.Tag) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string, locale language.Tag) error

// Speak calls f.
func (f SpeakerFunc) Speak(ctx context.Context, text string, locale language.Tag) error {
	return f(ctx, text, locale)
}

// The two locales speech is produced in.
var (
	English = language.MustParse(model.LocaleEnglish)
	Chinese = language.MustParse(model.LocaleChinese)

	supported = []language.Tag{English, Chinese}
	matcher   = language.NewMatcher(supported)
)

// ErrUnsupportedLocale is returned by ResolveLocale for tags outside the two
// supported locales.
var ErrUnsupportedLocale = errors.New("unsupported locale")

// ResolveLocale parses tag and maps it onto a supported locale ("en" and
// "en-GB" both resolve to en-US).
func ResolveLocale(tag string) (language.Tag, error) {
	t, err := language.Parse(tag)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", tag, err)
	}
	_, idx, conf := matcher.Match(t)
	if conf == language.No {
		return language.Und, fmt.Errorf("%w: %q", ErrUnsupportedLocale, tag)
	}
	return supported[idx], nil
}

// DefaultTimeout bounds a single pronunciation request.
const DefaultTimeout = 15 * time.Second

// Gateway is the single channel through which pronunciation is requested.
type Gateway struct {
	speaker Speaker
	emitter events.Emitter
	logger  *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{} // closed when the latest request finishes
	wg     sync.WaitGroup
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithEmitter publishes a PronounceRequested event for each accepted request.
func WithEmitter(e events.Emitter) Option {
	return func(g *Gateway) { g.emitter = e }
}

// WithLogger sets the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) { g.logger = l }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.timeout = d }
}

// NewGateway returns a Gateway speaking through s.
func NewGateway(s Speaker, opts ...Option) *Gateway {
	g := &Gateway{
		speaker: s,
		emitter: events.Discard,
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(g)
	}
	g.logger = g.logger.With("component", "pronounce")
	return g
}

// Pronounce requests speech for text and returns immediately. Any request
// still in flight is interrupted first. Blank text and unsupported locales are
// logged and ignored.
func (g *Gateway) Pronounce(text, localeTag string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	tag, err := ResolveLocale(localeTag)
	if err != nil {
		g.logger.Warn("pronunciation skipped", "text", text, "error", err)
		return
	}

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
	prev := g.done
	done := make(chan struct{})
	g.cancel, g.done = cancel, done
	g.wg.Add(1)
	g.mu.Unlock()

	g.emitter.Emit(events.PronounceRequested{Text: text, LocaleTag: tag.String()})

	go func() {
		defer g.wg.Done()
		defer close(done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				g.logger.Warn("pronunciation failed", "text", text, "locale", tag.String(), "panic", r)
			}
		}()

		if prev != nil {
			<-prev
		}
		if ctx.Err() != nil {
			g.logger.Debug("pronunciation superseded", "text", text)
			return
		}
		g.speak(ctx, text, tag)
	}()
}

func (g *Gateway) speak(ctx context.Context, text string, tag language.Tag) {
	err := g.speaker.Speak(ctx, text, tag)
	switch {
	case err == nil:
		g.logger.Debug("pronounced", "text", text, "locale", tag.String())
	case errors.Is(err, context.Canceled):
		g.logger.Debug("pronunciation interrupted", "text", text)
	default:
		g.logger.Warn("pronunciation failed", "text", text, "locale", tag.String(), "error", err)
	}
}

// Cancel interrupts the request in flight, if any.
func (g *Gateway) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
}

// Wait blocks until every issued request has finished.
func (g *Gateway) Wait() {
	g.wg.Wait()
}

// Close interrupts the request in flight and waits for it to finish.
func (g *Gateway) Close() {
	g.Cancel()
	g.Wait()
}
