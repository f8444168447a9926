// Package console renders engine events as plain text for a terminal.
package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pavelanni/kinderquiz/internal/events"
	"github.com/pavelanni/kinderquiz/internal/i18n"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// Presenter is an events.Handler that writes localized output to w.
type Presenter struct {
	ctx context.Context
	w   io.Writer

	mu      sync.Mutex
	current model.TestQuestion
}

// New creates a Presenter; ctx carries the localizer.
func New(ctx context.Context, w io.Writer) *Presenter {
	return &Presenter{ctx: ctx, w: w}
}

// HandleEvent renders ev. Unknown events are ignored.
func (p *Presenter) HandleEvent(ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var b strings.Builder
	switch e := ev.(type) {
	case events.LessonFeedRendered:
		p.lesson(&b, e)
	case events.QuestionPresented:
		p.current = e.Question
		p.question(&b, e)
	case events.AnswerRevealed:
		p.reveal(&b, e)
	case events.SessionCompleted:
		p.completed(&b, e)
	case events.PronounceRequested:
		fmt.Fprintln(&b, i18n.Td(p.ctx, "Speaking", map[string]any{"Text": e.Text}))
	default:
		return nil
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

func (p *Presenter) lesson(b *strings.Builder, e events.LessonFeedRendered) {
	name := i18n.SubjectName(p.ctx, e.Subject)
	fmt.Fprintf(b, "\n%s\n", i18n.Td(p.ctx, "LessonHeader", map[string]any{"Subject": name}))
	fmt.Fprintf(b, "%s\n", i18n.Td(p.ctx, "ShowingItems", map[string]any{
		"Shown":    e.Feed.Shown,
		"PoolSize": e.Feed.PoolSize,
	}))
	if !e.Feed.Grouped() {
		for _, it := range e.Feed.Items {
			fmt.Fprintf(b, "  %s\n", ItemLine(e.Subject, it))
		}
		return
	}
	for _, g := range e.Feed.Groups {
		fmt.Fprintf(b, "\n[%s]\n", i18n.CategoryLabel(p.ctx, g.Category))
		for _, it := range g.Items {
			fmt.Fprintf(b, "  %s\n", ItemLine(e.Subject, it))
		}
	}
}

// ItemLine formats one lesson card on a single line.
func ItemLine(subject model.Subject, it model.LessonItem) string {
	var parts []string
	if it.Emoji != "" {
		parts = append(parts, it.Emoji)
	}
	switch subject {
	case model.SubjectVocabulary:
		parts = append(parts, it.Word, "-", it.Translation)
	case model.SubjectArithmetic:
		parts = append(parts, it.Title+":", it.Content)
	case model.SubjectCharacters:
		parts = append(parts, it.Char, "("+it.Pinyin+")")
		if it.Meaning != "" {
			parts = append(parts, it.Meaning)
		}
	}
	return strings.Join(parts, " ")
}

func (p *Presenter) question(b *strings.Builder, e events.QuestionPresented) {
	if e.Index == 0 {
		name := i18n.SubjectName(p.ctx, e.Subject)
		fmt.Fprintf(b, "\n%s\n", i18n.Td(p.ctx, "QuizHeader", map[string]any{"Subject": name}))
	}
	fmt.Fprintf(b, "\n%s\n", i18n.Td(p.ctx, "QuestionN", map[string]any{"Index": e.Index + 1, "Total": e.Total}))
	prompt := e.Question.Prompt
	if e.PronunciationTarget != "" {
		prompt += " 🔊"
	}
	fmt.Fprintf(b, "%s\n", prompt)
	for i, opt := range e.Question.Options {
		suffix := ""
		if i < len(e.OptionTargets) && e.OptionTargets[i] != "" {
			suffix = " 🔊"
		}
		fmt.Fprintf(b, "  %d) %s%s\n", i+1, opt, suffix)
	}
}

var markSymbols = map[model.OptionMark]string{
	model.MarkCorrect: "✓",
	model.MarkWrong:   "✗",
}

func (p *Presenter) reveal(b *strings.Builder, e events.AnswerRevealed) {
	opts := p.current.Options
	for i, m := range e.Marks {
		if m == model.MarkNone || i >= len(opts) {
			continue
		}
		fmt.Fprintf(b, "  %s %d) %s\n", markSymbols[m], i+1, opts[i])
	}
	if e.IsCorrect {
		fmt.Fprintln(b, i18n.T(p.ctx, "Correct"))
		return
	}
	answer := ""
	if e.CorrectIndex < len(opts) {
		answer = opts[e.CorrectIndex]
	}
	fmt.Fprintln(b, i18n.Td(p.ctx, "Wrong", map[string]any{"Answer": answer}))
}

func (p *Presenter) completed(b *strings.Builder, e events.SessionCompleted) {
	fmt.Fprintf(b, "\n%s\n", i18n.TierMessage(p.ctx, e.Tier))
	fmt.Fprintln(b, i18n.Td(p.ctx, "ScoreLine", map[string]any{
		"Score":      e.Score,
		"Total":      e.Total,
		"Percentage": e.Percentage,
	}))
}
