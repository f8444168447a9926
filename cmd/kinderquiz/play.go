package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/kinderquiz/internal/events"
	appI18n "github.com/pavelanni/kinderquiz/internal/i18n"
	"github.com/pavelanni/kinderquiz/internal/lesson"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/quiz"
)

func runLesson(cmd *cobra.Command, args []string) error {
	subject, err := model.ParseSubject(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lessons := lesson.NewService(a.repo,
		lesson.WithEmitter(a.bus),
		lesson.WithPronouncer(a.voice),
		lesson.WithSampler(a.sampler),
		lesson.WithPageSize(a.cfg.LessonsPerPage),
		lesson.WithLogger(slog.Default()),
	)
	page, err := lessons.Start(subject)
	if err != nil {
		return err
	}
	if once, _ := cmd.Flags().GetBool("once"); once {
		return nil
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, appI18n.T(a.ctx, "LessonPrompt")+" ")
		if !in.Scan() {
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
			if page, err = lessons.Start(subject); err != nil {
				return err
			}
		case strings.EqualFold(line, "q"):
			fmt.Fprintln(out, appI18n.T(a.ctx, "Goodbye"))
			return nil
		default:
			item, ok := findItem(subject, page, line)
			if !ok || !lessons.Pronounce(subject, item) {
				fmt.Fprintln(out, appI18n.Td(a.ctx, "NotInLesson", map[string]any{"Text": line}))
			}
		}
	}
}

// findItem looks up the card on page whose spoken form matches text.
func findItem(subject model.Subject, page model.LessonFeed, text string) (model.LessonItem, bool) {
	traits, err := model.TraitsOf(subject)
	if err != nil || traits.ItemSpeech == nil {
		return model.LessonItem{}, false
	}
	items := page.Items
	for _, g := range page.Groups {
		items = append(items, g.Items...)
	}
	for _, it := range items {
		if strings.EqualFold(traits.ItemSpeech(it), text) {
			return it, true
		}
	}
	return model.LessonItem{}, false
}

func runQuiz(cmd *cobra.Command, args []string) error {
	subject, err := model.ParseSubject(args[0])
	if err != nil {
		return err
	}
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Engine events arrive with the engine locked; the loop below reacts to
	// them outside the handler.
	nav := make(chan events.Event, 4)
	a.bus.Subscribe(events.HandlerFunc(func(ev events.Event) error {
		switch ev.(type) {
		case events.QuestionPresented, events.SessionCompleted:
			nav <- ev
		}
		return nil
	}))

	engine := quiz.NewEngine(a.repo,
		quiz.WithEmitter(a.bus),
		quiz.WithPronouncer(a.voice),
		quiz.WithSampler(a.sampler),
		quiz.WithConfig(a.cfg),
		quiz.WithLogger(slog.Default()),
	)
	if err := engine.StartTest(subject); err != nil {
		return err
	}
	defer engine.Leave()

	p := &quizPrompt{
		app:    a,
		engine: engine,
		in:     bufio.NewScanner(cmd.InOrStdin()),
		out:    cmd.OutOrStdout(),
	}
	ctx := cmd.Context()
	for {
		var ev events.Event
		select {
		case ev = <-nav:
		case <-ctx.Done():
			return ctx.Err()
		}

		var done bool
		switch e := ev.(type) {
		case events.QuestionPresented:
			done, err = p.answer(e)
		case events.SessionCompleted:
			done, err = p.again(subject)
		}
		if err != nil || done {
			return err
		}
	}
}

type quizPrompt struct {
	app    *app
	engine *quiz.Engine
	in     *bufio.Scanner
	out    io.Writer
}

// answer reads input until an answer is accepted. It reports true when the
// player quits.
func (p *quizPrompt) answer(e events.QuestionPresented) (bool, error) {
	ctx := p.app.ctx
	count := map[string]any{"Count": len(e.Question.Options)}
	for {
		fmt.Fprint(p.out, appI18n.Td(ctx, "AnswerPrompt", count)+" ")
		if !p.in.Scan() {
			return true, p.in.Err()
		}
		line := strings.ToLower(strings.TrimSpace(p.in.Text()))
		switch {
		case line == "q":
			fmt.Fprintln(p.out, appI18n.T(ctx, "Goodbye"))
			return true, nil
		case line == "s":
			p.engine.PronounceCurrent()
			continue
		case strings.HasPrefix(line, "s"):
			if n, err := strconv.Atoi(line[1:]); err == nil {
				p.engine.PronounceOption(n - 1)
			}
			continue
		}

		n, err := strconv.Atoi(line)
		if err != nil {
			fmt.Fprintln(p.out, appI18n.Td(ctx, "InvalidChoice", count))
			continue
		}
		err = p.engine.SubmitAnswer(n - 1)
		if errors.Is(err, model.ErrOptionOutOfRange) {
			fmt.Fprintln(p.out, appI18n.Td(ctx, "InvalidChoice", count))
			continue
		}
		return false, err
	}
}

// again offers another round. It reports true when the player is done.
func (p *quizPrompt) again(subject model.Subject) (bool, error) {
	ctx := p.app.ctx
	fmt.Fprint(p.out, appI18n.T(ctx, "TryAgainPrompt")+" ")
	if !p.in.Scan() {
		return true, p.in.Err()
	}
	switch strings.ToLower(strings.TrimSpace(p.in.Text())) {
	case "y", "yes", "是":
		return false, p.engine.Restart(subject)
	default:
		fmt.Fprintln(p.out, appI18n.T(ctx, "Goodbye"))
		return true, nil
	}
}
