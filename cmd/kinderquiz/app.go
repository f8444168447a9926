package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/kinderquiz/internal/console"
	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/events"
	appI18n "github.com/pavelanni/kinderquiz/internal/i18n"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/pronounce"
	"github.com/pavelanni/kinderquiz/internal/sampler"
	"github.com/pavelanni/kinderquiz/internal/store"
	"github.com/pavelanni/kinderquiz/internal/tts"
)

// app holds the components shared by the interactive commands.
type app struct {
	ctx     context.Context
	cfg     model.QuizConfig
	repo    *content.Static
	sampler *sampler.Sampler
	bus     *events.Bus
	voice   *pronounce.Gateway
}

func newApp(cmd *cobra.Command) (*app, error) {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cfg := quizConfig(v)
	if err := appI18n.Init(cfg.Lang); err != nil {
		return nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLang(cmd.Context(), cfg.Lang)

	repo, err := openRepository(v)
	if err != nil {
		return nil, err
	}

	speaker, err := newSpeaker(v)
	if err != nil {
		return nil, err
	}

	bus := events.NewBus(slog.Default())
	bus.Subscribe(console.New(ctx, cmd.OutOrStdout()))

	smp := sampler.New()
	if seed := v.GetUint64("seed"); seed != 0 {
		smp = sampler.NewSeeded(seed)
	}

	slog.Debug("app configured",
		"lang", cfg.Lang,
		"questions_per_test", cfg.QuestionsPerTest,
		"lessons_per_page", cfg.LessonsPerPage,
		"advance_delay", cfg.AdvanceDelay,
		"speaker", v.GetString("speaker"))

	return &app{
		ctx:     ctx,
		cfg:     cfg,
		repo:    repo,
		sampler: smp,
		bus:     bus,
		voice:   newGateway(v, speaker, bus),
	}, nil
}

// Close stops any pronunciation still playing.
func (a *app) Close() {
	a.voice.Close()
}

func newGateway(v *viper.Viper, speaker pronounce.Speaker, em events.Emitter) *pronounce.Gateway {
	opts := []pronounce.Option{pronounce.WithEmitter(em)}
	if d := v.GetDuration("speak-timeout"); d > 0 {
		opts = append(opts, pronounce.WithTimeout(d))
	}
	return pronounce.NewGateway(speaker, opts...)
}

// openRepository loads content from packs or the built-in tables, then
// overlays whatever the content database holds.
func openRepository(v *viper.Viper) (*content.Static, error) {
	var (
		base *content.Static
		err  error
	)
	if dir := v.GetString("content-dir"); dir != "" {
		base, err = content.LoadFS(os.DirFS(dir), ".")
	} else {
		base, err = content.Embedded()
	}
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	dbPath := v.GetString("content-db")
	if dbPath == "" {
		return base, nil
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open content database: %w", err)
	}
	defer db.Close()

	repo, err := db.Repository(base)
	if err != nil {
		return nil, fmt.Errorf("load content database: %w", err)
	}
	return repo, nil
}

func newSpeaker(v *viper.Viper) (pronounce.Speaker, error) {
	switch strings.ToLower(v.GetString("speaker")) {
	case "none":
		return pronounce.Nop, nil
	case "", "log":
		return pronounce.LogSpeaker{Logger: slog.Default()}, nil
	case "command":
		c, err := pronounce.ParseCommand(v.GetString("speak-command"))
		if err != nil {
			return nil, fmt.Errorf("speak-command: %w", err)
		}
		return pronounce.CommandSpeaker{Command: c}, nil
	case "openai":
		cacheDir := v.GetString("audio-dir")
		if cacheDir == "" {
			dir, err := os.UserCacheDir()
			if err != nil {
				return nil, fmt.Errorf("locate cache dir: %w", err)
			}
			cacheDir = filepath.Join(dir, "kinderquiz", "audio")
		}
		client, err := tts.New(tts.Config{
			BaseURL:  v.GetString("tts-url"),
			APIKey:   v.GetString("tts-key"),
			Model:    v.GetString("tts-model"),
			Voice:    v.GetString("tts-voice"),
			Speed:    v.GetFloat64("tts-speed"),
			CacheDir: cacheDir,
		})
		if err != nil {
			return nil, err
		}
		sp := pronounce.AudioSpeaker{Synth: client, Logger: slog.Default()}
		if tmpl := v.GetString("speak-command"); tmpl != "" {
			c, err := pronounce.ParseCommand(tmpl)
			if err != nil {
				return nil, fmt.Errorf("speak-command: %w", err)
			}
			sp.Player = &c
		}
		return sp, nil
	default:
		return nil, fmt.Errorf("unknown speaker %q (want none, log, openai or command)", v.GetString("speaker"))
	}
}
