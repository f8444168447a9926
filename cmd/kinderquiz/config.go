package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/text/language"

	appI18n "github.com/pavelanni/kinderquiz/internal/i18n"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// loadDotEnv exports variables from a .env file in the working directory.
// Variables already set in the environment win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
}

func addLoggingFlags(f *pflag.FlagSet) {
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func addContentFlags(f *pflag.FlagSet) {
	f.String("content-db", "", "SQLite content database populated by 'import' (empty = built-in content)")
	f.String("content-dir", "", "Directory of <subject>.json/.yaml content packs")
}

func addSpeechFlags(f *pflag.FlagSet) {
	f.String("speaker", "log", "Pronunciation backend (none, log, openai, command)")
	f.String("speak-command", "", "Command template for speech or audio playback, e.g. 'espeak-ng -v {lang} {text}' or 'mpg123 -q {file}'")
	f.String("tts-url", "", "OpenAI-compatible API base URL for speech synthesis")
	f.String("tts-key", "", "API key for speech synthesis")
	f.String("tts-model", "tts-1", "Speech synthesis model")
	f.String("tts-voice", "alloy", "Speech synthesis voice")
	f.Float64("tts-speed", 0.8, "Speech rate")
	f.String("audio-dir", "", "Directory for cached audio files (default: user cache dir)")
	f.Duration("speak-timeout", 15*time.Second, "Maximum time for one pronunciation")
}

func addSessionFlags(f *pflag.FlagSet) {
	def := model.DefaultQuizConfig()
	f.StringP("lang", "l", def.Lang, "UI language (en, zh)")
	f.Uint64("seed", 0, "Random seed for sampling (0 = random)")
	f.IntP("questions-per-test", "n", def.QuestionsPerTest, "Questions per quiz")
	f.Int("lessons-per-page", def.LessonsPerPage, "Lesson cards per page")
	f.Duration("advance-delay", def.AdvanceDelay, "Pause after an answer before the next question")
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("KINDERQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kinderquiz")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/kinderquiz")
	v.AddConfigPath("/etc/kinderquiz")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// uiLang maps the configured language onto a supported UI language.
func uiLang(v *viper.Viper) string {
	tag, err := language.Parse(v.GetString("lang"))
	if err != nil {
		slog.Warn("invalid lang, using English", "lang", v.GetString("lang"), "error", err)
		return "en"
	}
	return appI18n.Match(tag).String()
}

// quizConfig resolves session settings; unset values keep their defaults.
func quizConfig(v *viper.Viper) model.QuizConfig {
	cfg := model.DefaultQuizConfig()
	if n := v.GetInt("questions-per-test"); n > 0 {
		cfg.QuestionsPerTest = n
	}
	if n := v.GetInt("lessons-per-page"); n > 0 {
		cfg.LessonsPerPage = n
	}
	if d := v.GetDuration("advance-delay"); d >= 0 {
		cfg.AdvanceDelay = d
	}
	cfg.Lang = uiLang(v)
	return cfg
}
