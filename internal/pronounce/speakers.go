package pronounce

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/text/language"
)

// LogSpeaker writes each request to a logger instead of producing audio.
type LogSpeaker struct {
	Logger *slog.Logger
}

// Speak logs text.
func (s LogSpeaker) Speak(ctx context.Context, text string, locale language.Tag) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.InfoContext(ctx, "speak", "text", text, "locale", locale.String())
	return nil
}

// Nop discards every request.
var Nop Speaker = SpeakerFunc(func(context.Context, string, language.Tag) error { return nil })

// ErrEmptyCommand is returned when a command template has no program.
var ErrEmptyCommand = errors.New("empty command")

// Command is an external program invocation with placeholders. Each argument
// may contain {text}, {lang} (the base language, e.g. "en") and {locale}
// (the full tag, e.g. "en-US"), plus {file} where a file path is supplied.
type Command struct {
	Args []string
}

// ParseCommand splits a template such as "espeak-ng -v {lang} {text}" on
// whitespace. Placeholders are substituted per argument, so spoken text with
// spaces stays a single argument.
func ParseCommand(tmpl string) (Command, error) {
	args := strings.Fields(tmpl)
	if len(args) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{Args: args}, nil
}

// Expand substitutes placeholders into the command arguments.
func (c Command) Expand(text string, locale language.Tag, file string) []string {
	base, _ := locale.Base()
	r := strings.NewReplacer(
		"{text}", text,
		"{lang}", base.String(),
		"{locale}", locale.String(),
		"{file}", file,
	)
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		out[i] = r.Replace(a)
	}
	return out
}

// Run executes the expanded command. Cancelling ctx kills the process.
func (c Command) Run(ctx context.Context, text string, locale language.Tag, file string) error {
	args := c.Expand(text, locale, file)
	if len(args) == 0 {
		return ErrEmptyCommand
	}
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// CommandSpeaker speaks through a local text-to-speech program.
type CommandSpeaker struct {
	Command Command
}

// Speak runs the command for text.
func (s CommandSpeaker) Speak(ctx context.Context, text string, locale language.Tag) error {
	return s.Command.Run(ctx, text, locale, "")
}

// Synthesizer renders text to an audio file and returns its path.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, locale language.Tag) (string, error)
}

// AudioSpeaker synthesizes audio remotely and optionally plays the file with
// a local player command. Without a player the audio is only cached.
type AudioSpeaker struct {
	Synth  Synthesizer
	Player *Command
	Logger *slog.Logger
}

// Speak synthesizes text and plays the result.
func (s AudioSpeaker) Speak(ctx context.Context, text string, locale language.Tag) error {
	if s.Synth == nil {
		return fmt.Errorf("audio speaker: no synthesizer configured")
	}
	path, err := s.Synth.Synthesize(ctx, text, locale)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}
	if s.Player == nil {
		if s.Logger != nil {
			s.Logger.DebugContext(ctx, "audio ready", "text", text, "path", path)
		}
		return nil
	}
	return s.Player.Run(ctx, text, locale, path)
}
