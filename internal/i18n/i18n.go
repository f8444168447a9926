// Package i18n holds the interface strings in English and Chinese.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/pavelanni/kinderquiz/internal/model"
)

var jsonUnmarshal = json.Unmarshal

//go:embed locales/*.json
var localeFS embed.FS

// Supported lists the interface languages shipped with the binary.
var Supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(Supported)

type ctxKey struct{}

var bundle *i18n.Bundle

// Init loads the translation bundle with lang as the default language.
func Init(lang string) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	bundle = i18n.NewBundle(Match(tag))
	bundle.RegisterUnmarshalFunc("json", jsonUnmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		slog.Debug("loaded locale file", "file", e.Name())
	}

	return nil
}

// Match maps any language tag onto the closest supported one.
func Match(tag language.Tag) language.Tag {
	_, idx, _ := matcher.Match(tag)
	return Supported[idx]
}

// NewLocalizer creates a localizer for the given language.
func NewLocalizer(lang string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, lang)
}

// WithLocalizer stores a localizer in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer) context.Context {
	return context.WithValue(ctx, ctxKey{}, loc)
}

// WithLang stores a localizer for lang in the context.
func WithLang(ctx context.Context, lang string) context.Context {
	return WithLocalizer(ctx, NewLocalizer(lang))
}

// localizerFromCtx retrieves the localizer from context.
func localizerFromCtx(ctx context.Context) *i18n.Localizer {
	if loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer); ok {
		return loc
	}
	// Fallback: return English localizer.
	return i18n.NewLocalizer(bundle, "en")
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	loc := localizerFromCtx(ctx)
	s, err := loc.Localize(&i18n.LocalizeConfig{MessageID: msgID})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	loc := localizerFromCtx(ctx)
	s, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		TemplateData: data,
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	loc := localizerFromCtx(ctx)
	s, err := loc.Localize(&i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
	if err != nil {
		slog.Warn("missing translation", "id", msgID, "error", err)
		return msgID
	}
	return s
}

var subjectMessages = map[model.Subject]string{
	model.SubjectVocabulary: "SubjectVocabulary",
	model.SubjectArithmetic: "SubjectArithmetic",
	model.SubjectCharacters: "SubjectCharacters",
}

// SubjectName returns the display name of a subject.
func SubjectName(ctx context.Context, s model.Subject) string {
	if id, ok := subjectMessages[s]; ok {
		return T(ctx, id)
	}
	return string(s)
}

var tierMessages = map[model.Tier]string{
	model.TierExcellent: "TierExcellent",
	model.TierGood:      "TierGood",
	model.TierEncourage: "TierEncourage",
}

// TierMessage returns the encouragement shown for a result tier.
func TierMessage(ctx context.Context, t model.Tier) string {
	if id, ok := tierMessages[t]; ok {
		return T(ctx, id)
	}
	return string(t)
}

// CategoryLabel returns the heading for a lesson group.
func CategoryLabel(ctx context.Context, category string) string {
	if category == model.UncategorizedLabel {
		return T(ctx, "Uncategorized")
	}
	return category
}
