package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Subject identifies one of the fixed content domains.
type Subject string

const (
	SubjectVocabulary Subject = "vocabulary"
	SubjectArithmetic Subject = "arithmetic"
	SubjectCharacters Subject = "characters"
)

// Subjects lists every subject in display order.
var Subjects = []Subject{SubjectVocabulary, SubjectArithmetic, SubjectCharacters}

var subjectAliases = map[string]Subject{
	"english": SubjectVocabulary,
	"math":    SubjectArithmetic,
	"chinese": SubjectCharacters,
}

// ParseSubject resolves a subject name or one of its short aliases.
func ParseSubject(s string) (Subject, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := subjectAliases[name]; ok {
		return alias, nil
	}
	subj := Subject(name)
	if _, ok := subjectTraits[subj]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSubject, s)
	}
	return subj, nil
}

// Valid reports whether s is one of the fixed subjects.
func (s Subject) Valid() bool {
	_, ok := subjectTraits[s]
	return ok
}

// Locale tags used for pronunciation.
const (
	LocaleEnglish = "en-US"
	LocaleChinese = "zh-CN"
)

// UncategorizedLabel is the bucket for lesson items without a category.
const UncategorizedLabel = "uncategorized"

// SubjectTraits describes how a subject's content is shaped and spoken.
type SubjectTraits struct {
	// Categorized subjects group lesson feeds by LessonItem.Category.
	Categorized bool
	// Locale is the pronunciation locale for this subject's spoken text.
	Locale string
	// PromptTarget extracts the pronounceable word from a question prompt.
	// Nil means prompts are never pronounced.
	PromptTarget func(prompt string) string
	// OptionTarget reports whether an answer option may be pronounced.
	// Nil means options are never pronounced.
	OptionTarget func(option string) bool
	// ItemSpeech returns the text to speak for a lesson item.
	// Nil means lesson items are never pronounced.
	ItemSpeech func(item LessonItem) string
}

var subjectTraits = map[Subject]SubjectTraits{
	SubjectVocabulary: {
		Categorized:  true,
		Locale:       LocaleEnglish,
		PromptTarget: FirstLatinWord,
		OptionTarget: IsLatinWord,
		ItemSpeech:   func(it LessonItem) string { return it.Word },
	},
	SubjectArithmetic: {
		Locale: LocaleChinese,
	},
	SubjectCharacters: {
		Categorized: true,
		Locale:      LocaleChinese,
		ItemSpeech:  func(it LessonItem) string { return it.Char },
	},
}

// TraitsOf returns the traits for a subject.
func TraitsOf(s Subject) (SubjectTraits, error) {
	t, ok := subjectTraits[s]
	if !ok {
		return SubjectTraits{}, fmt.Errorf("%w: %q", ErrUnknownSubject, s)
	}
	return t, nil
}

var (
	latinRun  = regexp.MustCompile(`[A-Za-z]+`)
	latinWord = regexp.MustCompile(`^[A-Za-z]+$`)
)

// FirstLatinWord returns the first maximal run of ASCII Latin letters in text,
// or "" if there is none.
func FirstLatinWord(text string) string {
	return latinRun.FindString(text)
}

// IsLatinWord reports whether text consists solely of ASCII Latin letters.
func IsLatinWord(text string) bool {
	return latinWord.MatchString(text)
}

// LessonItem is one piece of lesson content. Which fields are set depends on
// the subject: vocabulary uses Word/Translation, arithmetic uses Title/Content,
// characters uses Char/Pinyin/Meaning.
type LessonItem struct {
	Emoji    string `json:"emoji,omitempty" yaml:"emoji,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`

	Word        string `json:"word,omitempty" yaml:"word,omitempty"`
	Translation string `json:"translation,omitempty" yaml:"translation,omitempty"`

	Title   string `json:"title,omitempty" yaml:"title,omitempty"`
	Content string `json:"content,omitempty" yaml:"content,omitempty"`

	Char    string `json:"char,omitempty" yaml:"char,omitempty"`
	Pinyin  string `json:"pinyin,omitempty" yaml:"pinyin,omitempty"`
	Meaning string `json:"meaning,omitempty" yaml:"meaning,omitempty"`
}

// CategoryLabel returns the item's category, or UncategorizedLabel when unset.
func (it LessonItem) CategoryLabel() string {
	if it.Category == "" {
		return UncategorizedLabel
	}
	return it.Category
}

// TestQuestion is a multiple-choice question.
type TestQuestion struct {
	Prompt       string   `json:"question" yaml:"question" validate:"required"`
	Options      []string `json:"options" yaml:"options" validate:"min=2"`
	CorrectIndex int      `json:"answer" yaml:"answer" validate:"gte=0"`
}

// ContentPool holds every lesson item and test question of one subject.
type ContentPool struct {
	Lessons []LessonItem   `json:"lessons" yaml:"lessons"`
	Tests   []TestQuestion `json:"tests" yaml:"tests"`
}

// LessonGroup is one category section of a lesson feed.
type LessonGroup struct {
	Category string       `json:"category"`
	Items    []LessonItem `json:"items"`
}

// LessonFeed is a display-ready lesson sample. Exactly one of Items (flat
// subjects) or Groups (categorized subjects) is populated.
type LessonFeed struct {
	Subject  Subject       `json:"subject"`
	Items    []LessonItem  `json:"items,omitempty"`
	Groups   []LessonGroup `json:"groups,omitempty"`
	Shown    int           `json:"shown"`
	PoolSize int           `json:"pool_size"`
}

// Grouped reports whether the feed is organized by category.
func (f LessonFeed) Grouped() bool {
	return f.Groups != nil
}

// Tier is the qualitative feedback bucket for a finished quiz.
type Tier string

const (
	TierEncourage Tier = "encourage"
	TierGood      Tier = "good"
	TierExcellent Tier = "excellent"
)

// OptionMark is the reveal state of one answer option.
type OptionMark string

const (
	MarkNone    OptionMark = ""
	MarkCorrect OptionMark = "correct"
	MarkWrong   OptionMark = "wrong"
)

// QuizConfig holds runtime parameters set via CLI flags.
type QuizConfig struct {
	QuestionsPerTest int           // questions drawn per quiz session
	LessonsPerPage   int           // lesson items drawn per feed
	AdvanceDelay     time.Duration // pause between an answer and the next question
	Lang             string        // UI language (en, zh)
}

// DefaultQuizConfig returns the stock session sizes and timing.
func DefaultQuizConfig() QuizConfig {
	return QuizConfig{
		QuestionsPerTest: 10,
		LessonsPerPage:   15,
		AdvanceDelay:     1500 * time.Millisecond,
		Lang:             "en",
	}
}
