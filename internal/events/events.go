// Package events defines the notifications the learning engine emits and a
// small in-memory dispatcher that fans them out to presentation handlers.
//
// Emitters never know who is listening: the quiz engine, the lesson service
// and the pronunciation gateway publish events, and a terminal presenter (or a
// test recorder) subscribes to them.
package events

import (
	"github.com/pavelanni/kinderquiz/internal/grader"
	"github.com/pavelanni/kinderquiz/internal/model"
)

// Kind names an event type.
type Kind string

const (
	KindLessonFeedRendered Kind = "lesson_feed_rendered"
	KindQuestionPresented  Kind = "question_presented"
	KindAnswerRevealed     Kind = "answer_revealed"
	KindSessionCompleted   Kind = "session_completed"
	KindPronounceRequested Kind = "pronounce_requested"
)

// Event is any notification published on a Bus.
type Event interface {
	Kind() Kind
}

// LessonFeedRendered is published when a lesson feed has been built.
type LessonFeedRendered struct {
	Subject model.Subject    `json:"subject"`
	Feed    model.LessonFeed `json:"feed"`
}

// QuestionPresented is published each time a quiz question becomes current.
type QuestionPresented struct {
	SessionID string             `json:"session_id"`
	Subject   model.Subject      `json:"subject"`
	Question  model.TestQuestion `json:"question"`
	Index     int                `json:"index"`
	Total     int                `json:"total"`
	// PronunciationTarget is the word that may be spoken for this prompt;
	// empty when the prompt has nothing pronounceable.
	PronunciationTarget string `json:"pronunciation_target,omitempty"`
	// OptionTargets holds, per option, the text that may be spoken for it
	// (empty entries are not pronounceable). Nil for subjects without
	// option pronunciation.
	OptionTargets []string `json:"option_targets,omitempty"`
}

// AnswerRevealed is published after an answer is scored.
type AnswerRevealed struct {
	SessionID     string             `json:"session_id"`
	CorrectIndex  int                `json:"correct_index"`
	SelectedIndex int                `json:"selected_index"`
	IsCorrect     bool               `json:"is_correct"`
	Marks         []model.OptionMark `json:"marks"`
}

// SessionCompleted is published when the last question has been answered.
type SessionCompleted struct {
	SessionID string        `json:"session_id"`
	Subject   model.Subject `json:"subject"`
	grader.Result
}

// PronounceRequested is published when the pronunciation gateway accepts a request.
type PronounceRequested struct {
	Text      string `json:"text"`
	LocaleTag string `json:"locale_tag"`
}

func (LessonFeedRendered) Kind() Kind { return KindLessonFeedRendered }
func (QuestionPresented) Kind() Kind  { return KindQuestionPresented }
func (AnswerRevealed) Kind() Kind     { return KindAnswerRevealed }
func (SessionCompleted) Kind() Kind   { return KindSessionCompleted }
func (PronounceRequested) Kind() Kind { return KindPronounceRequested }
