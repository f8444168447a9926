package model

import "errors"

var (
	// ErrUnknownSubject is returned for a subject outside the fixed set.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrEmptyContentPool is returned when a subject has nothing to sample.
	ErrEmptyContentPool = errors.New("empty content pool")

	// ErrIllegalSessionState is returned when an operation does not fit the
	// current quiz session state, including when no session exists.
	ErrIllegalSessionState = errors.New("illegal session state")

	// ErrOptionOutOfRange is returned for an answer index outside the options.
	ErrOptionOutOfRange = errors.New("option index out of range")

	// ErrInvalidScore is returned when a score lies outside [0, total].
	ErrInvalidScore = errors.New("invalid score")

	// ErrInvalidContent is returned when a content record breaks its invariants.
	ErrInvalidContent = errors.New("invalid content")
)
