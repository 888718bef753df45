package session

import "errors"

// Sentinel errors for session operations
var (
	// ErrEmptyTurn indicates there is neither text nor an image to send
	ErrEmptyTurn = errors.New("cannot send an empty message")

	// ErrTurnInProgress indicates the previous turn has not resolved yet
	ErrTurnInProgress = errors.New("a request is already in progress for this chat")

	// ErrNoModel indicates no model is bound to the conversation
	ErrNoModel = errors.New("no model selected")

	// ErrClosed indicates the session view was closed
	ErrClosed = errors.New("session closed")
)
