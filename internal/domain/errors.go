package domain

import "errors"

// Domain errors
var (
	ErrMalformedMessage   = errors.New("malformed message")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrInvalidWord        = errors.New("invalid word")
	ErrEmptyBoardID       = errors.New("board id cannot be empty")
	ErrNotJoined          = errors.New("connection has not joined a board")
	ErrNotSynced          = errors.New("board has not received its snapshot yet")
	ErrNotConnected       = errors.New("transport is not open")
)
