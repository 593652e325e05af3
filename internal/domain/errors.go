package domain

import "errors"

var (
	// ErrInvalidConfig wraps all quiz configuration validation failures.
	ErrInvalidConfig = errors.New("invalid quiz config")
	// ErrSessionNotFound is returned when a session ID does not resolve.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrContentSetNotFound indicates the content pool could not be loaded.
	ErrContentSetNotFound = errors.New("content set not found")
	// ErrEmptyPool indicates no usable items remained after validation.
	ErrEmptyPool = errors.New("content pool is empty")
	// ErrInvalidTransition is returned for out-of-order session operations.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrAlreadyAnswered is returned on a second submission for one question.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNotAnswered is returned when advancing an unanswered question.
	ErrNotAnswered = errors.New("question not answered yet")
)
