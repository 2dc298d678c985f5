package models

import "errors"

// Validation and availability errors are reported synchronously, before
// any retrieval or streaming work begins. The HTTP layer translates them
// to status codes.
var (
	ErrEmptyQuery      = errors.New("query must not be empty")
	ErrProfanity       = errors.New("profanity is not allowed")
	ErrUnavailable     = errors.New("book data not available")
	ErrInvalidMessages = errors.New("messages must be a non-empty list")
)
