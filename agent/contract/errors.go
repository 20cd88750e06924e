package contract

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidDate      = errors.New("invalid date format")
	ErrCompletionFailed = errors.New("completion backend failed")
	ErrMalformedSummary = errors.New("summary output is malformed")
	ErrNoMatch          = errors.New("no document matched")
	ErrAudioNotFound    = errors.New("audio artifact not found")
	ErrValidation       = errors.New("validation failed")
)
