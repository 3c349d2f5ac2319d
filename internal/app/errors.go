package app

import "errors"

// ErrNotFound and related errors describe runtime failures of the service.
var (
	ErrNotFound          = errors.New("not found")
	ErrNoBulletin        = errors.New("no bulletin stored; run refresh or import a bulletin")
	ErrSourceUnavailable = errors.New("bulletin source unavailable")
	ErrInvalidInput      = errors.New("invalid input")
)
