package domain

import "errors"

// Input errors are caller-correctable and stop evaluation before any lookup happens.
var (
	ErrMissingSelection = errors.New("missing required selection")
	ErrFutureDate       = errors.New("priority date is in the future")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFamily    = errors.New("invalid visa family")
	ErrInvalidDimension = errors.New("invalid bulletin dimension")
)

// Configuration and upstream data errors.
var (
	ErrUnknownCategory = errors.New("category not found in category key map")
	ErrMalformedCutoff = errors.New("malformed cutoff value")
	ErrInvalidForecast = errors.New("invalid forecast document")
	ErrInvalidBulletin = errors.New("invalid bulletin document")
	ErrInvalidPolicy   = errors.New("invalid forecast policy")
)

// IsInputError reports whether err is a caller-correctable input error.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingSelection) ||
		errors.Is(err, ErrFutureDate) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidFamily) ||
		errors.Is(err, ErrInvalidDimension)
}

// IsConfigurationError reports whether err signals a broken category or policy table.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrUnknownCategory) || errors.Is(err, ErrInvalidPolicy)
}
