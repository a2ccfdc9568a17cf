package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrPartyAlreadyExists      = errors.New("party_already_exists")
	ErrPartyNotFound           = errors.New("party_not_found")
	ErrInstrumentAlreadyExists = errors.New("instrument_already_exists")
	ErrInstrumentNotFound      = errors.New("instrument_not_found")
	ErrOrderNotFound           = errors.New("order_not_found")
	ErrOrderNotCancellable     = errors.New("order_not_cancellable")
	ErrDuplicateOrder          = errors.New("duplicate_order")
	ErrWebhookNotFound         = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
