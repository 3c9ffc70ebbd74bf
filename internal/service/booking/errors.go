package booking

import (
	"errors"

	"slotkeeper/backend/internal/domain"
	"slotkeeper/backend/internal/settings"
	"slotkeeper/backend/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

var (
	// ErrSlotNoLongerAvailable means the slot was taken between listing and
	// booking. Callers should re-list rather than retry.
	ErrSlotNoLongerAvailable = errors.New("slot is no longer available")

	ErrSettingsUnavailable = settings.ErrUnavailable
	ErrInvalidTransition   = domain.ErrInvalidTransition
	ErrNotFound            = store.ErrNotFound
	ErrIdempotencyConflict = store.ErrIdempotencyConflict
)
