package service

import "errors"

// Validation errors abort the operation without touching state.
var (
	ErrEmptyName            = errors.New("please enter an item name")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInsufficientStock    = errors.New("not enough stock")
	ErrItemNotFound         = errors.New("item not found")
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	ErrConfirmationNotFound = errors.New("delete confirmation not found or expired")
	ErrNothingToExport      = errors.New("no items to export")
)

// Store errors. The local change is kept when a save fails.
var (
	ErrLoadFailed = errors.New("failed to load inventory")
	ErrSaveFailed = errors.New("failed to save inventory, changes are in-memory only")
)

// IsValidation reports whether err is a user input error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInsufficientStock)
}
