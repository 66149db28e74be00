package session

import "errors"

// ErrInvalidInput is the kind shared by every ValidationError.
var ErrInvalidInput = errors.New("invalid input")

// ErrClosed is returned by PanelContext.Do once the context has shut down.
var ErrClosed = errors.New("panel context closed")

// ErrBusy is returned by PanelContext.Do when the inbox is full.
var ErrBusy = errors.New("panel context busy")

// ValidationError rejects a user operation before any command is emitted.
// Message is the text shown to the player.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

const (
	msgFillAllFields   = "Please fill in all fields"
	msgQuantityMin     = "Quantity must be at least 1"
	msgPriceMin        = "Price must be at least 1"
	msgNotInInventory  = "You don't have that item"
	msgItemNotFound    = "Item not found"
	msgCannotBeOrdered = "This item cannot be ordered"
	msgListingGone     = "Listing no longer available"
	msgOrderGone       = "Buy order no longer available"
	msgPickupGone      = "Pickup no longer available"
	msgNotYours        = "You can only cancel your own orders"
	msgOwnOrder        = "You cannot fulfill your own buy order"
	msgClosed          = "Marketplace is not open"
	msgUnknownType     = "Unknown history type"
)
