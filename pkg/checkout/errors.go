package checkout

import "errors"

var (
	// ErrValidation wraps malformed shipping/contact input, rejected before
	// any I/O happens.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyCart means there is nothing to check out.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

	// ErrDuplicateCheckout means this checkout key was already claimed by an
	// earlier attempt.
	ErrDuplicateCheckout = errors.New("checkout already in progress")

	// ErrCheckoutNotFound means no pending checkout exists for the key, for
	// example an expired stash or an unknown payment callback.
	ErrCheckoutNotFound = errors.New("pending checkout not found")
)
