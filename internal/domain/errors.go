package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

var (
	ErrCartEmpty            = fmt.Errorf("%w: cart is empty", ErrNotFound)
	ErrFoodUnavailable      = fmt.Errorf("%w: food item not found or unavailable", ErrNotFound)
	ErrInvalidID            = fmt.Errorf("%w: malformed identifier", ErrInvalidArgument)
	ErrInvalidQuantity      = fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidArgument)
	ErrInvalidPaymentMethod = fmt.Errorf("%w: invalid payment method", ErrInvalidArgument)
	ErrInvalidStatus        = fmt.Errorf("%w: invalid order status", ErrInvalidArgument)
	ErrInvalidFilter        = fmt.Errorf("%w: order filter must be pending or processing", ErrInvalidArgument)
	ErrMixedStoreCart       = fmt.Errorf("%w: cart contains food from more than one store", ErrInvalidArgument)
	ErrIllegalTransition    = fmt.Errorf("%w: illegal order status transition", ErrInvalidArgument)
	ErrCartCheckedOut       = fmt.Errorf("%w: this cart revision was already checked out", ErrConflict)
	ErrStatusChanged        = fmt.Errorf("%w: order status changed concurrently", ErrConflict)
)
