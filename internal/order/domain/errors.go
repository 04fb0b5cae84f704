package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCustomer = errors.New("customer id must not be empty")
	ErrNoItems       = errors.New("order must contain at least one item")
	ErrBadItem       = errors.New("order item must have a product id, a positive quantity and a non-negative price")
)

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid order transition from %s to %s", e.From, e.To)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
