package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyOrder = errors.New("payment must reference an order")
	ErrBadAmount  = errors.New("payment amount must be positive")
)

type InvalidTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid payment transition from %s to %s", e.From, e.To)
}

func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}
