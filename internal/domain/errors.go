package domain

import "errors"

var (
	ErrFlightNotFound   = errors.New("flight not found")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrNoSeatsAvailable = errors.New("no seats available")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrAPITokenNotFound = errors.New("api token not found")
)
