package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type FlightType string

const (
	FlightTypeOneWay FlightType = "ONE_WAY"
	FlightTypeReturn FlightType = "RETURN"
)

func ParseFlightType(s string) (FlightType, error) {
	switch FlightType(s) {
	case FlightTypeOneWay, FlightTypeReturn:
		return FlightType(s), nil
	}
	return "", fmt.Errorf("unknown flight type %q: %w", s, ErrInvalidRequest)
}

func (t FlightType) DisplayName() string {
	switch t {
	case FlightTypeOneWay:
		return "One Way"
	case FlightTypeReturn:
		return "Return"
	default:
		return string(t)
	}
}

type Booking struct {
	ID               string
	FlightID         string
	ReturnFlightID   string
	Passenger        Passenger
	Status           BookingStatus
	CabinClass       CabinClass
	FlightType       FlightType
	SeatNumber       string
	ReturnSeatNumber string
	TotalPriceCents  int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (b *Booking) IsCancelled() bool {
	return b.Status == BookingStatusCancelled
}

// Legs lists the flight ids this booking holds a seat on.
func (b *Booking) Legs() []string {
	if b.ReturnFlightID != "" {
		return []string{b.FlightID, b.ReturnFlightID}
	}
	return []string{b.FlightID}
}
