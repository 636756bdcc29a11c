package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	EventBookingCreated          EventType = "booking_created"
	EventBookingPassengerUpdated EventType = "booking_passenger_updated"
	EventBookingCancelled        EventType = "booking_cancelled"
)

type BookingEvent struct {
	Type             EventType `json:"type"`
	BookingID        string    `json:"booking_id"`
	FlightID         string    `json:"flight_id"`
	ReturnFlightID   string    `json:"return_flight_id,omitempty"`
	FlightType       string    `json:"flight_type"`
	CabinClass       string    `json:"cabin_class"`
	SeatNumber       string    `json:"seat_number"`
	ReturnSeatNumber string    `json:"return_seat_number,omitempty"`
	Status           string    `json:"status"`
	PassengerEmail   string    `json:"passenger_email"`
	PassengerName    string    `json:"passenger_name"`
	TotalPriceCents  int64     `json:"total_price_cents"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewBookingEvent(t EventType, b *domain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		Type:             t,
		BookingID:        b.ID,
		FlightID:         b.FlightID,
		ReturnFlightID:   b.ReturnFlightID,
		FlightType:       string(b.FlightType),
		CabinClass:       string(b.CabinClass),
		SeatNumber:       b.SeatNumber,
		ReturnSeatNumber: b.ReturnSeatNumber,
		Status:           string(b.Status),
		PassengerEmail:   b.Passenger.Email,
		PassengerName:    b.Passenger.FullName(),
		TotalPriceCents:  b.TotalPriceCents,
		OccurredAt:       at,
	}
}

func DecodeBookingEvent(msg kafka.Message) (BookingEvent, error) {
	var ev BookingEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return BookingEvent{}, fmt.Errorf("decode booking event at offset %d: %w", msg.Offset, err)
	}
	return ev, nil
}
