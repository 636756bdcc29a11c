// Package notify turns booking events into passenger notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"go.uber.org/zap"
)

type Notification struct {
	BookingID string `json:"booking_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func Compose(ev kafka.BookingEvent) (Notification, error) {
	n := Notification{BookingID: ev.BookingID, To: ev.PassengerEmail}

	switch ev.Type {
	case kafka.EventBookingCreated:
		n.Subject = fmt.Sprintf("Booking %s confirmed", ev.BookingID)
		n.Body = fmt.Sprintf("Dear %s, your %s booking on flight %s is confirmed. Seat %s.",
			ev.PassengerName, displayClass(ev.CabinClass), ev.FlightID, ev.SeatNumber)
		if ev.ReturnFlightID != "" {
			n.Body += fmt.Sprintf(" Return flight %s, seat %s.", ev.ReturnFlightID, ev.ReturnSeatNumber)
		}
		n.Body += fmt.Sprintf(" Total paid %s.", domain.FormatCents(ev.TotalPriceCents))
	case kafka.EventBookingPassengerUpdated:
		n.Subject = fmt.Sprintf("Booking %s updated", ev.BookingID)
		n.Body = fmt.Sprintf("Dear %s, the passenger details on booking %s were updated.", ev.PassengerName, ev.BookingID)
	case kafka.EventBookingCancelled:
		n.Subject = fmt.Sprintf("Booking %s cancelled", ev.BookingID)
		n.Body = fmt.Sprintf("Dear %s, booking %s was cancelled. A refund of %s is on its way.",
			ev.PassengerName, ev.BookingID, domain.FormatCents(ev.TotalPriceCents))
	default:
		return Notification{}, fmt.Errorf("unknown booking event type %q", ev.Type)
	}

	if n.To == "" {
		return Notification{}, fmt.Errorf("booking %s has no passenger email", ev.BookingID)
	}
	return n, nil
}

func displayClass(raw string) string {
	c, err := domain.ParseCabinClass(raw)
	if err != nil {
		return raw
	}
	return c.DisplayName()
}

// Sender delivers notifications. Delivery is a structured log line; a mail
// gateway can replace it without touching the worker.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	return &Sender{logger: logger}
}

func (s *Sender) Send(_ context.Context, ev kafka.BookingEvent) (Notification, error) {
	n, err := Compose(ev)
	if err != nil {
		return Notification{}, err
	}

	s.logger.Info("notification sent",
		zap.String("booking_id", n.BookingID),
		zap.String("to", n.To),
		zap.String("subject", n.Subject))
	return n, nil
}
