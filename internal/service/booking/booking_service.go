package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/idgen"
	"github.com/Domenick1991/flightbooking/internal/kafka"
	"github.com/Domenick1991/flightbooking/internal/metrics"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/Domenick1991/flightbooking/internal/ticket"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	UpdatePassengerDetails(ctx context.Context, id string, details domain.PassengerDetails) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	GetBookingByID(ctx context.Context, id string) (*domain.Booking, error)
	RenderTicket(ctx context.Context, id string) ([]byte, error)
}

type Producer interface {
	PublishWithRetry(ctx context.Context, topic, key string, value any, maxRetries int) error
}

// Cache is told when seat counts change so cached search pages go stale.
type Cache interface {
	InvalidateFlights(ctx context.Context) error
}

type CreateBookingInput struct {
	FlightType     domain.FlightType
	FlightID       string
	ReturnFlightID string
	CabinClass     domain.CabinClass
	Passenger      domain.PassengerDetails
}

type BookingService struct {
	bookings   repository.BookingRepository
	flights    repository.FlightRepository
	tx         repository.Transactor
	seats      *SeatAllocator
	passengers *PassengerFactory
	ids        *idgen.Generator

	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	publishAttempts    int
	metrics            *metrics.Metrics
	logger             *zap.Logger
	now                func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithProducer(p Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = p
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

// WithPublishAttempts bounds how many times each event is written before
// the failure is logged and dropped.
func WithPublishAttempts(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.publishAttempts = n
		}
	}
}

func WithCache(c Cache) BookingServiceOption {
	return func(s *BookingService) { s.cache = c }
}

func WithMetrics(m *metrics.Metrics) BookingServiceOption {
	return func(s *BookingService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) BookingServiceOption {
	return func(s *BookingService) { s.logger = l }
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) { s.now = now }
}

func WithSeatAllocator(a *SeatAllocator) BookingServiceOption {
	return func(s *BookingService) { s.seats = a }
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	tx repository.Transactor,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:        bookings,
		flights:         flights,
		tx:              tx,
		seats:           NewSeatAllocator(nil),
		passengers:      NewPassengerFactory(idgen.New(idgen.PassengerPrefix)),
		ids:             idgen.New(idgen.BookingPrefix),
		publishAttempts: 1,
		logger:          zap.NewNop(),
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

type leg struct {
	flight *domain.Flight
	seat   string
}

// CreateBooking confirms one seat per leg. Availability is checked on the
// loaded flights first; the conditional reserve inside the transaction
// catches a concurrent booking that took the last seat in between.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*domain.Booking, error) {
	var booking *domain.Booking

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		outbound, err := s.availableFlight(ctx, in.FlightID, in.CabinClass)
		if err != nil {
			return err
		}

		legs := []leg{{flight: outbound}}
		switch in.FlightType {
		case domain.FlightTypeReturn:
			if strings.TrimSpace(in.ReturnFlightID) == "" {
				return fmt.Errorf("return flight id is required for return flights: %w", domain.ErrInvalidRequest)
			}
			if in.ReturnFlightID == in.FlightID {
				return fmt.Errorf("return flight must differ from outbound flight: %w", domain.ErrInvalidRequest)
			}
			back, err := s.availableFlight(ctx, in.ReturnFlightID, in.CabinClass)
			if err != nil {
				return err
			}
			legs = append(legs, leg{flight: back})
		case domain.FlightTypeOneWay:
			if in.ReturnFlightID != "" {
				return fmt.Errorf("one way booking cannot have a return flight: %w", domain.ErrInvalidRequest)
			}
		default:
			return fmt.Errorf("unknown flight type %q: %w", in.FlightType, domain.ErrInvalidRequest)
		}

		passenger := s.passengers.Create(in.Passenger)

		var total int64
		for i := range legs {
			seat, err := s.seats.Allocate(in.CabinClass)
			if err != nil {
				return err
			}
			legs[i].seat = seat

			price, err := legs[i].flight.Price(in.CabinClass)
			if err != nil {
				return err
			}
			total += price
		}

		b := &domain.Booking{
			ID:              s.ids.NextID(),
			FlightID:        outbound.ID,
			Passenger:       passenger,
			Status:          domain.BookingStatusConfirmed,
			CabinClass:      in.CabinClass,
			FlightType:      in.FlightType,
			SeatNumber:      legs[0].seat,
			TotalPriceCents: total,
			CreatedAt:       s.now(),
		}
		if len(legs) == 2 {
			b.ReturnFlightID = legs[1].flight.ID
			b.ReturnSeatNumber = legs[1].seat
		}

		for _, l := range legs {
			if err := s.flights.ReserveSeats(ctx, l.flight.ID, in.CabinClass, 1); err != nil {
				return err
			}
		}
		if err := s.bookings.Create(ctx, b); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("flight_id", booking.FlightID),
		zap.String("return_flight_id", booking.ReturnFlightID),
		zap.String("cabin_class", string(booking.CabinClass)))

	if s.metrics != nil {
		s.metrics.BookingsCreated.WithLabelValues(string(booking.FlightType), string(booking.CabinClass)).Inc()
	}
	s.inventoryChanged(ctx)
	s.publish(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) availableFlight(ctx context.Context, id string, class domain.CabinClass) (*domain.Flight, error) {
	f, err := s.flights.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seats(class); err != nil {
		return nil, err
	}
	if !f.HasAvailableSeats(class) {
		return nil, fmt.Errorf("no available %s seats on flight %s: %w", class.DisplayName(), id, domain.ErrNoSeatsAvailable)
	}
	return f, nil
}

// UpdatePassengerDetails rewrites the passenger fields only. Identity,
// status, seats and price stay as they were.
func (s *BookingService) UpdatePassengerDetails(ctx context.Context, id string, details domain.PassengerDetails) (*domain.Booking, error) {
	var booking *domain.Booking

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			return fmt.Errorf("cannot update passenger details of cancelled booking %s: %w", id, domain.ErrInvalidOperation)
		}

		b.Passenger.Apply(details)
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking passenger updated", zap.String("booking_id", booking.ID))
	s.publish(ctx, kafka.EventBookingPassengerUpdated, booking)
	return booking, nil
}

// CancelBooking returns the cancelled booking; its total price is the
// refund amount.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var booking *domain.Booking

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if b.IsCancelled() {
			return fmt.Errorf("booking %s is already cancelled: %w", id, domain.ErrInvalidOperation)
		}

		b.Status = domain.BookingStatusCancelled
		if err := s.bookings.Update(ctx, b); err != nil {
			return err
		}

		for _, flightID := range b.Legs() {
			if err := s.flights.ReleaseSeats(ctx, flightID, b.CabinClass, 1); err != nil {
				return err
			}
		}

		booking = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled",
		zap.String("booking_id", booking.ID),
		zap.Int64("refund_cents", booking.TotalPriceCents))

	if s.metrics != nil {
		s.metrics.BookingsCancelled.Inc()
	}
	s.inventoryChanged(ctx)
	s.publish(ctx, kafka.EventBookingCancelled, booking)
	return booking, nil
}

func (s *BookingService) GetBookingByID(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// RenderTicket builds the PDF e-ticket of a confirmed booking.
func (s *BookingService) RenderTicket(ctx context.Context, id string) ([]byte, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.IsCancelled() {
		return nil, fmt.Errorf("booking %s is cancelled: %w", id, domain.ErrInvalidOperation)
	}

	it := ticket.Itinerary{Booking: b, IssuedAt: s.now()}
	if it.Outbound, err = s.flights.GetByID(ctx, b.FlightID); err != nil {
		return nil, err
	}
	if b.ReturnFlightID != "" {
		if it.Return, err = s.flights.GetByID(ctx, b.ReturnFlightID); err != nil {
			return nil, err
		}
	}
	return ticket.Render(it)
}

func (s *BookingService) inventoryChanged(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlights(ctx); err != nil {
		s.logger.Warn("failed to invalidate flight cache", zap.Error(err))
	}
}

// publish runs after commit. The booking is already durable, so a broker
// failure is logged and not returned.
func (s *BookingService) publish(ctx context.Context, eventType kafka.EventType, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}

	event := kafka.NewBookingEvent(eventType, booking, s.now())
	if err := s.producer.PublishWithRetry(ctx, s.bookingTopic, booking.ID, event, s.publishAttempts); err != nil {
		s.logger.Warn("failed to publish booking event",
			zap.String("type", string(eventType)),
			zap.String("booking_id", booking.ID),
			zap.Error(err))
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, booking.ID, event, s.publishAttempts); err != nil {
			s.logger.Warn("failed to publish notification event",
				zap.String("booking_id", booking.ID),
				zap.Error(err))
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
