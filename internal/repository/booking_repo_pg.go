package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Create(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
}

type PGBookingRepository struct {
	db DB
}

func NewBookingRepository(db DB) BookingRepository {
	return &PGBookingRepository{db: db}
}

// Create stores the passenger row and the booking row. Callers run it inside
// a transaction so both rows land together.
func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	p := b.Passenger
	if _, err := conn(ctx, r.db).Exec(ctx, `INSERT INTO passengers (id, first_name, last_name, email, phone_number, passport_number, date_of_birth)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.FirstName, p.LastName, p.Email, p.PhoneNumber, p.PassportNumber, p.DateOfBirth); err != nil {
		return fmt.Errorf("insert passenger: %w", err)
	}

	if err := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO bookings (id, flight_id, return_flight_id, passenger_id, status, seat_class, flight_type,
			seat_number, return_seat_number, total_price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING updated_at`,
		b.ID, b.FlightID, nullIfEmpty(b.ReturnFlightID), p.ID, b.Status, b.CabinClass, b.FlightType,
		b.SeatNumber, nullIfEmpty(b.ReturnSeatNumber), b.TotalPriceCents, b.CreatedAt).
		Scan(&b.UpdatedAt); err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT b.id, b.flight_id, COALESCE(b.return_flight_id, ''), b.status, b.seat_class, b.flight_type,
			b.seat_number, COALESCE(b.return_seat_number, ''), b.total_price_cents, b.created_at, b.updated_at,
			p.id, p.first_name, p.last_name, p.email, p.phone_number, p.passport_number, p.date_of_birth
		FROM bookings b
		JOIN passengers p ON p.id = b.passenger_id
		WHERE b.id=$1`, id)

	var b domain.Booking
	p := &b.Passenger
	err := row.Scan(&b.ID, &b.FlightID, &b.ReturnFlightID, &b.Status, &b.CabinClass, &b.FlightType,
		&b.SeatNumber, &b.ReturnSeatNumber, &b.TotalPriceCents, &b.CreatedAt, &b.UpdatedAt,
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.PassportNumber, &p.DateOfBirth)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("booking with id %s does not exist: %w", id, domain.ErrBookingNotFound)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return &b, nil
}

// Update persists the mutable parts of a booking: its status and the
// embedded passenger's details. Identity, seats and price are never rewritten.
func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	p := b.Passenger
	if _, err := conn(ctx, r.db).Exec(ctx, `UPDATE passengers SET first_name=$2, last_name=$3, email=$4, phone_number=$5,
			passport_number=$6, date_of_birth=$7
		WHERE id=$1`,
		p.ID, p.FirstName, p.LastName, p.Email, p.PhoneNumber, p.PassportNumber, p.DateOfBirth); err != nil {
		return fmt.Errorf("update passenger: %w", err)
	}

	err := conn(ctx, r.db).QueryRow(ctx, `UPDATE bookings SET status=$2, updated_at=now() WHERE id=$1 RETURNING updated_at`,
		b.ID, b.Status).Scan(&b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("booking with id %s does not exist: %w", b.ID, domain.ErrBookingNotFound)
		}
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
