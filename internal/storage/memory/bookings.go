package memory

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
)

// Bookings exposes the booking half of DB. Go method sets cannot carry two
// GetByID methods, so flights and bookings are served by separate views.
type Bookings struct {
	db *DB
}

func (db *DB) Bookings() *Bookings {
	return &Bookings{db: db}
}

func bookingNotFound(id string) error {
	return fmt.Errorf("booking with id %s does not exist: %w", id, domain.ErrBookingNotFound)
}

func (r *Bookings) GetByID(_ context.Context, id string) (*domain.Booking, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	b, ok := r.db.bookings[id]
	if !ok {
		return nil, bookingNotFound(id)
	}
	return &b, nil
}

func (r *Bookings) Create(ctx context.Context, b *domain.Booking) error {
	return r.db.write(ctx, func(trx *transaction) error {
		if _, exists := r.db.bookings[b.ID]; exists {
			return fmt.Errorf("booking with id %s already exists: %w", b.ID, domain.ErrInvalidOperation)
		}
		b.UpdatedAt = r.db.now()
		r.db.putBooking(trx, *b)
		return nil
	})
}

func (r *Bookings) Update(ctx context.Context, b *domain.Booking) error {
	return r.db.write(ctx, func(trx *transaction) error {
		prev, exists := r.db.bookings[b.ID]
		if !exists {
			return bookingNotFound(b.ID)
		}
		b.CreatedAt = prev.CreatedAt
		b.UpdatedAt = r.db.now()
		r.db.putBooking(trx, *b)
		return nil
	})
}

var _ repository.BookingRepository = (*Bookings)(nil)
