// Package memory keeps flights, bookings and API tokens in process memory.
// It satisfies the same repository contracts as the PostgreSQL store and is
// used for local runs and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"go.uber.org/zap"
)

type transaction struct {
	id              int64
	rollbackActions []func()
}

func (trx *transaction) onRollback(action func()) {
	trx.rollbackActions = append(trx.rollbackActions, action)
}

// DB serialises transactions: at most one unit of work mutates the maps at a
// time, and a failed unit replays its rollback actions in reverse order.
type DB struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	logger    *zap.Logger
	now       func() time.Time
	nextTrxID int64

	flights  map[string]domain.Flight
	bookings map[string]domain.Booking
	tokens   map[string]domain.APIToken
}

type Option func(*DB)

func WithLogger(l *zap.Logger) Option {
	return func(db *DB) { db.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(db *DB) { db.now = now }
}

func New(opts ...Option) *DB {
	db := &DB{
		logger:   zap.NewNop(),
		now:      func() time.Time { return time.Now().UTC() },
		flights:  make(map[string]domain.Flight),
		bookings: make(map[string]domain.Booking),
		tokens:   make(map[string]domain.APIToken),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := transactionFromContext(ctx); ok {
		return fn(ctx)
	}

	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	trx := &transaction{id: db.nextTrxID}
	db.nextTrxID++
	db.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			db.rollback(trx)
			db.logger.Warn("transaction rolled back after panic", zap.Int64("trx_id", trx.id))
			panic(p)
		}
		if err != nil {
			db.rollback(trx)
			db.logger.Debug("transaction rolled back", zap.Int64("trx_id", trx.id), zap.Error(err))
		}
	}()

	return fn(withTransaction(ctx, trx))
}

func (db *DB) rollback(trx *transaction) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i := len(trx.rollbackActions) - 1; i >= 0; i-- {
		trx.rollbackActions[i]()
	}
	trx.rollbackActions = nil
}

// write runs fn under the data lock, inside the caller's transaction or a
// single-statement one of its own.
func (db *DB) write(ctx context.Context, fn func(trx *transaction) error) error {
	if trx, ok := transactionFromContext(ctx); ok {
		db.mu.Lock()
		defer db.mu.Unlock()
		return fn(trx)
	}

	return db.WithinTransaction(ctx, func(ctx context.Context) error {
		return db.write(ctx, fn)
	})
}

func (db *DB) putFlight(trx *transaction, f domain.Flight) {
	prev, existed := db.flights[f.ID]
	db.flights[f.ID] = f
	trx.onRollback(func() {
		if existed {
			db.flights[f.ID] = prev
			return
		}
		delete(db.flights, f.ID)
	})
}

func (db *DB) putBooking(trx *transaction, b domain.Booking) {
	prev, existed := db.bookings[b.ID]
	db.bookings[b.ID] = b
	trx.onRollback(func() {
		if existed {
			db.bookings[b.ID] = prev
			return
		}
		delete(db.bookings, b.ID)
	})
}

func flightNotFound(id string) error {
	return fmt.Errorf("flight with id %s does not exist: %w", id, domain.ErrFlightNotFound)
}

func (db *DB) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	f, ok := db.flights[id]
	if !ok {
		return nil, flightNotFound(id)
	}
	return &f, nil
}

func (db *DB) Search(_ context.Context, q repository.FlightQuery) (*repository.FlightPage, error) {
	compare, err := flightComparator(q.SortBy, q.Descending)
	if err != nil {
		return nil, err
	}

	db.mu.RLock()
	matched := make([]domain.Flight, 0)
	for _, f := range db.flights {
		if matches(f, q) {
			matched = append(matched, f)
		}
	}
	db.mu.RUnlock()

	slices.SortStableFunc(matched, compare)

	page := &repository.FlightPage{Total: len(matched), Page: q.Page, Size: q.Size}
	start := min(q.Page*q.Size, len(matched))
	end := min(start+q.Size, len(matched))
	page.Flights = matched[start:end]
	return page, nil
}

func matches(f domain.Flight, q repository.FlightQuery) bool {
	if !strings.EqualFold(f.FromAirport, q.From) || !strings.EqualFold(f.ToAirport, q.To) {
		return false
	}
	if f.DepartureTime.Before(q.DepartureFrom) || !f.DepartureTime.Before(q.DepartureTo) {
		return false
	}
	if q.MinPriceCents != nil && f.Economy.PriceCents < *q.MinPriceCents {
		return false
	}
	if q.MaxPriceCents != nil && f.Economy.PriceCents > *q.MaxPriceCents {
		return false
	}
	if q.DirectOnly && !f.Direct {
		return false
	}
	return true
}

func flightComparator(field repository.SortField, desc bool) (func(a, b domain.Flight) int, error) {
	var byField func(a, b domain.Flight) int
	switch field {
	case repository.SortByPrice:
		byField = func(a, b domain.Flight) int { return cmp.Compare(a.Economy.PriceCents, b.Economy.PriceCents) }
	case repository.SortByDepartureTime, "":
		byField = func(a, b domain.Flight) int { return a.DepartureTime.Compare(b.DepartureTime) }
	case repository.SortByOrigin:
		byField = func(a, b domain.Flight) int { return strings.Compare(a.FromAirport, b.FromAirport) }
	case repository.SortByDestination:
		byField = func(a, b domain.Flight) int { return strings.Compare(a.ToAirport, b.ToAirport) }
	default:
		return nil, fmt.Errorf("invalid sort field %q: %w", field, domain.ErrInvalidRequest)
	}

	return func(a, b domain.Flight) int {
		c := byField(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	}, nil
}

func (db *DB) Save(ctx context.Context, f *domain.Flight) error {
	return db.write(ctx, func(trx *transaction) error {
		now := db.now()
		if prev, ok := db.flights[f.ID]; ok {
			f.CreatedAt = prev.CreatedAt
		} else {
			f.CreatedAt = now
		}
		f.UpdatedAt = now
		db.putFlight(trx, *f)
		return nil
	})
}

func (db *DB) ReserveSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error {
	return db.write(ctx, func(trx *transaction) error {
		f, ok := db.flights[flightID]
		if !ok {
			return flightNotFound(flightID)
		}
		seats, err := f.Seats(class)
		if err != nil {
			return err
		}
		if seats.Available < n {
			return fmt.Errorf("no available %s seats on flight %s: %w", class.DisplayName(), flightID, domain.ErrNoSeatsAvailable)
		}
		if err := f.Decrement(class, n); err != nil {
			return err
		}
		f.UpdatedAt = db.now()
		db.putFlight(trx, f)
		return nil
	})
}

func (db *DB) ReleaseSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error {
	return db.write(ctx, func(trx *transaction) error {
		f, ok := db.flights[flightID]
		if !ok {
			return flightNotFound(flightID)
		}
		if err := f.Increment(class, n); err != nil {
			return err
		}
		f.UpdatedAt = db.now()
		db.putFlight(trx, f)
		return nil
	})
}

var (
	_ repository.FlightRepository = (*DB)(nil)
	_ repository.Transactor       = (*DB)(nil)
)
