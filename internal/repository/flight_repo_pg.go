package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

type FlightRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Flight, error)
	Search(ctx context.Context, q FlightQuery) (*FlightPage, error)
	Save(ctx context.Context, flight *domain.Flight) error
	ReserveSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error
	ReleaseSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error
}

const flightColumns = `id, flight_number, from_airport, to_airport, departure_time, arrival_time, aircraft,
	economy_price_cents, economy_available, economy_total,
	premium_economy_price_cents, premium_economy_available, premium_economy_total,
	business_price_cents, business_available, business_total,
	first_class_price_cents, first_class_available, first_class_total,
	is_direct, stops, created_at, updated_at`

type PGFlightRepository struct {
	db DB
}

func NewFlightRepository(db DB) FlightRepository {
	return &PGFlightRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(row rowScanner) (*domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(
		&f.ID, &f.FlightNumber, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime, &f.Aircraft,
		&f.Economy.PriceCents, &f.Economy.Available, &f.Economy.Total,
		&f.PremiumEconomy.PriceCents, &f.PremiumEconomy.Available, &f.PremiumEconomy.Total,
		&f.Business.PriceCents, &f.Business.Available, &f.Business.Total,
		&f.FirstClass.PriceCents, &f.FirstClass.Available, &f.FirstClass.Total,
		&f.Direct, &f.Stops, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("flight with id %s does not exist: %w", id, domain.ErrFlightNotFound)
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return f, nil
}

func (r *PGFlightRepository) Search(ctx context.Context, q FlightQuery) (*FlightPage, error) {
	orderBy, err := orderClause(q.SortBy, q.Descending)
	if err != nil {
		return nil, err
	}

	where, args := flightFilter(q)

	var total int
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT count(*) FROM flights WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count flights: %w", err)
	}

	args = append(args, q.Size, q.Page*q.Size)
	sql := fmt.Sprintf(`SELECT %s FROM flights WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		flightColumns, where, orderBy, len(args)-1, len(args))

	rows, err := conn(ctx, r.db).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0, q.Size)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}

	return &FlightPage{Flights: flights, Total: total, Page: q.Page, Size: q.Size}, nil
}

func flightFilter(q FlightQuery) (string, []any) {
	clauses := []string{
		"upper(from_airport) = upper($1)",
		"upper(to_airport) = upper($2)",
		"departure_time >= $3",
		"departure_time < $4",
	}
	args := []any{q.From, q.To, q.DepartureFrom, q.DepartureTo}

	if q.MinPriceCents != nil {
		args = append(args, *q.MinPriceCents)
		clauses = append(clauses, fmt.Sprintf("economy_price_cents >= $%d", len(args)))
	}
	if q.MaxPriceCents != nil {
		args = append(args, *q.MaxPriceCents)
		clauses = append(clauses, fmt.Sprintf("economy_price_cents <= $%d", len(args)))
	}
	if q.DirectOnly {
		clauses = append(clauses, "is_direct = true")
	}

	return strings.Join(clauses, " AND "), args
}

func orderClause(field SortField, desc bool) (string, error) {
	var column string
	switch field {
	case SortByPrice:
		column = "economy_price_cents"
	case SortByDepartureTime, "":
		column = "departure_time"
	case SortByOrigin:
		column = "from_airport"
	case SortByDestination:
		column = "to_airport"
	default:
		return "", fmt.Errorf("invalid sort field %q: %w", field, domain.ErrInvalidRequest)
	}

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf("%s %s, id ASC", column, dir), nil
}

func (r *PGFlightRepository) Save(ctx context.Context, f *domain.Flight) error {
	row := conn(ctx, r.db).QueryRow(ctx, `INSERT INTO flights (`+flightColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			flight_number = EXCLUDED.flight_number,
			from_airport = EXCLUDED.from_airport,
			to_airport = EXCLUDED.to_airport,
			departure_time = EXCLUDED.departure_time,
			arrival_time = EXCLUDED.arrival_time,
			aircraft = EXCLUDED.aircraft,
			economy_price_cents = EXCLUDED.economy_price_cents,
			economy_available = EXCLUDED.economy_available,
			economy_total = EXCLUDED.economy_total,
			premium_economy_price_cents = EXCLUDED.premium_economy_price_cents,
			premium_economy_available = EXCLUDED.premium_economy_available,
			premium_economy_total = EXCLUDED.premium_economy_total,
			business_price_cents = EXCLUDED.business_price_cents,
			business_available = EXCLUDED.business_available,
			business_total = EXCLUDED.business_total,
			first_class_price_cents = EXCLUDED.first_class_price_cents,
			first_class_available = EXCLUDED.first_class_available,
			first_class_total = EXCLUDED.first_class_total,
			is_direct = EXCLUDED.is_direct,
			stops = EXCLUDED.stops,
			updated_at = now()
		RETURNING created_at, updated_at`,
		f.ID, f.FlightNumber, f.FromAirport, f.ToAirport, f.DepartureTime, f.ArrivalTime, f.Aircraft,
		f.Economy.PriceCents, f.Economy.Available, f.Economy.Total,
		f.PremiumEconomy.PriceCents, f.PremiumEconomy.Available, f.PremiumEconomy.Total,
		f.Business.PriceCents, f.Business.Available, f.Business.Total,
		f.FirstClass.PriceCents, f.FirstClass.Available, f.FirstClass.Total,
		f.Direct, f.Stops,
	)
	if err := row.Scan(&f.CreatedAt, &f.UpdatedAt); err != nil {
		return fmt.Errorf("save flight: %w", err)
	}
	return nil
}

// ReserveSeats decrements the class counter only while enough seats remain,
// so two concurrent bookings cannot drive it negative.
func (r *PGFlightRepository) ReserveSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error {
	col, err := inventoryColumn(class)
	if err != nil {
		return err
	}

	res, err := conn(ctx, r.db).Exec(ctx, fmt.Sprintf(
		`UPDATE flights SET %[1]s = %[1]s - $2, updated_at = now() WHERE id=$1 AND %[1]s >= $2`, col),
		flightID, n)
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if res.RowsAffected() == 1 {
		return nil
	}

	if err := r.ensureExists(ctx, flightID); err != nil {
		return err
	}
	return fmt.Errorf("no available %s seats on flight %s: %w", class.DisplayName(), flightID, domain.ErrNoSeatsAvailable)
}

func (r *PGFlightRepository) ReleaseSeats(ctx context.Context, flightID string, class domain.CabinClass, n int) error {
	col, err := inventoryColumn(class)
	if err != nil {
		return err
	}

	res, err := conn(ctx, r.db).Exec(ctx, fmt.Sprintf(
		`UPDATE flights SET %[1]s = %[1]s + $2, updated_at = now() WHERE id=$1`, col),
		flightID, n)
	if err != nil {
		return fmt.Errorf("release seats: %w", err)
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("flight with id %s does not exist: %w", flightID, domain.ErrFlightNotFound)
	}
	return nil
}

func (r *PGFlightRepository) ensureExists(ctx context.Context, flightID string) error {
	var exists bool
	if err := conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM flights WHERE id=$1)`, flightID).Scan(&exists); err != nil {
		return fmt.Errorf("check flight: %w", err)
	}
	if !exists {
		return fmt.Errorf("flight with id %s does not exist: %w", flightID, domain.ErrFlightNotFound)
	}
	return nil
}

func inventoryColumn(class domain.CabinClass) (string, error) {
	switch class {
	case domain.CabinEconomy:
		return "economy_available", nil
	case domain.CabinPremiumEconomy:
		return "premium_economy_available", nil
	case domain.CabinBusiness:
		return "business_available", nil
	case domain.CabinFirstClass:
		return "first_class_available", nil
	default:
		return "", fmt.Errorf("unknown seat class %q: %w", class, domain.ErrInvalidRequest)
	}
}

var _ FlightRepository = (*PGFlightRepository)(nil)
