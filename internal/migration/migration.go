// Package migration creates the PostgreSQL schema and loads the demo
// timetable used by local runs.
package migration

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/idgen"
	"github.com/Domenick1991/flightbooking/internal/repository"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Up applies the schema. Every statement is idempotent, so it runs on each
// start.
func Up(ctx context.Context, db execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
}

func inventory(priceCents int64, total int) domain.SeatInventory {
	return domain.SeatInventory{PriceCents: priceCents, Available: total, Total: total}
}

// DemoFlights returns a small timetable: four SYD to MEL departures on day
// and two MEL to SYD returns a week later.
func DemoFlights(day time.Time) []domain.Flight {
	back := day.AddDate(0, 0, 7)

	flight := func(id, number, from, to string, dep time.Time, minutes int, economy int64) domain.Flight {
		return domain.Flight{
			ID:             id,
			FlightNumber:   number,
			FromAirport:    from,
			ToAirport:      to,
			DepartureTime:  dep,
			ArrivalTime:    dep.Add(time.Duration(minutes) * time.Minute),
			Aircraft:       "Airbus A321",
			Economy:        inventory(economy, 120),
			PremiumEconomy: inventory(economy*2, 24),
			Business:       inventory(economy*4, 12),
			FirstClass:     inventory(economy*8, 4),
			Direct:         true,
		}
	}

	flights := []domain.Flight{
		flight("FL001", "AC101", "SYD", "MEL", at(day, 7, 0), 95, 15000),
		flight("FL002", "AC103", "SYD", "MEL", at(day, 10, 30), 95, 18000),
		flight("FL003", "AC105", "SYD", "MEL", at(day, 14, 15), 95, 21000),
		flight("FL004", "AC107", "SYD", "MEL", at(day, 19, 45), 170, 12500),
		flight("FL005", "AC102", "MEL", "SYD", at(back, 8, 0), 90, 16000),
		flight("FL006", "AC104", "MEL", "SYD", at(back, 18, 20), 90, 19500),
	}
	flights[3].Direct = false
	flights[3].Stops = 1
	flights[3].Aircraft = "Boeing 737-800"

	return flights
}

type flightStore interface {
	Save(ctx context.Context, flight *domain.Flight) error
}

type tokenStore interface {
	Create(ctx context.Context, token *domain.APIToken) error
}

// Seed stores flights and, when apiKey is set, an active API token, in one
// transaction.
func Seed(ctx context.Context, logger *zap.Logger, tx repository.Transactor, flights flightStore, tokens tokenStore, demo []domain.Flight, apiKey string) error {
	err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
		for i := range demo {
			if err := flights.Save(ctx, &demo[i]); err != nil {
				return fmt.Errorf("save flight %s: %w", demo[i].ID, err)
			}
		}

		if apiKey == "" {
			return nil
		}
		token := &domain.APIToken{
			ID:          idgen.New(idgen.APITokenPrefix).NextID(),
			Value:       apiKey,
			Description: "demo key",
			Active:      true,
			CreatedAt:   time.Now().UTC(),
		}
		if err := tokens.Create(ctx, token); err != nil {
			return fmt.Errorf("save api token: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Error("demo data seeding rolled back", zap.Error(err))
		return err
	}

	logger.Info("demo data seeded", zap.Int("flights", len(demo)), zap.Bool("api_key", apiKey != ""))
	return nil
}
