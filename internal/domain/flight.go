package domain

import (
	"fmt"
	"time"
)

type CabinClass string

const (
	CabinEconomy        CabinClass = "ECONOMY"
	CabinPremiumEconomy CabinClass = "PREMIUM_ECONOMY"
	CabinBusiness       CabinClass = "BUSINESS"
	CabinFirstClass     CabinClass = "FIRST_CLASS"
)

var CabinClasses = []CabinClass{CabinEconomy, CabinPremiumEconomy, CabinBusiness, CabinFirstClass}

func ParseCabinClass(s string) (CabinClass, error) {
	for _, c := range CabinClasses {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown seat class %q: %w", s, ErrInvalidRequest)
}

func (c CabinClass) DisplayName() string {
	switch c {
	case CabinEconomy:
		return "Economy"
	case CabinPremiumEconomy:
		return "Premium Economy"
	case CabinBusiness:
		return "Business"
	case CabinFirstClass:
		return "First Class"
	default:
		return string(c)
	}
}

// SeatInventory is the (price, available, total) triple of one cabin class.
// Prices are kept in minor currency units.
type SeatInventory struct {
	PriceCents int64 `json:"price_cents"`
	Available  int   `json:"available"`
	Total      int   `json:"total"`
}

type Flight struct {
	ID             string
	FlightNumber   string
	FromAirport    string
	ToAirport      string
	DepartureTime  time.Time
	ArrivalTime    time.Time
	Aircraft       string
	Economy        SeatInventory
	PremiumEconomy SeatInventory
	Business       SeatInventory
	FirstClass     SeatInventory
	Direct         bool
	Stops          int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Seats returns a pointer to the inventory of the given class so the ledger
// operations below touch exactly one class.
func (f *Flight) Seats(class CabinClass) (*SeatInventory, error) {
	switch class {
	case CabinEconomy:
		return &f.Economy, nil
	case CabinPremiumEconomy:
		return &f.PremiumEconomy, nil
	case CabinBusiness:
		return &f.Business, nil
	case CabinFirstClass:
		return &f.FirstClass, nil
	default:
		return nil, fmt.Errorf("unknown seat class %q: %w", class, ErrInvalidRequest)
	}
}

func (f *Flight) HasAvailableSeats(class CabinClass) bool {
	seats, err := f.Seats(class)
	if err != nil {
		return false
	}
	return seats.Available > 0
}

func (f *Flight) Price(class CabinClass) (int64, error) {
	seats, err := f.Seats(class)
	if err != nil {
		return 0, err
	}
	return seats.PriceCents, nil
}

// Decrement and Increment do not clamp; callers check HasAvailableSeats first.
func (f *Flight) Decrement(class CabinClass, n int) error {
	seats, err := f.Seats(class)
	if err != nil {
		return err
	}
	seats.Available -= n
	return nil
}

func (f *Flight) Increment(class CabinClass, n int) error {
	seats, err := f.Seats(class)
	if err != nil {
		return err
	}
	seats.Available += n
	return nil
}

func (f *Flight) TotalSeats() int {
	return f.Economy.Total + f.PremiumEconomy.Total + f.Business.Total + f.FirstClass.Total
}

func (f *Flight) TotalAvailableSeats() int {
	return f.Economy.Available + f.PremiumEconomy.Available + f.Business.Available + f.FirstClass.Available
}
