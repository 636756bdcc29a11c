package repository

import (
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type SortField string

const (
	SortByPrice         SortField = "price"
	SortByDepartureTime SortField = "departureTime"
	SortByOrigin        SortField = "origin"
	SortByDestination   SortField = "destination"
)

// FlightQuery selects flights on one route whose departure falls in
// [DepartureFrom, DepartureTo). Price bounds apply to the economy fare.
type FlightQuery struct {
	From          string
	To            string
	DepartureFrom time.Time
	DepartureTo   time.Time
	MinPriceCents *int64
	MaxPriceCents *int64
	DirectOnly    bool
	Page          int
	Size          int
	SortBy        SortField
	Descending    bool
}

type FlightPage struct {
	Flights []domain.Flight
	Total   int
	Page    int
	Size    int
}

func (p *FlightPage) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (p *FlightPage) IsFirst() bool {
	return p.Page == 0
}

func (p *FlightPage) IsLast() bool {
	return p.Page+1 >= p.TotalPages()
}
