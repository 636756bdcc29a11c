package booking

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/Domenick1991/flightbooking/internal/domain"
)

type seatRange struct {
	firstRow, lastRow       int
	firstLetter, lastLetter byte
}

var seatRanges = map[domain.CabinClass]seatRange{
	domain.CabinEconomy:        {firstRow: 10, lastRow: 35, firstLetter: 'A', lastLetter: 'F'},
	domain.CabinPremiumEconomy: {firstRow: 6, lastRow: 9, firstLetter: 'A', lastLetter: 'F'},
	domain.CabinBusiness:       {firstRow: 3, lastRow: 5, firstLetter: 'A', lastLetter: 'D'},
	domain.CabinFirstClass:     {firstRow: 1, lastRow: 2, firstLetter: 'A', lastLetter: 'B'},
}

// SeatFor maps a class and a source of uniform draws in [0, n) to a seat
// designator such as "12A". It does not check for seats already issued.
func SeatFor(class domain.CabinClass, draw func(n int) int) (string, error) {
	r, ok := seatRanges[class]
	if !ok {
		return "", fmt.Errorf("unknown seat class %q: %w", class, domain.ErrInvalidRequest)
	}

	row := r.firstRow + draw(r.lastRow-r.firstRow+1)
	letter := r.firstLetter + byte(draw(int(r.lastLetter-r.firstLetter)+1))
	return strconv.Itoa(row) + string(letter), nil
}

type SeatAllocator struct {
	draw func(n int) int
}

// NewSeatAllocator uses draw for randomness, or the global generator when
// draw is nil.
func NewSeatAllocator(draw func(n int) int) *SeatAllocator {
	if draw == nil {
		draw = rand.IntN
	}
	return &SeatAllocator{draw: draw}
}

func (a *SeatAllocator) Allocate(class domain.CabinClass) (string, error) {
	return SeatFor(class, a.draw)
}
