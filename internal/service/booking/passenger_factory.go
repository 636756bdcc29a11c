package booking

import (
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/idgen"
)

// PassengerFactory gives every submitted passenger a fresh identity. Repeat
// travellers are not matched against earlier records.
type PassengerFactory struct {
	ids *idgen.Generator
}

func NewPassengerFactory(ids *idgen.Generator) *PassengerFactory {
	return &PassengerFactory{ids: ids}
}

func (f *PassengerFactory) Create(d domain.PassengerDetails) domain.Passenger {
	p := domain.Passenger{ID: f.ids.NextID()}
	p.Apply(d)
	return p
}
