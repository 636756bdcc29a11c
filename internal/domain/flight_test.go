package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFlight() *Flight {
	return &Flight{
		ID:             "FL001",
		FromAirport:    "SYD",
		ToAirport:      "MEL",
		Economy:        SeatInventory{PriceCents: 19900, Available: 120, Total: 150},
		PremiumEconomy: SeatInventory{PriceCents: 39900, Available: 0, Total: 24},
		Business:       SeatInventory{PriceCents: 89900, Available: 12, Total: 12},
		FirstClass:     SeatInventory{PriceCents: 159900, Available: 4, Total: 4},
		Direct:         true,
	}
}

func TestFlight_HasAvailableSeats(t *testing.T) {
	f := newTestFlight()

	assert.True(t, f.HasAvailableSeats(CabinEconomy))
	assert.False(t, f.HasAvailableSeats(CabinPremiumEconomy))
	assert.True(t, f.HasAvailableSeats(CabinFirstClass))
	assert.False(t, f.HasAvailableSeats(CabinClass("CARGO")))
}

func TestFlight_Price(t *testing.T) {
	f := newTestFlight()

	price, err := f.Price(CabinBusiness)
	require.NoError(t, err)
	assert.Equal(t, int64(89900), price)

	_, err = f.Price(CabinClass("CARGO"))
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestFlight_DecrementTouchesOnlyOneClass(t *testing.T) {
	f := newTestFlight()

	require.NoError(t, f.Decrement(CabinEconomy, 1))

	assert.Equal(t, 119, f.Economy.Available)
	assert.Equal(t, 0, f.PremiumEconomy.Available)
	assert.Equal(t, 12, f.Business.Available)
	assert.Equal(t, 4, f.FirstClass.Available)
}

func TestFlight_IncrementRestoresDecrement(t *testing.T) {
	f := newTestFlight()

	require.NoError(t, f.Decrement(CabinFirstClass, 1))
	require.NoError(t, f.Increment(CabinFirstClass, 1))

	assert.Equal(t, 4, f.FirstClass.Available)
}

func TestFlight_DerivedTotals(t *testing.T) {
	f := newTestFlight()

	assert.Equal(t, 190, f.TotalSeats())
	assert.Equal(t, 136, f.TotalAvailableSeats())
}

func TestParseCabinClass(t *testing.T) {
	c, err := ParseCabinClass("PREMIUM_ECONOMY")
	require.NoError(t, err)
	assert.Equal(t, CabinPremiumEconomy, c)
	assert.Equal(t, "Premium Economy", c.DisplayName())

	_, err = ParseCabinClass("premium")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestBooking_Legs(t *testing.T) {
	oneWay := Booking{FlightID: "FL001"}
	assert.Equal(t, []string{"FL001"}, oneWay.Legs())

	roundTrip := Booking{FlightID: "FL001", ReturnFlightID: "FL002"}
	assert.Equal(t, []string{"FL001", "FL002"}, roundTrip.Legs())
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "199.00", FormatCents(19900))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-12.34", FormatCents(-1234))
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "180", want: 18000},
		{in: "180.5", want: 18050},
		{in: "180.50", want: 18050},
		{in: ".99", want: 99},
		{in: " 12.34 ", want: 1234},
		{in: "-1", want: -100},
		{in: "", wantErr: true},
		{in: "1.234", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.2.3", wantErr: true},
		{in: "92233720368547757.99", want: 9223372036854775799},
		{in: "92233720368547758", wantErr: true},
		{in: "200000000000000000", wantErr: true},
		{in: "99999999999999999999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCents(tt.in)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidRequest))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
