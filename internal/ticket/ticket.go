// Package ticket renders booking itineraries as PDF e-tickets.
package ticket

import (
	"bytes"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/phpdave11/gofpdf"
)

const timeLayout = "2006-01-02 15:04 MST"

// Itinerary is everything printed on a ticket. Return is nil for one-way
// bookings.
type Itinerary struct {
	Booking  *domain.Booking
	Outbound *domain.Flight
	Return   *domain.Flight
	IssuedAt time.Time
}

func Render(it Itinerary) ([]byte, error) {
	b := it.Booking
	if b == nil || it.Outbound == nil {
		return nil, fmt.Errorf("itinerary needs a booking and an outbound flight: %w", domain.ErrInvalidRequest)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+b.ID, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"Booking      : " + b.ID,
		"Status       : " + string(b.Status),
		"Passenger    : " + b.Passenger.FullName(),
		"Passport     : " + b.Passenger.PassportNumber,
		"Trip         : " + b.FlightType.DisplayName(),
		"Cabin        : " + b.CabinClass.DisplayName(),
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	leg(pdf, "Outbound", it.Outbound, b.SeatNumber)
	if it.Return != nil {
		leg(pdf, "Return", it.Return, b.ReturnSeatNumber)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Total: "+domain.FormatCents(b.TotalPriceCents))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Issued "+it.IssuedAt.UTC().Format(timeLayout)+". Valid for one passenger.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render ticket pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func leg(pdf *gofpdf.Fpdf, title string, f *domain.Flight, seat string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, fmt.Sprintf("%s  %s (%s)", title, f.FlightNumber, f.ID))
	pdf.Ln(7)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("%s %s  ->  %s %s", f.FromAirport, f.DepartureTime.UTC().Format(timeLayout), f.ToAirport, f.ArrivalTime.UTC().Format(timeLayout)))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Seat: "+seat)
	pdf.Ln(9)
}
