package api

import (
	"encoding/json"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
)

const dateLayout = "2006-01-02"

func amount(cents int64) json.Number {
	return json.Number(domain.FormatCents(cents))
}

type seatInfoResponse struct {
	Price          json.Number `json:"price"`
	AvailableSeats int         `json:"availableSeats"`
	TotalSeats     int         `json:"totalSeats"`
}

type seatClassesResponse struct {
	Economy        seatInfoResponse `json:"economy"`
	PremiumEconomy seatInfoResponse `json:"premiumEconomy"`
	Business       seatInfoResponse `json:"business"`
	FirstClass     seatInfoResponse `json:"firstClass"`
}

type flightResponse struct {
	ID                  string              `json:"id"`
	FlightNumber        string              `json:"flightNumber"`
	Origin              string              `json:"origin"`
	Destination         string              `json:"destination"`
	DepartureTime       time.Time           `json:"departureTime"`
	ArrivalTime         time.Time           `json:"arrivalTime"`
	Aircraft            string              `json:"aircraft"`
	Seats               seatClassesResponse `json:"seats"`
	Stops               int                 `json:"stops"`
	IsDirect            bool                `json:"isDirect"`
	TotalSeats          int                 `json:"totalSeats"`
	TotalAvailableSeats int                 `json:"totalAvailableSeats"`
}

func newSeatInfo(s domain.SeatInventory) seatInfoResponse {
	return seatInfoResponse{Price: amount(s.PriceCents), AvailableSeats: s.Available, TotalSeats: s.Total}
}

func newFlightResponse(f *domain.Flight) flightResponse {
	return flightResponse{
		ID:            f.ID,
		FlightNumber:  f.FlightNumber,
		Origin:        f.FromAirport,
		Destination:   f.ToAirport,
		DepartureTime: f.DepartureTime,
		ArrivalTime:   f.ArrivalTime,
		Aircraft:      f.Aircraft,
		Seats: seatClassesResponse{
			Economy:        newSeatInfo(f.Economy),
			PremiumEconomy: newSeatInfo(f.PremiumEconomy),
			Business:       newSeatInfo(f.Business),
			FirstClass:     newSeatInfo(f.FirstClass),
		},
		Stops:               f.Stops,
		IsDirect:            f.Direct,
		TotalSeats:          f.TotalSeats(),
		TotalAvailableSeats: f.TotalAvailableSeats(),
	}
}

func newFlightList(list []domain.Flight) []flightResponse {
	out := make([]flightResponse, 0, len(list))
	for i := range list {
		out = append(out, newFlightResponse(&list[i]))
	}
	return out
}

type searchResponse struct {
	FlightType      domain.FlightType `json:"flightType"`
	OutboundFlights []flightResponse  `json:"outboundFlights"`
	ReturnFlights   []flightResponse  `json:"returnFlights"`
	TotalResults    int               `json:"totalResults"`
	CurrentPage     int               `json:"currentPage"`
	PageSize        int               `json:"pageSize"`
	TotalPages      int               `json:"totalPages"`
	IsFirst         bool              `json:"isFirst"`
	IsLast          bool              `json:"isLast"`
}

// newSearchResponse leaves returnFlights null for one-way searches.
func newSearchResponse(r *flights.SearchResult) searchResponse {
	resp := searchResponse{
		FlightType:      r.FlightType,
		OutboundFlights: newFlightList(r.Outbound),
		TotalResults:    r.TotalResults,
		CurrentPage:     r.CurrentPage,
		PageSize:        r.PageSize,
		TotalPages:      r.TotalPages,
		IsFirst:         r.IsFirst,
		IsLast:          r.IsLast,
	}
	if r.FlightType == domain.FlightTypeReturn {
		resp.ReturnFlights = newFlightList(r.Return)
	}
	return resp
}

type passengerRequest struct {
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	PhoneNumber    string `json:"phoneNumber" binding:"required"`
	PassportNumber string `json:"passportNumber" binding:"required"`
	DateOfBirth    string `json:"dateOfBirth" binding:"required"`
}

type createBookingRequest struct {
	FlightType     string            `json:"flightType" binding:"required"`
	FlightID       string            `json:"flightId" binding:"required"`
	ReturnFlightID string            `json:"returnFlightId"`
	SeatClass      string            `json:"seatClass" binding:"required"`
	Passenger      *passengerRequest `json:"passenger" binding:"required"`
}

type passengerResponse struct {
	ID             string `json:"id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phoneNumber"`
	PassportNumber string `json:"passportNumber"`
	DateOfBirth    string `json:"dateOfBirth"`
}

type bookingResponse struct {
	ID               string               `json:"id"`
	FlightID         string               `json:"flightId"`
	ReturnFlightID   *string              `json:"returnFlightId"`
	Passenger        passengerResponse    `json:"passenger"`
	BookingTime      time.Time            `json:"bookingTime"`
	Status           domain.BookingStatus `json:"status"`
	SeatClass        domain.CabinClass    `json:"seatClass"`
	FlightType       domain.FlightType    `json:"flightType"`
	SeatNumber       string               `json:"seatNumber"`
	ReturnSeatNumber *string              `json:"returnSeatNumber"`
	TotalPrice       json.Number          `json:"totalPrice"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:             b.ID,
		FlightID:       b.FlightID,
		ReturnFlightID: optional(b.ReturnFlightID),
		Passenger: passengerResponse{
			ID:             b.Passenger.ID,
			FirstName:      b.Passenger.FirstName,
			LastName:       b.Passenger.LastName,
			Email:          b.Passenger.Email,
			PhoneNumber:    b.Passenger.PhoneNumber,
			PassportNumber: b.Passenger.PassportNumber,
			DateOfBirth:    b.Passenger.DateOfBirth.Format(dateLayout),
		},
		BookingTime:      b.CreatedAt,
		Status:           b.Status,
		SeatClass:        b.CabinClass,
		FlightType:       b.FlightType,
		SeatNumber:       b.SeatNumber,
		ReturnSeatNumber: optional(b.ReturnSeatNumber),
		TotalPrice:       amount(b.TotalPriceCents),
	}
}

type cancellationResponse struct {
	Message      string      `json:"message"`
	BookingID    string      `json:"bookingId"`
	FlightType   string      `json:"flightType"`
	SeatClass    string      `json:"seatClass"`
	RefundAmount json.Number `json:"refundAmount"`
}

func newCancellationResponse(b *domain.Booking) cancellationResponse {
	return cancellationResponse{
		Message:      "Booking " + b.ID + " has been successfully cancelled",
		BookingID:    b.ID,
		FlightType:   b.FlightType.DisplayName(),
		SeatClass:    b.CabinClass.DisplayName(),
		RefundAmount: amount(b.TotalPriceCents),
	}
}
