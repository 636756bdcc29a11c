package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
)

const titleParameterType = "Invalid parameter type"

type searchQuery struct {
	FlightType        string `form:"flightType" binding:"required"`
	DepartureAirport  string `form:"departureAirport" binding:"required"`
	ArrivalAirport    string `form:"arrivalAirport" binding:"required"`
	DepartureDate     string `form:"departureDate" binding:"required"`
	ReturnDate        string `form:"returnDate"`
	MinPrice          string `form:"minPrice"`
	MaxPrice          string `form:"maxPrice"`
	DirectFlightsOnly bool   `form:"directFlightsOnly"`
	Page              int    `form:"page,default=0" binding:"min=0"`
	Size              int    `form:"size,default=10" binding:"min=1,max=100"`
	SortBy            string `form:"sortBy,default=departureTime"`
	SortDirection     string `form:"sortDirection,default=asc"`
}

func parameterError(name, value string) error {
	return &requestError{
		title:   titleParameterType,
		message: fmt.Sprintf("Invalid value '%s' for parameter '%s'", value, name),
	}
}

func parseDate(name, value string) (time.Time, error) {
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, parameterError(name, value)
	}
	return d, nil
}

func parsePrice(name, value string) (*int64, error) {
	if value == "" {
		return nil, nil
	}
	cents, err := domain.ParseCents(value)
	if err != nil {
		return nil, parameterError(name, value)
	}
	return &cents, nil
}

// toInput checks the query the way a client expects to be told about it and
// builds the search input. today is the current UTC date.
func (q searchQuery) toInput(today time.Time) (flights.SearchInput, error) {
	var in flights.SearchInput

	flightType, err := domain.ParseFlightType(q.FlightType)
	if err != nil {
		return in, parameterError("flightType", q.FlightType)
	}
	departure, err := parseDate("departureDate", q.DepartureDate)
	if err != nil {
		return in, err
	}
	var returnDate *time.Time
	if q.ReturnDate != "" {
		d, err := parseDate("returnDate", q.ReturnDate)
		if err != nil {
			return in, err
		}
		returnDate = &d
	}
	minPrice, err := parsePrice("minPrice", q.MinPrice)
	if err != nil {
		return in, err
	}
	maxPrice, err := parsePrice("maxPrice", q.MaxPrice)
	if err != nil {
		return in, err
	}

	var violations []string
	if minPrice != nil && *minPrice <= 0 {
		violations = append(violations, "Minimum price must be greater than 0")
	}
	if maxPrice != nil && *maxPrice <= 0 {
		violations = append(violations, "Maximum price must be greater than 0")
	}
	if len(violations) > 0 {
		return in, validationFailed(strings.Join(violations, ", "))
	}

	if flightType == domain.FlightTypeReturn {
		if returnDate == nil {
			return in, invalidRequest("Return date is required for return flights")
		}
		if !returnDate.After(departure) {
			return in, invalidRequest("Return date must be after departure date")
		}
	}
	if departure.Before(today) {
		return in, invalidRequest("Departure date cannot be in the past")
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return in, invalidRequest("Minimum price cannot be greater than maximum price")
	}
	if len(q.DepartureAirport) != 3 {
		return in, invalidRequest("Departure airport code must be exactly 3 characters")
	}
	if len(q.ArrivalAirport) != 3 {
		return in, invalidRequest("Arrival airport code must be exactly 3 characters")
	}
	if strings.EqualFold(q.DepartureAirport, q.ArrivalAirport) {
		return in, invalidRequest("Departure and arrival airports cannot be the same")
	}

	return flights.SearchInput{
		FlightType:    flightType,
		From:          q.DepartureAirport,
		To:            q.ArrivalAirport,
		DepartureDate: departure,
		ReturnDate:    returnDate,
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
		DirectOnly:    q.DirectFlightsOnly,
		Page:          q.Page,
		Size:          q.Size,
		SortBy:        q.SortBy,
		SortDirection: q.SortDirection,
	}, nil
}

func (p *passengerRequest) toDetails(today time.Time) (domain.PassengerDetails, error) {
	dob, err := parseDate("dateOfBirth", p.DateOfBirth)
	if err != nil {
		return domain.PassengerDetails{}, err
	}
	if !dob.Before(today) {
		return domain.PassengerDetails{}, validationFailed("Date of birth must be in the past")
	}
	return domain.PassengerDetails{
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		Email:          strings.TrimSpace(p.Email),
		PhoneNumber:    strings.TrimSpace(p.PhoneNumber),
		PassportNumber: strings.TrimSpace(p.PassportNumber),
		DateOfBirth:    dob,
	}, nil
}

func (r createBookingRequest) toInput(today time.Time) (booking.CreateBookingInput, error) {
	var in booking.CreateBookingInput

	flightType, err := domain.ParseFlightType(r.FlightType)
	if err != nil {
		return in, parameterError("flightType", r.FlightType)
	}
	class, err := domain.ParseCabinClass(r.SeatClass)
	if err != nil {
		return in, parameterError("seatClass", r.SeatClass)
	}
	details, err := r.Passenger.toDetails(today)
	if err != nil {
		return in, err
	}

	returnID := strings.TrimSpace(r.ReturnFlightID)
	switch flightType {
	case domain.FlightTypeReturn:
		if returnID == "" {
			return in, invalidRequest("Return flight ID is required for return flights")
		}
		if r.FlightID == returnID {
			return in, invalidRequest("Outbound and return flights cannot be the same")
		}
	case domain.FlightTypeOneWay:
		if returnID != "" {
			return in, invalidRequest("Return flight ID should not be provided for one-way flights")
		}
	}

	return booking.CreateBookingInput{
		FlightType:     flightType,
		FlightID:       r.FlightID,
		ReturnFlightID: returnID,
		CabinClass:     class,
		Passenger:      details,
	}, nil
}

func utcDate(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
