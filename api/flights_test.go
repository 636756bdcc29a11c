package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/Domenick1991/flightbooking/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFlightUseCase is a mock implementation of flights.FlightUseCase
type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) Search(ctx context.Context, in flights.SearchInput) (*flights.SearchResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*flights.SearchResult), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) HasAvailableSeats(ctx context.Context, id string, class domain.CabinClass) (bool, error) {
	args := m.Called(ctx, id, class)
	return args.Bool(0), args.Error(1)
}

func (m *MockFlightUseCase) Price(ctx context.Context, id string, class domain.CabinClass) (int64, error) {
	args := m.Called(ctx, id, class)
	return args.Get(0).(int64), args.Error(1)
}

var testToday = time.Date(2030, 3, 1, 15, 4, 5, 0, time.UTC)

func newTestFlightHandler(svc flights.FlightUseCase) *FlightHandler {
	h := NewFlightHandler(svc)
	h.now = func() time.Time { return testToday }
	return h
}

func sampleFlight(id, from, to string, day time.Time, economyCents int64) domain.Flight {
	return domain.Flight{
		ID:             id,
		FlightNumber:   "AC" + id[2:],
		FromAirport:    from,
		ToAirport:      to,
		DepartureTime:  day.Add(8 * time.Hour),
		ArrivalTime:    day.Add(9*time.Hour + 30*time.Minute),
		Aircraft:       "Airbus A320",
		Economy:        domain.SeatInventory{PriceCents: economyCents, Available: 120, Total: 120},
		PremiumEconomy: domain.SeatInventory{PriceCents: economyCents * 2, Available: 24, Total: 24},
		Business:       domain.SeatInventory{PriceCents: economyCents * 4, Available: 12, Total: 12},
		FirstClass:     domain.SeatInventory{PriceCents: economyCents * 8, Available: 4, Total: 4},
		Direct:         true,
	}
}

func serveSearch(h *FlightHandler, query string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/flights/search?"+query, nil)
	h.search(c)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestFlightHandler_searchOneWay(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := newTestFlightHandler(mockService)

	day := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	minPrice := int64(18000)
	expected := flights.SearchInput{
		FlightType:    domain.FlightTypeOneWay,
		From:          "SYD",
		To:            "MEL",
		DepartureDate: day,
		MinPriceCents: &minPrice,
		Page:          0,
		Size:          10,
		SortBy:        "departureTime",
		SortDirection: "asc",
	}
	result := &flights.SearchResult{
		FlightType:   domain.FlightTypeOneWay,
		Outbound:     []domain.Flight{sampleFlight("FL002", "SYD", "MEL", day, 18000)},
		TotalResults: 1,
		PageSize:     10,
		TotalPages:   1,
		IsFirst:      true,
		IsLast:       true,
	}
	mockService.On("Search", mock.Anything, expected).Return(result, nil)

	w := serveSearch(handler, "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=MEL&departureDate=2030-03-10&minPrice=180")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"price":180.00`)
	assert.Contains(t, w.Body.String(), `"returnFlights":null`)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ONE_WAY", body["flightType"])
	assert.Equal(t, float64(1), body["totalResults"])
	outbound := body["outboundFlights"].([]any)
	require.Len(t, outbound, 1)
	flight := outbound[0].(map[string]any)
	assert.Equal(t, "FL002", flight["id"])
	assert.Equal(t, float64(160), flight["totalSeats"])
	assert.Equal(t, true, flight["isDirect"])
	mockService.AssertExpectations(t)
}

func TestFlightHandler_searchReturn(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := newTestFlightHandler(mockService)

	out := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	back := out.AddDate(0, 0, 7)
	result := &flights.SearchResult{
		FlightType: domain.FlightTypeReturn,
		Outbound:   []domain.Flight{sampleFlight("FL001", "SYD", "MEL", out, 15000)},
		Return:     []domain.Flight{sampleFlight("FL005", "MEL", "SYD", back, 16000)},
		PageSize:   5,
	}
	mockService.On("Search", mock.Anything, mock.MatchedBy(func(in flights.SearchInput) bool {
		return in.FlightType == domain.FlightTypeReturn &&
			in.ReturnDate != nil && in.ReturnDate.Equal(back) &&
			in.Size == 5 && in.SortBy == "price" && in.SortDirection == "desc" && in.DirectOnly
	})).Return(result, nil)

	w := serveSearch(handler, "flightType=RETURN&departureAirport=SYD&arrivalAirport=MEL&departureDate=2030-03-10&returnDate=2030-03-17&size=5&sortBy=price&sortDirection=desc&directFlightsOnly=true")

	require.Equal(t, http.StatusOK, w.Code)
	var body searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.ReturnFlights, 1)
	assert.Equal(t, "FL005", body.ReturnFlights[0].ID)
	assert.Equal(t, "MEL", body.ReturnFlights[0].Origin)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_searchValidation(t *testing.T) {
	const base = "departureAirport=SYD&arrivalAirport=MEL&departureDate=2030-03-10"

	tests := []struct {
		name    string
		query   string
		title   string
		message string
	}{
		{"missing flight type", base, titleValidation, "Flight type is required"},
		{"unknown flight type", "flightType=MULTI&" + base, titleParameterType, "Invalid value 'MULTI' for parameter 'flightType'"},
		{"bad date", "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=MEL&departureDate=10/03/2030", titleParameterType, "Invalid value '10/03/2030' for parameter 'departureDate'"},
		{"return date missing", "flightType=RETURN&" + base, titleInvalidRequest, "Return date is required for return flights"},
		{"return before departure", "flightType=RETURN&returnDate=2030-03-10&" + base, titleInvalidRequest, "Return date must be after departure date"},
		{"past departure", "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=MEL&departureDate=2030-02-28", titleInvalidRequest, "Departure date cannot be in the past"},
		{"zero min price", "flightType=ONE_WAY&minPrice=0&" + base, titleValidation, "Minimum price must be greater than 0"},
		{"price range", "flightType=ONE_WAY&minPrice=300&maxPrice=200&" + base, titleInvalidRequest, "Minimum price cannot be greater than maximum price"},
		{"short departure code", "flightType=ONE_WAY&departureAirport=SY&arrivalAirport=MEL&departureDate=2030-03-10", titleInvalidRequest, "Departure airport code must be exactly 3 characters"},
		{"long arrival code", "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=MELB&departureDate=2030-03-10", titleInvalidRequest, "Arrival airport code must be exactly 3 characters"},
		{"same airports", "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=syd&departureDate=2030-03-10", titleInvalidRequest, "Departure and arrival airports cannot be the same"},
		{"negative page", "flightType=ONE_WAY&page=-1&" + base, titleValidation, "Page number must be 0 or greater"},
		{"page size too large", "flightType=ONE_WAY&size=101&" + base, titleValidation, "Page size cannot exceed 100"},
		{"page size zero", "flightType=ONE_WAY&size=0&" + base, titleValidation, "Page size must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := &MockFlightUseCase{}
			w := serveSearch(newTestFlightHandler(mockService), tt.query)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.title, body.Error)
			assert.Equal(t, tt.message, body.Message)
			assert.NotEmpty(t, body.Timestamp)
			mockService.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
		})
	}
}

func TestFlightHandler_searchUnknownSort(t *testing.T) {
	mockService := &MockFlightUseCase{}
	mockService.On("Search", mock.Anything, mock.Anything).
		Return(nil, errWrap("unsupported sort field \"duration\"", domain.ErrInvalidRequest))

	w := serveSearch(newTestFlightHandler(mockService), "flightType=ONE_WAY&departureAirport=SYD&arrivalAirport=MEL&departureDate=2030-03-10&sortBy=duration")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, titleInvalidRequest, decodeError(t, w).Error)
}

func TestFlightHandler_get(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := newTestFlightHandler(mockService)

	day := time.Date(2030, 3, 10, 0, 0, 0, 0, time.UTC)
	f := sampleFlight("FL001", "SYD", "MEL", day, 15000)
	f.Economy.Available = 119
	mockService.On("GetByID", mock.Anything, "FL001").Return(&f, nil)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/flights/FL001", nil)
	c.Params = gin.Params{{Key: "id", Value: "FL001"}}

	handler.get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body flightResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "FL001", body.ID)
	assert.Equal(t, "SYD", body.Origin)
	assert.Equal(t, 119, body.Seats.Economy.AvailableSeats)
	assert.Equal(t, "1200.00", body.Seats.FirstClass.Price.String())
	assert.Equal(t, 160, body.TotalSeats)
	assert.Equal(t, 159, body.TotalAvailableSeats)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_getNotFound(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := newTestFlightHandler(mockService)
	mockService.On("GetByID", mock.Anything, "FL404").Return(nil, errWrap("flight FL404", domain.ErrFlightNotFound))

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/flights/FL404", nil)
	c.Params = gin.Params{{Key: "id", Value: "FL404"}}

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, titleFlightNotFound, body.Error)
	assert.Contains(t, body.Message, "FL404")
}
