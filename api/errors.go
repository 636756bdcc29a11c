package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	titleFlightNotFound   = "Flight not found"
	titleBookingNotFound  = "Booking not found"
	titleNoSeats          = "No seats available"
	titleInvalidRequest   = "Invalid request"
	titleInvalidOperation = "Invalid operation"
	titleValidation       = "Validation failed"
	titleRequestFormat    = "Invalid request format"
	titleUnauthorized     = "Unauthorized"
	titleTooManyRequests  = "Too many requests"
	titleConflict         = "Request in progress"
	titleInternal         = "Internal server error"
)

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// requestError is raised by the api layer itself before the services run.
type requestError struct {
	title   string
	message string
}

func (e *requestError) Error() string { return e.message }

func invalidRequest(message string) error {
	return &requestError{title: titleInvalidRequest, message: message}
}

func validationFailed(message string) error {
	return &requestError{title: titleValidation, message: message}
}

func errorStatus(err error) (int, string) {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.title
	case errors.Is(err, domain.ErrFlightNotFound):
		return http.StatusNotFound, titleFlightNotFound
	case errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound, titleBookingNotFound
	case errors.Is(err, domain.ErrNoSeatsAvailable):
		return http.StatusConflict, titleNoSeats
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, titleInvalidRequest
	case errors.Is(err, domain.ErrInvalidOperation):
		return http.StatusBadRequest, titleInvalidOperation
	default:
		return http.StatusInternalServerError, titleInternal
	}
}

func writeError(c *gin.Context, err error) {
	status, title := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		message = "An unexpected error occurred"
	}
	abortWithError(c, status, title, message)
}

func abortWithError(c *gin.Context, status int, title, message string) {
	c.AbortWithStatusJSON(status, errorResponse{
		Error:     title,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// bindError turns a gin binding failure into a client error. Validator
// failures are reported with their field messages joined by ", ";
// anything else gets the fallback message.
func bindError(err error, fallback string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		messages := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			messages = append(messages, fieldMessage(fe))
		}
		return validationFailed(strings.Join(messages, ", "))
	}
	return &requestError{title: titleRequestFormat, message: fallback}
}

var fieldMessages = map[string]string{
	"FlightType.required":       "Flight type is required",
	"FlightID.required":         "Flight ID is required",
	"SeatClass.required":        "Seat class is required",
	"Passenger.required":        "Passenger details are required",
	"FirstName.required":        "First name is required",
	"LastName.required":         "Last name is required",
	"Email.required":            "Email is required",
	"Email.email":               "Email should be valid",
	"PhoneNumber.required":      "Phone number is required",
	"PassportNumber.required":   "Passport number is required",
	"DateOfBirth.required":      "Date of birth is required",
	"DepartureAirport.required": "Departure airport is required",
	"ArrivalAirport.required":   "Arrival airport is required",
	"DepartureDate.required":    "Departure date is required",
	"Page.min":                  "Page number must be 0 or greater",
	"Size.min":                  "Page size must be at least 1",
	"Size.max":                  "Page size cannot exceed 100",
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.StructField()+"."+fe.Tag()]; ok {
		return msg
	}
	return fe.Field() + " is invalid"
}
