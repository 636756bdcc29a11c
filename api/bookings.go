package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/flightbooking/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
	now     func() time.Time
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service, now: time.Now}
}

// Register mounts the booking routes. Middleware passed in wraps only the
// create route, which is where idempotency keys apply.
func (h *BookingHandler) Register(router *gin.RouterGroup, createMiddleware ...gin.HandlerFunc) {
	router.POST("", append(createMiddleware, h.create)...)
	router.GET("/:id", h.get)
	router.PUT("/:id/passenger", h.updatePassenger)
	router.DELETE("/:id", h.cancel)
	router.GET("/:id/ticket", h.ticket)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err, "Invalid request body format"))
		return
	}

	input, err := req.toInput(utcDate(h.now()))
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBookingResponse(b))
}

func (h *BookingHandler) get(c *gin.Context) {
	b, err := h.service.GetBookingByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) updatePassenger(c *gin.Context) {
	var req passengerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, bindError(err, "Invalid request body format"))
		return
	}

	details, err := req.toDetails(utcDate(h.now()))
	if err != nil {
		writeError(c, err)
		return
	}

	b, err := h.service.UpdatePassengerDetails(c.Request.Context(), c.Param("id"), details)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBookingResponse(b))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	b, err := h.service.CancelBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCancellationResponse(b))
}

func (h *BookingHandler) ticket(c *gin.Context) {
	id := c.Param("id")
	pdf, err := h.service.RenderTicket(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+id+`.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
