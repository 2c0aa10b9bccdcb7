package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/service"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
	"github.com/terminalgate/gate-api/pkg/response"
)

// ReservationHandler wires HTTP endpoints to the reservation service.
type ReservationHandler struct {
	service *service.ReservationService
}

// NewReservationHandler creates a new handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Create godoc
// @Summary Book time slots
// @Description Books the requested number of slots at a date and time. Capacity is debited atomically; the whole request fails when not enough capacity remains.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body service.CreateReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}

	reservation, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reservation)
}

// List godoc
// @Summary List reservations
// @Description Transporters see their own reservations; admins see all and may filter by user.
// @Tags Reservations
// @Produce json
// @Param status query string false "Status filter"
// @Param date_from query string false "Earliest slot date (YYYY-MM-DD)"
// @Param date_to query string false "Latest slot date (YYYY-MM-DD)"
// @Param user_id query string false "User filter (admin only)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ReservationFilter{
		Status:    models.ReservationStatus(c.Query("status")),
		DateFrom:  c.Query("date_from"),
		DateTo:    c.Query("date_to"),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if claims.IsAdmin() {
		filter.UserID = c.Query("user_id")
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	reservations, pagination, err := h.service.List(c.Request.Context(), claims, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservations, pagination)
}

// Get godoc
// @Summary Get a reservation
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reservation, err := h.service.Get(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Cancel godoc
// @Summary Cancel a reservation
// @Description Cancels an ACTIVE reservation and credits its capacity back. Owners and admins only.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Reservation ID"
// @Param payload body service.CancelReservationRequest false "Cancellation reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id}/cancel [put]
func (h *ReservationHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CancelReservationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid cancellation payload"))
			return
		}
	}

	reservation, err := h.service.Cancel(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}

// Complete godoc
// @Summary Mark a reservation completed
// @Description Marks an ACTIVE reservation as COMPLETED after the truck was processed. Capacity stays consumed. Admin only.
// @Tags Reservations
// @Produce json
// @Param id path string true "Reservation ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id}/complete [put]
func (h *ReservationHandler) Complete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reservation, err := h.service.Complete(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reservation, nil)
}
