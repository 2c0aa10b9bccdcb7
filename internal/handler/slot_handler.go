package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/terminalgate/gate-api/internal/models"
	"github.com/terminalgate/gate-api/internal/service"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
	"github.com/terminalgate/gate-api/pkg/response"
)

// SlotHandler wires HTTP endpoints to availability resolution and the slot
// write side.
type SlotHandler struct {
	availability *service.AvailabilityService
	slots        *service.SlotService
}

// NewSlotHandler creates a new handler.
func NewSlotHandler(availability *service.AvailabilityService, slots *service.SlotService) *SlotHandler {
	return &SlotHandler{availability: availability, slots: slots}
}

// Availability godoc
// @Summary Resolve availability for a date
// @Description Returns the day's slots with remaining capacity, or the block reason when the date is blocked. Restricted days are hidden from unauthorized callers.
// @Tags Slots
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /slots/availability/{date} [get]
func (h *SlotHandler) Availability(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return
	}

	day, err := h.availability.ResolveDay(c.Request.Context(), date, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, day, nil)
}

// Generate godoc
// @Summary Materialize slot rows for a date
// @Description Creates the date's slot rows from its resolved schedule. Fails with ALREADY_EXISTS when the date was generated before.
// @Tags Slots
// @Produce json
// @Param date path string true "Date (YYYY-MM-DD)"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/generate/{date} [post]
func (h *SlotHandler) Generate(c *gin.Context) {
	date := c.Param("date")
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD"))
		return
	}

	count, err := h.slots.GenerateForDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, gin.H{"date": date, "slots_created": count}, nil)
}

// SetCapacity godoc
// @Summary Resize a slot's total capacity
// @Description Rejects a new total below the slot's currently reserved amount.
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.SetCapacityRequest true "New capacity"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /slots/{id}/capacity [put]
func (h *SlotHandler) SetCapacity(c *gin.Context) {
	var req service.SetCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid capacity payload"))
		return
	}

	slot, err := h.slots.SetTotalCapacity(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// SetActive godoc
// @Summary Activate or deactivate a slot
// @Description Inactive slots reject new reservations; existing ones are untouched.
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body object true "Active flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /slots/{id}/active [put]
func (h *SlotHandler) SetActive(c *gin.Context) {
	var payload struct {
		IsActive *bool `json:"is_active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "is_active is required"))
		return
	}

	slot, err := h.slots.SetActive(c.Request.Context(), c.Param("id"), *payload.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}
