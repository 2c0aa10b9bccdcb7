package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terminalgate/gate-api/internal/service"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
	"github.com/terminalgate/gate-api/pkg/response"
)

// ScheduleHandler wires HTTP endpoints to the schedule service.
type ScheduleHandler struct {
	service *service.ScheduleService
}

// NewScheduleHandler creates a new handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// ListWeekly godoc
// @Summary List weekly schedule configurations
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/weekly [get]
func (h *ScheduleHandler) ListWeekly(c *gin.Context) {
	configs, err := h.service.ListWeekly(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, configs, nil)
}

// CreateWeekly godoc
// @Summary Create a weekly schedule configuration
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.WeeklyConfigRequest true "Weekly configuration"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/weekly [post]
func (h *ScheduleHandler) CreateWeekly(c *gin.Context) {
	var req service.WeeklyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekly configuration payload"))
		return
	}

	config, err := h.service.CreateWeekly(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, config)
}

// UpdateWeekly godoc
// @Summary Update a weekly schedule configuration
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Configuration ID"
// @Param payload body service.WeeklyConfigRequest true "Weekly configuration"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/weekly/{id} [put]
func (h *ScheduleHandler) UpdateWeekly(c *gin.Context) {
	var req service.WeeklyConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weekly configuration payload"))
		return
	}

	config, err := h.service.UpdateWeekly(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, config, nil)
}

// DeleteWeekly godoc
// @Summary Delete a weekly schedule configuration
// @Tags Schedules
// @Param id path string true "Configuration ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/weekly/{id} [delete]
func (h *ScheduleHandler) DeleteWeekly(c *gin.Context) {
	if err := h.service.DeleteWeekly(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSpecial godoc
// @Summary List special schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/special [get]
func (h *ScheduleHandler) ListSpecial(c *gin.Context) {
	schedules, err := h.service.ListSpecial(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// GetSpecial godoc
// @Summary Get a special schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/special/{id} [get]
func (h *ScheduleHandler) GetSpecial(c *gin.Context) {
	schedule, err := h.service.GetSpecial(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// CreateSpecial godoc
// @Summary Create a special schedule for a date
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.SpecialScheduleRequest true "Special schedule"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/special [post]
func (h *ScheduleHandler) CreateSpecial(c *gin.Context) {
	var req service.SpecialScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid special schedule payload"))
		return
	}

	schedule, err := h.service.CreateSpecial(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// UpdateSpecial godoc
// @Summary Update a special schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.SpecialScheduleRequest true "Special schedule"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/special/{id} [put]
func (h *ScheduleHandler) UpdateSpecial(c *gin.Context) {
	var req service.SpecialScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid special schedule payload"))
		return
	}

	schedule, err := h.service.UpdateSpecial(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// DeleteSpecial godoc
// @Summary Delete a special schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/special/{id} [delete]
func (h *ScheduleHandler) DeleteSpecial(c *gin.Context) {
	if err := h.service.DeleteSpecial(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
