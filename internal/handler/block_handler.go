package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/terminalgate/gate-api/internal/service"
	appErrors "github.com/terminalgate/gate-api/pkg/errors"
	"github.com/terminalgate/gate-api/pkg/response"
)

// BlockHandler wires HTTP endpoints to the block service.
type BlockHandler struct {
	service *service.BlockService
}

// NewBlockHandler creates a new handler.
func NewBlockHandler(svc *service.BlockService) *BlockHandler {
	return &BlockHandler{service: svc}
}

// ListDates godoc
// @Summary List blocked dates
// @Tags Blocks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /blocks/dates [get]
func (h *BlockHandler) ListDates(c *gin.Context) {
	dates, err := h.service.ListBlockedDates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dates, nil)
}

// CreateDate godoc
// @Summary Block an entire date
// @Tags Blocks
// @Accept json
// @Produce json
// @Param payload body service.BlockedDateRequest true "Blocked date"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blocks/dates [post]
func (h *BlockHandler) CreateDate(c *gin.Context) {
	var req service.BlockedDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked date payload"))
		return
	}

	blocked, err := h.service.CreateBlockedDate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, blocked)
}

// UpdateDate godoc
// @Summary Update a blocked date
// @Tags Blocks
// @Accept json
// @Produce json
// @Param id path string true "Blocked date ID"
// @Param payload body service.BlockedDateRequest true "Blocked date"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blocks/dates/{id} [put]
func (h *BlockHandler) UpdateDate(c *gin.Context) {
	var req service.BlockedDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked date payload"))
		return
	}

	blocked, err := h.service.UpdateBlockedDate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocked, nil)
}

// DeleteDate godoc
// @Summary Remove a blocked date
// @Tags Blocks
// @Param id path string true "Blocked date ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blocks/dates/{id} [delete]
func (h *BlockHandler) DeleteDate(c *gin.Context) {
	if err := h.service.DeleteBlockedDate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSlots godoc
// @Summary List blocked time ranges
// @Tags Blocks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /blocks/slots [get]
func (h *BlockHandler) ListSlots(c *gin.Context) {
	slots, err := h.service.ListBlockedSlots(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// CreateSlot godoc
// @Summary Block a time range
// @Description Block a recurring or date-specific time range. Overlapping active ranges in the same scope are rejected.
// @Tags Blocks
// @Accept json
// @Produce json
// @Param payload body service.BlockedSlotRequest true "Blocked range"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blocks/slots [post]
func (h *BlockHandler) CreateSlot(c *gin.Context) {
	var req service.BlockedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked range payload"))
		return
	}

	blocked, err := h.service.CreateBlockedSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, blocked)
}

// UpdateSlot godoc
// @Summary Update a blocked time range
// @Tags Blocks
// @Accept json
// @Produce json
// @Param id path string true "Blocked range ID"
// @Param payload body service.BlockedSlotRequest true "Blocked range"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blocks/slots/{id} [put]
func (h *BlockHandler) UpdateSlot(c *gin.Context) {
	var req service.BlockedSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked range payload"))
		return
	}

	blocked, err := h.service.UpdateBlockedSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocked, nil)
}

// DeleteSlot godoc
// @Summary Remove a blocked time range
// @Tags Blocks
// @Param id path string true "Blocked range ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /blocks/slots/{id} [delete]
func (h *BlockHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteBlockedSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
