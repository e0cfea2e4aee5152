package poisync

import (
	"net/http"

	"map_widget_backend/platform/httpkit"
	"map_widget_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes the map interaction endpoints.
type Handler struct {
	svc *Service
	val *validator.Validator
}

// NewHandler creates a new interaction handler.
func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// MapClickRequest is a click on empty map area: a request to create a point.
type MapClickRequest struct {
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// MarkerClickRequest is a click on an existing marker.
type MarkerClickRequest struct {
	Tag *int64 `json:"tag" validate:"required"`
}

// MarkerDragRequest is the end of a marker drag.
type MarkerDragRequest struct {
	Tag *int64   `json:"tag" validate:"required"`
	Lat *float64 `json:"lat" validate:"required"`
	Lng *float64 `json:"lng" validate:"required"`
}

// MapClick handles POST /widget/interactions/map-click.
func (h *Handler) MapClick(c *gin.Context) {
	var req MapClickRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.MapClicked(c.Request.Context(), *req.Lat, *req.Lng); httpkit.HandleError(c, err) {
		return
	}

	// The append is submitted; the new marker arrives with the next host
	// record push rather than being inserted optimistically.
	c.JSON(http.StatusAccepted, gin.H{"status": "submitted"})
}

// MarkerClick handles POST /widget/interactions/marker-click.
func (h *Handler) MarkerClick(c *gin.Context) {
	var req MarkerClickRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	h.svc.MarkerClicked(c.Request.Context(), *req.Tag)
	httpkit.OK(c, gin.H{"status": "ok"})
}

// MarkerDrag handles POST /widget/interactions/marker-drag.
func (h *Handler) MarkerDrag(c *gin.Context) {
	var req MarkerDragRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.MarkerDragEnd(c.Request.Context(), *req.Tag, *req.Lat, *req.Lng); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "saved"})
}

func (h *Handler) bindAndValidate(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}
