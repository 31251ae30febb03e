package handler

import (
	"context"
	"net/http"

	"gourmet/internal/model"

	"github.com/gin-gonic/gin"
)

// LocationResolver is the geocoding surface the handler needs
type LocationResolver interface {
	Geocode(ctx context.Context, address string) (*model.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, coords model.Coordinates) (*model.Address, error)
}

// LocationHandler handles geocoding HTTP requests
type LocationHandler struct {
	resolver LocationResolver
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(resolver LocationResolver) *LocationHandler {
	return &LocationHandler{resolver: resolver}
}

// Geocode handles POST /api/v1/location/geocode
func (h *LocationHandler) Geocode(c *gin.Context) {
	var req model.GeocodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	result, err := h.resolver.Geocode(c.Request.Context(), req.Address)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReverseGeocode handles POST /api/v1/location/reverse-geocode
func (h *LocationHandler) ReverseGeocode(c *gin.Context) {
	var coords model.Coordinates
	if err := c.ShouldBindJSON(&coords); err != nil {
		writeBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	address, err := h.resolver.ReverseGeocode(c.Request.Context(), coords)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, address)
}
