package handler

import (
	"net/http"

	"gourmet/internal/model"
	"gourmet/internal/service"

	"github.com/gin-gonic/gin"
)

// RecommendHandler handles recommendation HTTP requests
type RecommendHandler struct {
	orchestrator *service.Orchestrator
}

// NewRecommendHandler creates a new recommendation handler
func NewRecommendHandler(orchestrator *service.Orchestrator) *RecommendHandler {
	return &RecommendHandler{orchestrator: orchestrator}
}

// Recommend handles POST /api/v1/restaurants/recommendations
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req model.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.orchestrator.Recommend(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}
