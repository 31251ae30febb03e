package handler

import (
	"net/http"
	"strconv"

	"gourmet/internal/service"

	"github.com/gin-gonic/gin"
)

// PreferencesHandler handles preference suggestion HTTP requests
type PreferencesHandler struct {
	suggestions *service.SuggestionService
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(suggestions *service.SuggestionService) *PreferencesHandler {
	return &PreferencesHandler{suggestions: suggestions}
}

// Suggestions handles GET /api/v1/preferences/suggestions
func (h *PreferencesHandler) Suggestions(c *gin.Context) {
	count := 0
	if raw := c.Query("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(c, "count must be an integer")
			return
		}
		count = v
	}

	suggestions := h.suggestions.Suggest(c.Request.Context(), c.Query("userId"), count)
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}
