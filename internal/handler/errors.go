package handler

import (
	"errors"
	"net/http"

	"gourmet/internal/model"

	"github.com/gin-gonic/gin"
)

// statusFor maps stable pipeline error codes to HTTP statuses
func statusFor(code string) int {
	switch code {
	case model.CodeInvalidInput, model.CodeInvalidCoordinates:
		return http.StatusBadRequest
	case model.CodeInvalidAddress, model.CodeNoCandidates:
		return http.StatusNotFound
	case model.CodeUpstreamUnavailable, model.CodeDeadlineExceeded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders the error envelope for any pipeline error. Errors
// without a code become opaque 500s.
func writeError(c *gin.Context, err error) {
	var pe *model.PipelineError
	if !errors.As(err, &pe) {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error: model.ErrorDetail{
				Message: "internal server error",
				Code:    model.CodeServerError,
			},
		})
		return
	}

	detail := ""
	if pe.Err != nil {
		detail = pe.Err.Error()
	}
	c.JSON(statusFor(pe.Code), model.ErrorResponse{
		Error: model.ErrorDetail{
			Message: pe.Message,
			Details: detail,
			Code:    pe.Code,
		},
	})
}

// writeBadRequest renders a 400 with the invalid-input code
func writeBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Error: model.ErrorDetail{
			Message: message,
			Code:    model.CodeInvalidInput,
		},
	})
}
