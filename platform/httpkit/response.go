package httpkit

import (
	"errors"
	"net/http"

	"inspection_booking_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) { c.JSON(status, payload) }

func OK(c *gin.Context, payload any) { c.JSON(http.StatusOK, payload) }

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for err and reports whether it did. Only
// *apperr.Error messages reach the client; anything else is a bare 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
		return true
	}
	Error(c, http.StatusInternalServerError, "internal error", nil)
	return true
}
