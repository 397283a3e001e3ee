package http

import (
	"errors"
	"net/http"

	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/entity"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/logging"
	"github.com/Bodzaman/cottage-tandoori-printer-helper/internal/usecase"
	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	var (
		connErr *usecase.ConnectionError
		tErr    *usecase.TransportError
	)
	switch {
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrNotConnected):
		return http.StatusServiceUnavailable
	case errors.As(err, &connErr), errors.As(err, &tErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the {success:false, message, error} body. extra is merged in
// so failed prints still report their job id.
func fail(c *gin.Context, message string, err error, extra gin.H) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error(message, "error", err)
	}
	body := gin.H{"success": false, "message": message, "error": err.Error()}
	for k, v := range extra {
		body[k] = v
	}
	_ = c.Error(err)
	c.JSON(status, body)
}
