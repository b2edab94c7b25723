// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"ravito/internal/modules/location"
	"ravito/internal/modules/matching"
	"ravito/internal/modules/notify"
	"ravito/internal/modules/order"
)

type errorResponse struct {
	Error string `json:"error"`
}

// isValidID accepts the characters used by uuids and seeded ids.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, matching.ErrNoSupplierAvailable):
		writeError(c, http.StatusUnprocessableEntity, matching.ErrNoSupplierAvailable.Error())
	case errors.Is(err, matching.ErrSuppliersBusy):
		c.Header("Retry-After", "1")
		writeError(c, http.StatusServiceUnavailable, matching.ErrSuppliersBusy.Error())
	case order.IsValidation(err):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrBadRequest),
		errors.Is(err, location.ErrInvalidPoint),
		errors.Is(err, notify.ErrInvalidToken):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, location.ErrUnknownSupplier),
		errors.Is(err, notify.ErrUnknownSupplier):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrForbidden):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrInvalidState), errors.Is(err, order.ErrConflict):
		writeError(c, http.StatusConflict, err.Error())
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
