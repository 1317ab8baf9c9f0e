package httpt

import (
	"errors"
	"net/http"

	"gymnotifier/internal/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *NotifyHandler) handleServiceError(c *gin.Context, op string, err error) {
	log := h.log.With(zap.String("op", op))

	switch {
	case errors.Is(err, entity.ErrInvalidData):
		log.Warn("invalid request data", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "Invalid input data", err)

	case errors.Is(err, entity.ErrInvalidSegment):
		log.Warn("unknown segment", zap.Error(err))
		h.respondError(c, http.StatusBadRequest, "Unknown audience segment", err)

	case errors.Is(err, entity.ErrEmptySegment):
		log.Warn("empty segment", zap.Error(err))
		h.respondError(c, http.StatusNotFound, "Segment has no recipients", err)

	case errors.Is(err, entity.ErrDataNotFound):
		log.Warn("record not found", zap.Error(err))
		h.respondError(c, http.StatusNotFound, "Notification not found", err)

	case errors.Is(err, entity.ErrConflictingData):
		log.Warn("conflicting data", zap.Error(err))
		h.respondError(c, http.StatusConflict, "Data conflict occurred", err)

	default:
		log.Error("internal server error", zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

func (h *NotifyHandler) respondError(c *gin.Context, status int, message string, err error) {
	c.AbortWithStatusJSON(status, errorResponse{Message: message, Error: err.Error()})
}

func (h *NotifyHandler) respondInvalidUUID(c *gin.Context, param string) {
	h.respondError(c, http.StatusBadRequest, "Invalid identifier",
		errors.New("malformed uuid in path parameter "+param))
}
