package handler

import (
	"errors"
	"net/http"

	"story-studio/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError переводит ошибку сервиса в HTTP-ответ.
// fallback - текст для 5xx, клиент показывает его пользователю.
func handleServiceError(c *gin.Context, err error, fallback string) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: models.MsgStoryNotFound}
	default:
		zap.L().Error("Service error",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: fallback}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func methodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, models.ErrorResponse{Error: models.MsgMethodNotAllowed})
}
