package handler

import (
	"errors"
	"net/http"

	"kidzy-server/internal/ai"
	"kidzy-server/internal/auth"
	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleServiceError преобразует ошибки сервисов в HTTP-ответ.
func (h *Handler) handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var message string

	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrPageNotFound),
		errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		message = models.ErrForbidden.Error()
	case errors.Is(err, models.ErrTokenExpired), errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrBadRequest),
		errors.Is(err, models.ErrCoverNotEditable),
		errors.Is(err, models.ErrPhotoRequired),
		errors.Is(err, ai.ErrInvalidImageData):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrGenerationInProgress), errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrPurchaseRequired),
		errors.Is(err, models.ErrLocked),
		errors.Is(err, models.ErrPaymentFailed),
		errors.Is(err, models.ErrInvalidSignature):
		statusCode = http.StatusPaymentRequired
		message = err.Error()
	case errors.Is(err, models.ErrDocumentTooLarge):
		statusCode = http.StatusRequestEntityTooLarge
		message = models.ErrDocumentTooLarge.Error()
	case errors.Is(err, models.ErrAvatarFailed),
		errors.Is(err, models.ErrVariationFailed),
		errors.Is(err, models.ErrOutlineFailed),
		errors.Is(err, models.ErrPageGenerationFailed),
		errors.Is(err, models.ErrColorGuideFailed),
		errors.Is(err, ai.ErrAIGenerationFailed),
		errors.Is(err, ai.ErrFetchFailed):
		statusCode = http.StatusBadGateway
		message = err.Error()
		h.logger.Warn("Upstream generation failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	default:
		statusCode = http.StatusInternalServerError
		message = models.ErrInternalServer.Error()
		h.logger.Error("Unhandled service error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}

	models.SendJSONError(c, message, statusCode)
}

// handleAuthError отвечает сообщением провайдера идентификации, если код известен.
func (h *Handler) handleAuthError(c *gin.Context, err error) {
	code, ok := auth.ProviderCode(err)
	if !ok {
		h.handleServiceError(c, err)
		return
	}
	message, _ := auth.ProviderMessage(code)

	statusCode := http.StatusBadRequest
	switch {
	case errors.Is(err, models.ErrEmailAlreadyExists):
		statusCode = http.StatusConflict
	case errors.Is(err, models.ErrUserNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, models.ErrTokenExpired), errors.Is(err, models.ErrTokenInvalid):
		statusCode = http.StatusUnauthorized
	}
	models.SendJSONError(c, message, statusCode)
}

// bindJSON разбирает тело запроса; при ошибке отвечает 400 или 413.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			models.SendJSONError(c, "Request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		models.SendJSONError(c, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}
