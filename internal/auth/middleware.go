package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"kidzy-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier проверяет ID-токен и возвращает UID.
type TokenVerifier func(ctx context.Context, idToken string) (string, error)

// Middleware проверяет Bearer ID-токен и кладет UID в gin.Context и context запроса.
func Middleware(verify TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("AuthMiddleware")
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			models.SendJSONError(c, "Unauthorized: Missing token", http.StatusUnauthorized)
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			log.Warn("Malformed Authorization header", zap.String("path", c.Request.URL.Path))
			models.SendJSONError(c, "Unauthorized: Malformed token header", http.StatusUnauthorized)
			return
		}

		uid, err := verify(c.Request.Context(), parts[1])
		if err != nil {
			status, msg := TokenErrorResponse(err)
			if status == http.StatusInternalServerError {
				log.Error("Unexpected token verification error", zap.Error(err))
			} else {
				log.Debug("Token verification failed", zap.Error(err))
			}
			models.SendJSONError(c, msg, status)
			return
		}

		c.Set(models.GinUserIDKey, uid)
		c.Request = c.Request.WithContext(models.WithUserID(c.Request.Context(), uid))
		c.Next()
	}
}

// TokenErrorResponse - HTTP-статус и сообщение для ошибки проверки токена.
func TokenErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrTokenExpired), errors.Is(err, models.ErrTokenInvalid), errors.Is(err, models.ErrUserNotFound):
		code, _ := ProviderCode(err)
		msg, _ := ProviderMessage(code)
		return http.StatusUnauthorized, msg
	}
	return http.StatusInternalServerError, "Internal server error during token verification"
}

// UserID возвращает UID, установленный Middleware.
func UserID(c *gin.Context) (string, bool) {
	uid := c.GetString(models.GinUserIDKey)
	return uid, uid != ""
}
