package models

import "context"

// contextKey - приватный тип для ключей контекста, чтобы избежать коллизий.
type contextKey string

const (
	// UserContextKey используется как ключ для хранения UserID (Firebase UID) в контексте запроса.
	UserContextKey contextKey = "userID"
	// UserEmailContextKey хранит email из проверенного ID-токена.
	UserEmailContextKey contextKey = "userEmail"
)

// GinUserIDKey - ключ, под которым auth middleware кладет UserID в gin.Context.
const GinUserIDKey = "user_id"

// GetUserIDFromContext извлекает UserID из контекста.
// Возвращает ID и true, если ключ найден и значение непустое.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserContextKey).(string)
	return userID, ok && userID != ""
}

// WithUserID возвращает контекст с сохраненным UserID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserContextKey, userID)
}
