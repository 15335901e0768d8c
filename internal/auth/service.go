package auth

import (
	"context"
	"fmt"
	"strings"

	"kidzy-server/shared/models"

	"go.uber.org/zap"
)

const minPasswordLength = 6

// Service - регистрация, профиль и выход пользователя.
type Service struct {
	identity Identity
	logger   *zap.Logger
}

func NewService(identity Identity, logger *zap.Logger) *Service {
	return &Service{identity: identity, logger: logger.Named("AuthService")}
}

// SignupRequest - данные регистрации по email и паролю.
type SignupRequest struct {
	Name     string `json:"name" binding:"max=80"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup создает пользователя с именем профиля.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (models.User, error) {
	email := strings.TrimSpace(req.Email)
	if err := models.Validator().Var(email, "required,email"); err != nil {
		return models.User{}, &ProviderError{Code: CodeInvalidEmail, Err: fmt.Errorf("%w: %v", models.ErrInvalidInput, err)}
	}
	if len(req.Password) < minPasswordLength {
		return models.User{}, &ProviderError{Code: CodeInvalidPassword, Err: fmt.Errorf("%w: password too short", models.ErrInvalidInput)}
	}
	user, err := s.identity.CreateUser(ctx, email, req.Password, strings.TrimSpace(req.Name))
	if err != nil {
		s.logger.Warn("Signup failed", zap.String("email", email), zap.Error(err))
		return models.User{}, err
	}
	return user, nil
}

// Verify проверяет ID-токен и возвращает UID.
func (s *Service) Verify(ctx context.Context, idToken string) (string, error) {
	return s.identity.VerifyIDToken(ctx, idToken)
}

// Profile возвращает профиль с подставленными значениями по умолчанию.
func (s *Service) Profile(ctx context.Context, uid string) (models.User, error) {
	return s.identity.GetUser(ctx, uid)
}

// UpdateProfile меняет имя и/или фото профиля.
func (s *Service) UpdateProfile(ctx context.Context, uid string, update ProfileUpdate) (models.User, error) {
	if update.DisplayName == nil && update.PhotoURL == nil {
		return models.User{}, fmt.Errorf("%w: nothing to update", models.ErrInvalidInput)
	}
	if update.DisplayName != nil {
		name := strings.TrimSpace(*update.DisplayName)
		if name == "" {
			return models.User{}, fmt.Errorf("%w: display name cannot be empty", models.ErrInvalidInput)
		}
		update.DisplayName = &name
	}
	return s.identity.UpdateUser(ctx, uid, update)
}

// Logout отзывает refresh-токены пользователя на всех устройствах.
func (s *Service) Logout(ctx context.Context, uid string) error {
	if err := s.identity.RevokeSessions(ctx, uid); err != nil {
		return err
	}
	s.logger.Info("User signed out", zap.String("uid", uid))
	return nil
}
