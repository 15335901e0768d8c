package auth

import (
	"context"
	"errors"
	"fmt"

	"kidzy-server/shared/models"

	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// Identity - операции провайдера идентификации, нужные серверу.
type Identity interface {
	VerifyIDToken(ctx context.Context, idToken string) (uid string, err error)
	GetUser(ctx context.Context, uid string) (models.User, error)
	CreateUser(ctx context.Context, email, password, displayName string) (models.User, error)
	UpdateUser(ctx context.Context, uid string, update ProfileUpdate) (models.User, error)
	RevokeSessions(ctx context.Context, uid string) error
}

// ProfileUpdate - изменяемые поля профиля. nil означает "не менять".
type ProfileUpdate struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoUrl"`
}

// FirebaseIdentity реализует Identity через Firebase Admin SDK.
type FirebaseIdentity struct {
	client *firebaseauth.Client
	// checkRevoked включает проверку отзыва токена (лишний запрос к Firebase на каждый вызов).
	checkRevoked bool
	logger       *zap.Logger
}

func NewFirebaseIdentity(client *firebaseauth.Client, checkRevoked bool, logger *zap.Logger) *FirebaseIdentity {
	return &FirebaseIdentity{client: client, checkRevoked: checkRevoked, logger: logger.Named("FirebaseIdentity")}
}

func (f *FirebaseIdentity) VerifyIDToken(ctx context.Context, idToken string) (string, error) {
	var (
		token *firebaseauth.Token
		err   error
	)
	if f.checkRevoked {
		token, err = f.client.VerifyIDTokenAndCheckRevoked(ctx, idToken)
	} else {
		token, err = f.client.VerifyIDToken(ctx, idToken)
	}
	if err != nil {
		return "", providerError(err)
	}
	return token.UID, nil
}

func (f *FirebaseIdentity) GetUser(ctx context.Context, uid string) (models.User, error) {
	record, err := f.client.GetUser(ctx, uid)
	if err != nil {
		return models.User{}, providerError(err)
	}
	return toUser(record), nil
}

func (f *FirebaseIdentity) CreateUser(ctx context.Context, email, password, displayName string) (models.User, error) {
	params := (&firebaseauth.UserToCreate{}).Email(email).Password(password)
	if displayName != "" {
		params = params.DisplayName(displayName)
	}
	record, err := f.client.CreateUser(ctx, params)
	if err != nil {
		return models.User{}, providerError(err)
	}
	f.logger.Info("User created", zap.String("uid", record.UID))
	return toUser(record), nil
}

func (f *FirebaseIdentity) UpdateUser(ctx context.Context, uid string, update ProfileUpdate) (models.User, error) {
	params := &firebaseauth.UserToUpdate{}
	if update.DisplayName != nil {
		params = params.DisplayName(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		params = params.PhotoURL(*update.PhotoURL)
	}
	record, err := f.client.UpdateUser(ctx, uid, params)
	if err != nil {
		return models.User{}, providerError(err)
	}
	return toUser(record), nil
}

func (f *FirebaseIdentity) RevokeSessions(ctx context.Context, uid string) error {
	if err := f.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return providerError(err)
	}
	return nil
}

func toUser(record *firebaseauth.UserRecord) models.User {
	return models.NewUser(record.UID, record.DisplayName, record.Email, record.PhotoURL)
}

// providerError переводит ошибки Firebase в коды провайдера и ошибки домена.
func providerError(err error) error {
	switch {
	case firebaseauth.IsEmailAlreadyExists(err):
		return &ProviderError{Code: CodeEmailAlreadyExists, Err: fmt.Errorf("%w: %v", models.ErrEmailAlreadyExists, err)}
	case firebaseauth.IsUserNotFound(err):
		return &ProviderError{Code: CodeUserNotFound, Err: fmt.Errorf("%w: %v", models.ErrUserNotFound, err)}
	case firebaseauth.IsIDTokenExpired(err):
		return &ProviderError{Code: CodeIDTokenExpired, Err: fmt.Errorf("%w: %v", models.ErrTokenExpired, err)}
	case firebaseauth.IsIDTokenRevoked(err), firebaseauth.IsUserDisabled(err):
		return &ProviderError{Code: CodeIDTokenRevoked, Err: fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)}
	case firebaseauth.IsIDTokenInvalid(err):
		return &ProviderError{Code: CodeInvalidIDToken, Err: fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)}
	}
	return err
}

// ProviderError - ошибка провайдера с его кодом.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	return e.Code + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProviderCode возвращает код провайдера из цепочки ошибок.
func ProviderCode(err error) (string, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}
