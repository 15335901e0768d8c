package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound         = errors.New("resource not found")
	ErrStoryNotFound    = errors.New("story not found")
	ErrSessionNotFound  = errors.New("session not found or expired")
	ErrPageNotFound     = errors.New("page not found")
	ErrDocumentTooLarge = errors.New("document exceeds the storage size limit")

	// User & Authentication Errors
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("user with this email already exists")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Token Errors
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")

	// Generation Errors
	ErrGenerationInProgress = errors.New("generation is already in progress for this session")
	ErrPhotoRequired        = errors.New("photo required")
	ErrAvatarFailed         = errors.New("avatar generation failed: both primary and fallback methods failed")
	ErrVariationFailed      = errors.New("image variation failed: both primary and fallback methods failed")
	ErrPageGenerationFailed = errors.New("page image generation failed")
	ErrColorGuideFailed     = errors.New("color guide generation failed")
	ErrOutlineFailed        = errors.New("story outline generation failed")
	ErrCoverNotEditable     = errors.New("cover page cannot be regenerated")

	// Payment Errors
	ErrPurchaseRequired = errors.New("purchase required")
	ErrLocked           = errors.New("content is locked until payment")
	ErrPaymentFailed    = errors.New("payment failed")
	ErrInvalidSignature = errors.New("payment signature is invalid")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)
