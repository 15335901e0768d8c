package auth

// Коды ошибок провайдера идентификации.
const (
	CodeEmailAlreadyExists = "auth/email-already-exists"
	CodeUserNotFound       = "auth/user-not-found"
	CodeIDTokenExpired     = "auth/id-token-expired"
	CodeIDTokenRevoked     = "auth/id-token-revoked"
	CodeInvalidIDToken     = "auth/invalid-id-token"
	CodeInvalidPassword    = "auth/invalid-password"
	CodeInvalidEmail       = "auth/invalid-email"
	// Коды браузерного SDK
	CodeUnauthorizedDomain = "auth/unauthorized-domain"
	CodePopupClosedByUser  = "auth/popup-closed-by-user"
	CodeWrongPassword      = "auth/wrong-password"
	CodeInvalidCredential  = "auth/invalid-credential"
)

var providerMessages = map[string]string{
	CodeEmailAlreadyExists: "An account with this email already exists.",
	CodeUserNotFound:       "No account found for this email.",
	CodeIDTokenExpired:     "Your session has expired. Please sign in again.",
	CodeIDTokenRevoked:     "You have been signed out. Please sign in again.",
	CodeInvalidIDToken:     "Authentication failed. Please sign in again.",
	CodeInvalidPassword:    "Password must be at least 6 characters.",
	CodeInvalidEmail:       "Please enter a valid email address.",
	CodeUnauthorizedDomain: "This domain is not authorized for sign-in. Add it to the authorized domains list in the Firebase console (Authentication > Settings).",
	CodeWrongPassword:      "Incorrect email or password.",
	CodeInvalidCredential:  "Incorrect email or password.",
}

const genericAuthMessage = "Authentication failed. Please try again."

// ProviderMessage возвращает сообщение для пользователя по коду ошибки провайдера.
// ignore=true означает, что ошибку не нужно показывать (пользователь сам закрыл окно входа).
func ProviderMessage(code string) (message string, ignore bool) {
	if code == CodePopupClosedByUser {
		return "", true
	}
	if msg, ok := providerMessages[code]; ok {
		return msg, false
	}
	return genericAuthMessage, false
}
