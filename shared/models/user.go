package models

import (
	"net/url"
	"strings"
)

// User - пользователь, отраженный из провайдера идентификации.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// FallbackUserName - имя, если ни displayName, ни email не заданы.
const FallbackUserName = "User"

// NewUser собирает User из полей провайдера, подставляя значения по умолчанию
// для пустого имени (часть email до "@") и пустого аватара (сгенерированный ui-avatars).
func NewUser(uid, displayName, email, photoURL string) User {
	name := displayName
	if name == "" {
		if local, _, found := strings.Cut(email, "@"); found && local != "" {
			name = local
		} else if email != "" && !strings.Contains(email, "@") {
			name = email
		} else {
			name = FallbackUserName
		}
	}
	avatar := photoURL
	if avatar == "" {
		avatar = "https://ui-avatars.com/api/?name=" + url.QueryEscape(email) + "&background=0ea5e9&color=fff"
	}
	return User{ID: uid, Name: name, Email: email, AvatarURL: avatar}
}
