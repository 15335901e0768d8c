package gallery

import (
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/models"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const ticketIssuer = "kidzy-server"

// TicketClaims - содержимое ссылки на скачивание одного снимка.
type TicketClaims struct {
	UserID    string `json:"uid"`
	SessionID string `json:"sid"`
	ItemID    string `json:"iid"`
	jwt.RegisteredClaims
}

// Tickets выпускает и проверяет короткоживущие подписанные ссылки на скачивание.
type Tickets struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

func NewTickets(secret string, ttl time.Duration, logger *zap.Logger) (*Tickets, error) {
	if secret == "" {
		return nil, errors.New("download ticket secret cannot be empty")
	}
	return &Tickets{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger.Named("DownloadTickets"),
		now:    time.Now,
	}, nil
}

// Issue подписывает тикет на элемент галереи.
func (t *Tickets) Issue(userID, sessionID, itemID string) (string, time.Time, error) {
	now := t.now()
	expires := now.Add(t.ttl)
	claims := &TicketClaims{
		UserID:    userID,
		SessionID: sessionID,
		ItemID:    itemID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    ticketIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign download ticket: %w", err)
	}
	return signed, expires, nil
}

// Verify проверяет подпись и срок действия тикета.
func (t *Tickets) Verify(token string) (*TicketClaims, error) {
	claims := &TicketClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithIssuer(ticketIssuer), jwt.WithTimeFunc(t.now))
	if err != nil {
		t.logger.Debug("Download ticket rejected", zap.Error(err))
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", models.ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.SessionID == "" || claims.ItemID == "" {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}
