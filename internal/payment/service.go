package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kidzy-server/shared/constants"
	"kidzy-server/shared/interfaces"
	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// StorySessions - книги, которые можно купить.
type StorySessions interface {
	Get(ctx context.Context, userID, sessionID string) (*models.StorySession, error)
	MarkPurchased(ctx context.Context, sessionID string) (*models.StorySession, error)
}

// GallerySessions - фотосессии, которые можно разблокировать.
type GallerySessions interface {
	Get(ctx context.Context, userID, sessionID string) (*models.GallerySession, error)
	Unlock(ctx context.Context, sessionID string) (*models.GallerySession, error)
}

// Order - данные для открытия окна оплаты на клиенте.
type Order struct {
	OrderID     string              `json:"orderId"`
	KeyID       string              `json:"keyId"`
	Amount      int64               `json:"amount"`
	Currency    string              `json:"currency"`
	Description string              `json:"description"`
	Type        models.PurchaseType `json:"type"`
	ItemID      string              `json:"itemId"`
}

// Service проводит покупки книг и фотосессий. Успех платежа обрабатывается
// ровно один раз, сколько бы раз ни пришло подтверждение.
type Service struct {
	gateway      Gateway
	transactions interfaces.TransactionRepository
	stories      StorySessions
	galleries    GallerySessions
	notifier     messaging.ClientUpdatePublisher
	currency     string
	logger       *zap.Logger
}

func NewService(
	gateway Gateway,
	transactions interfaces.TransactionRepository,
	stories StorySessions,
	galleries GallerySessions,
	notifier messaging.ClientUpdatePublisher,
	currency string,
	logger *zap.Logger,
) *Service {
	return &Service{
		gateway:      gateway,
		transactions: transactions,
		stories:      stories,
		galleries:    galleries,
		notifier:     notifier,
		currency:     currency,
		logger:       logger.Named("PaymentService"),
	}
}

// CreateOrder создает заказ у провайдера и транзакцию в статусе PENDING.
func (s *Service) CreateOrder(ctx context.Context, userID string, purchaseType models.PurchaseType, itemID string) (*Order, error) {
	offer, ok := models.PurchaseOffers[purchaseType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown purchase type %q", models.ErrInvalidInput, purchaseType)
	}
	log := s.logger.With(zap.String("userID", userID), zap.String("type", string(purchaseType)), zap.String("itemID", itemID))

	if err := s.checkPurchasable(ctx, userID, purchaseType, itemID); err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("%s_%d", itemID, time.Now().Unix())
	if len(receipt) > 40 {
		receipt = receipt[len(receipt)-40:]
	}
	orderID, err := s.gateway.CreateOrder(ctx, offer.AmountINR*100, s.currency, receipt, map[string]string{
		"user_id": userID,
		"type":    string(purchaseType),
		"item_id": itemID,
	})
	if err != nil {
		return nil, err
	}

	tx := &models.Transaction{
		UserID:    userID,
		Amount:    offer.AmountINR,
		ItemID:    itemID,
		Type:      purchaseType,
		Status:    models.TransactionStatusPending,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.transactions.Create(ctx, tx); err != nil {
		log.Error("Failed to record pending transaction", zap.String("orderID", orderID), zap.Error(err))
		return nil, err
	}
	log.Info("Payment order created", zap.String("orderID", orderID), zap.Int64("amount", offer.AmountINR))

	return &Order{
		OrderID:     orderID,
		KeyID:       s.gateway.KeyID(),
		Amount:      offer.AmountINR * 100,
		Currency:    s.currency,
		Description: offer.Description,
		Type:        purchaseType,
		ItemID:      itemID,
	}, nil
}

func (s *Service) checkPurchasable(ctx context.Context, userID string, purchaseType models.PurchaseType, itemID string) error {
	switch purchaseType {
	case models.PurchaseTypeStory:
		sess, err := s.stories.Get(ctx, userID, itemID)
		if err != nil {
			return err
		}
		if sess.IsPurchased {
			return fmt.Errorf("%w: story already purchased", models.ErrBadRequest)
		}
	case models.PurchaseTypeGallery:
		sess, err := s.galleries.Get(ctx, userID, itemID)
		if err != nil {
			return err
		}
		if sess.Unlocked {
			return fmt.Errorf("%w: gallery already unlocked", models.ErrBadRequest)
		}
	}
	return nil
}

// Confirm обрабатывает подтверждение из окна оплаты.
func (s *Service) Confirm(ctx context.Context, userID, orderID, paymentID, signature string) (*models.Transaction, error) {
	tx, err := s.transactions.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, models.ErrForbidden
	}
	if !s.gateway.VerifyPayment(orderID, paymentID, signature) {
		s.logger.Warn("Payment signature mismatch", zap.String("orderID", orderID), zap.String("paymentID", paymentID))
		if err := s.fail(ctx, tx, paymentID, "signature verification failed"); err != nil {
			return nil, err
		}
		return nil, models.ErrInvalidSignature
	}
	return s.complete(ctx, tx, paymentID)
}

// Fail фиксирует неудачный платеж, о котором сообщил клиент.
func (s *Service) Fail(ctx context.Context, userID, orderID, paymentID, reason string) (*models.Transaction, error) {
	tx, err := s.transactions.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != userID {
		return nil, models.ErrForbidden
	}
	if err := s.fail(ctx, tx, paymentID, reason); err != nil {
		return nil, err
	}
	return s.transactions.GetByOrderID(ctx, orderID)
}

// HandleWebhook обрабатывает событие Razorpay. Неизвестные события игнорируются.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhook(body, signature) {
		return models.ErrInvalidSignature
	}
	event := gjson.GetBytes(body, "event").String()
	orderID := gjson.GetBytes(body, "payload.payment.entity.order_id").String()
	paymentID := gjson.GetBytes(body, "payload.payment.entity.id").String()
	if orderID == "" {
		orderID = gjson.GetBytes(body, "payload.order.entity.id").String()
	}
	log := s.logger.With(zap.String("event", event), zap.String("orderID", orderID))

	switch event {
	case "payment.captured", "order.paid", "payment.failed":
	default:
		log.Debug("Ignoring webhook event")
		return nil
	}
	if orderID == "" {
		return fmt.Errorf("%w: webhook without order id", models.ErrBadRequest)
	}

	tx, err := s.transactions.GetByOrderID(ctx, orderID)
	if errors.Is(err, models.ErrNotFound) {
		// Заказ создан не этим сервисом
		log.Warn("Webhook for unknown order")
		return nil
	}
	if err != nil {
		return err
	}

	if event == "payment.failed" {
		reason := gjson.GetBytes(body, "payload.payment.entity.error_description").String()
		return s.fail(ctx, tx, paymentID, reason)
	}
	_, err = s.complete(ctx, tx, paymentID)
	return err
}

// History - транзакции пользователя, новые первыми.
func (s *Service) History(ctx context.Context, userID string) ([]models.Transaction, error) {
	return s.transactions.ListByUser(ctx, userID)
}

// complete выдает покупку и переводит транзакцию в SUCCESS. Выдача идемпотентна,
// поэтому выполняется до смены статуса: при сбое повторное подтверждение ее довершит.
func (s *Service) complete(ctx context.Context, tx *models.Transaction, paymentID string) (*models.Transaction, error) {
	log := s.logger.With(zap.String("orderID", tx.OrderID), zap.String("type", string(tx.Type)), zap.String("itemID", tx.ItemID))

	if tx.Status == models.TransactionStatusSuccess {
		return tx, nil
	}
	if err := s.fulfil(ctx, tx); err != nil {
		if !errors.Is(err, models.ErrSessionNotFound) {
			log.Error("Failed to fulfil purchase", zap.Error(err))
			return nil, err
		}
		log.Warn("Session expired before purchase was fulfilled", zap.Error(err))
	}

	updated, err := s.transactions.CompleteOrder(ctx, tx.OrderID, models.TransactionStatusSuccess, paymentID)
	if err != nil {
		return nil, err
	}
	if updated {
		paymentsTotal.WithLabelValues(string(tx.Type), string(models.TransactionStatusSuccess)).Inc()
		log.Info("Payment completed", zap.String("paymentID", paymentID))
	} else {
		log.Info("Payment already processed", zap.String("paymentID", paymentID))
	}
	return s.transactions.GetByOrderID(ctx, tx.OrderID)
}

func (s *Service) fulfil(ctx context.Context, tx *models.Transaction) error {
	switch tx.Type {
	case models.PurchaseTypeStory:
		_, err := s.stories.MarkPurchased(ctx, tx.ItemID)
		return err
	case models.PurchaseTypeGallery:
		_, err := s.galleries.Unlock(ctx, tx.ItemID)
		return err
	}
	return fmt.Errorf("%w: unknown purchase type %q", models.ErrInvalidInput, tx.Type)
}

func (s *Service) fail(ctx context.Context, tx *models.Transaction, paymentID, reason string) error {
	updated, err := s.transactions.CompleteOrder(ctx, tx.OrderID, models.TransactionStatusFailed, paymentID)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}
	paymentsTotal.WithLabelValues(string(tx.Type), string(models.TransactionStatusFailed)).Inc()
	s.logger.Warn("Payment failed", zap.String("orderID", tx.OrderID), zap.String("reason", reason))
	update := models.ClientUpdate{UserID: tx.UserID, SessionID: tx.ItemID, Event: constants.WSEventPaymentFailed, Error: reason}
	if err := s.notifier.PublishClientUpdate(ctx, update); err != nil {
		s.logger.Warn("Failed to publish client update", zap.String("event", update.Event), zap.Error(err))
	}
	return nil
}
