package models

import "time"

// PurchaseType - что именно оплачивается.
type PurchaseType string

const (
	PurchaseTypeStory   PurchaseType = "STORY"
	PurchaseTypeGallery PurchaseType = "GALLERY"
)

// Valid проверяет, что тип покупки известен.
func (t PurchaseType) Valid() bool {
	return t == PurchaseTypeStory || t == PurchaseTypeGallery
}

// TransactionStatus - итог платежа.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "PENDING"
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// CanTransitionTo сообщает, можно ли перевести транзакцию в next. SUCCESS конечен;
// FAILED может смениться на SUCCESS, когда пользователь повторил оплату того же заказа.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	switch s {
	case TransactionStatusPending:
		return next == TransactionStatusSuccess || next == TransactionStatusFailed
	case TransactionStatusFailed:
		return next == TransactionStatusSuccess
	}
	return false
}

// Transaction - запись о платеже. Сумма хранится в рупиях, как показывается пользователю.
type Transaction struct {
	ID        string            `json:"id" firestore:"-" db:"id"`
	UserID    string            `json:"userId" firestore:"userId" db:"user_id"`
	Amount    int64             `json:"amount" firestore:"amount" db:"amount"`
	ItemID    string            `json:"itemId" firestore:"itemId" db:"item_id"`
	Type      PurchaseType      `json:"type" firestore:"type" db:"type"`
	Status    TransactionStatus `json:"status" firestore:"status" db:"status"`
	OrderID   string            `json:"orderId,omitempty" firestore:"orderId,omitempty" db:"order_id"`
	PaymentID string            `json:"paymentId,omitempty" firestore:"paymentId,omitempty" db:"payment_id"`
	CreatedAt time.Time         `json:"createdAt" firestore:"createdAt" db:"created_at"`
}
