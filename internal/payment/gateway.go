package payment

import (
	"context"
	"errors"
	"fmt"

	"kidzy-server/shared/models"

	razorpay "github.com/razorpay/razorpay-go"
	rzputils "github.com/razorpay/razorpay-go/utils"
	"go.uber.org/zap"
)

// Gateway - платежный провайдер.
type Gateway interface {
	// CreateOrder создает заказ на сумму в минимальных единицах валюты и возвращает его ID.
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error)
	VerifyPayment(orderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
	KeyID() string
}

// RazorpayGateway реализует Gateway поверх razorpay-go.
type RazorpayGateway struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
	logger        *zap.Logger
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string, logger *zap.Logger) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("razorpay key id and secret are required")
	}
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logger.Named("RazorpayGateway"),
	}, nil
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}
	// SDK не принимает context, поэтому проверяем отмену до запроса
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		g.logger.Error("Razorpay order creation failed", zap.String("receipt", receipt), zap.Error(err))
		return "", fmt.Errorf("%w: %v", models.ErrPaymentFailed, err)
	}
	orderID, _ := body["id"].(string)
	if orderID == "" {
		return "", fmt.Errorf("%w: order id missing in response", models.ErrPaymentFailed)
	}
	return orderID, nil
}

func (g *RazorpayGateway) VerifyPayment(orderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": paymentID,
	}
	return rzputils.VerifyPaymentSignature(params, signature, g.keySecret)
}

func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) bool {
	if g.webhookSecret == "" {
		g.logger.Warn("Webhook received but RAZORPAY_WEBHOOK_SECRET is not set")
		return false
	}
	return rzputils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}
