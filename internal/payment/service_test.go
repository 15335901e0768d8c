package payment_test

import (
	"context"
	"sync"
	"testing"

	"kidzy-server/internal/mocks"
	"kidzy-server/internal/payment"
	"kidzy-server/shared/constants"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

const (
	userID  = "user-1"
	orderID = "order_123"
	payID   = "pay_456"
	sig     = "signature"
)

type PaymentServiceSuite struct {
	suite.Suite
	ctx       context.Context
	gateway   *mocks.MockGateway
	txs       *mocks.MockTransactionRepository
	stories   *mocks.MockStorySessions
	galleries *mocks.MockGallerySessions
	notifier  *mocks.RecordingNotifier
	svc       *payment.Service
}

func (s *PaymentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.gateway = &mocks.MockGateway{}
	s.txs = &mocks.MockTransactionRepository{}
	s.stories = &mocks.MockStorySessions{}
	s.galleries = &mocks.MockGallerySessions{}
	s.notifier = &mocks.RecordingNotifier{}
	s.gateway.Test(s.T())
	s.txs.Test(s.T())
	s.stories.Test(s.T())
	s.galleries.Test(s.T())
	s.svc = payment.NewService(s.gateway, s.txs, s.stories, s.galleries, s.notifier, "INR", zap.NewNop())
}

func (s *PaymentServiceSuite) TearDownTest() {
	s.gateway.AssertExpectations(s.T())
	s.txs.AssertExpectations(s.T())
	s.stories.AssertExpectations(s.T())
	s.galleries.AssertExpectations(s.T())
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func pending(purchaseType models.PurchaseType) *models.Transaction {
	return &models.Transaction{
		ID: "tx-1", UserID: userID, Amount: 99, ItemID: "sess-1",
		Type: purchaseType, Status: models.TransactionStatusPending, OrderID: orderID,
	}
}

func (s *PaymentServiceSuite) TestCreateOrder_StoryInPaise() {
	s.stories.On("Get", s.ctx, userID, "sess-1").Return(&models.StorySession{ID: "sess-1", UserID: userID}, nil).Once()
	s.gateway.On("CreateOrder", s.ctx, int64(9900), "INR", mock.AnythingOfType("string"), mock.Anything).Return(orderID, nil).Once()
	s.txs.On("Create", s.ctx, mock.MatchedBy(func(tx *models.Transaction) bool {
		return tx.Status == models.TransactionStatusPending && tx.Amount == 99 && tx.ItemID == "sess-1" && tx.OrderID == orderID
	})).Return("tx-1", nil).Once()

	order, err := s.svc.CreateOrder(s.ctx, userID, models.PurchaseTypeStory, "sess-1")
	s.Require().NoError(err)
	s.Equal(orderID, order.OrderID)
	s.Equal(int64(9900), order.Amount)
	s.Equal("rzp_test_key", order.KeyID)
}

func (s *PaymentServiceSuite) TestCreateOrder_AlreadyPurchased() {
	s.galleries.On("Get", s.ctx, userID, "sess-1").Return(&models.GallerySession{ID: "sess-1", Unlocked: true}, nil).Once()

	_, err := s.svc.CreateOrder(s.ctx, userID, models.PurchaseTypeGallery, "sess-1")
	s.ErrorIs(err, models.ErrBadRequest)
}

func (s *PaymentServiceSuite) TestCreateOrder_UnknownType() {
	_, err := s.svc.CreateOrder(s.ctx, userID, "BOOK", "sess-1")
	s.ErrorIs(err, models.ErrInvalidInput)
}

func (s *PaymentServiceSuite) TestConfirm_StoryMarksPurchased() {
	done := pending(models.PurchaseTypeStory)
	done.Status = models.TransactionStatusSuccess
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(pending(models.PurchaseTypeStory), nil).Once()
	s.gateway.On("VerifyPayment", orderID, payID, sig).Return(true).Once()
	s.stories.On("MarkPurchased", s.ctx, "sess-1").Return(&models.StorySession{IsPurchased: true}, nil).Once()
	s.txs.On("CompleteOrder", s.ctx, orderID, models.TransactionStatusSuccess, payID).Return(true, nil).Once()
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(done, nil).Once()

	tx, err := s.svc.Confirm(s.ctx, userID, orderID, payID, sig)
	s.Require().NoError(err)
	s.Equal(models.TransactionStatusSuccess, tx.Status)
}

func (s *PaymentServiceSuite) TestConfirm_AlreadySucceededIsNoop() {
	done := pending(models.PurchaseTypeGallery)
	done.Status = models.TransactionStatusSuccess
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(done, nil).Once()
	s.gateway.On("VerifyPayment", orderID, payID, sig).Return(true).Once()

	tx, err := s.svc.Confirm(s.ctx, userID, orderID, payID, sig)
	s.Require().NoError(err)
	s.Equal(models.TransactionStatusSuccess, tx.Status)
	s.galleries.AssertNotCalled(s.T(), "Unlock", mock.Anything, mock.Anything)
}

func (s *PaymentServiceSuite) TestConfirm_BadSignatureRecordsFailure() {
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(pending(models.PurchaseTypeStory), nil).Once()
	s.gateway.On("VerifyPayment", orderID, payID, "forged").Return(false).Once()
	s.txs.On("CompleteOrder", s.ctx, orderID, models.TransactionStatusFailed, payID).Return(true, nil).Once()

	_, err := s.svc.Confirm(s.ctx, userID, orderID, payID, "forged")
	s.ErrorIs(err, models.ErrInvalidSignature)
	s.Equal([]string{constants.WSEventPaymentFailed}, s.notifier.Events())
	s.stories.AssertNotCalled(s.T(), "MarkPurchased", mock.Anything, mock.Anything)
}

func (s *PaymentServiceSuite) TestConfirm_OtherUser() {
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(pending(models.PurchaseTypeStory), nil).Once()

	_, err := s.svc.Confirm(s.ctx, "intruder", orderID, payID, sig)
	s.ErrorIs(err, models.ErrForbidden)
}

func (s *PaymentServiceSuite) TestWebhook_CapturedUnlocksGallery() {
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_456","order_id":"order_123"}}}}`)
	s.gateway.On("VerifyWebhook", body, sig).Return(true).Once()
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(pending(models.PurchaseTypeGallery), nil).Twice()
	s.galleries.On("Unlock", s.ctx, "sess-1").Return(&models.GallerySession{Unlocked: true}, nil).Once()
	s.txs.On("CompleteOrder", s.ctx, orderID, models.TransactionStatusSuccess, payID).Return(true, nil).Once()

	s.NoError(s.svc.HandleWebhook(s.ctx, body, sig))
}

func (s *PaymentServiceSuite) TestWebhook_IgnoresUnknownEvents() {
	body := []byte(`{"event":"refund.created"}`)
	s.gateway.On("VerifyWebhook", body, sig).Return(true).Once()

	s.NoError(s.svc.HandleWebhook(s.ctx, body, sig))
}

func (s *PaymentServiceSuite) TestWebhook_InvalidSignature() {
	body := []byte(`{"event":"payment.captured"}`)
	s.gateway.On("VerifyWebhook", body, "bad").Return(false).Once()

	s.ErrorIs(s.svc.HandleWebhook(s.ctx, body, "bad"), models.ErrInvalidSignature)
}

func (s *PaymentServiceSuite) TestWebhook_FailedPayment() {
	body := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_456","order_id":"order_123","error_description":"card declined"}}}}`)
	s.gateway.On("VerifyWebhook", body, sig).Return(true).Once()
	s.txs.On("GetByOrderID", s.ctx, orderID).Return(pending(models.PurchaseTypeStory), nil).Once()
	s.txs.On("CompleteOrder", s.ctx, orderID, models.TransactionStatusFailed, payID).Return(true, nil).Once()

	s.NoError(s.svc.HandleWebhook(s.ctx, body, sig))
	s.Require().Len(s.notifier.Updates, 1)
	s.Equal("card declined", s.notifier.Updates[0].Error)
}

// memoryTransactions хранит транзакции в памяти с теми же правилами переходов, что и репозитории.
type memoryTransactions struct {
	mu  sync.Mutex
	txs map[string]models.Transaction
}

func (m *memoryTransactions) Create(_ context.Context, tx *models.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs[tx.OrderID] = *tx
	return tx.OrderID, nil
}

func (m *memoryTransactions) GetByOrderID(_ context.Context, orderID string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &tx, nil
}

func (m *memoryTransactions) CompleteOrder(_ context.Context, orderID string, status models.TransactionStatus, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.txs[orderID]
	if !ok || !tx.Status.CanTransitionTo(status) {
		return false, nil
	}
	tx.Status = status
	tx.PaymentID = paymentID
	m.txs[orderID] = tx
	return true, nil
}

func (m *memoryTransactions) ListByUser(_ context.Context, userID string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Transaction
	for _, tx := range m.txs {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func TestConfirm_AfterDeclinedAttemptRecordsSuccess(t *testing.T) {
	ctx := context.Background()
	txs := &memoryTransactions{txs: map[string]models.Transaction{orderID: *pending(models.PurchaseTypeGallery)}}
	gateway := &mocks.MockGateway{}
	galleries := &mocks.MockGallerySessions{}
	gateway.Test(t)
	galleries.Test(t)
	gateway.On("VerifyPayment", orderID, "pay_ok", sig).Return(true).Once()
	galleries.On("Unlock", ctx, "sess-1").Return(&models.GallerySession{Unlocked: true}, nil).Once()

	svc := payment.NewService(gateway, txs, &mocks.MockStorySessions{}, galleries, &mocks.RecordingNotifier{}, "INR", zap.NewNop())

	failed, err := svc.Fail(ctx, userID, orderID, "pay_declined", "card declined")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusFailed, failed.Status)

	tx, err := svc.Confirm(ctx, userID, orderID, "pay_ok", sig)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusSuccess, tx.Status)
	assert.Equal(t, "pay_ok", tx.PaymentID)

	history, err := svc.History(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.TransactionStatusSuccess, history[0].Status)

	gateway.AssertExpectations(t)
	galleries.AssertExpectations(t)
}
