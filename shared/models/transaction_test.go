package models_test

import (
	"testing"

	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
)

func TestTransactionStatus_CanTransitionTo(t *testing.T) {
	testCases := []struct {
		from, to models.TransactionStatus
		want     bool
	}{
		{models.TransactionStatusPending, models.TransactionStatusSuccess, true},
		{models.TransactionStatusPending, models.TransactionStatusFailed, true},
		{models.TransactionStatusFailed, models.TransactionStatusSuccess, true},
		{models.TransactionStatusFailed, models.TransactionStatusFailed, false},
		{models.TransactionStatusSuccess, models.TransactionStatusFailed, false},
		{models.TransactionStatusSuccess, models.TransactionStatusSuccess, false},
		{models.TransactionStatusPending, models.TransactionStatusPending, false},
	}
	for _, tc := range testCases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}
