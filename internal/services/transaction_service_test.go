// internal/services/transaction_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

func TestCreateTransactionCodeSequence(t *testing.T) {
	db := newTestDB(t)
	svc := NewTransactionService(db, nil)

	day := time.Now().Format("20060102")
	for i := 1; i <= 3; i++ {
		txn, err := svc.CreateTransaction(&CreateTransactionRequest{
			Type:   models.TransactionTypeOther,
			Amount: 100,
		})
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("TXN-%s-%04d", day, i), txn.TxnCode)
		assert.Equal(t, models.TransactionStatusPending, txn.Status)
		assert.Equal(t, "CNY", txn.Currency)
	}
}

func TestCreateLicenseFeeFromContract(t *testing.T) {
	db := newTestDB(t)
	licenseSvc := NewLicenseService(db, nil)
	svc := NewTransactionService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, licenseSvc, merchant, asset)

	txn, err := svc.CreateLicenseFee(license.ID, &merchant.ID, 48000)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeLicenseFee, txn.Type)
	assert.InDelta(t, 48000, txn.Amount, 0.001)
	assert.Equal(t, fmt.Sprintf("授权费 - %s", license.LicenseCode), txn.Description)
	require.NotNil(t, txn.LicenseID)
	assert.Equal(t, license.ID, *txn.LicenseID)

	// Unknown contracts are a lookup failure, not a silent zero-fee entry.
	_, err = svc.CreateLicenseFee(uuid.New(), &merchant.ID, 48000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRoyaltyUsesCallerAmount(t *testing.T) {
	db := newTestDB(t)
	licenseSvc := NewLicenseService(db, nil)
	svc := NewTransactionService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, licenseSvc, merchant, asset)

	// The caller settles the amount; no re-derivation from RoyaltyRate.
	txn, err := svc.CreateRoyalty(license.ID, 8000, "2026 Q3 版税结算")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeRoyalty, txn.Type)
	assert.InDelta(t, 8000, txn.Amount, 0.001)
	assert.Equal(t, "2026 Q3 版税结算", txn.Description)

	_, err = svc.CreateRoyalty(uuid.New(), 8000, "结算")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompletePaymentGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewTransactionService(db, nil)

	txn, err := svc.CreateTransaction(&CreateTransactionRequest{
		Type:   models.TransactionTypeOther,
		Amount: 500,
	})
	require.NoError(t, err)

	completed, err := svc.CompletePayment(txn.ID, "bank_transfer", "BT-20260901-001")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusCompleted, completed.Status)
	assert.Equal(t, "bank_transfer", completed.PaymentMethod)
	assert.Equal(t, "BT-20260901-001", completed.PaymentRef)
	require.NotNil(t, completed.PaidAt)

	// Completing twice is a state violation.
	_, err = svc.CompletePayment(txn.ID, "bank_transfer", "BT-20260901-002")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRefundGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewTransactionService(db, nil)

	txn, err := svc.CreateTransaction(&CreateTransactionRequest{
		Type:   models.TransactionTypeOther,
		Amount: 500,
	})
	require.NoError(t, err)

	// Pending entries cannot be refunded.
	_, err = svc.RefundTransaction(txn.ID, "重复支付")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.CompletePayment(txn.ID, "stripe", "pi_123")
	require.NoError(t, err)

	refunded, err := svc.RefundTransaction(txn.ID, "重复支付")
	require.NoError(t, err)
	assert.Equal(t, models.TransactionStatusRefunded, refunded.Status)
	assert.Equal(t, "重复支付", refunded.RefundReason)
	require.NotNil(t, refunded.RefundedAt)

	// The refund never rewrites the original description.
	assert.Equal(t, txn.Description, refunded.Description)

	// Refunding twice is a state violation.
	_, err = svc.RefundTransaction(txn.ID, "再次退款")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetPendingSettlements(t *testing.T) {
	db := newTestDB(t)
	licenseSvc := NewLicenseService(db, nil)
	svc := NewTransactionService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, licenseSvc, merchant, asset)

	fee, err := svc.CreateLicenseFee(license.ID, &merchant.ID, 48000)
	require.NoError(t, err)

	royalty, err := svc.CreateRoyalty(license.ID, 4000, "版税结算")
	require.NoError(t, err)

	// OTHER entries and completed entries never appear in settlements.
	_, err = svc.CreateTransaction(&CreateTransactionRequest{
		Type:   models.TransactionTypeOther,
		Amount: 100,
	})
	require.NoError(t, err)

	_, err = svc.CompletePayment(fee.ID, "stripe", "pi_settled")
	require.NoError(t, err)

	pending, err := svc.GetPendingSettlements()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, royalty.ID, pending[0].ID)
}

func TestTransactionStats(t *testing.T) {
	db := newTestDB(t)
	svc := NewTransactionService(db, nil)

	first, err := svc.CreateTransaction(&CreateTransactionRequest{
		Type:   models.TransactionTypeOther,
		Amount: 300,
	})
	require.NoError(t, err)
	_, err = svc.CompletePayment(first.ID, "stripe", "pi_1")
	require.NoError(t, err)

	_, err = svc.CreateTransaction(&CreateTransactionRequest{
		Type:   models.TransactionTypeOther,
		Amount: 700,
	})
	require.NoError(t, err)

	stats, err := svc.GetStats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.InDelta(t, 300, stats.TotalAmount, 0.001)
	assert.Equal(t, int64(1), stats.ByStatus[string(models.TransactionStatusPending)])
	assert.Equal(t, int64(1), stats.ByStatus[string(models.TransactionStatusCompleted)])
	require.Len(t, stats.MonthlyRevenue, 1)
	assert.InDelta(t, 300, stats.MonthlyRevenue[0].Amount, 0.001)
}
