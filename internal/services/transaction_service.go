// internal/services/transaction_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/database"
	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type TransactionService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type CreateTransactionRequest struct {
	Type        models.TransactionType `json:"type" validate:"required,oneof=LICENSE_FEE ROYALTY OTHER"`
	Amount      float64                `json:"amount" validate:"required,gt=0"`
	Currency    string                 `json:"currency,omitempty"`
	PayerID     *uuid.UUID             `json:"payer_id,omitempty"`
	LicenseID   *uuid.UUID             `json:"license_id,omitempty"`
	Description string                 `json:"description,omitempty"`
}

type TransactionSearchParams struct {
	utils.PaginationParams
	Status    *models.TransactionStatus
	Type      *models.TransactionType
	LicenseID *uuid.UUID
	PayerID   *uuid.UUID
}

type TransactionStats struct {
	Total          int64              `json:"total"`
	TotalAmount    float64            `json:"total_amount"`
	ByStatus       map[string]int64   `json:"by_status"`
	ByType         map[string]float64 `json:"by_type"`
	MonthlyRevenue []MonthlyRevenue   `json:"monthly_revenue"`
}

type MonthlyRevenue struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

func NewTransactionService(db *gorm.DB, notificationService *NotificationService) *TransactionService {
	return &TransactionService{
		db:                  db,
		notificationService: notificationService,
	}
}

// generateTxnCode builds TXN-<YYYYMMDD>-<seq>, where seq counts existing
// transactions created on the current day.
func (s *TransactionService) generateTxnCode(tx *gorm.DB) (string, error) {
	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var count int64
	if err := tx.Model(&models.Transaction{}).
		Where("created_at >= ? AND created_at < ?", dayStart, dayEnd).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count transactions: %w", err)
	}

	return fmt.Sprintf("TXN-%s-%04d", now.Format("20060102"), count+1), nil
}

// CreateTransaction records a new ledger entry. Every entry starts PENDING
// no matter what the caller supplies.
func (s *TransactionService) CreateTransaction(req *CreateTransactionRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if req.LicenseID != nil {
		var license models.License
		if err := s.db.First(&license, "id = ?", *req.LicenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("license %s: %w", *req.LicenseID, ErrNotFound)
			}
			return nil, fmt.Errorf("database error: %w", err)
		}
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	var txn *models.Transaction
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		code, err := s.generateTxnCode(tx)
		if err != nil {
			return err
		}

		txn = &models.Transaction{
			TxnCode:     code,
			Type:        req.Type,
			Amount:      req.Amount,
			Currency:    currency,
			PayerID:     req.PayerID,
			LicenseID:   req.LicenseID,
			Status:      models.TransactionStatusPending,
			Description: req.Description,
		}

		return tx.Create(txn).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return txn, nil
}

// CreateLicenseFee raises the entry-fee charge for a contract at the
// amount the caller quotes. The description is derived from the license
// code; the amount is not re-derived from EntryFee.
func (s *TransactionService) CreateLicenseFee(licenseID uuid.UUID, payerID *uuid.UUID, amount float64) (*models.Transaction, error) {
	var license models.License
	if err := s.db.First(&license, "id = ?", licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("license %s: %w", licenseID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s.CreateTransaction(&CreateTransactionRequest{
		Type:        models.TransactionTypeLicenseFee,
		Amount:      amount,
		PayerID:     payerID,
		LicenseID:   &licenseID,
		Description: fmt.Sprintf("授权费 - %s", license.LicenseCode),
	})
}

// CreateRoyalty raises a royalty charge. Amount and description both come
// from the caller; reconciliation against RoyaltyRate happens upstream.
func (s *TransactionService) CreateRoyalty(licenseID uuid.UUID, amount float64, description string) (*models.Transaction, error) {
	var license models.License
	if err := s.db.First(&license, "id = ?", licenseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("license %s: %w", licenseID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return s.CreateTransaction(&CreateTransactionRequest{
		Type:        models.TransactionTypeRoyalty,
		Amount:      amount,
		LicenseID:   &licenseID,
		Description: description,
	})
}

func (s *TransactionService) GetTransaction(id uuid.UUID) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.db.Preload("License").Preload("Payer").
		First(&txn, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &txn, nil
}

func (s *TransactionService) SearchTransactions(params TransactionSearchParams) ([]models.Transaction, int64, error) {
	query := s.db.Model(&models.Transaction{}).Preload("License")

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.LicenseID != nil {
		query = query.Where("license_id = ?", *params.LicenseID)
	}
	if params.PayerID != nil {
		query = query.Where("payer_id = ?", *params.PayerID)
	}
	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("txn_code LIKE ? OR description LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "amount", "status", "txn_code"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var txns []models.Transaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	return txns, total, nil
}

// CompletePayment settles a PENDING transaction. Settling anything else is
// a state violation, not a quiet no-op.
func (s *TransactionService) CompletePayment(id uuid.UUID, paymentMethod, paymentRef string) (*models.Transaction, error) {
	txn, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("%w: 只有待支付状态的交易可以完成支付", ErrInvalidState)
	}

	updates := map[string]interface{}{
		"status":         models.TransactionStatusCompleted,
		"payment_method": paymentMethod,
		"payment_ref":    paymentRef,
		"paid_at":        time.Now(),
	}

	if err := s.db.Model(txn).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to complete payment: %w", err)
	}

	completed, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}

	go s.notifyTransaction(completed, "completed")

	return completed, nil
}

// RefundTransaction reverses a COMPLETED settlement. The reason lands in
// its own column; the original description stays untouched.
func (s *TransactionService) RefundTransaction(id uuid.UUID, reason string) (*models.Transaction, error) {
	txn, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("%w: 只有已完成的交易可以退款", ErrInvalidState)
	}

	updates := map[string]interface{}{
		"status":        models.TransactionStatusRefunded,
		"refunded_at":   time.Now(),
		"refund_reason": reason,
	}

	if err := s.db.Model(txn).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to refund transaction: %w", err)
	}

	refunded, err := s.GetTransaction(id)
	if err != nil {
		return nil, err
	}

	go s.notifyTransaction(refunded, "refunded")

	return refunded, nil
}

// GetPendingSettlements lists unpaid fee and royalty entries, oldest first.
func (s *TransactionService) GetPendingSettlements() ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.db.Preload("License").
		Where("status = ?", models.TransactionStatusPending).
		Where("type IN ?", []models.TransactionType{
			models.TransactionTypeRoyalty,
			models.TransactionTypeLicenseFee,
		}).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pending settlements: %w", err)
	}

	return txns, nil
}

func (s *TransactionService) GetStats() (*TransactionStats, error) {
	stats := &TransactionStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]float64),
	}

	if err := s.db.Model(&models.Transaction{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalAmount).Error; err != nil {
		return nil, fmt.Errorf("failed to sum completed transactions: %w", err)
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.Model(&models.Transaction{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to group transactions by status: %w", err)
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	var typeAmounts []struct {
		Type   string
		Amount float64
	}
	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("type, COALESCE(SUM(amount), 0) as amount").
		Group("type").
		Scan(&typeAmounts).Error; err != nil {
		return nil, fmt.Errorf("failed to group transactions by type: %w", err)
	}
	for _, ta := range typeAmounts {
		stats.ByType[ta.Type] = ta.Amount
	}

	// Month bucketing has no portable SQL spelling; pick per dialect so the
	// sqlite-backed tests and prod postgres both work.
	monthExpr := "to_char(paid_at, 'YYYY-MM')"
	if s.db.Dialector.Name() == "sqlite" {
		monthExpr = "strftime('%Y-%m', paid_at)"
	}

	var monthly []MonthlyRevenue
	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select(monthExpr + " as month, COALESCE(SUM(amount), 0) as amount").
		Group("month").
		Order("month ASC").
		Scan(&monthly).Error; err != nil {
		return nil, fmt.Errorf("failed to compute monthly revenue: %w", err)
	}
	stats.MonthlyRevenue = monthly

	return stats, nil
}

func (s *TransactionService) notifyTransaction(txn *models.Transaction, event string) {
	if s.notificationService == nil || txn.PayerID == nil {
		return
	}
	if err := s.notificationService.SendTransactionNotification(*txn.PayerID, txn, event); err != nil {
		logrus.WithError(err).WithField("txn_id", txn.ID).
			Warn("Failed to send transaction notification")
	}
}
