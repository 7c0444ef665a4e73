// internal/services/license_service.go
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

type LicenseService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

type CreateLicenseRequest struct {
	AssetID         uuid.UUID          `json:"asset_id" validate:"required"`
	LicenseeName    string             `json:"licensee_name" validate:"required,min=1,max=255"`
	LicenseeContact string             `json:"licensee_contact,omitempty"`
	LicenseeEmail   string             `json:"licensee_email,omitempty" validate:"omitempty,email"`
	LicenseType     models.LicenseType `json:"license_type" validate:"required,oneof=STANDARD EXCLUSIVE CO_BRAND"`
	EntryFee        float64            `json:"entry_fee" validate:"min=0"`
	RoyaltyRate     float64            `json:"royalty_rate" validate:"min=0,max=1"`
	MinGuarantee    float64            `json:"min_guarantee" validate:"min=0"`
	Territory       string             `json:"territory,omitempty"`
	UsageField      string             `json:"usage_field,omitempty"`
	UsageLimit      int                `json:"usage_limit,omitempty"`
	ExpiryDate      *time.Time         `json:"expiry_date,omitempty"`
	ContractURL     string             `json:"contract_url,omitempty"`
}

type UpdateLicenseRequest struct {
	LicenseeName    string     `json:"licensee_name,omitempty" validate:"omitempty,max=255"`
	LicenseeContact string     `json:"licensee_contact,omitempty"`
	LicenseeEmail   string     `json:"licensee_email,omitempty" validate:"omitempty,email"`
	EntryFee        *float64   `json:"entry_fee,omitempty" validate:"omitempty,min=0"`
	RoyaltyRate     *float64   `json:"royalty_rate,omitempty" validate:"omitempty,min=0,max=1"`
	MinGuarantee    *float64   `json:"min_guarantee,omitempty" validate:"omitempty,min=0"`
	Territory       string     `json:"territory,omitempty"`
	UsageField      string     `json:"usage_field,omitempty"`
	UsageLimit      *int       `json:"usage_limit,omitempty"`
	ExpiryDate      *time.Time `json:"expiry_date,omitempty"`
	ContractURL     string     `json:"contract_url,omitempty"`
}

type LicenseSearchParams struct {
	utils.PaginationParams
	Status  *models.LicenseStatus
	Type    *models.LicenseType
	AssetID *uuid.UUID
}

type LicenseStats struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	ByType       map[string]int64 `json:"by_type"`
	TotalRevenue float64          `json:"total_revenue"`
}

func NewLicenseService(db *gorm.DB, notificationService *NotificationService) *LicenseService {
	return &LicenseService{
		db:                  db,
		notificationService: notificationService,
	}
}

// generateLicenseCode builds LIC-<year>-<seq>, where seq counts existing
// contracts created in the current calendar year.
func (s *LicenseService) generateLicenseCode(tx *gorm.DB) (string, error) {
	now := time.Now()
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	yearEnd := yearStart.AddDate(1, 0, 0)

	var count int64
	if err := tx.Model(&models.License{}).
		Where("created_at >= ? AND created_at < ?", yearStart, yearEnd).
		Count(&count).Error; err != nil {
		return "", fmt.Errorf("failed to count licenses: %w", err)
	}

	return fmt.Sprintf("LIC-%d-%04d", now.Year(), count+1), nil
}

// CreateLicense drafts a new contract against an asset. Drafts always start
// in DRAFT regardless of the request payload.
func (s *LicenseService) CreateLicense(licensorID uuid.UUID, req *CreateLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", req.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", req.AssetID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	var license *models.License
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		code, err := s.generateLicenseCode(tx)
		if err != nil {
			return err
		}

		license = &models.License{
			LicenseCode:     code,
			AssetID:         req.AssetID,
			LicensorID:      licensorID,
			LicenseeName:    req.LicenseeName,
			LicenseeContact: req.LicenseeContact,
			LicenseeEmail:   req.LicenseeEmail,
			LicenseType:     req.LicenseType,
			EntryFee:        req.EntryFee,
			RoyaltyRate:     req.RoyaltyRate,
			MinGuarantee:    req.MinGuarantee,
			Territory:       req.Territory,
			UsageField:      req.UsageField,
			UsageLimit:      req.UsageLimit,
			ExpiryDate:      req.ExpiryDate,
			Status:          models.LicenseStatusDraft,
			ContractURL:     req.ContractURL,
		}

		return tx.Create(license).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	s.db.Preload("Asset").First(license, "id = ?", license.ID)

	go s.notifyLicense(licensorID, license, "created")

	return license, nil
}

func (s *LicenseService) GetLicense(id uuid.UUID) (*models.License, error) {
	var license models.License
	if err := s.db.Preload("Asset").Preload("Transactions").
		First(&license, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("license %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &license, nil
}

func (s *LicenseService) SearchLicenses(params LicenseSearchParams) ([]models.License, int64, error) {
	query := s.db.Model(&models.License{}).Preload("Asset")

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Type != nil {
		query = query.Where("license_type = ?", *params.Type)
	}
	if params.AssetID != nil {
		query = query.Where("asset_id = ?", *params.AssetID)
	}
	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("license_code LIKE ? OR licensee_name LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count licenses: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "license_code", "status", "entry_fee"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var licenses []models.License
	if err := query.Find(&licenses).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch licenses: %w", err)
	}

	return licenses, total, nil
}

// UpdateLicense edits commercial terms. An ACTIVE contract is immutable;
// terms only change before signing or after the contract leaves ACTIVE.
func (s *LicenseService) UpdateLicense(id uuid.UUID, req *UpdateLicenseRequest) (*models.License, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	license, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	if license.Status == models.LicenseStatusActive {
		return nil, fmt.Errorf("%w: 生效中的授权合同不可修改", ErrInvalidState)
	}

	updates := make(map[string]interface{})
	if req.LicenseeName != "" {
		updates["licensee_name"] = req.LicenseeName
	}
	if req.LicenseeContact != "" {
		updates["licensee_contact"] = req.LicenseeContact
	}
	if req.LicenseeEmail != "" {
		updates["licensee_email"] = req.LicenseeEmail
	}
	if req.EntryFee != nil {
		updates["entry_fee"] = *req.EntryFee
	}
	if req.RoyaltyRate != nil {
		updates["royalty_rate"] = *req.RoyaltyRate
	}
	if req.MinGuarantee != nil {
		updates["min_guarantee"] = *req.MinGuarantee
	}
	if req.Territory != "" {
		updates["territory"] = req.Territory
	}
	if req.UsageField != "" {
		updates["usage_field"] = req.UsageField
	}
	if req.UsageLimit != nil {
		updates["usage_limit"] = *req.UsageLimit
	}
	if req.ExpiryDate != nil {
		updates["expiry_date"] = *req.ExpiryDate
	}
	if req.ContractURL != "" {
		updates["contract_url"] = req.ContractURL
	}

	if len(updates) > 0 {
		if err := s.db.Model(license).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update license: %w", err)
		}
	}

	return s.GetLicense(id)
}

// SignLicense activates a DRAFT or PENDING contract. Signing stamps
// signed_at and the term starts at the signing moment, replacing any
// effective date drafted earlier.
func (s *LicenseService) SignLicense(id uuid.UUID) (*models.License, error) {
	license, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusDraft && license.Status != models.LicenseStatusPending {
		return nil, fmt.Errorf("%w: 只有草稿或待签署状态的合同可以签署", ErrInvalidState)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.LicenseStatusActive,
		"signed_at":      now,
		"effective_date": now,
	}

	if err := s.db.Model(license).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to sign license: %w", err)
	}

	signed, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	go s.notifyLicense(signed.LicensorID, signed, "signed")

	return signed, nil
}

// FreezeLicense suspends an ACTIVE contract, e.g. while the underlying
// asset sits behind the brand firewall.
func (s *LicenseService) FreezeLicense(id uuid.UUID, reason string) (*models.License, error) {
	license, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusActive {
		return nil, fmt.Errorf("%w: 只有生效中的合同可以冻结", ErrInvalidState)
	}

	updates := map[string]interface{}{
		"status":        models.LicenseStatusFrozen,
		"is_frozen":     true,
		"frozen_at":     time.Now(),
		"frozen_reason": reason,
	}

	if err := s.db.Model(license).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to freeze license: %w", err)
	}

	return s.GetLicense(id)
}

// UnfreezeLicense restores a FROZEN contract to ACTIVE. The freeze record
// (frozen_at, frozen_reason) stays on the row as history.
func (s *LicenseService) UnfreezeLicense(id uuid.UUID) (*models.License, error) {
	license, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusFrozen {
		return nil, fmt.Errorf("%w: 合同未处于冻结状态", ErrInvalidState)
	}

	updates := map[string]interface{}{
		"status":    models.LicenseStatusActive,
		"is_frozen": false,
	}

	if err := s.db.Model(license).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to unfreeze license: %w", err)
	}

	return s.GetLicense(id)
}

// TerminateLicense ends a contract early. Only live contracts (ACTIVE or
// FROZEN) can be terminated; the reason lands in its own column.
func (s *LicenseService) TerminateLicense(id uuid.UUID, reason string) (*models.License, error) {
	license, err := s.GetLicense(id)
	if err != nil {
		return nil, err
	}

	if license.Status != models.LicenseStatusActive && license.Status != models.LicenseStatusFrozen {
		return nil, fmt.Errorf("%w: 只有生效中或冻结中的合同可以终止", ErrInvalidState)
	}

	updates := map[string]interface{}{
		"status":             models.LicenseStatusTerminated,
		"termination_reason": reason,
	}

	if err := s.db.Model(license).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to terminate license: %w", err)
	}

	return s.GetLicense(id)
}

// DeleteLicense removes a contract that never left DRAFT.
func (s *LicenseService) DeleteLicense(id uuid.UUID) error {
	license, err := s.GetLicense(id)
	if err != nil {
		return err
	}

	if license.Status != models.LicenseStatusDraft {
		return fmt.Errorf("%w: 只有草稿状态的合同可以删除", ErrInvalidState)
	}

	if err := s.db.Delete(license).Error; err != nil {
		return fmt.Errorf("failed to delete license: %w", err)
	}

	return nil
}

// GetExpiringLicenses lists ACTIVE contracts whose expiry falls within the
// next N days, soonest first.
func (s *LicenseService) GetExpiringLicenses(days int) ([]models.License, error) {
	now := time.Now()
	cutoff := now.AddDate(0, 0, days)

	var licenses []models.License
	if err := s.db.Preload("Asset").
		Where("status = ?", models.LicenseStatusActive).
		Where("expiry_date IS NOT NULL AND expiry_date > ? AND expiry_date <= ?", now, cutoff).
		Order("expiry_date ASC").
		Find(&licenses).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch expiring licenses: %w", err)
	}

	return licenses, nil
}

// ExpireOverdueLicenses sweeps ACTIVE contracts past their expiry date into
// EXPIRED and reports how many rows moved.
func (s *LicenseService) ExpireOverdueLicenses() (int64, error) {
	result := s.db.Model(&models.License{}).
		Where("status = ?", models.LicenseStatusActive).
		Where("expiry_date IS NOT NULL AND expiry_date <= ?", time.Now()).
		Update("status", models.LicenseStatusExpired)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire licenses: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *LicenseService) GetStats() (*LicenseStats, error) {
	stats := &LicenseStats{
		ByStatus: make(map[string]int64),
		ByType:   make(map[string]int64),
	}

	if err := s.db.Model(&models.License{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("failed to count licenses: %w", err)
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := s.db.Model(&models.License{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to group licenses by status: %w", err)
	}
	for _, sc := range statusCounts {
		stats.ByStatus[sc.Status] = sc.Count
	}

	var typeCounts []struct {
		LicenseType string
		Count       int64
	}
	if err := s.db.Model(&models.License{}).
		Select("license_type, COUNT(*) as count").
		Group("license_type").
		Scan(&typeCounts).Error; err != nil {
		return nil, fmt.Errorf("failed to group licenses by type: %w", err)
	}
	for _, tc := range typeCounts {
		stats.ByType[tc.LicenseType] = tc.Count
	}

	if err := s.db.Model(&models.Transaction{}).
		Where("status = ? AND license_id IS NOT NULL", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum license revenue: %w", err)
	}

	return stats, nil
}

func (s *LicenseService) notifyLicense(userID uuid.UUID, license *models.License, event string) {
	if s.notificationService == nil {
		return
	}
	if err := s.notificationService.SendLicenseNotification(userID, license, event); err != nil {
		logrus.WithError(err).WithField("license_id", license.ID).
			Warn("Failed to send license notification")
	}
}
