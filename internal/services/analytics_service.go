// internal/services/analytics_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

type AnalyticsService struct {
	db *gorm.DB
}

type DashboardOverview struct {
	TotalAssets        int64   `json:"total_assets"`
	DistributingAssets int64   `json:"distributing_assets"`
	FrozenAssets       int64   `json:"frozen_assets"`
	TotalLicenses      int64   `json:"total_licenses"`
	ActiveLicenses     int64   `json:"active_licenses"`
	TotalRevenue       float64 `json:"total_revenue"`
	PendingAmount      float64 `json:"pending_amount"`
	TotalUsers         int64   `json:"total_users"`
}

type StatusDistribution struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type CreationTrendPoint struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

func NewAnalyticsService(db *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: db}
}

// GetDashboardOverview aggregates the headline numbers for the ops
// dashboard in one call.
func (s *AnalyticsService) GetDashboardOverview() (*DashboardOverview, error) {
	overview := &DashboardOverview{}

	if err := s.db.Model(&models.IPAsset{}).Count(&overview.TotalAssets).Error; err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}
	if err := s.db.Model(&models.IPAsset{}).
		Where("status = ?", models.StatusDistributing).
		Count(&overview.DistributingAssets).Error; err != nil {
		return nil, fmt.Errorf("failed to count distributing assets: %w", err)
	}
	if err := s.db.Model(&models.IPAsset{}).
		Where("status = ?", models.StatusFrozen).
		Count(&overview.FrozenAssets).Error; err != nil {
		return nil, fmt.Errorf("failed to count frozen assets: %w", err)
	}

	if err := s.db.Model(&models.License{}).Count(&overview.TotalLicenses).Error; err != nil {
		return nil, fmt.Errorf("failed to count licenses: %w", err)
	}
	if err := s.db.Model(&models.License{}).
		Where("status = ?", models.LicenseStatusActive).
		Count(&overview.ActiveLicenses).Error; err != nil {
		return nil, fmt.Errorf("failed to count active licenses: %w", err)
	}

	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&overview.TotalRevenue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}
	if err := s.db.Model(&models.Transaction{}).
		Where("status = ?", models.TransactionStatusPending).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&overview.PendingAmount).Error; err != nil {
		return nil, fmt.Errorf("failed to sum pending amount: %w", err)
	}

	if err := s.db.Model(&models.User{}).Count(&overview.TotalUsers).Error; err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	return overview, nil
}

func (s *AnalyticsService) GetAssetStatusDistribution() ([]StatusDistribution, error) {
	var rows []StatusDistribution
	if err := s.db.Model(&models.IPAsset{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to compute status distribution: %w", err)
	}

	return rows, nil
}

// GetAssetCreationTrend buckets asset intake by month.
func (s *AnalyticsService) GetAssetCreationTrend() ([]CreationTrendPoint, error) {
	monthExpr := "to_char(created_at, 'YYYY-MM')"
	if s.db.Dialector.Name() == "sqlite" {
		monthExpr = "strftime('%Y-%m', created_at)"
	}

	var rows []CreationTrendPoint
	if err := s.db.Model(&models.IPAsset{}).
		Select(monthExpr + " as month, COUNT(*) as count").
		Group("month").
		Order("month ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to compute creation trend: %w", err)
	}

	return rows, nil
}
