// internal/services/asset_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type AssetService struct {
	db             *gorm.DB
	storageService *StorageService
}

type CreateAssetRequest struct {
	Title          string                 `json:"title" validate:"required,min=1,max=255"`
	Description    string                 `json:"description,omitempty"`
	Type           models.AssetType       `json:"type" validate:"required,oneof=image text pdf 3d_model"`
	OriginalURL    string                 `json:"original_url" validate:"required"`
	CopyrightOwner models.CopyrightOwner  `json:"copyright_owner,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type UpdateAssetRequest struct {
	Title          string                 `json:"title,omitempty" validate:"omitempty,max=255"`
	Description    string                 `json:"description,omitempty"`
	EnhancedURL    string                 `json:"enhanced_url,omitempty"`
	ThreeDModelURL string                 `json:"three_d_model_url,omitempty"`
	EmotionTags    []string               `json:"emotion_tags,omitempty"`
	ArtStory       string                 `json:"art_story,omitempty"`
	DCICode        string                 `json:"dci_code,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type AssetSearchParams struct {
	utils.PaginationParams
	Status    *models.AssetWorkflowStatus
	Type      *models.AssetType
	CreatorID *uuid.UUID
}

func NewAssetService(db *gorm.DB, storageService *StorageService) *AssetService {
	return &AssetService{
		db:             db,
		storageService: storageService,
	}
}

// CreateAsset registers a new work in the pipeline. Every asset starts in
// RAW no matter what the caller supplies; only volunteers and admins may
// bring new material in.
func (s *AssetService) CreateAsset(creatorID uuid.UUID, creatorRole models.SystemRole, req *CreateAssetRequest) (*models.IPAsset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if creatorRole != models.RoleVolunteer && creatorRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: 只有志愿者或管理员可以采集资产", ErrInvalidState)
	}

	copyrightOwner := req.CopyrightOwner
	if copyrightOwner == "" {
		copyrightOwner = models.CopyrightOwnerCreator
	}

	asset := &models.IPAsset{
		Title:          req.Title,
		Description:    req.Description,
		Type:           req.Type,
		Status:         models.StatusRaw,
		CreatorID:      creatorID,
		OriginalURL:    req.OriginalURL,
		CopyrightOwner: copyrightOwner,
		Metadata:       models.JSONB(req.Metadata),
	}

	if err := s.db.Create(asset).Error; err != nil {
		return nil, fmt.Errorf("failed to create asset: %w", err)
	}

	s.db.Preload("Creator").First(asset, "id = ?", asset.ID)

	return asset, nil
}

func (s *AssetService) GetAsset(id uuid.UUID) (*models.IPAsset, error) {
	var asset models.IPAsset
	if err := s.db.Preload("Creator").Preload("Licenses").
		First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	return &asset, nil
}

func (s *AssetService) SearchAssets(params AssetSearchParams) ([]models.IPAsset, int64, error) {
	query := s.db.Model(&models.IPAsset{}).Preload("Creator")

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.CreatorID != nil {
		query = query.Where("creator_id = ?", *params.CreatorID)
	}
	if params.Search != "" {
		searchTerm := "%" + params.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", searchTerm, searchTerm)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count assets: %w", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "title", "status"}
	query = utils.ApplySort(query, params.PaginationParams, allowedSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var assets []models.IPAsset
	if err := query.Find(&assets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch assets: %w", err)
	}

	return assets, total, nil
}

// UpdateAsset mutates descriptive fields and media URLs. The workflow
// status is not touchable here; it only moves through WorkflowService.
func (s *AssetService) UpdateAsset(id uuid.UUID, req *UpdateAssetRequest) (*models.IPAsset, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Title != "" {
		updates["title"] = req.Title
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.EnhancedURL != "" {
		updates["enhanced_url"] = req.EnhancedURL
	}
	if req.ThreeDModelURL != "" {
		updates["three_d_model_url"] = req.ThreeDModelURL
	}
	if req.EmotionTags != nil {
		updates["emotion_tags"] = pq.StringArray(req.EmotionTags)
	}
	if req.ArtStory != "" {
		updates["art_story"] = req.ArtStory
	}
	if req.DCICode != "" {
		updates["dci_code"] = req.DCICode
	}
	if req.Metadata != nil {
		updates["metadata"] = models.JSONB(req.Metadata)
	}

	if len(updates) > 0 {
		if err := s.db.Model(&asset).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update asset: %w", err)
		}
	}

	s.db.Preload("Creator").First(&asset, "id = ?", id)

	return &asset, nil
}

// DeleteAsset removes an asset that never reached commercialization. Once
// contracted (or any later stage) the record must survive for the licenses
// that reference it.
func (s *AssetService) DeleteAsset(id uuid.UUID) error {
	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("asset %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("database error: %w", err)
	}

	switch asset.Status {
	case models.StatusContracted, models.StatusDistributing, models.StatusFrozen, models.StatusArchived:
		return fmt.Errorf("%w: 已进入商业化阶段的资产不可删除", ErrInvalidState)
	}

	var licenseCount int64
	if err := s.db.Model(&models.License{}).
		Where("asset_id = ?", id).
		Count(&licenseCount).Error; err != nil {
		return fmt.Errorf("failed to check licenses: %w", err)
	}
	if licenseCount > 0 {
		return fmt.Errorf("%w: 存在关联授权合同的资产不可删除", ErrInvalidState)
	}

	if err := s.db.Delete(&asset).Error; err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	return nil
}
