// internal/services/workflow_service.go
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
)

// Allowed workflow transitions. Forward-only except FROZEN -> DISTRIBUTING;
// ARCHIVED is terminal.
var workflowTransitions = map[models.AssetWorkflowStatus][]models.AssetWorkflowStatus{
	models.StatusRaw:          {models.StatusEnhanced},
	models.StatusEnhanced:     {models.StatusThreeDGen, models.StatusAlgorithmic},
	models.StatusThreeDGen:    {models.StatusThreeDDone},
	models.StatusThreeDDone:   {models.StatusAlgorithmic, models.StatusLegalLocked},
	models.StatusAlgorithmic:  {models.StatusLegalLocked},
	models.StatusLegalLocked:  {models.StatusContracted},
	models.StatusContracted:   {models.StatusDistributing},
	models.StatusDistributing: {models.StatusFrozen, models.StatusArchived},
	models.StatusFrozen:       {models.StatusDistributing, models.StatusArchived},
	models.StatusArchived:     {},
}

// Roles allowed to move an asset INTO each status. ADMIN is checked
// separately and always allowed.
var statusPermissions = map[models.AssetWorkflowStatus][]models.SystemRole{
	models.StatusRaw:          {models.RoleVolunteer, models.RoleAdmin},
	models.StatusEnhanced:     {models.RoleAdmin},
	models.StatusThreeDGen:    {models.RoleAdmin},
	models.StatusThreeDDone:   {models.RoleAdmin},
	models.StatusAlgorithmic:  {models.RoleAdmin},
	models.StatusLegalLocked:  {models.RoleLawyer, models.RoleAdmin},
	models.StatusContracted:   {models.RoleMerchant, models.RoleAdmin},
	models.StatusDistributing: {models.RoleMerchant, models.RoleAdmin},
	models.StatusFrozen:       {models.RoleAdmin},
	models.StatusArchived:     {models.RoleAdmin},
}

// AvailableTransitions returns the statuses reachable from the given one.
func AvailableTransitions(from models.AssetWorkflowStatus) []models.AssetWorkflowStatus {
	targets := workflowTransitions[from]
	out := make([]models.AssetWorkflowStatus, len(targets))
	copy(out, targets)
	return out
}

func transitionAllowed(from, to models.AssetWorkflowStatus) bool {
	for _, t := range workflowTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

func roleMayEnter(target models.AssetWorkflowStatus, role models.SystemRole) bool {
	if role == models.RoleAdmin {
		return true
	}
	for _, r := range statusPermissions[target] {
		if r == role {
			return true
		}
	}
	return false
}

// TransitionResult carries the outcome of a transition attempt. A refused
// transition (bad adjacency or missing permission) is a normal business
// outcome: Success is false and Message explains why, with no error returned.
type TransitionResult struct {
	Success   bool                       `json:"success"`
	OldStatus models.AssetWorkflowStatus `json:"old_status"`
	NewStatus models.AssetWorkflowStatus `json:"new_status"`
	Message   string                     `json:"message,omitempty"`
	AuditLog  *models.AuditLog           `json:"audit_log,omitempty"`
}

type AssetStatusInfo struct {
	AssetID              uuid.UUID                    `json:"asset_id"`
	Title                string                       `json:"title"`
	CurrentStatus        models.AssetWorkflowStatus   `json:"current_status"`
	AvailableTransitions []models.AssetWorkflowStatus `json:"available_transitions"`
	CanTransition        bool                         `json:"can_transition"`
}

type BatchTransitionDetail struct {
	AssetID uuid.UUID                  `json:"asset_id"`
	Success bool                       `json:"success"`
	Status  models.AssetWorkflowStatus `json:"status,omitempty"`
	Error   string                     `json:"error,omitempty"`
}

type BatchTransitionResult struct {
	Total   int                     `json:"total"`
	Success int                     `json:"success"`
	Failed  int                     `json:"failed"`
	Details []BatchTransitionDetail `json:"details"`
}

type WorkflowStats struct {
	Total    int64                                `json:"total"`
	ByStatus map[models.AssetWorkflowStatus]int64 `json:"by_status"`
}

type WorkflowService struct {
	db                  *gorm.DB
	notificationService *NotificationService
}

func NewWorkflowService(db *gorm.DB, notificationService *NotificationService) *WorkflowService {
	return &WorkflowService{
		db:                  db,
		notificationService: notificationService,
	}
}

// GetAssetStatus returns the current status and the live set of forward
// transitions derived from the transition table.
func (s *WorkflowService) GetAssetStatus(assetID uuid.UUID) (*AssetStatusInfo, error) {
	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	available := AvailableTransitions(asset.Status)

	return &AssetStatusInfo{
		AssetID:              asset.ID,
		Title:                asset.Title,
		CurrentStatus:        asset.Status,
		AvailableTransitions: available,
		CanTransition:        len(available) > 0,
	}, nil
}

// Transition moves an asset to targetStatus on behalf of the given actor.
// The status write and the audit-log insert happen in one database
// transaction; the status update is a compare-and-swap against the status
// read at the start, so two racing calls cannot both consume the same edge.
func (s *WorkflowService) Transition(assetID uuid.UUID, targetStatus models.AssetWorkflowStatus, actorID uuid.UUID, actorRole models.SystemRole, reason string) (*TransitionResult, error) {
	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	currentStatus := asset.Status

	if !transitionAllowed(currentStatus, targetStatus) {
		return &TransitionResult{
			Success:   false,
			OldStatus: currentStatus,
			NewStatus: targetStatus,
			Message:   fmt.Sprintf("不允许从 %s 流转到 %s", currentStatus, targetStatus),
		}, nil
	}

	if !roleMayEnter(targetStatus, actorRole) {
		return &TransitionResult{
			Success:   false,
			OldStatus: currentStatus,
			NewStatus: targetStatus,
			Message:   fmt.Sprintf("当前角色 %s 无权执行此操作", actorRole),
		}, nil
	}

	auditLog := &models.AuditLog{
		AssetID:   assetID,
		Action:    models.ActionStatusTransition,
		ActorID:   actorID,
		ActorRole: actorRole,
		OldValue:  string(currentStatus),
		NewValue:  string(targetStatus),
		Reason:    reason,
	}

	var stale bool
	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		updates := map[string]interface{}{"status": targetStatus}
		if targetStatus == models.StatusLegalLocked {
			updates["legal_locked_at"] = time.Now()
			updates["legal_auditor_id"] = actorID
		}

		// Re-validate the precondition at write time: the update only
		// applies if the status is still the one we checked against.
		res := tx.Model(&models.IPAsset{}).
			Where("id = ? AND status = ?", assetID, currentStatus).
			Updates(updates)
		if res.Error != nil {
			return fmt.Errorf("failed to update asset status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			stale = true
			return nil
		}

		if err := tx.Create(auditLog).Error; err != nil {
			return fmt.Errorf("failed to create audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if stale {
		return &TransitionResult{
			Success:   false,
			OldStatus: currentStatus,
			NewStatus: targetStatus,
			Message:   "资产状态已被其他操作变更，请重试",
		}, nil
	}

	// Notification is best-effort and must never fail the transition.
	go s.notifyStatusChange(&asset, currentStatus, targetStatus)

	return &TransitionResult{
		Success:   true,
		OldStatus: currentStatus,
		NewStatus: targetStatus,
		AuditLog:  auditLog,
	}, nil
}

// FreezeAsset pulls the brand firewall: it always executes as ADMIN, no
// matter who asked, because freezing is an administrative override.
func (s *WorkflowService) FreezeAsset(assetID uuid.UUID, actorID uuid.UUID, reason string) (*TransitionResult, error) {
	return s.Transition(assetID, models.StatusFrozen, actorID, models.RoleAdmin, "品牌防火墙熔断: "+reason)
}

// UnfreezeAsset returns a frozen asset to DISTRIBUTING. Calling it on a
// non-frozen asset is caller misuse and yields an error, not a rejection.
func (s *WorkflowService) UnfreezeAsset(assetID uuid.UUID, actorID uuid.UUID, reason string) (*TransitionResult, error) {
	var asset models.IPAsset
	if err := s.db.First(&asset, "id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if asset.Status != models.StatusFrozen {
		return nil, fmt.Errorf("%w: 资产未处于冻结状态", ErrInvalidState)
	}

	return s.Transition(assetID, models.StatusDistributing, actorID, models.RoleAdmin, "解除熔断: "+reason)
}

// BatchTransition applies Transition to each id independently; one failure
// never aborts the rest.
func (s *WorkflowService) BatchTransition(assetIDs []uuid.UUID, targetStatus models.AssetWorkflowStatus, actorID uuid.UUID, actorRole models.SystemRole) *BatchTransitionResult {
	result := &BatchTransitionResult{
		Total:   len(assetIDs),
		Details: make([]BatchTransitionDetail, 0, len(assetIDs)),
	}

	for _, id := range assetIDs {
		res, err := s.Transition(id, targetStatus, actorID, actorRole, "")
		switch {
		case err != nil:
			result.Failed++
			result.Details = append(result.Details, BatchTransitionDetail{
				AssetID: id,
				Success: false,
				Error:   err.Error(),
			})
		case !res.Success:
			result.Failed++
			result.Details = append(result.Details, BatchTransitionDetail{
				AssetID: id,
				Success: false,
				Error:   res.Message,
			})
		default:
			result.Success++
			result.Details = append(result.Details, BatchTransitionDetail{
				AssetID: id,
				Success: true,
				Status:  res.NewStatus,
			})
		}
	}

	return result
}

// GetAuditHistory returns all audit rows for an asset, most recent first.
func (s *WorkflowService) GetAuditHistory(assetID uuid.UUID) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	if err := s.db.Where("asset_id = ?", assetID).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch audit history: %w", err)
	}
	return logs, nil
}

func (s *WorkflowService) GetWorkflowStats() (*WorkflowStats, error) {
	var total int64
	if err := s.db.Model(&models.IPAsset{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count assets: %w", err)
	}

	var rows []struct {
		Status models.AssetWorkflowStatus
		Count  int64
	}
	if err := s.db.Model(&models.IPAsset{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group assets by status: %w", err)
	}

	stats := &WorkflowStats{
		Total:    total,
		ByStatus: make(map[models.AssetWorkflowStatus]int64, len(rows)),
	}
	for _, row := range rows {
		stats.ByStatus[row.Status] = row.Count
	}

	return stats, nil
}

func (s *WorkflowService) notifyStatusChange(asset *models.IPAsset, oldStatus, newStatus models.AssetWorkflowStatus) {
	if s.notificationService == nil {
		return
	}
	if err := s.notificationService.SendAssetStatusNotification(asset.CreatorID, asset.Title, oldStatus, newStatus, asset.ID); err != nil {
		logrus.WithError(err).WithField("asset_id", asset.ID).Warn("Failed to send status change notification")
	}
}
