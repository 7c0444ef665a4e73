// internal/services/notification_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

// NotificationService persists in-app notifications. Senders treat it as
// best-effort: a failed insert is logged by the caller, never propagated
// into the business operation that triggered it.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

func (s *NotificationService) Create(userID uuid.UUID, notifType models.NotificationType, title, content string, relatedID *uuid.UUID, relatedType string) (*models.Notification, error) {
	notification := &models.Notification{
		UserID:      userID,
		Type:        notifType,
		Title:       title,
		Content:     content,
		Status:      models.NotificationStatusUnread,
		RelatedID:   relatedID,
		RelatedType: relatedType,
	}

	if err := s.db.Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return notification, nil
}

func (s *NotificationService) GetUserNotifications(userID uuid.UUID, params utils.PaginationParams, status *models.NotificationStatus) ([]models.Notification, int64, error) {
	query := s.db.Model(&models.Notification{}).Where("user_id = ?", userID)

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query = query.Order("created_at DESC")
	query = utils.ApplyPagination(query, params)

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	return notifications, total, nil
}

func (s *NotificationService) UnreadCount(userID uuid.UUID) (int64, error) {
	var count int64
	if err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return count, nil
}

// MarkAsRead flips one UNREAD notification to READ. The user scoping keeps
// one user from touching another's inbox.
func (s *NotificationService) MarkAsRead(id, userID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("notification %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if notification.Status == models.NotificationStatusUnread {
		updates := map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": time.Now(),
		}
		if err := s.db.Model(&notification).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to mark notification as read: %w", err)
		}
	}

	return &notification, nil
}

func (s *NotificationService) MarkAllAsRead(userID uuid.UUID) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, models.NotificationStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationStatusRead,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", result.Error)
	}

	return result.RowsAffected, nil
}

func (s *NotificationService) Archive(id, userID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("status", models.NotificationStatusArchived)
	if result.Error != nil {
		return fmt.Errorf("failed to archive notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("notification %s: %w", id, ErrNotFound)
	}

	return nil
}

// SendAssetStatusNotification tells the creator their work moved through
// the pipeline.
func (s *NotificationService) SendAssetStatusNotification(userID uuid.UUID, assetTitle string, oldStatus, newStatus models.AssetWorkflowStatus, assetID uuid.UUID) error {
	content := fmt.Sprintf("作品《%s》状态从 %s 变更为 %s", assetTitle, oldStatus, newStatus)
	_, err := s.Create(userID, models.NotificationTypeWorkflow, "资产状态变更", content, &assetID, "ip_asset")
	return err
}

func (s *NotificationService) SendLicenseNotification(userID uuid.UUID, license *models.License, event string) error {
	var title, content string
	switch event {
	case "created":
		title = "授权合同已创建"
		content = fmt.Sprintf("授权合同 %s 已创建，等待签署", license.LicenseCode)
	case "signed":
		title = "授权合同已签署"
		content = fmt.Sprintf("授权合同 %s 已签署生效", license.LicenseCode)
	default:
		title = "授权合同状态变更"
		content = fmt.Sprintf("授权合同 %s 状态已更新", license.LicenseCode)
	}

	_, err := s.Create(userID, models.NotificationTypeLicense, title, content, &license.ID, "license")
	return err
}

func (s *NotificationService) SendTransactionNotification(userID uuid.UUID, txn *models.Transaction, event string) error {
	var title, content string
	switch event {
	case "completed":
		title = "交易已完成"
		content = fmt.Sprintf("交易 %s 支付成功，金额 %.2f %s", txn.TxnCode, txn.Amount, txn.Currency)
	case "refunded":
		title = "交易已退款"
		content = fmt.Sprintf("交易 %s 已退款，金额 %.2f %s", txn.TxnCode, txn.Amount, txn.Currency)
	default:
		title = "交易状态变更"
		content = fmt.Sprintf("交易 %s 状态已更新", txn.TxnCode)
	}

	_, err := s.Create(userID, models.NotificationTypeTransaction, title, content, &txn.ID, "transaction")
	return err
}
