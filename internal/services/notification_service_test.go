// internal/services/notification_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

func TestNotificationLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, models.RoleVolunteer)
	other := createTestUser(t, db, models.RoleVolunteer)

	n1, err := svc.Create(user.ID, models.NotificationTypeSystem, "欢迎", "欢迎加入", nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStatusUnread, n1.Status)

	_, err = svc.Create(user.ID, models.NotificationTypeSystem, "第二条", "内容", nil, "")
	require.NoError(t, err)

	count, err := svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Another user cannot read someone else's notification.
	_, err = svc.MarkAsRead(n1.ID, other.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.MarkAsRead(n1.ID, user.ID)
	require.NoError(t, err)

	count, err = svc.UnreadCount(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	marked, err := svc.MarkAllAsRead(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	require.NoError(t, svc.Archive(n1.ID, user.ID))

	archived := models.NotificationStatusArchived
	list, total, err := svc.GetUserNotifications(user.ID, utils.PaginationParams{}, &archived)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, n1.ID, list[0].ID)
}

func TestStatusChangeNotificationContent(t *testing.T) {
	db := newTestDB(t)
	svc := NewNotificationService(db)

	user := createTestUser(t, db, models.RoleVolunteer)
	assetID := uuid.New()

	err := svc.SendAssetStatusNotification(user.ID, "千里江山图", models.StatusRaw, models.StatusEnhanced, assetID)
	require.NoError(t, err)

	list, total, err := svc.GetUserNotifications(user.ID, utils.PaginationParams{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationTypeWorkflow, list[0].Type)
	assert.Equal(t, "作品《千里江山图》状态从 RAW 变更为 ENHANCED", list[0].Content)
	require.NotNil(t, list[0].RelatedID)
	assert.Equal(t, assetID, *list[0].RelatedID)
}

func TestWorkflowTransitionEmitsNotification(t *testing.T) {
	db := newTestDB(t)
	notifSvc := NewNotificationService(db)
	svc := NewWorkflowService(db, notifSvc)

	admin := createTestUser(t, db, models.RoleAdmin)
	asset := createTestAsset(t, db, admin, models.StatusRaw)

	result, err := svc.Transition(asset.ID, models.StatusEnhanced, admin.ID, models.RoleAdmin, "")
	require.NoError(t, err)
	require.True(t, result.Success)

	// The notification is written asynchronously.
	assert.Eventually(t, func() bool {
		count, err := notifSvc.UnreadCount(admin.ID)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}
