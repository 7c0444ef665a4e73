// internal/services/asset_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

func TestCreateAssetAlwaysStartsRaw(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db, nil)

	volunteer := createTestUser(t, db, models.RoleVolunteer)

	asset, err := svc.CreateAsset(volunteer.ID, models.RoleVolunteer, &CreateAssetRequest{
		Title:       "敦煌飞天（临摹）",
		Type:        models.AssetTypeImage,
		OriginalURL: "https://example.test/originals/feitian.jpg",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusRaw, asset.Status)
	assert.Equal(t, models.CopyrightOwnerCreator, asset.CopyrightOwner)
	assert.Equal(t, volunteer.ID, asset.CreatorID)
}

func TestCreateAssetRejectsIneligibleRole(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)

	_, err := svc.CreateAsset(merchant.ID, models.RoleMerchant, &CreateAssetRequest{
		Title:       "不该出现的资产",
		Type:        models.AssetTypeImage,
		OriginalURL: "https://example.test/x.jpg",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateAssetNeverTouchesStatus(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db, nil)

	volunteer := createTestUser(t, db, models.RoleVolunteer)
	asset := createTestAsset(t, db, volunteer, models.StatusEnhanced)

	updated, err := svc.UpdateAsset(asset.ID, &UpdateAssetRequest{
		EnhancedURL: "https://example.test/enhanced/painting.png",
		EmotionTags: []string{"宁静", "苍茫"},
		ArtStory:    "老艺术家晚年作品",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnhanced, updated.Status)
	assert.Equal(t, "https://example.test/enhanced/painting.png", updated.EnhancedURL)
	assert.ElementsMatch(t, []string{"宁静", "苍茫"}, []string(updated.EmotionTags))
}

func TestDeleteAssetGuards(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db, nil)
	licenseSvc := NewLicenseService(db, nil)

	volunteer := createTestUser(t, db, models.RoleVolunteer)

	// Commercialized assets are immortal.
	distributing := createTestAsset(t, db, volunteer, models.StatusDistributing)
	err := svc.DeleteAsset(distributing.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	// Assets with contracts are immortal too, even pre-commercialization.
	locked := createTestAsset(t, db, volunteer, models.StatusLegalLocked)
	createTestLicense(t, db, licenseSvc, volunteer, locked)
	err = svc.DeleteAsset(locked.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	// A raw asset with no contracts can go.
	raw := createTestAsset(t, db, volunteer, models.StatusRaw)
	require.NoError(t, svc.DeleteAsset(raw.ID))

	_, err = svc.GetAsset(raw.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSearchAssetsFilters(t *testing.T) {
	db := newTestDB(t)
	svc := NewAssetService(db, nil)

	volunteer := createTestUser(t, db, models.RoleVolunteer)
	createTestAsset(t, db, volunteer, models.StatusRaw)
	createTestAsset(t, db, volunteer, models.StatusRaw)
	createTestAsset(t, db, volunteer, models.StatusDistributing)

	raw := models.StatusRaw
	assets, total, err := svc.SearchAssets(AssetSearchParams{Status: &raw})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, assets, 2)

	other := uuid.New()
	_, total, err = svc.SearchAssets(AssetSearchParams{CreatorID: &other})
	require.NoError(t, err)
	assert.Zero(t, total)
}
