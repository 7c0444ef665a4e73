// internal/services/license_service_test.go
package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
)

func createTestLicense(t *testing.T, db *gorm.DB, svc *LicenseService, licensor *models.User, asset *models.IPAsset) *models.License {
	t.Helper()

	license, err := svc.CreateLicense(licensor.ID, &CreateLicenseRequest{
		AssetID:      asset.ID,
		LicenseeName: "某文创品牌",
		LicenseType:  models.LicenseTypeStandard,
		EntryFee:     50000,
		RoyaltyRate:  0.08,
	})
	require.NoError(t, err)

	return license
}

func TestCreateLicenseCodeSequence(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)

	year := time.Now().Year()
	for i := 1; i <= 3; i++ {
		license := createTestLicense(t, db, svc, merchant, asset)
		assert.Equal(t, fmt.Sprintf("LIC-%d-%04d", year, i), license.LicenseCode)
		assert.Equal(t, models.LicenseStatusDraft, license.Status)
	}
}

func TestSignLicense(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, svc, merchant, asset)

	// A date drafted before signing does not survive: the term starts when
	// the contract is signed.
	drafted := time.Now().AddDate(0, -1, 0)
	require.NoError(t, db.Model(license).Update("effective_date", drafted).Error)

	signed, err := svc.SignLicense(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, signed.Status)
	require.NotNil(t, signed.SignedAt)
	require.NotNil(t, signed.EffectiveDate)
	assert.WithinDuration(t, time.Now(), *signed.EffectiveDate, time.Minute)

	// Signing twice is a state violation.
	_, err = svc.SignLicense(license.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestUpdateLicenseRejectsActiveContract(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, svc, merchant, asset)

	newFee := 80000.0
	updated, err := svc.UpdateLicense(license.ID, &UpdateLicenseRequest{EntryFee: &newFee})
	require.NoError(t, err)
	assert.Equal(t, newFee, updated.EntryFee)

	_, err = svc.SignLicense(license.ID)
	require.NoError(t, err)

	_, err = svc.UpdateLicense(license.ID, &UpdateLicenseRequest{EntryFee: &newFee})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestFreezeAndUnfreezeLicense(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, svc, merchant, asset)

	// Draft contracts cannot be frozen.
	_, err := svc.FreezeLicense(license.ID, "关联资产被熔断")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.SignLicense(license.ID)
	require.NoError(t, err)

	frozen, err := svc.FreezeLicense(license.ID, "关联资产被熔断")
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusFrozen, frozen.Status)
	assert.True(t, frozen.IsFrozen)
	assert.Equal(t, "关联资产被熔断", frozen.FrozenReason)
	require.NotNil(t, frozen.FrozenAt)

	unfrozen, err := svc.UnfreezeLicense(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, unfrozen.Status)
	assert.False(t, unfrozen.IsFrozen)
	// The freeze record survives as history.
	assert.Equal(t, "关联资产被熔断", unfrozen.FrozenReason)
	require.NotNil(t, unfrozen.FrozenAt)
}

func TestTerminateLicense(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)
	license := createTestLicense(t, db, svc, merchant, asset)

	// Draft contracts cannot be terminated, only deleted.
	_, err := svc.TerminateLicense(license.ID, "合作终止")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.SignLicense(license.ID)
	require.NoError(t, err)

	terminated, err := svc.TerminateLicense(license.ID, "被许可方违约")
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusTerminated, terminated.Status)
	assert.Equal(t, "被许可方违约", terminated.TerminationReason)
}

func TestDeleteLicenseDraftOnly(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)

	draft := createTestLicense(t, db, svc, merchant, asset)
	require.NoError(t, svc.DeleteLicense(draft.ID))

	signed := createTestLicense(t, db, svc, merchant, asset)
	_, err := svc.SignLicense(signed.ID)
	require.NoError(t, err)

	err = svc.DeleteLicense(signed.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGetExpiringLicenses(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)

	soon := time.Now().AddDate(0, 0, 10)
	far := time.Now().AddDate(1, 0, 0)

	expiringSoon := createTestLicense(t, db, svc, merchant, asset)
	_, err := svc.UpdateLicense(expiringSoon.ID, &UpdateLicenseRequest{ExpiryDate: &soon})
	require.NoError(t, err)
	_, err = svc.SignLicense(expiringSoon.ID)
	require.NoError(t, err)

	longRunning := createTestLicense(t, db, svc, merchant, asset)
	_, err = svc.UpdateLicense(longRunning.ID, &UpdateLicenseRequest{ExpiryDate: &far})
	require.NoError(t, err)
	_, err = svc.SignLicense(longRunning.ID)
	require.NoError(t, err)

	expiring, err := svc.GetExpiringLicenses(30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, expiringSoon.ID, expiring[0].ID)
}

func TestExpireOverdueLicenses(t *testing.T) {
	db := newTestDB(t)
	svc := NewLicenseService(db, nil)

	merchant := createTestUser(t, db, models.RoleMerchant)
	asset := createTestAsset(t, db, merchant, models.StatusLegalLocked)

	license := createTestLicense(t, db, svc, merchant, asset)
	_, err := svc.SignLicense(license.ID)
	require.NoError(t, err)

	// Backdate the expiry to yesterday.
	yesterday := time.Now().AddDate(0, 0, -1)
	require.NoError(t, db.Model(&models.License{}).
		Where("id = ?", license.ID).
		Update("expiry_date", yesterday).Error)

	moved, err := svc.ExpireOverdueLicenses()
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved)

	reloaded, err := svc.GetLicense(license.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusExpired, reloaded.Status)
}
