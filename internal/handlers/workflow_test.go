// internal/handlers/workflow_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ClockZinc/STAR-ENGINE/internal/middleware"
	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type WorkflowHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	admin  *models.User
	token  string
}

func (s *WorkflowHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(
		&models.User{},
		&models.IPAsset{},
		&models.License{},
		&models.Transaction{},
		&models.AuditLog{},
		&models.Notification{},
	))
	s.db = db

	admin := &models.User{
		Nickname: "管理员",
		Email:    "admin@star-engine.test",
		Role:     models.RoleAdmin,
	}
	s.Require().NoError(admin.SetPassword("admin-password-1"))
	s.Require().NoError(db.Create(admin).Error)
	s.admin = admin

	token, err := utils.GenerateJWT(admin.ID, admin.Nickname, string(admin.Role), 1)
	s.Require().NoError(err)
	s.token = token

	workflowService := services.NewWorkflowService(db, nil)
	handler := NewWorkflowHandler(workflowService)

	r := gin.New()
	workflow := r.Group("/v1/workflow")
	workflow.Use(middleware.AuthRequired())
	{
		workflow.GET("/assets/:id/status", handler.GetAssetStatus)
		workflow.POST("/assets/:id/transition", handler.Transition)
		workflow.POST("/assets/:id/freeze", handler.FreezeAsset)
	}
	s.router = r
}

func (s *WorkflowHandlerTestSuite) request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *WorkflowHandlerTestSuite) createAsset(status models.AssetWorkflowStatus) *models.IPAsset {
	asset := &models.IPAsset{
		Title:          "测试资产",
		Type:           models.AssetTypeImage,
		Status:         status,
		CreatorID:      s.admin.ID,
		OriginalURL:    "https://example.test/a.jpg",
		CopyrightOwner: models.CopyrightOwnerCreator,
	}
	s.Require().NoError(s.db.Create(asset).Error)
	return asset
}

func (s *WorkflowHandlerTestSuite) TestTransitionSuccess() {
	asset := s.createAsset(models.StatusRaw)

	w := s.request(http.MethodPost, "/v1/workflow/assets/"+asset.ID.String()+"/transition", gin.H{
		"target_status": "ENHANCED",
		"reason":        "增强完成",
	})

	s.Equal(http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Success   bool   `json:"success"`
			NewStatus string `json:"new_status"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.True(body.Data.Success)
	s.Equal("ENHANCED", body.Data.NewStatus)
}

// A refused transition is still HTTP 200: the rejection lives in the body.
func (s *WorkflowHandlerTestSuite) TestTransitionRejectionIs200() {
	asset := s.createAsset(models.StatusRaw)

	w := s.request(http.MethodPost, "/v1/workflow/assets/"+asset.ID.String()+"/transition", gin.H{
		"target_status": "LEGAL_LOCKED",
	})

	s.Equal(http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
		} `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.False(body.Data.Success)
	s.Contains(body.Data.Message, "不允许从")
}

// Freezing is an administrative override the service executes as ADMIN, so
// the route stays open to every authenticated caller.
func (s *WorkflowHandlerTestSuite) TestFreezeOpenToNonAdminCaller() {
	volunteer := &models.User{
		Nickname: "志愿者",
		Email:    "volunteer@star-engine.test",
		Role:     models.RoleVolunteer,
	}
	s.Require().NoError(volunteer.SetPassword("volunteer-password-1"))
	s.Require().NoError(s.db.Create(volunteer).Error)

	token, err := utils.GenerateJWT(volunteer.ID, volunteer.Nickname, string(volunteer.Role), 1)
	s.Require().NoError(err)

	asset := s.createAsset(models.StatusDistributing)

	var buf bytes.Buffer
	s.Require().NoError(json.NewEncoder(&buf).Encode(gin.H{"reason": "侵权投诉"}))
	req, err := http.NewRequest(http.MethodPost, "/v1/workflow/assets/"+asset.ID.String()+"/freeze", &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)

	var frozen models.IPAsset
	s.Require().NoError(s.db.First(&frozen, "id = ?", asset.ID).Error)
	s.Equal(models.StatusFrozen, frozen.Status)

	// The audit row keeps the real actor but records the admin override.
	var log models.AuditLog
	s.Require().NoError(s.db.First(&log, "asset_id = ?", asset.ID).Error)
	s.Equal(models.RoleAdmin, log.ActorRole)
	s.Equal(volunteer.ID, log.ActorID)
}

func (s *WorkflowHandlerTestSuite) TestUnknownAssetIs404() {
	w := s.request(http.MethodGet, "/v1/workflow/assets/00000000-0000-0000-0000-000000000001/status", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *WorkflowHandlerTestSuite) TestMissingTokenIs401() {
	asset := s.createAsset(models.StatusRaw)

	req, err := http.NewRequest(http.MethodGet, "/v1/workflow/assets/"+asset.ID.String()+"/status", nil)
	s.Require().NoError(err)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func TestWorkflowHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(WorkflowHandlerTestSuite))
}

func TestHandleServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err  error
		code int
	}{
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrInvalidState, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		handleServiceError(c, tc.err)
		assert.Equal(t, tc.code, w.Code)
	}
}
