// internal/handlers/license.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
}

type licenseReasonRequest struct {
	Reason string `json:"reason" validate:"required"`
}

func NewLicenseHandler(licenseService *services.LicenseService) *LicenseHandler {
	return &LicenseHandler{licenseService: licenseService}
}

// GET /licenses
func (h *LicenseHandler) GetLicenses(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.LicenseSearchParams{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		s := models.LicenseStatus(status)
		searchParams.Status = &s
	}
	if licenseType := c.Query("type"); licenseType != "" {
		t := models.LicenseType(licenseType)
		searchParams.Type = &t
	}
	if assetIDStr := c.Query("asset_id"); assetIDStr != "" {
		if assetID, err := uuid.Parse(assetIDStr); err == nil {
			searchParams.AssetID = &assetID
		}
	}

	licenses, total, err := h.licenseService.SearchLicenses(searchParams)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(licenses, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /licenses
func (h *LicenseHandler) CreateLicense(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.CreateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.CreateLicense(userID, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, license)
}

// GET /licenses/:id
func (h *LicenseHandler) GetLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	license, err := h.licenseService.GetLicense(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// PUT /licenses/:id
func (h *LicenseHandler) UpdateLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.UpdateLicense(id, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// POST /licenses/:id/sign
func (h *LicenseHandler) SignLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	license, err := h.licenseService.SignLicense(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// POST /licenses/:id/freeze
func (h *LicenseHandler) FreezeLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req licenseReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.FreezeLicense(id, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// POST /licenses/:id/unfreeze
func (h *LicenseHandler) UnfreezeLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	license, err := h.licenseService.UnfreezeLicense(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// POST /licenses/:id/terminate
func (h *LicenseHandler) TerminateLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req licenseReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	license, err := h.licenseService.TerminateLicense(id, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, license)
}

// DELETE /licenses/:id
func (h *LicenseHandler) DeleteLicense(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.licenseService.DeleteLicense(id); err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"deleted": true})
}

// GET /licenses/expiring
func (h *LicenseHandler) GetExpiringLicenses(c *gin.Context) {
	days := 30
	if daysStr := c.Query("days"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 {
			days = parsed
		}
	}

	licenses, err := h.licenseService.GetExpiringLicenses(days)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, licenses)
}

// GET /licenses/stats
func (h *LicenseHandler) GetLicenseStats(c *gin.Context) {
	stats, err := h.licenseService.GetStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}
