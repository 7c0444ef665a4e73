// internal/handlers/workflow.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/services"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

type WorkflowHandler struct {
	workflowService *services.WorkflowService
}

type transitionRequest struct {
	TargetStatus models.AssetWorkflowStatus `json:"target_status" validate:"required"`
	Reason       string                     `json:"reason,omitempty"`
}

type freezeRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type batchTransitionRequest struct {
	AssetIDs     []uuid.UUID                `json:"asset_ids" validate:"required,min=1"`
	TargetStatus models.AssetWorkflowStatus `json:"target_status" validate:"required"`
}

func NewWorkflowHandler(workflowService *services.WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{workflowService: workflowService}
}

// GET /workflow/assets/:id/status
func (h *WorkflowHandler) GetAssetStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	info, err := h.workflowService.GetAssetStatus(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, info)
}

// POST /workflow/assets/:id/transition
//
// A denied transition is a normal outcome, not an HTTP error: the result
// body carries success=false and the reason.
func (h *WorkflowHandler) Transition(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.workflowService.Transition(id, req.TargetStatus, userID, role, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /workflow/assets/:id/freeze
func (h *WorkflowHandler) FreezeAsset(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req freezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.workflowService.FreezeAsset(id, userID, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /workflow/assets/:id/unfreeze
func (h *WorkflowHandler) UnfreezeAsset(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req freezeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.workflowService.UnfreezeAsset(id, userID, req.Reason)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// POST /workflow/batch/transition
func (h *WorkflowHandler) BatchTransition(c *gin.Context) {
	userID, role, ok := currentUser(c)
	if !ok {
		return
	}

	var req batchTransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "请求格式错误", err.Error())
		return
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result := h.workflowService.BatchTransition(req.AssetIDs, req.TargetStatus, userID, role)

	utils.SuccessResponse(c, result)
}

// GET /workflow/assets/:id/history
func (h *WorkflowHandler) GetAuditHistory(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	logs, err := h.workflowService.GetAuditHistory(id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, logs)
}

// GET /workflow/stats
func (h *WorkflowHandler) GetWorkflowStats(c *gin.Context) {
	stats, err := h.workflowService.GetWorkflowStats()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}
